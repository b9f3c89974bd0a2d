package s3

// S3Object describes an object written by UploadFile.
type S3Object struct {
	Bucket    string
	Key       string
	Size      int64
	ETag      string
	VersionID string
}

// URI returns the s3:// form of the object location.
func (o S3Object) URI() string {
	return "s3://" + o.Bucket + "/" + o.Key
}
