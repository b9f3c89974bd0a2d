package s3

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type S3API interface {
	HeadBucket(ctx context.Context, params *awss3.HeadBucketInput, optFns ...func(*awss3.Options)) (*awss3.HeadBucketOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

type Client struct {
	api S3API
}

func NewClient(api S3API) *Client {
	return &Client{api: api}
}

// CheckBucket verifies the bucket exists and the caller may write to it.
func (c *Client) CheckBucket(ctx context.Context, bucket string) error {
	if _, err := c.api.HeadBucket(ctx, &awss3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return fmt.Errorf("HeadBucket(%s): %w", bucket, err)
	}
	return nil
}

// UploadFile stores a local file under key with SSE-S3 encryption.
func (c *Client) UploadFile(ctx context.Context, bucket, key, path string) (S3Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return S3Object{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return S3Object{}, fmt.Errorf("stat %s: %w", path, err)
	}

	out, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		Body:                 f,
		ContentLength:        aws.Int64(info.Size()),
		ContentType:          aws.String(contentType(path)),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return S3Object{}, fmt.Errorf("PutObject(s3://%s/%s): %w", bucket, key, err)
	}

	return S3Object{
		Bucket:    bucket,
		Key:       key,
		Size:      info.Size(),
		ETag:      aws.ToString(out.ETag),
		VersionID: aws.ToString(out.VersionId),
	}, nil
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".json":
		return "application/json"
	case ".yaml", ".yml":
		return "application/yaml"
	default:
		return "application/octet-stream"
	}
}
