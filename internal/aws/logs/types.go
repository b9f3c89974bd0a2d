package logs

import "time"

// LogGroup is a CloudWatch log group as reported by DescribeLogGroups.
type LogGroup struct {
	Name          string
	ARN           string
	RetentionDays int
	StoredBytes   int64
	CreatedAt     time.Time
}
