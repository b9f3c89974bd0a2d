package logs

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// CloudWatchLogsAPI defines the subset of CloudWatch Logs API we use.
type CloudWatchLogsAPI interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// Client wraps the CloudWatch Logs API.
type Client struct {
	api CloudWatchLogsAPI
}

// NewClient creates a new logs client.
func NewClient(api CloudWatchLogsAPI) *Client {
	return &Client{api: api}
}

// ClusterLogGroup is the log group EKS writes control-plane logs to.
func ClusterLogGroup(clusterName string) string {
	return "/aws/eks/" + clusterName + "/cluster"
}

// FindLogGroup returns the log group with exactly the given name. The bool is
// false when no such group exists.
func (c *Client) FindLogGroup(ctx context.Context, name string) (LogGroup, bool, error) {
	var nextToken *string

	for {
		out, err := c.api.DescribeLogGroups(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
			LogGroupNamePrefix: aws.String(name),
			NextToken:          nextToken,
		})
		if err != nil {
			return LogGroup{}, false, fmt.Errorf("DescribeLogGroups(%s): %w", name, err)
		}

		for _, g := range out.LogGroups {
			if aws.ToString(g.LogGroupName) != name {
				continue
			}
			var created time.Time
			if g.CreationTime != nil {
				created = time.UnixMilli(*g.CreationTime)
			}
			return LogGroup{
				Name:          name,
				ARN:           aws.ToString(g.Arn),
				RetentionDays: int(aws.ToInt32(g.RetentionInDays)),
				StoredBytes:   aws.ToInt64(g.StoredBytes),
				CreatedAt:     created,
			}, true, nil
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return LogGroup{}, false, nil
}
