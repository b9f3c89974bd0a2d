package elb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
)

const (
	// Set by the AWS Load Balancer Controller.
	controllerClusterTag = "elbv2.k8s.aws/cluster"
	// Set by the legacy in-tree service controller.
	legacyClusterTagPrefix = "kubernetes.io/cluster/"

	// DescribeTags accepts at most 20 ARNs per call.
	describeTagsBatch = 20
)

type ELBAPI interface {
	DescribeLoadBalancers(ctx context.Context, params *elbv2.DescribeLoadBalancersInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeLoadBalancersOutput, error)
	DescribeTags(ctx context.Context, params *elbv2.DescribeTagsInput, optFns ...func(*elbv2.Options)) (*elbv2.DescribeTagsOutput, error)
}

type Client struct {
	api ELBAPI
}

func NewClient(api ELBAPI) *Client {
	return &Client{api: api}
}

func (c *Client) ListLoadBalancers(ctx context.Context) ([]ELBLoadBalancer, error) {
	var lbs []ELBLoadBalancer
	var marker *string

	for {
		out, err := c.api.DescribeLoadBalancers(ctx, &elbv2.DescribeLoadBalancersInput{
			Marker: marker,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeLoadBalancers: %w", err)
		}

		for _, lb := range out.LoadBalancers {
			var state, reason string
			if lb.State != nil {
				state = string(lb.State.Code)
				reason = aws.ToString(lb.State.Reason)
			}
			var createdAt time.Time
			if lb.CreatedTime != nil {
				createdAt = *lb.CreatedTime
			}
			lbs = append(lbs, ELBLoadBalancer{
				Name:      aws.ToString(lb.LoadBalancerName),
				ARN:       aws.ToString(lb.LoadBalancerArn),
				Type:      string(lb.Type),
				State:     state,
				Reason:    reason,
				Scheme:    string(lb.Scheme),
				DNSName:   aws.ToString(lb.DNSName),
				VPCID:     aws.ToString(lb.VpcId),
				CreatedAt: createdAt,
			})
		}

		if out.NextMarker == nil {
			break
		}
		marker = out.NextMarker
	}
	return lbs, nil
}

// ListClusterLoadBalancers returns the load balancers in vpcID that a
// Kubernetes controller of clusterName provisioned, with their tags.
func (c *Client) ListClusterLoadBalancers(ctx context.Context, clusterName, vpcID string) ([]ELBLoadBalancer, error) {
	all, err := c.ListLoadBalancers(ctx)
	if err != nil {
		return nil, err
	}

	var candidates []ELBLoadBalancer
	for _, lb := range all {
		if vpcID == "" || lb.VPCID == vpcID {
			candidates = append(candidates, lb)
		}
	}

	var owned []ELBLoadBalancer
	for start := 0; start < len(candidates); start += describeTagsBatch {
		end := min(start+describeTagsBatch, len(candidates))
		batch := candidates[start:end]

		arns := make([]string, len(batch))
		for i, lb := range batch {
			arns[i] = lb.ARN
		}
		tags, err := c.GetResourceTags(ctx, arns)
		if err != nil {
			return nil, err
		}

		for _, lb := range batch {
			lb.Tags = tags[lb.ARN]
			if ownedBy(lb.Tags, clusterName) {
				owned = append(owned, lb)
			}
		}
	}
	return owned, nil
}

func ownedBy(tags map[string]string, clusterName string) bool {
	if tags[controllerClusterTag] == clusterName {
		return true
	}
	_, ok := tags[legacyClusterTagPrefix+clusterName]
	return ok
}

func (c *Client) GetResourceTags(ctx context.Context, arns []string) (map[string]map[string]string, error) {
	out, err := c.api.DescribeTags(ctx, &elbv2.DescribeTagsInput{
		ResourceArns: arns,
	})
	if err != nil {
		return nil, fmt.Errorf("DescribeTags: %w", err)
	}

	result := make(map[string]map[string]string, len(out.TagDescriptions))
	for _, td := range out.TagDescriptions {
		arn := aws.ToString(td.ResourceArn)
		tags := make(map[string]string, len(td.Tags))
		for _, t := range td.Tags {
			tags[aws.ToString(t.Key)] = aws.ToString(t.Value)
		}
		result[arn] = tags
	}
	return result, nil
}
