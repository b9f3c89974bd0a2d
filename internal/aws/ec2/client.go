package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

const (
	clusterNameTag   = "eks:cluster-name"
	nodegroupNameTag = "eks:nodegroup-name"
)

type EC2API interface {
	DescribeInstances(ctx context.Context, params *awsec2.DescribeInstancesInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeInstancesOutput, error)
}

type Client struct {
	api EC2API
}

func NewClient(api EC2API) *Client {
	return &Client{api: api}
}

// ListClusterInstances returns the non-terminated instances EKS tagged as
// belonging to the given cluster.
func (c *Client) ListClusterInstances(ctx context.Context, clusterName string) ([]EC2Instance, EC2Summary, error) {
	var instances []EC2Instance
	var summary EC2Summary
	var nextToken *string

	for {
		out, err := c.api.DescribeInstances(ctx, &awsec2.DescribeInstancesInput{
			Filters: []types.Filter{
				{Name: aws.String("tag:" + clusterNameTag), Values: []string{clusterName}},
				{Name: aws.String("instance-state-name"), Values: []string{"pending", "running", "stopping", "stopped"}},
			},
			NextToken: nextToken,
		})
		if err != nil {
			return nil, EC2Summary{}, fmt.Errorf("DescribeInstances(%s): %w", clusterName, err)
		}

		for _, reservation := range out.Reservations {
			for _, inst := range reservation.Instances {
				var name, nodegroup string
				for _, tag := range inst.Tags {
					switch aws.ToString(tag.Key) {
					case "Name":
						name = aws.ToString(tag.Value)
					case nodegroupNameTag:
						nodegroup = aws.ToString(tag.Value)
					}
				}

				var state types.InstanceStateName
				if inst.State != nil {
					state = inst.State.Name
				}

				i := EC2Instance{
					Name:       name,
					InstanceID: aws.ToString(inst.InstanceId),
					Type:       string(inst.InstanceType),
					State:      string(state),
					PrivateIP:  aws.ToString(inst.PrivateIpAddress),
					PrivateDNS: aws.ToString(inst.PrivateDnsName),
					Nodegroup:  nodegroup,
				}
				if inst.Placement != nil {
					i.Zone = aws.ToString(inst.Placement.AvailabilityZone)
				}
				if inst.LaunchTime != nil {
					i.LaunchedAt = *inst.LaunchTime
				}
				instances = append(instances, i)

				summary.Total++
				switch state {
				case types.InstanceStateNameRunning:
					summary.Running++
				case types.InstanceStateNamePending:
					summary.Pending++
				case types.InstanceStateNameStopped:
					summary.Stopped++
				}
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return instances, summary, nil
}
