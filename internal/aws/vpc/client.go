package vpc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsec2 "github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

type VPCAPI interface {
	DescribeVpcs(ctx context.Context, params *awsec2.DescribeVpcsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *awsec2.DescribeSubnetsInput, optFns ...func(*awsec2.Options)) (*awsec2.DescribeSubnetsOutput, error)
}

type Client struct {
	api VPCAPI
}

func NewClient(api VPCAPI) *Client {
	return &Client{api: api}
}

func nameFromTags(tags []types.Tag) string {
	for _, tag := range tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return ""
}

// DescribeVPC returns the cluster VPC.
func (c *Client) DescribeVPC(ctx context.Context, vpcID string) (VPCInfo, error) {
	out, err := c.api.DescribeVpcs(ctx, &awsec2.DescribeVpcsInput{VpcIds: []string{vpcID}})
	if err != nil {
		return VPCInfo{}, fmt.Errorf("DescribeVpcs(%s): %w", vpcID, err)
	}
	if len(out.Vpcs) == 0 {
		return VPCInfo{}, fmt.Errorf("DescribeVpcs(%s): not found", vpcID)
	}
	v := out.Vpcs[0]
	return VPCInfo{
		VPCID: aws.ToString(v.VpcId),
		Name:  nameFromTags(v.Tags),
		CIDR:  aws.ToString(v.CidrBlock),
		State: string(v.State),
	}, nil
}

// DescribeSubnets returns the given subnets. IDs that do not exist make the
// whole call fail with InvalidSubnetID.NotFound.
func (c *Client) DescribeSubnets(ctx context.Context, subnetIDs []string) ([]SubnetInfo, error) {
	var subnets []SubnetInfo
	var nextToken *string

	for {
		out, err := c.api.DescribeSubnets(ctx, &awsec2.DescribeSubnetsInput{
			SubnetIds: subnetIDs,
			NextToken: nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("DescribeSubnets: %w", err)
		}

		for _, s := range out.Subnets {
			subnets = append(subnets, SubnetInfo{
				SubnetID:     aws.ToString(s.SubnetId),
				Name:         nameFromTags(s.Tags),
				CIDR:         aws.ToString(s.CidrBlock),
				AZ:           aws.ToString(s.AvailabilityZone),
				State:        string(s.State),
				AvailableIPs: int(aws.ToInt32(s.AvailableIpAddressCount)),
			})
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}
	return subnets, nil
}
