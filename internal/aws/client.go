package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	awss3sdk "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	awsec2 "tasnim.dev/eksops/internal/aws/ec2"
	awseks "tasnim.dev/eksops/internal/aws/eks"
	awselb "tasnim.dev/eksops/internal/aws/elb"
	awsiam "tasnim.dev/eksops/internal/aws/iam"
	awslogs "tasnim.dev/eksops/internal/aws/logs"
	awss3 "tasnim.dev/eksops/internal/aws/s3"
	awsvpc "tasnim.dev/eksops/internal/aws/vpc"
)

type ServiceClient struct {
	Config aws.Config
	EKS    *awseks.Client
	IAM    *awsiam.Client
	Logs   *awslogs.Client
	EC2    *awsec2.Client
	ELB    *awselb.Client
	VPC    *awsvpc.Client
	S3     *awss3.Client
	STS    STSAPI
}

func NewServiceClient(ctx context.Context, profile, region string) (*ServiceClient, error) {
	cfg, err := LoadConfig(ctx, profile, region)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	ec2api := ec2.NewFromConfig(cfg)
	return &ServiceClient{
		Config: cfg,
		EKS:    awseks.NewClient(eks.NewFromConfig(cfg)),
		IAM:    awsiam.NewClient(iam.NewFromConfig(cfg)),
		Logs:   awslogs.NewClient(cloudwatchlogs.NewFromConfig(cfg)),
		EC2:    awsec2.NewClient(ec2api),
		ELB:    awselb.NewClient(elbv2.NewFromConfig(cfg)),
		VPC:    awsvpc.NewClient(ec2api),
		S3:     awss3.NewClient(awss3sdk.NewFromConfig(cfg)),
		STS:    sts.NewFromConfig(cfg),
	}, nil
}

// Region is the region the clients were built for.
func (s *ServiceClient) Region() string {
	return s.Config.Region
}
