package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsiam "github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/smithy-go"

	"tasnim.dev/eksops/internal/utils"
)

// ErrRoleNotFound is returned when GetRole answers NoSuchEntity.
var ErrRoleNotFound = errors.New("IAM role not found")

type IAMAPI interface {
	GetRole(ctx context.Context, params *awsiam.GetRoleInput, optFns ...func(*awsiam.Options)) (*awsiam.GetRoleOutput, error)
	ListAttachedRolePolicies(ctx context.Context, params *awsiam.ListAttachedRolePoliciesInput, optFns ...func(*awsiam.Options)) (*awsiam.ListAttachedRolePoliciesOutput, error)
}

type Client struct {
	api IAMAPI
}

func NewClient(api IAMAPI) *Client {
	return &Client{api: api}
}

// GetRole looks up a role by ARN or name together with its attached managed
// policies.
func (c *Client) GetRole(ctx context.Context, roleARN string) (IAMRole, error) {
	name := utils.ShortName(roleARN)

	out, err := c.api.GetRole(ctx, &awsiam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchEntity" {
			return IAMRole{}, fmt.Errorf("GetRole(%s): %w", name, ErrRoleNotFound)
		}
		return IAMRole{}, fmt.Errorf("GetRole(%s): %w", name, err)
	}
	if out.Role == nil {
		return IAMRole{}, fmt.Errorf("GetRole(%s): %w", name, ErrRoleNotFound)
	}

	var createdAt time.Time
	if out.Role.CreateDate != nil {
		createdAt = *out.Role.CreateDate
	}

	policies, err := c.ListAttachedRolePolicies(ctx, name)
	if err != nil {
		return IAMRole{}, err
	}

	return IAMRole{
		Name:             aws.ToString(out.Role.RoleName),
		ARN:              aws.ToString(out.Role.Arn),
		CreatedAt:        createdAt,
		AttachedPolicies: policies,
	}, nil
}

func (c *Client) ListAttachedRolePolicies(ctx context.Context, roleName string) ([]IAMAttachedPolicy, error) {
	var policies []IAMAttachedPolicy
	var marker *string

	for {
		out, err := c.api.ListAttachedRolePolicies(ctx, &awsiam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return nil, fmt.Errorf("ListAttachedRolePolicies(%s): %w", roleName, err)
		}

		for _, p := range out.AttachedPolicies {
			policies = append(policies, IAMAttachedPolicy{
				Name: aws.ToString(p.PolicyName),
				ARN:  aws.ToString(p.PolicyArn),
			})
		}

		if !out.IsTruncated {
			break
		}
		marker = out.Marker
	}

	return policies, nil
}
