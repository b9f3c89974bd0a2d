package eks

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseks "github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

type EKSAPI interface {
	DescribeCluster(ctx context.Context, params *awseks.DescribeClusterInput, optFns ...func(*awseks.Options)) (*awseks.DescribeClusterOutput, error)
	ListNodegroups(ctx context.Context, params *awseks.ListNodegroupsInput, optFns ...func(*awseks.Options)) (*awseks.ListNodegroupsOutput, error)
	DescribeNodegroup(ctx context.Context, params *awseks.DescribeNodegroupInput, optFns ...func(*awseks.Options)) (*awseks.DescribeNodegroupOutput, error)
	ListAddons(ctx context.Context, params *awseks.ListAddonsInput, optFns ...func(*awseks.Options)) (*awseks.ListAddonsOutput, error)
	DescribeAddon(ctx context.Context, params *awseks.DescribeAddonInput, optFns ...func(*awseks.Options)) (*awseks.DescribeAddonOutput, error)
	DescribeAddonVersions(ctx context.Context, params *awseks.DescribeAddonVersionsInput, optFns ...func(*awseks.Options)) (*awseks.DescribeAddonVersionsOutput, error)
	ListUpdates(ctx context.Context, params *awseks.ListUpdatesInput, optFns ...func(*awseks.Options)) (*awseks.ListUpdatesOutput, error)
	DescribeUpdate(ctx context.Context, params *awseks.DescribeUpdateInput, optFns ...func(*awseks.Options)) (*awseks.DescribeUpdateOutput, error)
	UpdateClusterVersion(ctx context.Context, params *awseks.UpdateClusterVersionInput, optFns ...func(*awseks.Options)) (*awseks.UpdateClusterVersionOutput, error)
	UpdateClusterConfig(ctx context.Context, params *awseks.UpdateClusterConfigInput, optFns ...func(*awseks.Options)) (*awseks.UpdateClusterConfigOutput, error)
	UpdateNodegroupVersion(ctx context.Context, params *awseks.UpdateNodegroupVersionInput, optFns ...func(*awseks.Options)) (*awseks.UpdateNodegroupVersionOutput, error)
	UpdateNodegroupConfig(ctx context.Context, params *awseks.UpdateNodegroupConfigInput, optFns ...func(*awseks.Options)) (*awseks.UpdateNodegroupConfigOutput, error)
	UpdateAddon(ctx context.Context, params *awseks.UpdateAddonInput, optFns ...func(*awseks.Options)) (*awseks.UpdateAddonOutput, error)
}

type Client struct {
	api EKSAPI
}

func NewClient(api EKSAPI) *Client {
	return &Client{api: api}
}

func (c *Client) DescribeCluster(ctx context.Context, name string) (Cluster, error) {
	out, err := c.api.DescribeCluster(ctx, &awseks.DescribeClusterInput{
		Name: aws.String(name),
	})
	if err != nil {
		return Cluster{}, fmt.Errorf("DescribeCluster(%s): %w", name, err)
	}
	if out.Cluster == nil {
		return Cluster{}, fmt.Errorf("DescribeCluster(%s): empty response", name)
	}

	cl := out.Cluster

	var createdAt time.Time
	if cl.CreatedAt != nil {
		createdAt = *cl.CreatedAt
	}

	var certAuthority string
	if cl.CertificateAuthority != nil {
		certAuthority = aws.ToString(cl.CertificateAuthority.Data)
	}

	var vpcID string
	var subnets []string
	var endpointPublic, endpointPrivate bool
	if cl.ResourcesVpcConfig != nil {
		vpcID = aws.ToString(cl.ResourcesVpcConfig.VpcId)
		subnets = cl.ResourcesVpcConfig.SubnetIds
		endpointPublic = cl.ResourcesVpcConfig.EndpointPublicAccess
		endpointPrivate = cl.ResourcesVpcConfig.EndpointPrivateAccess
	}

	return Cluster{
		Name:            aws.ToString(cl.Name),
		ARN:             aws.ToString(cl.Arn),
		Status:          cl.Status,
		Version:         aws.ToString(cl.Version),
		PlatformVersion: aws.ToString(cl.PlatformVersion),
		Endpoint:        aws.ToString(cl.Endpoint),
		EndpointPublic:  endpointPublic,
		EndpointPrivate: endpointPrivate,
		VPCID:           vpcID,
		SubnetIDs:       subnets,
		RoleARN:         aws.ToString(cl.RoleArn),
		CertAuthority:   certAuthority,
		EnabledLogTypes: enabledLogTypes(cl.Logging),
		Tags:            cl.Tags,
		CreatedAt:       createdAt,
	}, nil
}

func enabledLogTypes(l *ekstypes.Logging) []string {
	if l == nil {
		return nil
	}
	var types []string
	for _, setup := range l.ClusterLogging {
		if !aws.ToBool(setup.Enabled) {
			continue
		}
		for _, t := range setup.Types {
			types = append(types, string(t))
		}
	}
	return types
}

func (c *Client) ListNodeGroups(ctx context.Context, clusterName string) ([]NodeGroup, error) {
	var names []string
	var nextToken *string

	for {
		out, err := c.api.ListNodegroups(ctx, &awseks.ListNodegroupsInput{
			ClusterName: aws.String(clusterName),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ListNodegroups(%s): %w", clusterName, err)
		}

		names = append(names, out.Nodegroups...)

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	nodeGroups := make([]NodeGroup, 0, len(names))
	for _, name := range names {
		ng, err := c.DescribeNodegroup(ctx, clusterName, name)
		if err != nil {
			return nil, err
		}
		nodeGroups = append(nodeGroups, ng)
	}

	return nodeGroups, nil
}

func (c *Client) DescribeNodegroup(ctx context.Context, clusterName, name string) (NodeGroup, error) {
	out, err := c.api.DescribeNodegroup(ctx, &awseks.DescribeNodegroupInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(name),
	})
	if err != nil {
		return NodeGroup{}, fmt.Errorf("DescribeNodegroup(%s/%s): %w", clusterName, name, err)
	}
	if out.Nodegroup == nil {
		return NodeGroup{}, fmt.Errorf("DescribeNodegroup(%s/%s): empty response", clusterName, name)
	}

	ng := out.Nodegroup

	var minSize, maxSize, desiredSize int
	if ng.ScalingConfig != nil {
		if ng.ScalingConfig.MinSize != nil {
			minSize = int(*ng.ScalingConfig.MinSize)
		}
		if ng.ScalingConfig.MaxSize != nil {
			maxSize = int(*ng.ScalingConfig.MaxSize)
		}
		if ng.ScalingConfig.DesiredSize != nil {
			desiredSize = int(*ng.ScalingConfig.DesiredSize)
		}
	}

	var taints []NodeGroupTaint
	for _, t := range ng.Taints {
		taints = append(taints, NodeGroupTaint{
			Key:    aws.ToString(t.Key),
			Value:  aws.ToString(t.Value),
			Effect: string(t.Effect),
		})
	}

	var launchTemplate string
	if ng.LaunchTemplate != nil {
		launchTemplate = aws.ToString(ng.LaunchTemplate.Name)
	}

	var issues []string
	if ng.Health != nil {
		for _, issue := range ng.Health.Issues {
			issues = append(issues, fmt.Sprintf("%s: %s", issue.Code, aws.ToString(issue.Message)))
		}
	}

	return NodeGroup{
		Name:           aws.ToString(ng.NodegroupName),
		ARN:            aws.ToString(ng.NodegroupArn),
		Status:         ng.Status,
		Version:        aws.ToString(ng.Version),
		ReleaseVersion: aws.ToString(ng.ReleaseVersion),
		InstanceTypes:  ng.InstanceTypes,
		AMIType:        string(ng.AmiType),
		CapacityType:   string(ng.CapacityType),
		MinSize:        minSize,
		MaxSize:        maxSize,
		DesiredSize:    desiredSize,
		Labels:         ng.Labels,
		Taints:         taints,
		Subnets:        ng.Subnets,
		LaunchTemplate: launchTemplate,
		HealthIssues:   issues,
	}, nil
}

func (c *Client) ListAddons(ctx context.Context, clusterName string) ([]Addon, error) {
	var names []string
	var nextToken *string

	for {
		out, err := c.api.ListAddons(ctx, &awseks.ListAddonsInput{
			ClusterName: aws.String(clusterName),
			NextToken:   nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("ListAddons(%s): %w", clusterName, err)
		}

		names = append(names, out.Addons...)

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	addons := make([]Addon, 0, len(names))
	for _, name := range names {
		a, err := c.DescribeAddon(ctx, clusterName, name)
		if err != nil {
			return nil, err
		}
		addons = append(addons, a)
	}

	return addons, nil
}

func (c *Client) DescribeAddon(ctx context.Context, clusterName, name string) (Addon, error) {
	out, err := c.api.DescribeAddon(ctx, &awseks.DescribeAddonInput{
		ClusterName: aws.String(clusterName),
		AddonName:   aws.String(name),
	})
	if err != nil {
		return Addon{}, fmt.Errorf("DescribeAddon(%s/%s): %w", clusterName, name, err)
	}
	if out.Addon == nil {
		return Addon{}, fmt.Errorf("DescribeAddon(%s/%s): empty response", clusterName, name)
	}

	a := out.Addon

	var health string
	if a.Health != nil && len(a.Health.Issues) > 0 {
		health = string(a.Health.Issues[0].Code)
	}

	return Addon{
		Name:                aws.ToString(a.AddonName),
		ARN:                 aws.ToString(a.AddonArn),
		Version:             aws.ToString(a.AddonVersion),
		Status:              a.Status,
		Health:              health,
		ServiceAccountRole:  aws.ToString(a.ServiceAccountRoleArn),
		ConfigurationValues: aws.ToString(a.ConfigurationValues),
	}, nil
}

// ResolveAddonVersion returns the version EKS marks as default for the given
// Kubernetes version, falling back to the newest compatible one. An empty
// string means no published version supports kubernetesVersion.
func (c *Client) ResolveAddonVersion(ctx context.Context, addonName, kubernetesVersion string) (string, error) {
	var newest string
	var nextToken *string

	for {
		out, err := c.api.DescribeAddonVersions(ctx, &awseks.DescribeAddonVersionsInput{
			AddonName:         aws.String(addonName),
			KubernetesVersion: aws.String(kubernetesVersion),
			NextToken:         nextToken,
		})
		if err != nil {
			return "", fmt.Errorf("DescribeAddonVersions(%s, %s): %w", addonName, kubernetesVersion, err)
		}

		for _, info := range out.Addons {
			for _, v := range info.AddonVersions {
				for _, compat := range v.Compatibilities {
					if aws.ToString(compat.ClusterVersion) != kubernetesVersion {
						continue
					}
					if compat.DefaultVersion {
						return aws.ToString(v.AddonVersion), nil
					}
					// EKS lists versions newest first.
					if newest == "" {
						newest = aws.ToString(v.AddonVersion)
					}
				}
			}
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	return newest, nil
}
