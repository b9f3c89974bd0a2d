package eks

import (
	"time"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

type Cluster struct {
	Name            string                 `json:"name" yaml:"name"`
	ARN             string                 `json:"arn" yaml:"arn"`
	Status          ekstypes.ClusterStatus `json:"status" yaml:"status"`
	Version         string                 `json:"version" yaml:"version"`
	PlatformVersion string                 `json:"platformVersion" yaml:"platformVersion"`
	Endpoint        string                 `json:"endpoint" yaml:"endpoint"`
	EndpointPublic  bool                   `json:"endpointPublic" yaml:"endpointPublic"`
	EndpointPrivate bool                   `json:"endpointPrivate" yaml:"endpointPrivate"`
	VPCID           string                 `json:"vpcId" yaml:"vpcId"`
	SubnetIDs       []string               `json:"subnetIds,omitempty" yaml:"subnetIds,omitempty"`
	RoleARN         string                 `json:"roleArn" yaml:"roleArn"`
	CertAuthority   string                 `json:"certificateAuthority" yaml:"certificateAuthority"` // base64-encoded CA for K8s API
	EnabledLogTypes []string               `json:"enabledLogTypes,omitempty" yaml:"enabledLogTypes,omitempty"`
	Tags            map[string]string      `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt       time.Time              `json:"createdAt" yaml:"createdAt"`
}

type NodeGroup struct {
	Name           string                   `json:"name" yaml:"name"`
	ARN            string                   `json:"arn" yaml:"arn"`
	Status         ekstypes.NodegroupStatus `json:"status" yaml:"status"`
	Version        string                   `json:"version" yaml:"version"`
	ReleaseVersion string                   `json:"releaseVersion" yaml:"releaseVersion"`
	InstanceTypes  []string                 `json:"instanceTypes,omitempty" yaml:"instanceTypes,omitempty"`
	AMIType        string                   `json:"amiType" yaml:"amiType"`
	CapacityType   string                   `json:"capacityType,omitempty" yaml:"capacityType,omitempty"`
	MinSize        int                      `json:"minSize" yaml:"minSize"`
	MaxSize        int                      `json:"maxSize" yaml:"maxSize"`
	DesiredSize    int                      `json:"desiredSize" yaml:"desiredSize"`
	Labels         map[string]string        `json:"labels,omitempty" yaml:"labels,omitempty"`
	Taints         []NodeGroupTaint         `json:"taints,omitempty" yaml:"taints,omitempty"`
	Subnets        []string                 `json:"subnets,omitempty" yaml:"subnets,omitempty"`
	LaunchTemplate string                   `json:"launchTemplate,omitempty" yaml:"launchTemplate,omitempty"`
	HealthIssues   []string                 `json:"healthIssues,omitempty" yaml:"healthIssues,omitempty"`
}

type NodeGroupTaint struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value,omitempty" yaml:"value,omitempty"`
	Effect string `json:"effect" yaml:"effect"`
}

type Addon struct {
	Name                string               `json:"name" yaml:"name"`
	ARN                 string               `json:"arn" yaml:"arn"`
	Version             string               `json:"version" yaml:"version"`
	Status              ekstypes.AddonStatus `json:"status" yaml:"status"`
	Health              string               `json:"health,omitempty" yaml:"health,omitempty"`
	ServiceAccountRole  string               `json:"serviceAccountRoleArn,omitempty" yaml:"serviceAccountRoleArn,omitempty"`
	ConfigurationValues string               `json:"configurationValues,omitempty" yaml:"configurationValues,omitempty"`
}

// UpdateRef identifies an EKS update. Nodegroup and Addon are mutually
// exclusive; both empty means a cluster-level update.
type UpdateRef struct {
	Cluster   string
	Nodegroup string
	Addon     string
	ID        string
}

// Resource returns a short label such as "nodegroup/ng-1".
func (r UpdateRef) Resource() string {
	switch {
	case r.Nodegroup != "":
		return "nodegroup/" + r.Nodegroup
	case r.Addon != "":
		return "addon/" + r.Addon
	default:
		return "cluster/" + r.Cluster
	}
}

type Update struct {
	Ref       UpdateRef
	Type      ekstypes.UpdateType
	Status    ekstypes.UpdateStatus
	Errors    []string
	CreatedAt time.Time
}

// Terminal reports whether the update reached a final status.
func (u Update) Terminal() bool {
	switch u.Status {
	case ekstypes.UpdateStatusSuccessful, ekstypes.UpdateStatusFailed, ekstypes.UpdateStatusCancelled:
		return true
	}
	return false
}

type NodegroupVersionOptions struct {
	Version        string
	ReleaseVersion string
}

// NodegroupConfig carries the mutable scaling and label settings of a managed
// node group. Nil sizes are left unchanged.
type NodegroupConfig struct {
	MinSize      *int32
	MaxSize      *int32
	DesiredSize  *int32
	AddLabels    map[string]string
	RemoveLabels []string
}

type AddonUpdate struct {
	Name                  string
	Version               string
	ConfigurationValues   string
	ServiceAccountRoleARN string
	ResolveConflicts      ekstypes.ResolveConflicts
}
