// Package validate runs independent health checks against a cluster and
// aggregates them into a report.
package validate

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	awsec2 "tasnim.dev/eksops/internal/aws/ec2"
	"tasnim.dev/eksops/internal/aws/eks"
	awselb "tasnim.dev/eksops/internal/aws/elb"
	awsiam "tasnim.dev/eksops/internal/aws/iam"
	awslogs "tasnim.dev/eksops/internal/aws/logs"
	awsvpc "tasnim.dev/eksops/internal/aws/vpc"
	"tasnim.dev/eksops/internal/kube"
	"tasnim.dev/eksops/internal/target"
)

// ClusterAPI is the read-only EKS surface the checks use. *eks.Client
// satisfies it.
type ClusterAPI interface {
	DescribeCluster(ctx context.Context, name string) (eks.Cluster, error)
	ListNodeGroups(ctx context.Context, clusterName string) ([]eks.NodeGroup, error)
	ListAddons(ctx context.Context, clusterName string) ([]eks.Addon, error)
	ListUpdates(ctx context.Context, ref eks.UpdateRef) ([]eks.Update, error)
}

type RoleGetter interface {
	GetRole(ctx context.Context, roleARN string) (awsiam.IAMRole, error)
}

type LogGroupFinder interface {
	FindLogGroup(ctx context.Context, name string) (awslogs.LogGroup, bool, error)
}

type InstanceLister interface {
	ListClusterInstances(ctx context.Context, clusterName string) ([]awsec2.EC2Instance, awsec2.EC2Summary, error)
}

type NetworkDescriber interface {
	DescribeVPC(ctx context.Context, vpcID string) (awsvpc.VPCInfo, error)
	DescribeSubnets(ctx context.Context, subnetIDs []string) ([]awsvpc.SubnetInfo, error)
}

type LoadBalancerLister interface {
	ListClusterLoadBalancers(ctx context.Context, clusterName, vpcID string) ([]awselb.ELBLoadBalancer, error)
}

// SnapshotLocator is satisfied by *backup.Manager.
type SnapshotLocator interface {
	Latest(clusterName string) (string, error)
}

// Validator runs the health checks for one cluster. Checks backed by an AWS
// client other than EKS are left out when that client is nil.
type Validator struct {
	Target target.Target

	EKS     ClusterAPI
	Kube    kubernetes.Interface
	Dynamic dynamic.Interface
	IAM     RoleGetter
	Logs    LogGroupFinder
	EC2     InstanceLister
	ELB     LoadBalancerLister
	VPC     NetworkDescriber
	Backups SnapshotLocator

	SystemNamespaces []string
	DNSTest          kube.DNSTest
	SkipDNSTest      bool

	Now func() time.Time

	// Per-run memo so independent checks do not repeat the same reads.
	cluster    *eks.Cluster
	clusterErr error
	nodegroups []eks.NodeGroup
	ngErr      error
	ngLoaded   bool
}

// Run executes every check of scope in order and returns the report. The
// error is non-nil only when the run itself could not proceed; failing checks
// are reported through Report.Status.
func (v *Validator) Run(ctx context.Context, scope target.ValidationScope, strict bool) (*Report, error) {
	v.cluster, v.clusterErr = nil, nil
	v.nodegroups, v.ngErr, v.ngLoaded = nil, nil, false

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	report := &Report{
		Cluster:        v.Target.ClusterName,
		Environment:    string(v.Target.Environment),
		Region:         v.Target.Region,
		ValidationType: string(scope),
		Strict:         strict,
		Timestamp:      now().UTC(),
	}

	var tally Tally
	for _, c := range v.Checks(scope) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := c.Run(ctx, v)
		res.Name = c.Name
		tally.Add(res.Status)
		report.Checks = append(report.Checks, res)

		log.WithFields(log.Fields{"check": res.Name, "status": res.Status}).Debug(res.Message)
	}

	report.Tally = tally
	report.Status = tally.Overall(strict)
	return report, nil
}

func (v *Validator) describeCluster(ctx context.Context) (eks.Cluster, error) {
	if v.cluster == nil && v.clusterErr == nil {
		c, err := v.EKS.DescribeCluster(ctx, v.Target.ClusterName)
		if err != nil {
			v.clusterErr = err
		} else {
			v.cluster = &c
		}
	}
	if v.clusterErr != nil {
		return eks.Cluster{}, v.clusterErr
	}
	return *v.cluster, nil
}

func (v *Validator) listNodeGroups(ctx context.Context) ([]eks.NodeGroup, error) {
	if !v.ngLoaded {
		v.nodegroups, v.ngErr = v.EKS.ListNodeGroups(ctx, v.Target.ClusterName)
		v.ngLoaded = true
	}
	return v.nodegroups, v.ngErr
}
