package validate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"tasnim.dev/eksops/internal/aws/eks"
	awsiam "tasnim.dev/eksops/internal/aws/iam"
	awslogs "tasnim.dev/eksops/internal/aws/logs"
	awsvpc "tasnim.dev/eksops/internal/aws/vpc"
	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/kube"
	"tasnim.dev/eksops/internal/target"
)

// Check is one independent health check. Run always yields exactly one Result; the
// Name on the returned Result is overwritten with Check.Name.
type Check struct {
	Name string
	Run  func(ctx context.Context, v *Validator) Result
}

const systemNamespace = metav1.NamespaceSystem

// Checks returns the ordered checks making up scope.
func (v *Validator) Checks(scope target.ValidationScope) []Check {
	base := v.baseChecks()

	switch scope {
	case target.ValidatePreUpdate:
		return append(base,
			Check{"no-update-in-progress", checkNoUpdateInProgress},
			Check{"version-skew", checkVersionSkew},
		)
	case target.ValidatePostUpdate:
		return append(base,
			Check{"version-skew", checkVersionSkew},
			Check{"kubelet-versions", checkKubeletVersions},
		)
	case target.ValidateRollback:
		return []Check{
			{"backup-available", checkBackupAvailable},
			{"control-plane", checkControlPlane},
			{"nodegroups", checkNodegroups},
			{"addons", checkAddons},
		}
	default:
		return base
	}
}

func (v *Validator) baseChecks() []Check {
	checks := []Check{
		{"control-plane", checkControlPlane},
		{"nodegroups", checkNodegroups},
		{"nodes-ready", checkNodesReady},
	}
	for _, ns := range v.SystemNamespaces {
		checks = append(checks, Check{"system-pods/" + ns, systemPodsCheck(ns)})
	}
	checks = append(checks,
		Check{"addons", checkAddons},
		Check{"cni", podsReadyCheck("aws-node", "k8s-app=aws-node")},
		Check{"dns-pods", podsReadyCheck("coredns", "k8s-app=kube-dns")},
		Check{"storage-classes", checkStorageClasses},
	)
	if !v.SkipDNSTest {
		checks = append(checks, Check{"dns-resolution", checkDNSResolution})
	}

	// AWS-side checks run only when their client is wired.
	if v.IAM != nil {
		checks = append(checks, Check{"iam-cluster-role", checkClusterRole})
	}
	if v.Logs != nil {
		checks = append(checks, Check{"control-plane-logging", checkControlPlaneLogging})
	}
	if v.EC2 != nil {
		checks = append(checks, Check{"worker-instances", checkWorkerInstances})
	}
	if v.VPC != nil {
		checks = append(checks, Check{"cluster-subnets", checkClusterSubnets})
	}
	if v.ELB != nil {
		checks = append(checks, Check{"load-balancers", checkLoadBalancers})
	}
	return append(checks, Check{"gitops-applications", checkGitOpsApplications})
}

func checkControlPlane(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	msg := fmt.Sprintf("status %s, Kubernetes %s (%s)", c.Status, c.Version, c.PlatformVersion)
	switch c.Status {
	case ekstypes.ClusterStatusActive:
		return passf("", msg)
	case ekstypes.ClusterStatusUpdating:
		return warnf("", msg)
	default:
		return failf("", msg)
	}
}

func checkNodegroups(ctx context.Context, v *Validator) Result {
	groups, err := v.listNodeGroups(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	if len(groups) == 0 {
		return warnf("", "no managed node groups")
	}

	var broken, busy []string
	for _, ng := range groups {
		switch ng.Status {
		case ekstypes.NodegroupStatusActive:
		case ekstypes.NodegroupStatusUpdating, ekstypes.NodegroupStatusCreating:
			busy = append(busy, fmt.Sprintf("%s %s", ng.Name, ng.Status))
		default:
			label := fmt.Sprintf("%s %s", ng.Name, ng.Status)
			if len(ng.HealthIssues) > 0 {
				label += " (" + strings.Join(ng.HealthIssues, "; ") + ")"
			}
			broken = append(broken, label)
		}
	}
	switch {
	case len(broken) > 0:
		return failf("", strings.Join(broken, ", "))
	case len(busy) > 0:
		return warnf("", strings.Join(busy, ", "))
	}
	return passf("", fmt.Sprintf("%d node groups ACTIVE", len(groups)))
}

func checkNodesReady(ctx context.Context, v *Validator) Result {
	nodes, err := kube.ListNodes(ctx, v.Kube)
	if err != nil {
		return failf("", err.Error())
	}
	if len(nodes) == 0 {
		return failf("", "no nodes registered")
	}
	if notReady := kube.NotReady(nodes); len(notReady) > 0 {
		return failf("", fmt.Sprintf("%d/%d nodes NotReady: %s", len(notReady), len(nodes), strings.Join(notReady, ", ")))
	}
	return passf("", fmt.Sprintf("%d/%d nodes Ready", len(nodes), len(nodes)))
}

func systemPodsCheck(namespace string) func(context.Context, *Validator) Result {
	return func(ctx context.Context, v *Validator) Result {
		s, err := kube.SummarizePods(ctx, v.Kube, namespace, "")
		if err != nil {
			return failf("", err.Error())
		}
		switch {
		case s.Total == 0:
			return warnf("", "no pods in "+namespace)
		case !s.AllReady():
			return failf("", fmt.Sprintf("%d/%d pods ready, not ready: %s", s.Ready, s.Total, strings.Join(s.NotReady, ", ")))
		}
		return passf("", fmt.Sprintf("%d/%d pods ready", s.Ready, s.Total))
	}
}

func podsReadyCheck(component, selector string) func(context.Context, *Validator) Result {
	return func(ctx context.Context, v *Validator) Result {
		s, err := kube.SummarizePods(ctx, v.Kube, systemNamespace, selector)
		if err != nil {
			return failf("", err.Error())
		}
		switch {
		case s.Total == 0:
			return failf("", "no "+component+" pods found")
		case !s.AllReady():
			return failf("", fmt.Sprintf("%d/%d %s pods ready", s.Ready, s.Total, component))
		}
		return passf("", fmt.Sprintf("%d/%d %s pods ready", s.Ready, s.Total, component))
	}
}

func checkAddons(ctx context.Context, v *Validator) Result {
	addons, err := v.EKS.ListAddons(ctx, v.Target.ClusterName)
	if err != nil {
		return failf("", err.Error())
	}
	if len(addons) == 0 {
		return warnf("", "no EKS add-ons installed")
	}

	var broken, busy []string
	for _, a := range addons {
		switch a.Status {
		case ekstypes.AddonStatusActive:
		case ekstypes.AddonStatusUpdating, ekstypes.AddonStatusCreating:
			busy = append(busy, fmt.Sprintf("%s %s", a.Name, a.Status))
		default:
			label := fmt.Sprintf("%s %s", a.Name, a.Status)
			if a.Health != "" {
				label += " (" + a.Health + ")"
			}
			broken = append(broken, label)
		}
	}
	switch {
	case len(broken) > 0:
		return failf("", strings.Join(broken, ", "))
	case len(busy) > 0:
		return warnf("", strings.Join(busy, ", "))
	}
	return passf("", fmt.Sprintf("%d add-ons ACTIVE", len(addons)))
}

func checkStorageClasses(ctx context.Context, v *Validator) Result {
	classes, err := kube.ListStorageClasses(ctx, v.Kube)
	if err != nil {
		return failf("", err.Error())
	}
	if len(classes) == 0 {
		return failf("", "no storage classes")
	}
	for _, c := range classes {
		if c.Default {
			return passf("", fmt.Sprintf("%d storage classes, default %s (%s)", len(classes), c.Name, c.Provisioner))
		}
	}
	return warnf("", fmt.Sprintf("%d storage classes, none marked default", len(classes)))
}

func checkDNSResolution(ctx context.Context, v *Validator) Result {
	res, err := v.DNSTest.Run(ctx, v.Kube)
	if err != nil {
		return failf("", err.Error())
	}
	switch {
	case res.TimedOut:
		return warnf("", fmt.Sprintf("DNS test pod %s did not finish (last phase %q)", res.Pod, res.Phase))
	case res.Phase == "Succeeded":
		return passf("", "resolved kubernetes.default from pod "+res.Pod)
	default:
		return failf("", fmt.Sprintf("DNS test pod %s ended %s", res.Pod, res.Phase))
	}
}

func checkClusterRole(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	role, err := v.IAM.GetRole(ctx, c.RoleARN)
	if errors.Is(err, awsiam.ErrRoleNotFound) {
		return failf("", "cluster role "+c.RoleARN+" does not exist")
	}
	if err != nil {
		return failf("", err.Error())
	}
	msg := "role " + role.Name + " exists"
	if !role.HasPolicy("AmazonEKSClusterPolicy") {
		msg += ", AmazonEKSClusterPolicy not attached directly"
	}
	return passf("", msg)
}

func checkControlPlaneLogging(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return warnf("", err.Error())
	}
	if len(c.EnabledLogTypes) == 0 {
		return warnf("", "control-plane logging disabled")
	}
	name := awslogs.ClusterLogGroup(c.Name)
	_, found, err := v.Logs.FindLogGroup(ctx, name)
	if err != nil {
		return warnf("", err.Error())
	}
	if !found {
		return warnf("", "logging enabled but log group "+name+" not found")
	}
	return passf("", "enabled for "+strings.Join(c.EnabledLogTypes, ", "))
}

func checkWorkerInstances(ctx context.Context, v *Validator) Result {
	_, summary, err := v.EC2.ListClusterInstances(ctx, v.Target.ClusterName)
	if err != nil {
		return failf("", err.Error())
	}
	if summary.Running == 0 {
		return failf("", "no running worker instances")
	}
	nodes, err := kube.ListNodes(ctx, v.Kube)
	if err != nil {
		return warnf("", fmt.Sprintf("%d instances running, node count unavailable: %v", summary.Running, err))
	}
	if summary.Running < len(nodes) {
		return warnf("", fmt.Sprintf("%d running instances for %d nodes", summary.Running, len(nodes)))
	}
	return passf("", fmt.Sprintf("%d running instances for %d nodes", summary.Running, len(nodes)))
}

func checkLoadBalancers(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	lbs, err := v.ELB.ListClusterLoadBalancers(ctx, c.Name, c.VPCID)
	if err != nil {
		return failf("", err.Error())
	}
	if len(lbs) == 0 {
		return passf("", "no load balancers owned by the cluster")
	}

	var failed, pending []string
	for _, lb := range lbs {
		switch lb.State {
		case "active":
		case "failed":
			failed = append(failed, lb.Name+" failed: "+lb.Reason)
		default:
			pending = append(pending, lb.Name+" "+lb.State)
		}
	}
	switch {
	case len(failed) > 0:
		return failf("", strings.Join(failed, ", "))
	case len(pending) > 0:
		return warnf("", strings.Join(pending, ", "))
	}
	return passf("", fmt.Sprintf("%d load balancers active", len(lbs)))
}

func checkClusterSubnets(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	if c.VPCID != "" {
		info, err := v.VPC.DescribeVPC(ctx, c.VPCID)
		if err != nil {
			return failf("", err.Error())
		}
		if info.State != "available" {
			return failf("", fmt.Sprintf("VPC %s is %s", info.VPCID, info.State))
		}
	}
	if len(c.SubnetIDs) == 0 {
		return warnf("", "cluster reports no subnets")
	}

	subnets, err := v.VPC.DescribeSubnets(ctx, c.SubnetIDs)
	if err != nil {
		return failf("", err.Error())
	}
	if len(subnets) < len(c.SubnetIDs) {
		return failf("", fmt.Sprintf("%d of %d cluster subnets found", len(subnets), len(c.SubnetIDs)))
	}
	if starved := awsvpc.Starved(subnets); len(starved) > 0 {
		names := make([]string, len(starved))
		for i, s := range starved {
			names[i] = fmt.Sprintf("%s (%d free)", s.SubnetID, s.AvailableIPs)
		}
		return warnf("", "low on free IPs for a control plane update: "+strings.Join(names, ", "))
	}
	return passf("", fmt.Sprintf("%d subnets with at least %d free IPs", len(subnets), awsvpc.MinFreeIPs))
}

func checkGitOpsApplications(ctx context.Context, v *Validator) Result {
	if v.Dynamic == nil {
		return warnf("", "dynamic client unavailable")
	}
	apps, err := kube.ListApplications(ctx, v.Dynamic)
	if errors.Is(err, kube.ErrArgoCDNotInstalled) {
		return warnf("", "Argo CD not installed")
	}
	if err != nil {
		return failf("", err.Error())
	}

	var broken, drifting []string
	for _, a := range apps {
		switch {
		case a.Healthy():
		case a.Health == "Degraded" || a.Health == "Missing":
			broken = append(broken, fmt.Sprintf("%s %s/%s", a.Name, a.Sync, a.Health))
		default:
			drifting = append(drifting, fmt.Sprintf("%s %s/%s", a.Name, a.Sync, a.Health))
		}
	}
	switch {
	case len(broken) > 0:
		return failf("", strings.Join(broken, ", "))
	case len(drifting) > 0:
		return warnf("", strings.Join(drifting, ", "))
	}
	return passf("", fmt.Sprintf("%d applications Synced and Healthy", len(apps)))
}

func checkNoUpdateInProgress(ctx context.Context, v *Validator) Result {
	name := v.Target.ClusterName
	refs := []eks.UpdateRef{{Cluster: name}}

	groups, err := v.listNodeGroups(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	for _, ng := range groups {
		refs = append(refs, eks.UpdateRef{Cluster: name, Nodegroup: ng.Name})
	}
	addons, err := v.EKS.ListAddons(ctx, name)
	if err != nil {
		return failf("", err.Error())
	}
	for _, a := range addons {
		refs = append(refs, eks.UpdateRef{Cluster: name, Addon: a.Name})
	}

	var running []string
	for _, ref := range refs {
		updates, err := v.EKS.ListUpdates(ctx, ref)
		if err != nil {
			return failf("", err.Error())
		}
		for _, u := range updates {
			if u.Status == ekstypes.UpdateStatusInProgress {
				running = append(running, fmt.Sprintf("%s %s %s", ref.Resource(), u.Type, u.Ref.ID))
			}
		}
	}
	if len(running) > 0 {
		return failf("", "updates in progress: "+strings.Join(running, ", "))
	}
	return passf("", fmt.Sprintf("no updates in progress across %d resources", len(refs)))
}

func checkVersionSkew(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return failf("", err.Error())
	}
	cp, err := target.ParseLooseVersion(c.Version)
	if err != nil {
		return failf("", err.Error())
	}
	groups, err := v.listNodeGroups(ctx)
	if err != nil {
		return failf("", err.Error())
	}

	worst := 0
	var behind []string
	for _, ng := range groups {
		ngv, err := target.ParseLooseVersion(ng.Version)
		if err != nil {
			continue
		}
		if d := ngv.MinorsBehind(cp); d > 0 {
			behind = append(behind, fmt.Sprintf("%s at %s", ng.Name, ngv))
			worst = max(worst, d)
		}
	}

	msg := fmt.Sprintf("control plane %s", cp)
	if len(behind) > 0 {
		msg += "; " + strings.Join(behind, ", ")
	}
	switch {
	case worst > 1:
		return failf("", msg)
	case worst == 1:
		return warnf("", msg)
	}
	return passf("", msg+"; all node groups match")
}

func checkKubeletVersions(ctx context.Context, v *Validator) Result {
	c, err := v.describeCluster(ctx)
	if err != nil {
		return warnf("", err.Error())
	}
	cp, err := target.ParseLooseVersion(c.Version)
	if err != nil {
		return warnf("", err.Error())
	}
	nodes, err := kube.ListNodes(ctx, v.Kube)
	if err != nil {
		return warnf("", err.Error())
	}

	var behind []string
	for _, n := range nodes {
		kv, err := target.ParseLooseVersion(n.KubeletVersion)
		if err != nil || kv.MinorsBehind(cp) > 0 {
			behind = append(behind, n.Name+" "+n.KubeletVersion)
		}
	}
	if len(behind) > 0 {
		return warnf("", fmt.Sprintf("%d/%d kubelets behind %s: %s", len(behind), len(nodes), cp, strings.Join(behind, ", ")))
	}
	return passf("", fmt.Sprintf("%d kubelets at %s", len(nodes), cp))
}

func checkBackupAvailable(ctx context.Context, v *Validator) Result {
	if v.Backups == nil {
		return failf("", "no backup directory configured")
	}
	dir, err := v.Backups.Latest(v.Target.ClusterName)
	if err != nil {
		return failf("", err.Error())
	}
	missing, err := backup.Verify(dir)
	if err != nil {
		return failf("", err.Error())
	}
	if len(missing) > 0 {
		return failf("", fmt.Sprintf("%s is missing %s", dir, strings.Join(missing, ", ")))
	}
	return passf("", "latest snapshot "+dir)
}
