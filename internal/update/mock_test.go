package update

import (
	"context"
	"fmt"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/backup"
)

type mockClusterAPI struct {
	describeClusterFunc        func(ctx context.Context, name string) (eks.Cluster, error)
	listNodeGroupsFunc         func(ctx context.Context, clusterName string) ([]eks.NodeGroup, error)
	describeNodegroupFunc      func(ctx context.Context, clusterName, name string) (eks.NodeGroup, error)
	listAddonsFunc             func(ctx context.Context, clusterName string) ([]eks.Addon, error)
	describeAddonFunc          func(ctx context.Context, clusterName, name string) (eks.Addon, error)
	resolveAddonVersionFunc    func(ctx context.Context, addonName, kubernetesVersion string) (string, error)
	updateClusterVersionFunc   func(ctx context.Context, clusterName, version string) (eks.Update, error)
	updateClusterLoggingFunc   func(ctx context.Context, clusterName string, enabled []string) (eks.Update, error)
	updateNodegroupVersionFunc func(ctx context.Context, clusterName, nodegroup string, opts eks.NodegroupVersionOptions) (eks.Update, error)
	updateNodegroupConfigFunc  func(ctx context.Context, clusterName, nodegroup string, cfg eks.NodegroupConfig) (eks.Update, error)
	updateAddonFunc            func(ctx context.Context, clusterName string, req eks.AddonUpdate) (eks.Update, error)
	describeUpdateFunc         func(ctx context.Context, ref eks.UpdateRef) (eks.Update, error)

	// events records every mutating call and every backup, in order.
	events *[]string
}

func (m *mockClusterAPI) record(format string, args ...any) {
	if m.events != nil {
		*m.events = append(*m.events, fmt.Sprintf(format, args...))
	}
}

func (m *mockClusterAPI) DescribeCluster(ctx context.Context, name string) (eks.Cluster, error) {
	return m.describeClusterFunc(ctx, name)
}

func (m *mockClusterAPI) ListNodeGroups(ctx context.Context, clusterName string) ([]eks.NodeGroup, error) {
	return m.listNodeGroupsFunc(ctx, clusterName)
}

func (m *mockClusterAPI) DescribeNodegroup(ctx context.Context, clusterName, name string) (eks.NodeGroup, error) {
	if m.describeNodegroupFunc == nil {
		return eks.NodeGroup{Name: name, Status: ekstypes.NodegroupStatusActive}, nil
	}
	return m.describeNodegroupFunc(ctx, clusterName, name)
}

func (m *mockClusterAPI) ListAddons(ctx context.Context, clusterName string) ([]eks.Addon, error) {
	return m.listAddonsFunc(ctx, clusterName)
}

func (m *mockClusterAPI) DescribeAddon(ctx context.Context, clusterName, name string) (eks.Addon, error) {
	if m.describeAddonFunc == nil {
		return eks.Addon{Name: name, Status: ekstypes.AddonStatusActive}, nil
	}
	return m.describeAddonFunc(ctx, clusterName, name)
}

func (m *mockClusterAPI) ResolveAddonVersion(ctx context.Context, addonName, kubernetesVersion string) (string, error) {
	return m.resolveAddonVersionFunc(ctx, addonName, kubernetesVersion)
}

func (m *mockClusterAPI) UpdateClusterVersion(ctx context.Context, clusterName, version string) (eks.Update, error) {
	m.record("UpdateClusterVersion %s", version)
	if m.updateClusterVersionFunc == nil {
		return inProgress(eks.UpdateRef{Cluster: clusterName, ID: "cp-1"}), nil
	}
	return m.updateClusterVersionFunc(ctx, clusterName, version)
}

func (m *mockClusterAPI) UpdateClusterLogging(ctx context.Context, clusterName string, enabled []string) (eks.Update, error) {
	m.record("UpdateClusterLogging %v", enabled)
	if m.updateClusterLoggingFunc == nil {
		return inProgress(eks.UpdateRef{Cluster: clusterName, ID: "log-1"}), nil
	}
	return m.updateClusterLoggingFunc(ctx, clusterName, enabled)
}

func (m *mockClusterAPI) UpdateNodegroupVersion(ctx context.Context, clusterName, nodegroup string, opts eks.NodegroupVersionOptions) (eks.Update, error) {
	m.record("UpdateNodegroupVersion %s", nodegroup)
	if m.updateNodegroupVersionFunc == nil {
		return inProgress(eks.UpdateRef{Cluster: clusterName, Nodegroup: nodegroup, ID: "ng-" + nodegroup}), nil
	}
	return m.updateNodegroupVersionFunc(ctx, clusterName, nodegroup, opts)
}

func (m *mockClusterAPI) UpdateNodegroupConfig(ctx context.Context, clusterName, nodegroup string, cfg eks.NodegroupConfig) (eks.Update, error) {
	m.record("UpdateNodegroupConfig %s", nodegroup)
	if m.updateNodegroupConfigFunc == nil {
		return inProgress(eks.UpdateRef{Cluster: clusterName, Nodegroup: nodegroup, ID: "ngc-" + nodegroup}), nil
	}
	return m.updateNodegroupConfigFunc(ctx, clusterName, nodegroup, cfg)
}

func (m *mockClusterAPI) UpdateAddon(ctx context.Context, clusterName string, req eks.AddonUpdate) (eks.Update, error) {
	m.record("UpdateAddon %s", req.Name)
	if m.updateAddonFunc == nil {
		return inProgress(eks.UpdateRef{Cluster: clusterName, Addon: req.Name, ID: "addon-" + req.Name}), nil
	}
	return m.updateAddonFunc(ctx, clusterName, req)
}

func (m *mockClusterAPI) DescribeUpdate(ctx context.Context, ref eks.UpdateRef) (eks.Update, error) {
	if m.describeUpdateFunc == nil {
		return eks.Update{Ref: ref, Status: ekstypes.UpdateStatusSuccessful}, nil
	}
	return m.describeUpdateFunc(ctx, ref)
}

func inProgress(ref eks.UpdateRef) eks.Update {
	return eks.Update{Ref: ref, Status: ekstypes.UpdateStatusInProgress}
}

type mockConfirmer struct {
	answer bool
	err    error
	asked  []string
}

func (m *mockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	m.asked = append(m.asked, prompt)
	return m.answer, m.err
}

type mockBackupper struct {
	createFunc func(ctx context.Context, clusterName string) (backup.Snapshot, error)
	events     *[]string
}

func (m *mockBackupper) Create(ctx context.Context, clusterName string) (backup.Snapshot, error) {
	if m.events != nil {
		*m.events = append(*m.events, "Backup")
	}
	if m.createFunc == nil {
		return backup.Snapshot{Cluster: clusterName, Dir: "backups/" + clusterName + "-20260301-120000"}, nil
	}
	return m.createFunc(ctx, clusterName)
}

// clusterAt returns a mock for a 1.28 cluster with one node group and two
// add-ons, all ACTIVE.
func clusterAt(version string, events *[]string) *mockClusterAPI {
	return &mockClusterAPI{
		events: events,
		describeClusterFunc: func(ctx context.Context, name string) (eks.Cluster, error) {
			return eks.Cluster{Name: name, Version: version, Status: ekstypes.ClusterStatusActive, EnabledLogTypes: []string{"api"}}, nil
		},
		listNodeGroupsFunc: func(ctx context.Context, clusterName string) ([]eks.NodeGroup, error) {
			return []eks.NodeGroup{{
				Name: "workers", Version: version, ReleaseVersion: "1.28.5-20240110", Status: ekstypes.NodegroupStatusActive,
				MinSize: 2, MaxSize: 6, DesiredSize: 3, Labels: map[string]string{"role": "worker", "legacy": "true"},
			}}, nil
		},
		listAddonsFunc: func(ctx context.Context, clusterName string) ([]eks.Addon, error) {
			return []eks.Addon{
				{Name: "vpc-cni", Version: "v1.15.1-eksbuild.1", Status: ekstypes.AddonStatusActive},
				{Name: "coredns", Version: "v1.10.1-eksbuild.7", Status: ekstypes.AddonStatusActive},
			}, nil
		},
		resolveAddonVersionFunc: func(ctx context.Context, addonName, k8s string) (string, error) {
			switch addonName {
			case "vpc-cni":
				return "v1.16.0-eksbuild.1", nil
			default:
				return "v1.10.1-eksbuild.7", nil
			}
		},
	}
}
