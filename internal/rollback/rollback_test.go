package rollback

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/update"
	"tasnim.dev/eksops/internal/waiter"
)

type mockClusterAPI struct {
	cluster    eks.Cluster
	nodegroups []eks.NodeGroup
	addons     []eks.Addon

	updateNodegroupVersionFunc func(ctx context.Context, clusterName, nodegroup string, opts eks.NodegroupVersionOptions) (eks.Update, error)
	updateAddonFunc            func(ctx context.Context, clusterName string, req eks.AddonUpdate) (eks.Update, error)

	mutations []string
}

func (m *mockClusterAPI) DescribeCluster(ctx context.Context, name string) (eks.Cluster, error) {
	return m.cluster, nil
}

func (m *mockClusterAPI) ListNodeGroups(ctx context.Context, clusterName string) ([]eks.NodeGroup, error) {
	return m.nodegroups, nil
}

func (m *mockClusterAPI) DescribeNodegroup(ctx context.Context, clusterName, name string) (eks.NodeGroup, error) {
	return eks.NodeGroup{Name: name, Status: ekstypes.NodegroupStatusActive}, nil
}

func (m *mockClusterAPI) ListAddons(ctx context.Context, clusterName string) ([]eks.Addon, error) {
	return m.addons, nil
}

func (m *mockClusterAPI) DescribeAddon(ctx context.Context, clusterName, name string) (eks.Addon, error) {
	return eks.Addon{Name: name, Status: ekstypes.AddonStatusActive}, nil
}

func (m *mockClusterAPI) ResolveAddonVersion(ctx context.Context, addonName, kubernetesVersion string) (string, error) {
	return "", nil
}

func (m *mockClusterAPI) UpdateClusterVersion(ctx context.Context, clusterName, version string) (eks.Update, error) {
	m.mutations = append(m.mutations, "UpdateClusterVersion")
	return eks.Update{}, nil
}

func (m *mockClusterAPI) UpdateClusterLogging(ctx context.Context, clusterName string, enabled []string) (eks.Update, error) {
	m.mutations = append(m.mutations, "UpdateClusterLogging")
	return eks.Update{}, nil
}

func (m *mockClusterAPI) UpdateNodegroupVersion(ctx context.Context, clusterName, nodegroup string, opts eks.NodegroupVersionOptions) (eks.Update, error) {
	m.mutations = append(m.mutations, "UpdateNodegroupVersion "+nodegroup+" "+opts.ReleaseVersion)
	if m.updateNodegroupVersionFunc != nil {
		return m.updateNodegroupVersionFunc(ctx, clusterName, nodegroup, opts)
	}
	return eks.Update{Ref: eks.UpdateRef{Cluster: clusterName, Nodegroup: nodegroup, ID: "u-ng"}, Status: ekstypes.UpdateStatusInProgress}, nil
}

func (m *mockClusterAPI) UpdateNodegroupConfig(ctx context.Context, clusterName, nodegroup string, cfg eks.NodegroupConfig) (eks.Update, error) {
	m.mutations = append(m.mutations, "UpdateNodegroupConfig")
	return eks.Update{}, nil
}

func (m *mockClusterAPI) UpdateAddon(ctx context.Context, clusterName string, req eks.AddonUpdate) (eks.Update, error) {
	m.mutations = append(m.mutations, "UpdateAddon "+req.Name+" "+req.Version)
	if m.updateAddonFunc != nil {
		return m.updateAddonFunc(ctx, clusterName, req)
	}
	return eks.Update{Ref: eks.UpdateRef{Cluster: clusterName, Addon: req.Name, ID: "u-" + req.Name}, Status: ekstypes.UpdateStatusInProgress}, nil
}

func (m *mockClusterAPI) DescribeUpdate(ctx context.Context, ref eks.UpdateRef) (eks.Update, error) {
	return eks.Update{Ref: ref, Status: ekstypes.UpdateStatusSuccessful}, nil
}

type mockConfirmer struct{ answer bool }

func (m mockConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) { return m.answer, nil }

type stubLocator struct{ dir string }

func (s stubLocator) Latest(string) (string, error) { return s.dir, nil }

func writeSnapshot(t *testing.T, c eks.Cluster, ngs []eks.NodeGroup, addons []eks.Addon) string {
	t.Helper()
	dir := t.TempDir()

	write := func(name string, data []byte) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o600))
	}
	data, err := yaml.Marshal(c)
	require.NoError(t, err)
	write(backup.ClusterFile, data)
	data, err = yaml.Marshal(ngs)
	require.NoError(t, err)
	write(backup.NodegroupsFile, data)
	data, err = json.Marshal(addons)
	require.NoError(t, err)
	write(backup.AddonsFile, data)
	return dir
}

// snapshotBeforeUpgrade is the state before a 1.28 -> 1.29 upgrade that was
// followed by add-on and node group updates.
func snapshotBeforeUpgrade(t *testing.T) string {
	return writeSnapshot(t,
		eks.Cluster{Name: "eks-prod", Version: "1.28"},
		[]eks.NodeGroup{
			{Name: "workers", Version: "1.28", ReleaseVersion: "1.28.5-20240110"},
			{Name: "system", Version: "1.28", ReleaseVersion: "1.28.5-20240110"},
			{Name: "gone", Version: "1.28", ReleaseVersion: "1.28.5-20240110"},
		},
		[]eks.Addon{
			{Name: "vpc-cni", Version: "v1.15.1-eksbuild.1"},
			{Name: "coredns", Version: "v1.10.1-eksbuild.7"},
		},
	)
}

func liveAfterUpgrade() *mockClusterAPI {
	return &mockClusterAPI{
		cluster: eks.Cluster{Name: "eks-prod", Version: "1.29", Status: ekstypes.ClusterStatusActive},
		nodegroups: []eks.NodeGroup{
			{Name: "workers", Version: "1.28", ReleaseVersion: "1.28.8-20240412"},
			{Name: "system", Version: "1.29", ReleaseVersion: "1.29.3-20240412"},
		},
		addons: []eks.Addon{
			{Name: "vpc-cni", Version: "v1.16.0-eksbuild.1"},
			{Name: "coredns", Version: "v1.10.1-eksbuild.7"},
		},
	}
}

func newRunner(api *mockClusterAPI, dir string) *Runner {
	return &Runner{
		Target:    target.Target{Environment: target.Production, ClusterName: "eks-prod", Region: "us-east-1"},
		EKS:       api,
		Snapshots: stubLocator{dir: dir},
		Confirm:   mockConfirmer{answer: true},
		Policy:    waiter.Policy{InitialInterval: time.Millisecond, MaxAttempts: 3},
	}
}

func TestBuildPlan(t *testing.T) {
	snap, err := backup.Load(snapshotBeforeUpgrade(t))
	require.NoError(t, err)

	plan, err := BuildPlan(context.Background(), liveAfterUpgrade(), "eks-prod", snap)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 6)

	cp := plan.Steps[0]
	assert.Equal(t, update.Manual, cp.Outcome)
	assert.Equal(t, "1.29", cp.From)
	assert.Equal(t, "1.28", cp.To)

	workers := plan.Steps[1]
	assert.Equal(t, update.Planned, workers.Outcome)
	assert.Equal(t, "1.28.5-20240110", workers.NodegroupVersion.ReleaseVersion)
	assert.Empty(t, workers.NodegroupVersion.Version)

	assert.Equal(t, update.Manual, plan.Steps[2].Outcome, "system moved to 1.29")
	assert.Equal(t, update.Manual, plan.Steps[3].Outcome, "gone no longer exists")

	cni := plan.Steps[4]
	assert.Equal(t, update.Planned, cni.Outcome)
	assert.Equal(t, "v1.15.1-eksbuild.1", cni.Addon.Version)
	assert.Equal(t, update.Skipped, plan.Steps[5].Outcome)

	assert.Equal(t, 2, plan.Pending())
}

func TestRun_DryRunByDefault(t *testing.T) {
	api := liveAfterUpgrade()
	dir := snapshotBeforeUpgrade(t)

	res, err := newRunner(api, dir).Run(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, dir, res.BackupPath)
	assert.Empty(t, api.mutations)
}

func TestRun_ApplyExecutesRevertibleSteps(t *testing.T) {
	api := liveAfterUpgrade()

	res, err := newRunner(api, snapshotBeforeUpgrade(t)).Run(context.Background(), Options{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"UpdateNodegroupVersion workers 1.28.5-20240110",
		"UpdateAddon vpc-cni v1.15.1-eksbuild.1",
	}, api.mutations)
	assert.Equal(t, 2, res.Count(update.Completed))
	assert.Equal(t, 3, res.Count(update.Manual))
}

func TestRun_DeclineMakesNoChanges(t *testing.T) {
	api := liveAfterUpgrade()
	r := newRunner(api, snapshotBeforeUpgrade(t))
	r.Confirm = mockConfirmer{answer: false}

	_, err := r.Run(context.Background(), Options{Apply: true})
	assert.ErrorIs(t, err, update.ErrDeclined)
	assert.Empty(t, api.mutations)
}

func TestRun_FailFast(t *testing.T) {
	api := liveAfterUpgrade()
	api.updateNodegroupVersionFunc = func(ctx context.Context, clusterName, nodegroup string, opts eks.NodegroupVersionOptions) (eks.Update, error) {
		return eks.Update{}, assert.AnError
	}

	res, err := newRunner(api, snapshotBeforeUpgrade(t)).Run(context.Background(), Options{Apply: true, Force: true})
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"UpdateNodegroupVersion workers 1.28.5-20240110"}, api.mutations)
	assert.Equal(t, update.Planned, res.Steps[4].Outcome)
}

func TestRun_ExplicitSnapshotForOtherClusterRejected(t *testing.T) {
	dir := writeSnapshot(t, eks.Cluster{Name: "eks-dev", Version: "1.28"}, nil, nil)

	_, err := newRunner(liveAfterUpgrade(), "").Run(context.Background(), Options{Snapshot: dir})
	assert.ErrorIs(t, err, target.ErrInvalidInput)
}
