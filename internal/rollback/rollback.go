// Package rollback plans and applies a return to a backup snapshot's EKS
// state. It only runs when invoked explicitly.
package rollback

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/update"
	"tasnim.dev/eksops/internal/waiter"
)

// SnapshotLocator is satisfied by *backup.Manager.
type SnapshotLocator interface {
	Latest(clusterName string) (string, error)
}

type Options struct {
	// Snapshot is an explicit snapshot dir; empty means the latest one.
	Snapshot string
	Apply    bool
	Force    bool
}

// Runner reverts a cluster to the versions recorded in its latest snapshot.
type Runner struct {
	Target    target.Target
	EKS       update.ClusterAPI
	Snapshots SnapshotLocator
	Confirm   update.Confirmer
	Policy    waiter.Policy

	OnPlan     update.PlanFunc
	OnProgress update.ProgressFunc
}

// Run loads the snapshot, plans the rollback and, with opts.Apply, executes
// the revertible steps. Without Apply nothing is changed.
func (r *Runner) Run(ctx context.Context, opts Options) (*update.RunResult, error) {
	cluster := r.Target.ClusterName

	dir := opts.Snapshot
	if dir == "" {
		latest, err := r.Snapshots.Latest(cluster)
		if err != nil {
			return nil, err
		}
		dir = latest
	}

	snap, err := backup.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", dir, err)
	}
	if snap.Cluster.Name != "" && snap.Cluster.Name != cluster {
		return nil, fmt.Errorf("%w: snapshot %s belongs to cluster %s, not %s", target.ErrInvalidInput, dir, snap.Cluster.Name, cluster)
	}

	plan, err := BuildPlan(ctx, r.EKS, cluster, snap)
	if err != nil {
		return nil, err
	}
	if r.OnPlan != nil {
		r.OnPlan(plan)
	}

	res := &update.RunResult{Cluster: cluster, DryRun: !opts.Apply, Steps: plan.Steps, BackupPath: dir}
	logger := log.WithFields(log.Fields{"cluster": cluster, "snapshot": dir})
	if !opts.Apply {
		logger.WithField("pending", plan.Pending()).Info("rollback plan only, pass --apply to execute")
		return res, nil
	}
	if plan.Pending() == 0 {
		logger.Info("nothing to roll back")
		return res, nil
	}

	if !opts.Force {
		if r.Confirm == nil {
			return res, fmt.Errorf("%w: no confirmation available, use --force", update.ErrDeclined)
		}
		ok, err := r.Confirm.Confirm(ctx, fmt.Sprintf("Roll back %d resource(s) of %s to %s?", plan.Pending(), r.Target, dir))
		if err != nil {
			return res, err
		}
		if !ok {
			return res, update.ErrDeclined
		}
	}

	exec := &update.Executor{EKS: r.EKS, Policy: r.Policy, OnProgress: r.OnProgress}
	if err := exec.Execute(ctx, cluster, res.Steps); err != nil {
		return res, fmt.Errorf("rollback: %w", err)
	}
	return res, nil
}

// BuildPlan compares the live cluster against snap.
func BuildPlan(ctx context.Context, api update.ClusterAPI, cluster string, snap backup.State) (*update.Plan, error) {
	live, err := api.DescribeCluster(ctx, cluster)
	if err != nil {
		return nil, err
	}
	plan := &update.Plan{Cluster: cluster}
	plan.Steps = append(plan.Steps, controlPlaneStep(live, snap.Cluster))

	groups, err := api.ListNodeGroups(ctx, cluster)
	if err != nil {
		return nil, err
	}
	liveGroups := make(map[string]eks.NodeGroup, len(groups))
	for _, ng := range groups {
		liveGroups[ng.Name] = ng
	}
	for _, want := range snap.Nodegroups {
		plan.Steps = append(plan.Steps, nodegroupStep(liveGroups, want))
	}

	addons, err := api.ListAddons(ctx, cluster)
	if err != nil {
		return nil, err
	}
	liveAddons := make(map[string]eks.Addon, len(addons))
	for _, a := range addons {
		liveAddons[a.Name] = a
	}
	for _, want := range snap.Addons {
		plan.Steps = append(plan.Steps, addonStep(liveAddons, want))
	}
	return plan, nil
}

func controlPlaneStep(live, want eks.Cluster) update.Step {
	lv, lerr := target.ParseLooseVersion(live.Version)
	wv, werr := target.ParseLooseVersion(want.Version)
	if lerr != nil || werr != nil || lv.Compare(wv) == 0 {
		return skipped(target.ScopeControlPlane, update.KindClusterVersion, live.Name, "control plane at "+live.Version)
	}
	if lv.Compare(wv) > 0 {
		return update.ManualStep(target.ScopeControlPlane, live.Name, lv.String(), wv.String(),
			"EKS cannot downgrade the control plane; restore by recreating the cluster from the snapshot")
	}
	// Live older than the snapshot: an update went backwards or the snapshot
	// is from a different lineage. Nothing to revert.
	return skipped(target.ScopeControlPlane, update.KindClusterVersion, live.Name,
		fmt.Sprintf("control plane %s is older than the snapshot's %s", lv, wv))
}

func nodegroupStep(live map[string]eks.NodeGroup, want eks.NodeGroup) update.Step {
	ng, ok := live[want.Name]
	switch {
	case !ok:
		return update.ManualStep(target.ScopeNodegroups, want.Name, "", want.ReleaseVersion,
			"node group no longer exists; recreate it from the snapshot")
	case ng.ReleaseVersion == want.ReleaseVersion:
		return skipped(target.ScopeNodegroups, update.KindNodegroupVersion, want.Name, "at release "+want.ReleaseVersion)
	case !sameMinor(ng.Version, want.Version):
		return update.ManualStep(target.ScopeNodegroups, want.Name, ng.Version, want.Version,
			"node group Kubernetes version changed; EKS cannot downgrade it")
	}
	return update.NodegroupVersionStep(want.Name, ng.ReleaseVersion, eks.NodegroupVersionOptions{ReleaseVersion: want.ReleaseVersion})
}

func addonStep(live map[string]eks.Addon, want eks.Addon) update.Step {
	a, ok := live[want.Name]
	switch {
	case !ok:
		return update.ManualStep(target.ScopeAddons, want.Name, "", want.Version, "add-on no longer installed")
	case a.Version == want.Version:
		return skipped(target.ScopeAddons, update.KindAddon, want.Name, "at "+want.Version)
	}
	req := eks.AddonUpdate{Name: want.Name, Version: want.Version}
	if strings.TrimSpace(a.ConfigurationValues) != strings.TrimSpace(want.ConfigurationValues) {
		req.ConfigurationValues = want.ConfigurationValues
	}
	return update.AddonStep(a.Version, req)
}

func sameMinor(a, b string) bool {
	va, err := target.ParseLooseVersion(a)
	if err != nil {
		return false
	}
	vb, err := target.ParseLooseVersion(b)
	if err != nil {
		return false
	}
	return va.Compare(vb) == 0
}

func skipped(component target.UpdateScope, kind update.StepKind, resource, msg string) update.Step {
	return update.Step{Component: component, Kind: kind, Resource: resource, Outcome: update.Skipped, Message: msg}
}
