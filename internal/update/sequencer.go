// Package update plans and applies in-place EKS upgrades: control plane,
// then managed node groups, then add-ons.
package update

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/backup"
	"tasnim.dev/eksops/internal/target"
	"tasnim.dev/eksops/internal/waiter"
)

// ErrDeclined is returned when the operator answers no at the confirmation
// prompt.
var ErrDeclined = errors.New("update declined")

// ClusterAPI is the EKS surface used for planning and applying. *eks.Client
// satisfies it.
type ClusterAPI interface {
	DescribeCluster(ctx context.Context, name string) (eks.Cluster, error)
	ListNodeGroups(ctx context.Context, clusterName string) ([]eks.NodeGroup, error)
	DescribeNodegroup(ctx context.Context, clusterName, name string) (eks.NodeGroup, error)
	ListAddons(ctx context.Context, clusterName string) ([]eks.Addon, error)
	DescribeAddon(ctx context.Context, clusterName, name string) (eks.Addon, error)
	ResolveAddonVersion(ctx context.Context, addonName, kubernetesVersion string) (string, error)
	UpdateClusterVersion(ctx context.Context, clusterName, version string) (eks.Update, error)
	UpdateClusterLogging(ctx context.Context, clusterName string, enabled []string) (eks.Update, error)
	UpdateNodegroupVersion(ctx context.Context, clusterName, nodegroup string, opts eks.NodegroupVersionOptions) (eks.Update, error)
	UpdateNodegroupConfig(ctx context.Context, clusterName, nodegroup string, cfg eks.NodegroupConfig) (eks.Update, error)
	UpdateAddon(ctx context.Context, clusterName string, req eks.AddonUpdate) (eks.Update, error)
	DescribeUpdate(ctx context.Context, ref eks.UpdateRef) (eks.Update, error)
}

// Confirmer asks the operator to approve a plan.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Backupper is satisfied by *backup.Manager.
type Backupper interface {
	Create(ctx context.Context, clusterName string) (backup.Snapshot, error)
}

// Options selects what a Run updates and how far it goes.
type Options struct {
	Scope      target.UpdateScope
	Version    string
	Desired    *DesiredState
	DryRun     bool
	Force      bool
	SkipBackup bool
}

// PlanFunc is called with the plan before anything is confirmed or applied.
type PlanFunc func(*Plan)

// Sequencer plans and applies an update to one cluster: confirm, back up,
// then control plane, node groups and add-ons in that order.
type Sequencer struct {
	Target  target.Target
	EKS     ClusterAPI
	Confirm Confirmer
	Backup  Backupper
	Policy  waiter.Policy

	OnPlan     PlanFunc
	OnProgress ProgressFunc
}

// Run plans the update and, unless opts.DryRun, confirms, backs up and
// applies it. The returned result is non-nil whenever a plan was built, also
// alongside an error.
func (s *Sequencer) Run(ctx context.Context, opts Options) (*RunResult, error) {
	cluster := s.Target.ClusterName
	logger := log.WithFields(log.Fields{"cluster": cluster, "scope": opts.Scope})

	plan, err := BuildPlan(ctx, s.EKS, cluster, opts)
	if err != nil {
		return nil, err
	}
	if s.OnPlan != nil {
		s.OnPlan(plan)
	}

	res := &RunResult{Cluster: cluster, DryRun: opts.DryRun, Steps: plan.Steps}
	if opts.DryRun {
		logger.WithField("pending", plan.Pending()).Info("dry run, no changes made")
		return res, nil
	}
	if plan.Pending() == 0 {
		logger.Info("nothing to update")
		return res, nil
	}

	if !opts.Force {
		if s.Confirm == nil {
			return res, fmt.Errorf("%w: no confirmation available, use --force", ErrDeclined)
		}
		prompt := fmt.Sprintf("Apply %d change(s) to %s?", plan.Pending(), s.Target)
		ok, err := s.Confirm.Confirm(ctx, prompt)
		if err != nil {
			return res, err
		}
		if !ok {
			return res, ErrDeclined
		}
	}

	if !opts.SkipBackup {
		snap, err := s.Backup.Create(ctx, cluster)
		if err != nil {
			return res, fmt.Errorf("backup before update: %w", err)
		}
		res.BackupPath = snap.Dir
		logger.WithField("backup", snap.Dir).Info("backup created")
	} else {
		logger.Warn("skipping backup")
	}

	exec := &Executor{EKS: s.EKS, Policy: s.Policy, OnProgress: s.OnProgress}
	if err := exec.Execute(ctx, cluster, res.Steps); err != nil {
		if res.BackupPath != "" {
			return res, fmt.Errorf("%w (backup for rollback: %s)", err, res.BackupPath)
		}
		return res, err
	}
	return res, nil
}
