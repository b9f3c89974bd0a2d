package update

import (
	"fmt"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/target"
)

type StepKind string

const (
	KindClusterVersion   StepKind = "cluster-version"
	KindClusterLogging   StepKind = "cluster-logging"
	KindNodegroupVersion StepKind = "nodegroup-version"
	KindNodegroupConfig  StepKind = "nodegroup-config"
	KindAddon            StepKind = "addon"
	// KindManual is reported but never executed.
	KindManual StepKind = "manual"
)

type Outcome string

const (
	Skipped   Outcome = "skipped"
	Planned   Outcome = "planned"
	Completed Outcome = "completed"
	Failed    Outcome = "failed"
	Manual    Outcome = "manual"
)

// Step is one unit of a plan. Resource is the node group or add-on name, or
// the cluster name for cluster-level steps.
type Step struct {
	Component target.UpdateScope `json:"component" yaml:"component"`
	Kind      StepKind           `json:"kind" yaml:"kind"`
	Resource  string             `json:"resource" yaml:"resource"`
	From      string             `json:"from,omitempty" yaml:"from,omitempty"`
	To        string             `json:"to,omitempty" yaml:"to,omitempty"`
	Message   string             `json:"message,omitempty" yaml:"message,omitempty"`
	Outcome   Outcome            `json:"outcome" yaml:"outcome"`
	UpdateID  string             `json:"updateId,omitempty" yaml:"updateId,omitempty"`
	Error     string             `json:"error,omitempty" yaml:"error,omitempty"`

	NodegroupVersion eks.NodegroupVersionOptions `json:"-" yaml:"-"`
	NodegroupConfig  eks.NodegroupConfig         `json:"-" yaml:"-"`
	Addon            eks.AddonUpdate             `json:"-" yaml:"-"`
	LogTypes         []string                    `json:"-" yaml:"-"`
}

// Label is a short description such as "nodegroup/workers 1.28 -> 1.29".
func (s Step) Label() string {
	var l string
	switch s.Kind {
	case KindNodegroupVersion, KindNodegroupConfig:
		l = "nodegroup/" + s.Resource
	case KindAddon:
		l = "addon/" + s.Resource
	default:
		l = "cluster/" + s.Resource
	}
	if s.Kind == KindClusterLogging || s.Kind == KindNodegroupConfig {
		l += " (" + string(s.Kind) + ")"
	}
	if s.From != "" || s.To != "" {
		l += fmt.Sprintf(" %s -> %s", dash(s.From), dash(s.To))
	}
	return l
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func skipStep(component target.UpdateScope, kind StepKind, resource, msg string) Step {
	return Step{Component: component, Kind: kind, Resource: resource, Outcome: Skipped, Message: msg}
}

// ClusterVersionStep upgrades the control plane to version.
func ClusterVersionStep(cluster, from, to string) Step {
	return Step{Component: target.ScopeControlPlane, Kind: KindClusterVersion, Resource: cluster, From: from, To: to, Outcome: Planned}
}

// NodegroupVersionStep moves a node group to a Kubernetes version or, when
// opts.ReleaseVersion is set, to a specific AMI release.
func NodegroupVersionStep(name, from string, opts eks.NodegroupVersionOptions) Step {
	to := opts.ReleaseVersion
	if to == "" {
		to = opts.Version
	}
	return Step{
		Component:        target.ScopeNodegroups,
		Kind:             KindNodegroupVersion,
		Resource:         name,
		From:             from,
		To:               to,
		Outcome:          Planned,
		NodegroupVersion: opts,
	}
}

// AddonStep sets an add-on's version and, optionally, its configuration.
func AddonStep(from string, req eks.AddonUpdate) Step {
	return Step{Component: target.ScopeAddons, Kind: KindAddon, Resource: req.Name, From: from, To: req.Version, Outcome: Planned, Addon: req}
}

// ManualStep records something an operator has to do by hand.
func ManualStep(component target.UpdateScope, resource, from, to, msg string) Step {
	return Step{Component: component, Kind: KindManual, Resource: resource, From: from, To: to, Message: msg, Outcome: Manual}
}

// Plan is the ordered list of steps for one run.
type Plan struct {
	Cluster string `json:"cluster" yaml:"cluster"`
	Steps   []Step `json:"steps" yaml:"steps"`
}

// Pending counts the steps that would issue a mutating call.
func (p *Plan) Pending() int {
	n := 0
	for _, s := range p.Steps {
		if s.Outcome == Planned {
			n++
		}
	}
	return n
}

// RunResult is what an update or rollback run did.
type RunResult struct {
	Cluster    string `json:"cluster" yaml:"cluster"`
	DryRun     bool   `json:"dryRun" yaml:"dryRun"`
	Steps      []Step `json:"steps" yaml:"steps"`
	BackupPath string `json:"backupPath,omitempty" yaml:"backupPath,omitempty"`
}

// Count returns how many steps ended with outcome o.
func (r *RunResult) Count(o Outcome) int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == o {
			n++
		}
	}
	return n
}
