package update

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/target"
)

// BuildPlan compares the cluster's current state to what opts ask for.
// Components already in the desired state produce skipped steps.
func BuildPlan(ctx context.Context, api ClusterAPI, cluster string, opts Options) (*Plan, error) {
	if opts.Scope == target.ScopeConfig && opts.Desired == nil {
		return nil, fmt.Errorf("%w: update type config requires --config-file", target.ErrInvalidInput)
	}

	c, err := api.DescribeCluster(ctx, cluster)
	if err != nil {
		return nil, err
	}
	current, err := target.ParseLooseVersion(c.Version)
	if err != nil {
		return nil, fmt.Errorf("cluster %s: %w", cluster, err)
	}

	want := opts.Version
	if opts.Scope == target.ScopeConfig && want == "" {
		want = opts.Desired.Metadata.Version
	}

	plan := &Plan{Cluster: cluster}
	post := current

	if opts.Scope.Includes(target.ScopeControlPlane) {
		step, next, err := planControlPlane(cluster, current, want)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, step)
		post = next
	} else if want != "" {
		// Node groups and add-ons are matched to the requested version even
		// when the control plane is handled separately.
		v, err := target.ParseVersion(want)
		if err != nil {
			return nil, err
		}
		switch c := v.Compare(current); {
		case c > 0:
			return nil, fmt.Errorf("%w: control plane is at %s; upgrade it to %s before node groups or add-ons", target.ErrInvalidInput, current, v)
		case c < 0:
			return nil, fmt.Errorf("%w: version %s is older than the control plane (%s); node groups and add-ons cannot be downgraded", target.ErrInvalidInput, v, current)
		}
		post = v
	}

	if opts.Scope == target.ScopeConfig {
		plan.Steps = append(plan.Steps, planLogging(c, opts.Desired.LoggingTypes()))
	}

	if opts.Scope.Includes(target.ScopeNodegroups) {
		steps, err := planNodegroups(ctx, api, cluster, post, opts)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, steps...)
	}

	if opts.Scope.Includes(target.ScopeAddons) {
		steps, err := planAddons(ctx, api, cluster, post, opts)
		if err != nil {
			return nil, err
		}
		plan.Steps = append(plan.Steps, steps...)
	}

	return plan, nil
}

func planControlPlane(cluster string, current target.Version, want string) (Step, target.Version, error) {
	if want == "" {
		return skipStep(target.ScopeControlPlane, KindClusterVersion, cluster,
			fmt.Sprintf("no target version given, staying at %s", current)), current, nil
	}
	v, err := target.ParseVersion(want)
	if err != nil {
		return Step{}, current, err
	}

	switch behind := current.MinorsBehind(v); {
	case behind == 0:
		return skipStep(target.ScopeControlPlane, KindClusterVersion, cluster,
			fmt.Sprintf("already at %s", current)), current, nil
	case behind < 0:
		return Step{}, current, fmt.Errorf("%w: target version %s is older than the current %s; EKS cannot downgrade", target.ErrInvalidInput, v, current)
	case behind > 1:
		return Step{}, current, fmt.Errorf("%w: target version %s is %d minor versions ahead of %s; EKS upgrades one minor version at a time", target.ErrInvalidInput, v, behind, current)
	}
	return ClusterVersionStep(cluster, current.String(), v.String()), v, nil
}

func planLogging(c eks.Cluster, want []string) Step {
	if want == nil {
		return skipStep(target.ScopeControlPlane, KindClusterLogging, c.Name, "logging not managed by the config file")
	}
	have := slices.Sorted(slices.Values(c.EnabledLogTypes))
	wantSorted := slices.Sorted(slices.Values(want))
	from, to := strings.Join(have, ","), strings.Join(wantSorted, ",")
	if from == to {
		return skipStep(target.ScopeControlPlane, KindClusterLogging, c.Name, "logging already "+dash(from))
	}
	return Step{
		Component: target.ScopeControlPlane,
		Kind:      KindClusterLogging,
		Resource:  c.Name,
		From:      from,
		To:        to,
		Outcome:   Planned,
		LogTypes:  wantSorted,
	}
}

func planNodegroups(ctx context.Context, api ClusterAPI, cluster string, post target.Version, opts Options) ([]Step, error) {
	groups, err := api.ListNodeGroups(ctx, cluster)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]eks.NodeGroup, len(groups))
	for _, ng := range groups {
		byName[ng.Name] = ng
	}

	var steps []Step
	if opts.Scope == target.ScopeConfig {
		for _, want := range opts.Desired.ManagedNodeGroups {
			ng, ok := byName[want.Name]
			if !ok {
				steps = append(steps, skipStep(target.ScopeNodegroups, KindNodegroupVersion, want.Name,
					"not found in the cluster; node group creation is not supported"))
				continue
			}
			steps = append(steps, nodegroupVersionStep(ng, post, want.ReleaseVersion))
			steps = append(steps, nodegroupConfigStep(ng, want))
		}
		return steps, nil
	}

	if len(groups) == 0 {
		return []Step{skipStep(target.ScopeNodegroups, KindNodegroupVersion, cluster, "no managed node groups")}, nil
	}
	for _, ng := range groups {
		steps = append(steps, nodegroupVersionStep(ng, post, ""))
	}
	return steps, nil
}

func nodegroupVersionStep(ng eks.NodeGroup, post target.Version, release string) Step {
	if release != "" {
		if ng.ReleaseVersion == release {
			return skipStep(target.ScopeNodegroups, KindNodegroupVersion, ng.Name, "already at release "+release)
		}
		return NodegroupVersionStep(ng.Name, ng.ReleaseVersion, eks.NodegroupVersionOptions{ReleaseVersion: release})
	}

	have, err := target.ParseLooseVersion(ng.Version)
	if err == nil && have.Compare(post) == 0 {
		return skipStep(target.ScopeNodegroups, KindNodegroupVersion, ng.Name, "already at "+post.String())
	}
	return NodegroupVersionStep(ng.Name, ng.Version, eks.NodegroupVersionOptions{Version: post.String()})
}

func nodegroupConfigStep(ng eks.NodeGroup, want DesiredNodegroup) Step {
	var cfg eks.NodegroupConfig
	var changes []string

	sizeChanged := func(p *int32, have int, field string) bool {
		if p == nil || int(*p) == have {
			return false
		}
		changes = append(changes, fmt.Sprintf("%s %d->%d", field, have, *p))
		return true
	}
	minC := sizeChanged(want.MinSize, ng.MinSize, "min")
	maxC := sizeChanged(want.MaxSize, ng.MaxSize, "max")
	desC := sizeChanged(want.DesiredCapacity, ng.DesiredSize, "desired")
	if minC || maxC || desC {
		// EKS validates the scaling triple as a whole.
		cfg.MinSize = orCurrent(want.MinSize, ng.MinSize)
		cfg.MaxSize = orCurrent(want.MaxSize, ng.MaxSize)
		cfg.DesiredSize = orCurrent(want.DesiredCapacity, ng.DesiredSize)
	}

	if want.Labels != nil {
		for _, k := range slices.Sorted(maps.Keys(want.Labels)) {
			if have, ok := ng.Labels[k]; !ok || have != want.Labels[k] {
				if cfg.AddLabels == nil {
					cfg.AddLabels = map[string]string{}
				}
				cfg.AddLabels[k] = want.Labels[k]
				changes = append(changes, "label "+k+"="+want.Labels[k])
			}
		}
		for _, k := range slices.Sorted(maps.Keys(ng.Labels)) {
			if _, ok := want.Labels[k]; !ok {
				cfg.RemoveLabels = append(cfg.RemoveLabels, k)
				changes = append(changes, "remove label "+k)
			}
		}
	}

	if len(changes) == 0 {
		return skipStep(target.ScopeNodegroups, KindNodegroupConfig, ng.Name, "scaling and labels match")
	}
	return Step{
		Component:       target.ScopeNodegroups,
		Kind:            KindNodegroupConfig,
		Resource:        ng.Name,
		Message:         strings.Join(changes, ", "),
		Outcome:         Planned,
		NodegroupConfig: cfg,
	}
}

func orCurrent(p *int32, current int) *int32 {
	if p != nil {
		return p
	}
	v := int32(current)
	return &v
}

func planAddons(ctx context.Context, api ClusterAPI, cluster string, post target.Version, opts Options) ([]Step, error) {
	addons, err := api.ListAddons(ctx, cluster)
	if err != nil {
		return nil, err
	}

	if opts.Scope == target.ScopeConfig {
		installed := make(map[string]eks.Addon, len(addons))
		for _, a := range addons {
			installed[a.Name] = a
		}
		var steps []Step
		for _, want := range opts.Desired.Addons {
			a, ok := installed[want.Name]
			if !ok {
				steps = append(steps, skipStep(target.ScopeAddons, KindAddon, want.Name,
					"not installed; add-on creation is not supported"))
				continue
			}
			step, err := desiredAddonStep(ctx, api, a, want, post)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step)
		}
		return steps, nil
	}

	if len(addons) == 0 {
		return []Step{skipStep(target.ScopeAddons, KindAddon, cluster, "no EKS add-ons installed")}, nil
	}
	steps := make([]Step, 0, len(addons))
	for _, a := range addons {
		latest, err := api.ResolveAddonVersion(ctx, a.Name, post.String())
		if err != nil {
			return nil, err
		}
		switch latest {
		case "":
			steps = append(steps, skipStep(target.ScopeAddons, KindAddon, a.Name,
				"no published version for Kubernetes "+post.String()))
		case a.Version:
			steps = append(steps, skipStep(target.ScopeAddons, KindAddon, a.Name, "already at "+a.Version))
		default:
			steps = append(steps, AddonStep(a.Version, eks.AddonUpdate{Name: a.Name, Version: latest}))
		}
	}
	return steps, nil
}

func desiredAddonStep(ctx context.Context, api ClusterAPI, a eks.Addon, want DesiredAddon, post target.Version) (Step, error) {
	version := want.Version
	if version == "latest" || version == "" {
		v, err := api.ResolveAddonVersion(ctx, a.Name, post.String())
		if err != nil {
			return Step{}, err
		}
		version = v
	}

	req := eks.AddonUpdate{Name: a.Name}
	var changes []string
	if version != "" && version != a.Version {
		req.Version = version
		changes = append(changes, "version")
	}
	if want.ConfigurationValues != "" && strings.TrimSpace(want.ConfigurationValues) != strings.TrimSpace(a.ConfigurationValues) {
		req.ConfigurationValues = want.ConfigurationValues
		changes = append(changes, "configuration values")
	}
	if want.ServiceAccountRoleARN != "" && want.ServiceAccountRoleARN != a.ServiceAccountRole {
		req.ServiceAccountRoleARN = want.ServiceAccountRoleARN
		changes = append(changes, "service account role")
	}

	if len(changes) == 0 {
		return skipStep(target.ScopeAddons, KindAddon, a.Name, "matches the config file"), nil
	}
	step := AddonStep(a.Version, req)
	if req.Version == "" {
		step.To = a.Version
	}
	step.Message = "updates " + strings.Join(changes, ", ")
	return step, nil
}
