package eks

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	awseks "github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

// ControlPlaneLogTypes lists every log type the EKS control plane can ship.
var ControlPlaneLogTypes = []string{"api", "audit", "authenticator", "controllerManager", "scheduler"}

func (c *Client) UpdateClusterVersion(ctx context.Context, clusterName, version string) (Update, error) {
	out, err := c.api.UpdateClusterVersion(ctx, &awseks.UpdateClusterVersionInput{
		Name:    aws.String(clusterName),
		Version: aws.String(version),
	})
	if err != nil {
		return Update{}, fmt.Errorf("UpdateClusterVersion(%s, %s): %w", clusterName, version, err)
	}
	return toUpdate(UpdateRef{Cluster: clusterName}, out.Update), nil
}

// UpdateClusterLogging enables exactly the given control-plane log types and
// disables the rest.
func (c *Client) UpdateClusterLogging(ctx context.Context, clusterName string, enabled []string) (Update, error) {
	var on, off []ekstypes.LogType
	for _, t := range ControlPlaneLogTypes {
		if slices.Contains(enabled, t) {
			on = append(on, ekstypes.LogType(t))
		} else {
			off = append(off, ekstypes.LogType(t))
		}
	}

	var setups []ekstypes.LogSetup
	if len(on) > 0 {
		setups = append(setups, ekstypes.LogSetup{Enabled: aws.Bool(true), Types: on})
	}
	if len(off) > 0 {
		setups = append(setups, ekstypes.LogSetup{Enabled: aws.Bool(false), Types: off})
	}

	out, err := c.api.UpdateClusterConfig(ctx, &awseks.UpdateClusterConfigInput{
		Name:    aws.String(clusterName),
		Logging: &ekstypes.Logging{ClusterLogging: setups},
	})
	if err != nil {
		return Update{}, fmt.Errorf("UpdateClusterConfig(%s): %w", clusterName, err)
	}
	return toUpdate(UpdateRef{Cluster: clusterName}, out.Update), nil
}

func (c *Client) UpdateNodegroupVersion(ctx context.Context, clusterName, nodegroup string, opts NodegroupVersionOptions) (Update, error) {
	in := &awseks.UpdateNodegroupVersionInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(nodegroup),
	}
	if opts.Version != "" {
		in.Version = aws.String(opts.Version)
	}
	if opts.ReleaseVersion != "" {
		in.ReleaseVersion = aws.String(opts.ReleaseVersion)
	}

	out, err := c.api.UpdateNodegroupVersion(ctx, in)
	if err != nil {
		return Update{}, fmt.Errorf("UpdateNodegroupVersion(%s/%s): %w", clusterName, nodegroup, err)
	}
	return toUpdate(UpdateRef{Cluster: clusterName, Nodegroup: nodegroup}, out.Update), nil
}

func (c *Client) UpdateNodegroupConfig(ctx context.Context, clusterName, nodegroup string, cfg NodegroupConfig) (Update, error) {
	in := &awseks.UpdateNodegroupConfigInput{
		ClusterName:   aws.String(clusterName),
		NodegroupName: aws.String(nodegroup),
	}
	if cfg.MinSize != nil || cfg.MaxSize != nil || cfg.DesiredSize != nil {
		in.ScalingConfig = &ekstypes.NodegroupScalingConfig{
			MinSize:     cfg.MinSize,
			MaxSize:     cfg.MaxSize,
			DesiredSize: cfg.DesiredSize,
		}
	}
	if len(cfg.AddLabels) > 0 || len(cfg.RemoveLabels) > 0 {
		in.Labels = &ekstypes.UpdateLabelsPayload{
			AddOrUpdateLabels: cfg.AddLabels,
			RemoveLabels:      cfg.RemoveLabels,
		}
	}

	out, err := c.api.UpdateNodegroupConfig(ctx, in)
	if err != nil {
		return Update{}, fmt.Errorf("UpdateNodegroupConfig(%s/%s): %w", clusterName, nodegroup, err)
	}
	return toUpdate(UpdateRef{Cluster: clusterName, Nodegroup: nodegroup}, out.Update), nil
}

func (c *Client) UpdateAddon(ctx context.Context, clusterName string, req AddonUpdate) (Update, error) {
	in := &awseks.UpdateAddonInput{
		ClusterName:      aws.String(clusterName),
		AddonName:        aws.String(req.Name),
		ResolveConflicts: req.ResolveConflicts,
	}
	if in.ResolveConflicts == "" {
		in.ResolveConflicts = ekstypes.ResolveConflictsPreserve
	}
	if req.Version != "" {
		in.AddonVersion = aws.String(req.Version)
	}
	if req.ConfigurationValues != "" {
		in.ConfigurationValues = aws.String(req.ConfigurationValues)
	}
	if req.ServiceAccountRoleARN != "" {
		in.ServiceAccountRoleArn = aws.String(req.ServiceAccountRoleARN)
	}

	out, err := c.api.UpdateAddon(ctx, in)
	if err != nil {
		return Update{}, fmt.Errorf("UpdateAddon(%s/%s): %w", clusterName, req.Name, err)
	}
	return toUpdate(UpdateRef{Cluster: clusterName, Addon: req.Name}, out.Update), nil
}

func (c *Client) DescribeUpdate(ctx context.Context, ref UpdateRef) (Update, error) {
	in := &awseks.DescribeUpdateInput{
		Name:     aws.String(ref.Cluster),
		UpdateId: aws.String(ref.ID),
	}
	if ref.Nodegroup != "" {
		in.NodegroupName = aws.String(ref.Nodegroup)
	}
	if ref.Addon != "" {
		in.AddonName = aws.String(ref.Addon)
	}

	out, err := c.api.DescribeUpdate(ctx, in)
	if err != nil {
		return Update{}, fmt.Errorf("DescribeUpdate(%s %s): %w", ref.Resource(), ref.ID, err)
	}
	return toUpdate(ref, out.Update), nil
}

// ListUpdates describes every update recorded for the referenced resource.
// ref.ID is ignored.
func (c *Client) ListUpdates(ctx context.Context, ref UpdateRef) ([]Update, error) {
	var ids []string
	var nextToken *string

	for {
		in := &awseks.ListUpdatesInput{
			Name:      aws.String(ref.Cluster),
			NextToken: nextToken,
		}
		if ref.Nodegroup != "" {
			in.NodegroupName = aws.String(ref.Nodegroup)
		}
		if ref.Addon != "" {
			in.AddonName = aws.String(ref.Addon)
		}

		out, err := c.api.ListUpdates(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("ListUpdates(%s): %w", ref.Resource(), err)
		}

		ids = append(ids, out.UpdateIds...)

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	updates := make([]Update, 0, len(ids))
	for _, id := range ids {
		r := ref
		r.ID = id
		u, err := c.DescribeUpdate(ctx, r)
		if err != nil {
			return nil, err
		}
		updates = append(updates, u)
	}
	return updates, nil
}

func toUpdate(ref UpdateRef, u *ekstypes.Update) Update {
	if u == nil {
		return Update{Ref: ref}
	}
	ref.ID = aws.ToString(u.Id)

	var errs []string
	for _, e := range u.Errors {
		errs = append(errs, fmt.Sprintf("%s: %s", e.ErrorCode, aws.ToString(e.ErrorMessage)))
	}

	upd := Update{
		Ref:    ref,
		Type:   u.Type,
		Status: u.Status,
		Errors: errs,
	}
	if u.CreatedAt != nil {
		upd.CreatedAt = *u.CreatedAt
	}
	return upd
}
