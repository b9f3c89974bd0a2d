// Package prereq verifies that a run can reach everything it needs before any
// mutating call is made.
package prereq

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/aws/smithy-go"
	log "github.com/sirupsen/logrus"
	"k8s.io/client-go/discovery"

	awsclient "tasnim.dev/eksops/internal/aws"
	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/utils"
)

var (
	ErrMissingTool = errors.New("required tool not found on PATH")
	ErrUnreachable = errors.New("prerequisite not reachable")
)

// ClusterDescriber is satisfied by *eks.Client.
type ClusterDescriber interface {
	DescribeCluster(ctx context.Context, name string) (eks.Cluster, error)
}

// Checker runs the prerequisite checks in order, stopping at the first
// failure.
type Checker struct {
	Tools    []string
	LookPath func(file string) (string, error)
	STS      awsclient.STSAPI
	EKS      ClusterDescriber

	// Kube builds a discovery client for the described cluster. Every command
	// sets it; Run skips the Kubernetes API check only when it is nil.
	Kube func(eks.Cluster) (discovery.ServerVersionInterface, error)
}

// Result is what the checks learned along the way.
type Result struct {
	Identity      awsclient.Identity
	Cluster       eks.Cluster
	ServerVersion string
}

// CheckTools fails with ErrMissingTool naming every tool that is absent.
func (c *Checker) CheckTools() error {
	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	var missing []string
	for _, tool := range c.Tools {
		path, err := lookPath(tool)
		if err != nil {
			missing = append(missing, tool)
			continue
		}
		log.WithField("path", path).Debugf("found %s", tool)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingTool, strings.Join(missing, ", "))
	}
	return nil
}

// CheckCredentials confirms the AWS credentials resolve to a principal.
func (c *Checker) CheckCredentials(ctx context.Context) (awsclient.Identity, error) {
	id, err := awsclient.CallerIdentity(ctx, c.STS)
	if err != nil {
		return awsclient.Identity{}, fmt.Errorf("%w: AWS credentials: %w", ErrUnreachable, err)
	}
	if id.Account == "" {
		id.Account = utils.AccountID(id.ARN)
	}
	return id, nil
}

// CheckCluster confirms the cluster exists in the configured region.
func (c *Checker) CheckCluster(ctx context.Context, name string) (eks.Cluster, error) {
	cluster, err := c.EKS.DescribeCluster(ctx, name)
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
			return eks.Cluster{}, fmt.Errorf("%w: cluster %s does not exist in this region", ErrUnreachable, name)
		}
		return eks.Cluster{}, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	return cluster, nil
}

// CheckKubeAPI asks the API server for its version.
func CheckKubeAPI(disc discovery.ServerVersionInterface) (string, error) {
	info, err := disc.ServerVersion()
	if err != nil {
		return "", fmt.Errorf("%w: Kubernetes API: %w", ErrUnreachable, err)
	}
	return info.GitVersion, nil
}

// Run executes the tool, credential, cluster and Kubernetes API checks.
func (c *Checker) Run(ctx context.Context, clusterName string) (Result, error) {
	if err := c.CheckTools(); err != nil {
		return Result{}, err
	}

	id, err := c.CheckCredentials(ctx)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(log.Fields{"account": id.Account, "arn": id.ARN}).Info("AWS credentials verified")

	cluster, err := c.CheckCluster(ctx, clusterName)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(log.Fields{"cluster": cluster.Name, "version": cluster.Version, "status": cluster.Status}).Info("cluster found")

	res := Result{Identity: id, Cluster: cluster}
	if c.Kube == nil {
		return res, nil
	}
	disc, err := c.Kube(cluster)
	if err != nil {
		return Result{}, fmt.Errorf("%w: Kubernetes client: %w", ErrUnreachable, err)
	}
	if res.ServerVersion, err = CheckKubeAPI(disc); err != nil {
		return Result{}, err
	}
	log.WithField("server", res.ServerVersion).Info("Kubernetes API reachable")
	return res, nil
}
