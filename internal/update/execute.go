package update

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
	log "github.com/sirupsen/logrus"

	"tasnim.dev/eksops/internal/aws/eks"
	"tasnim.dev/eksops/internal/waiter"
)

// ErrUpdateFailed is returned when EKS reports an update as Failed or
// Cancelled.
var ErrUpdateFailed = errors.New("EKS update failed")

// ProgressFunc receives every change of observed state while a step waits.
type ProgressFunc func(step Step, state string, elapsed time.Duration)

// Executor applies planned steps in order and stops at the first failure.
type Executor struct {
	EKS        ClusterAPI
	Policy     waiter.Policy
	OnProgress ProgressFunc
}

// Execute runs every Planned step of steps in place. Steps after a failure
// keep their Planned outcome.
func (e *Executor) Execute(ctx context.Context, cluster string, steps []Step) error {
	for i := range steps {
		s := &steps[i]
		if s.Outcome != Planned {
			continue
		}

		logger := log.WithFields(log.Fields{"cluster": cluster, "step": s.Label()})
		logger.Info("starting")
		start := time.Now()

		if err := e.apply(ctx, cluster, s); err != nil {
			s.Outcome = Failed
			s.Error = err.Error()
			logger.WithError(err).Error("step failed")
			return fmt.Errorf("%s: %w", s.Label(), err)
		}

		s.Outcome = Completed
		logger.WithField("elapsed", time.Since(start).Round(time.Second)).Info("completed")
	}
	return nil
}

func (e *Executor) apply(ctx context.Context, cluster string, s *Step) error {
	var (
		u   eks.Update
		err error
	)
	switch s.Kind {
	case KindClusterVersion:
		u, err = e.EKS.UpdateClusterVersion(ctx, cluster, s.To)
	case KindClusterLogging:
		u, err = e.EKS.UpdateClusterLogging(ctx, cluster, s.LogTypes)
	case KindNodegroupVersion:
		u, err = e.EKS.UpdateNodegroupVersion(ctx, cluster, s.Resource, s.NodegroupVersion)
	case KindNodegroupConfig:
		u, err = e.EKS.UpdateNodegroupConfig(ctx, cluster, s.Resource, s.NodegroupConfig)
	case KindAddon:
		u, err = e.EKS.UpdateAddon(ctx, cluster, s.Addon)
	default:
		return fmt.Errorf("step kind %q cannot be applied", s.Kind)
	}
	if err != nil {
		return err
	}
	s.UpdateID = u.Ref.ID

	return WaitForUpdate(ctx, e.EKS, e.Policy, u.Ref, func(state string, elapsed time.Duration) {
		if e.OnProgress != nil {
			e.OnProgress(*s, state, elapsed)
		}
	})
}

// WaitForUpdate blocks until the update is Successful and the resource it
// touched is ACTIVE again. A Failed or Cancelled update stops the wait
// immediately; any other status counts as still in progress.
func WaitForUpdate(ctx context.Context, api ClusterAPI, p waiter.Policy, ref eks.UpdateRef, onProgress waiter.ProgressFunc) error {
	cond := func(ctx context.Context) (bool, string, error) {
		u, err := api.DescribeUpdate(ctx, ref)
		if err != nil {
			return false, "", err
		}

		if !u.Terminal() {
			return false, "update " + string(u.Status), nil
		}
		if u.Status != ekstypes.UpdateStatusSuccessful {
			msg := fmt.Sprintf("%s %s %s", ref.Resource(), u.Status, ref.ID)
			if len(u.Errors) > 0 {
				msg += ": " + strings.Join(u.Errors, "; ")
			}
			return false, string(u.Status), waiter.Fatal(fmt.Errorf("%w: %s", ErrUpdateFailed, msg))
		}

		status, err := resourceStatus(ctx, api, ref)
		if err != nil {
			return false, "", err
		}
		return status == "ACTIVE", ref.Resource() + " " + status, nil
	}
	return waiter.Poll(ctx, p, cond, onProgress)
}

func resourceStatus(ctx context.Context, api ClusterAPI, ref eks.UpdateRef) (string, error) {
	switch {
	case ref.Nodegroup != "":
		ng, err := api.DescribeNodegroup(ctx, ref.Cluster, ref.Nodegroup)
		return string(ng.Status), err
	case ref.Addon != "":
		a, err := api.DescribeAddon(ctx, ref.Cluster, ref.Addon)
		return string(a.Status), err
	default:
		c, err := api.DescribeCluster(ctx, ref.Cluster)
		return string(c.Status), err
	}
}
