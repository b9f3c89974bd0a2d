// Package waiter polls a remote condition with bounded exponential backoff.
package waiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrTimeout is matched by every error Poll returns when the policy's budget
// runs out before the condition reports done.
var ErrTimeout = errors.New("timed out waiting")

// Policy bounds a Poll. A zero Timeout or MaxAttempts means that bound is not
// applied; at least one of them should be set.
type Policy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	Timeout         time.Duration
	MaxAttempts     int
}

// DefaultPolicy backs off from 10s to a minute and gives up after an hour.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 10 * time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      1.5,
		Timeout:         time.Hour,
	}
}

// Condition reports whether the awaited state holds and a short description of
// the observed state. Errors are retried unless wrapped with Fatal.
type Condition func(ctx context.Context) (done bool, state string, err error)

// ProgressFunc is called each time the observed state changes.
type ProgressFunc func(state string, elapsed time.Duration)

// TimeoutError carries what was last seen before the budget ran out.
type TimeoutError struct {
	State    string
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

func (e *TimeoutError) Error() string {
	msg := fmt.Sprintf("%s after %s (%d attempts, last state %q)", ErrTimeout, e.Elapsed.Round(time.Second), e.Attempts, e.State)
	if e.LastErr != nil {
		msg += ": " + e.LastErr.Error()
	}
	return msg
}

func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

func (e *TimeoutError) Unwrap() error {
	return e.LastErr
}

// Poll calls cond until it reports done, returns a fatal error, the context
// is cancelled, or the policy is exhausted.
func Poll(ctx context.Context, p Policy, cond Condition, onProgress ProgressFunc) error {
	if p.InitialInterval <= 0 {
		p.InitialInterval = time.Second
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}

	pctx := ctx
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	start := time.Now()
	delay := p.InitialInterval
	var state string
	var lastErr error

	timeout := func(attempts int) error {
		return &TimeoutError{State: state, Attempts: attempts, Elapsed: time.Since(start), LastErr: lastErr}
	}

	for attempt := 1; ; attempt++ {
		done, observed, err := cond(pctx)
		switch {
		case err != nil && IsFatal(err):
			return err
		case err != nil:
			lastErr = err
			log.WithError(err).WithField("attempt", attempt).Debug("transient error while polling")
		default:
			lastErr = nil
			if observed != state {
				state = observed
				if onProgress != nil {
					onProgress(state, time.Since(start))
				}
			}
			if done {
				return nil
			}
		}

		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return timeout(attempt)
		}

		timer := time.NewTimer(delay)
		select {
		case <-pctx.Done():
			timer.Stop()
			if ctx.Err() != nil {
				return fmt.Errorf("polling cancelled after %d attempts: %w", attempt, ctx.Err())
			}
			return timeout(attempt)
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if delay > p.MaxInterval {
			delay = p.MaxInterval
		}
	}
}

// FatalError wraps an error to stop polling immediately.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal marks err as non-retryable.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}
