package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"metadata-sync/core/logger"
	"metadata-sync/core/model"
	"metadata-sync/core/retry"
	"metadata-sync/core/throttle"
)

// Manager drives the scan lifecycle of tables: ensure, trigger, wait.
// It is safe for concurrent use.
type Manager struct {
	svc     Service
	limiter *throttle.Limiter
	policy  retry.Policy
	log     *zap.Logger
	group   singleflight.Group
	now     func() time.Time
}

// NewManager creates a manager over svc. A nil limiter disables rate limiting.
func NewManager(svc Service, limiter *throttle.Limiter, policy retry.Policy, log *zap.Logger) *Manager {
	if limiter == nil {
		limiter = throttle.Unlimited()
	}
	if log == nil {
		log = zap.NewNop()
	}
	retryable := policy.Retryable
	if retryable == nil {
		retryable = retry.IsTransient
	}
	policy.Retryable = func(err error) bool {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrPermission) {
			return false
		}
		return retryable(err)
	}
	return &Manager{
		svc:     svc,
		limiter: limiter,
		policy:  policy,
		log:     log.Named("scan"),
		now:     time.Now,
	}
}

// RefreshOptions controls Refresh.
type RefreshOptions struct {
	// FreshnessWindow is how old a successful result may be before a new run is triggered.
	FreshnessWindow time.Duration
	// Timeout bounds the wait for a triggered run.
	Timeout time.Duration
	// PollInterval is the longest pause between two status checks.
	PollInterval time.Duration
}

// EnsureScan returns the scan resource of table, creating it when absent.
// Concurrent calls for the same table share one lookup and at most one create.
func (m *Manager) EnsureScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	v, err, shared := m.group.Do(table.Key(), func() (any, error) {
		return m.ensure(ctx, table)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.log.Debug("Joined in-flight ensure", zap.String("table", table.Key()))
	}
	res := *v.(*model.ScanResource)
	return &res, nil
}

func (m *Manager) ensure(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	log := logger.WithTable(m.log, table)

	res, err := m.getScan(ctx, table)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to look up scan for %s: %w", table, err)
	}

	log.Info("Creating scan resource")
	res, err = call(ctx, m, func(ctx context.Context) (*model.ScanResource, error) {
		return m.svc.CreateScan(ctx, table)
	})
	if errors.Is(err, ErrAlreadyExists) {
		log.Debug("Scan created concurrently, resolving existing resource")
		res, err = m.getScan(ctx, table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create scan for %s: %w", table, err)
	}
	return res, nil
}

// TriggerRun starts a run of handle without waiting for it. A resource that is already
// running returns its current job instead of starting a second one.
func (m *Manager) TriggerRun(ctx context.Context, handle *model.ScanResource) (model.JobHandle, error) {
	if handle.State == model.ScanRunning && handle.Job != nil {
		return *handle.Job, nil
	}
	if !handle.State.CanTransition(model.ScanRunning) {
		err := fmt.Errorf("scan %s cannot start a run from state %s", handle.ID, handle.State)
		if handle.State == model.ScanCreating {
			// Creation finishes on its own; the next attempt can run it.
			return model.JobHandle{}, retry.Transient(err)
		}
		return model.JobHandle{}, retry.Permanent(err)
	}

	job, err := call(ctx, m, func(ctx context.Context) (model.JobHandle, error) {
		return m.svc.RunScan(ctx, handle.ID)
	})
	if err != nil {
		return model.JobHandle{}, fmt.Errorf("failed to trigger scan %s: %w", handle.ID, err)
	}

	handle.State = model.ScanRunning
	handle.Job = &job
	m.log.Info("Triggered scan run", zap.String("scan", handle.ID), zap.String("job", job.ID))
	return job, nil
}

// WaitForCompletion polls job until it is SUCCEEDED or FAILED. Polls back off
// exponentially up to pollInterval. After timeout it returns a *ScanTimeoutError.
// Cancellation of ctx is observed between polls.
func (m *Manager) WaitForCompletion(ctx context.Context, job model.JobHandle, timeout, pollInterval time.Duration) (model.ScanState, error) {
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	deadline := m.now().Add(timeout)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = min(pollInterval, 500*time.Millisecond)
	b.MaxInterval = pollInterval
	b.Multiplier = 2
	b.Reset()

	last := model.ScanRunning
	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		state, err := call(ctx, m, func(ctx context.Context) (model.ScanState, error) {
			return m.svc.GetJob(ctx, job)
		})
		if err != nil {
			return last, fmt.Errorf("failed to poll scan job %s: %w", job.ID, err)
		}
		last = state
		if state.IsTerminal() {
			return state, nil
		}

		remaining := deadline.Sub(m.now())
		if remaining <= 0 {
			return last, &ScanTimeoutError{Job: job, Timeout: timeout, LastState: last}
		}

		// Randomization can push the interval past MaxInterval.
		wait := min(b.NextBackOff(), pollInterval, remaining)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last, ctx.Err()
		case <-timer.C:
		}
	}
}

// Refresh ensures the scan of table and, unless its latest result is within the
// freshness window, triggers a run and waits for it. On timeout the resource is
// returned together with the *ScanTimeoutError.
func (m *Manager) Refresh(ctx context.Context, table model.TableDescriptor, opts RefreshOptions) (*model.ScanResource, error) {
	res, err := m.EnsureScan(ctx, table)
	if err != nil {
		return nil, err
	}
	if res.IsFresh(m.now(), opts.FreshnessWindow) {
		return res, nil
	}

	job, err := m.TriggerRun(ctx, res)
	if err != nil {
		return res, err
	}

	started := m.now()
	state, err := m.WaitForCompletion(ctx, job, opts.Timeout, opts.PollInterval)
	m.log.Debug("Scan run finished waiting",
		zap.String("table", table.Key()),
		zap.String("state", string(state)),
		zap.Duration("waited", m.now().Sub(started)))
	res.State = state
	if err != nil {
		return res, err
	}

	// Re-read the resource for the authoritative result time.
	latest, err := m.getScan(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to reload scan for %s: %w", table, err)
	}
	if !latest.State.IsTerminal() {
		latest.State = state
	}
	if state == model.ScanSucceeded && latest.LastRunAt == nil {
		now := m.now()
		latest.LastRunAt = &now
	}
	return latest, nil
}

// Result returns the raw FULL payload of handle's latest successful run.
func (m *Manager) Result(ctx context.Context, handle *model.ScanResource) ([]byte, error) {
	data, err := call(ctx, m, func(ctx context.Context) ([]byte, error) {
		return m.svc.GetResult(ctx, handle.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch result of %s: %w", handle.ID, err)
	}
	return data, nil
}

func (m *Manager) getScan(ctx context.Context, table model.TableDescriptor) (*model.ScanResource, error) {
	return call(ctx, m, func(ctx context.Context) (*model.ScanResource, error) {
		return m.svc.GetScan(ctx, table)
	})
}

// call passes fn through the shared limiter and the retry policy.
func call[T any](ctx context.Context, m *Manager, fn func(context.Context) (T, error)) (T, error) {
	return retry.Run(ctx, m.policy, func() (T, error) {
		return throttle.Call(ctx, m.limiter, fn)
	})
}
