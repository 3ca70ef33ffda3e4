package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"fleet-maintenance/internal/observability/metrics"
)

// Task is one pending vehicle recheck. Tasks survive restarts; a visit
// completion enqueues one instead of holding a goroutine open.
type Task struct {
	ID        string
	VehicleID string
	RunAfter  time.Time
	Attempts  int
}

// TaskStore persists recheck tasks.
type TaskStore interface {
	Enqueue(ctx context.Context, vehicleID string, runAfter time.Time) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]Task, error)
	MarkDone(ctx context.Context, id string) error
	Retry(ctx context.Context, id string, runAfter time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

const recheckBatchSize = 20

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// RecheckQueue drains due recheck tasks and re-evaluates their
// vehicles. Failing tasks are retried with a fixed backoff up to a
// bounded number of attempts.
type RecheckQueue struct {
	store       TaskStore
	evaluator   Evaluator
	poll        time.Duration
	maxAttempts int
	backoff     time.Duration
	clock       Clock
	logger      *log.Logger
}

// RecheckOption customizes the recheck worker.
type RecheckOption func(*RecheckQueue)

// WithRecheckClock assigns a clock.
func WithRecheckClock(clock Clock) RecheckOption {
	return func(q *RecheckQueue) {
		q.clock = clock
	}
}

// NewRecheckQueue constructs a recheck worker.
func NewRecheckQueue(store TaskStore, evaluator Evaluator, cfg Config, logger *log.Logger, opts ...RecheckOption) (*RecheckQueue, error) {
	if store == nil {
		return nil, errors.New("recheck queue: nil task store")
	}
	if evaluator == nil {
		return nil, errors.New("recheck queue: nil evaluator")
	}
	defaults := DefaultConfig()
	if cfg.RecheckPoll <= 0 {
		cfg.RecheckPoll = defaults.RecheckPoll
	}
	if cfg.RecheckMaxAttempts <= 0 {
		cfg.RecheckMaxAttempts = defaults.RecheckMaxAttempts
	}
	if cfg.RecheckBackoff <= 0 {
		cfg.RecheckBackoff = defaults.RecheckBackoff
	}
	queue := &RecheckQueue{
		store:       store,
		evaluator:   evaluator,
		poll:        cfg.RecheckPoll,
		maxAttempts: cfg.RecheckMaxAttempts,
		backoff:     cfg.RecheckBackoff,
		clock:       systemClock{},
		logger:      logger,
	}
	for _, opt := range opts {
		opt(queue)
	}
	return queue, nil
}

// Enqueue schedules a vehicle recheck.
func (q *RecheckQueue) Enqueue(ctx context.Context, vehicleID string, runAfter time.Time) error {
	if vehicleID == "" {
		return errors.New("recheck queue: empty vehicle id")
	}
	return q.store.Enqueue(ctx, vehicleID, runAfter)
}

// Start polls for due tasks until the context is cancelled.
func (q *RecheckQueue) Start(ctx context.Context) {
	ticker := time.NewTicker(q.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := q.RunOnce(ctx); err != nil {
				q.logf("recheck queue: drain failed: %v", err)
			}
		}
	}
}

// RunOnce drains one batch of due tasks and returns how many were
// processed.
func (q *RecheckQueue) RunOnce(ctx context.Context) (int, error) {
	due, err := q.store.ListDue(ctx, q.clock.Now(), recheckBatchSize)
	if err != nil {
		return 0, err
	}
	processed := 0
	for _, task := range due {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		q.process(ctx, task)
		processed++
	}
	return processed, nil
}

func (q *RecheckQueue) process(ctx context.Context, task Task) {
	if _, err := q.evaluator.Evaluate(ctx, task.VehicleID); err != nil {
		if task.Attempts+1 >= q.maxAttempts {
			metrics.IncRecheckTask("failed")
			q.logf("recheck queue: task %s for vehicle %s failed permanently after %d attempts: %v",
				task.ID, task.VehicleID, task.Attempts+1, err)
			if markErr := q.store.MarkFailed(ctx, task.ID); markErr != nil {
				q.logf("recheck queue: marking task %s failed: %v", task.ID, markErr)
			}
			return
		}
		metrics.IncRecheckTask("retried")
		q.logf("recheck queue: task %s for vehicle %s failed, retrying: %v", task.ID, task.VehicleID, err)
		if retryErr := q.store.Retry(ctx, task.ID, q.clock.Now().Add(q.backoff)); retryErr != nil {
			q.logf("recheck queue: rescheduling task %s: %v", task.ID, retryErr)
		}
		return
	}
	metrics.IncRecheckTask("done")
	if err := q.store.MarkDone(ctx, task.ID); err != nil {
		q.logf("recheck queue: marking task %s done: %v", task.ID, err)
	}
}

func (q *RecheckQueue) logf(format string, args ...any) {
	if q.logger == nil {
		return
	}
	q.logger.Printf(format, args...)
}
