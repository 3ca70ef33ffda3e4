package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"fleet-maintenance/internal/observability/metrics"
)

// Evaluator re-evaluates the maintenance notification of one vehicle.
type Evaluator interface {
	Evaluate(ctx context.Context, vehicleID string) (bool, error)
}

// VehicleSource lists the vehicles to sweep.
type VehicleSource interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Sweeper periodically walks the whole fleet and re-evaluates every
// vehicle's notification. A failing vehicle never stops the sweep.
type Sweeper struct {
	vehicles  VehicleSource
	evaluator Evaluator
	interval  time.Duration
	logger    *log.Logger
}

// NewSweeper constructs a sweeper.
func NewSweeper(vehicles VehicleSource, evaluator Evaluator, interval time.Duration, logger *log.Logger) (*Sweeper, error) {
	if vehicles == nil {
		return nil, errors.New("sweeper: nil vehicle source")
	}
	if evaluator == nil {
		return nil, errors.New("sweeper: nil evaluator")
	}
	if interval <= 0 {
		interval = DefaultConfig().SweepInterval
	}
	return &Sweeper{
		vehicles:  vehicles,
		evaluator: evaluator,
		interval:  interval,
		logger:    logger,
	}, nil
}

// Start runs a sweep immediately, then on every tick until the context
// is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.run(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Sweeper) run(ctx context.Context) {
	created, err := s.CheckAll(ctx)
	if err != nil {
		s.logf("sweeper: sweep failed: %v", err)
		return
	}
	s.logf("sweeper: sweep finished, %d notifications created", created)
}

// CheckAll evaluates every vehicle and returns how many notifications
// were newly created. Per-vehicle failures are logged and skipped.
func (s *Sweeper) CheckAll(ctx context.Context) (int, error) {
	metrics.IncSweepRun()
	ids, err := s.vehicles.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return created, ctx.Err()
		}
		wasCreated, err := s.evaluator.Evaluate(ctx, id)
		if err != nil {
			s.logf("sweeper: evaluating vehicle %s failed: %v", id, err)
			continue
		}
		if wasCreated {
			created++
		}
	}
	metrics.AddSweepCreated(created)
	return created, nil
}

// CheckVehicle evaluates a single vehicle on demand.
func (s *Sweeper) CheckVehicle(ctx context.Context, vehicleID string) (bool, error) {
	return s.evaluator.Evaluate(ctx, vehicleID)
}

func (s *Sweeper) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
