package scheduler

import (
	"context"
	"errors"
	"testing"
)

type stubVehicleSource struct {
	ids []string
	err error
}

func (s stubVehicleSource) ListIDs(_ context.Context) ([]string, error) {
	return s.ids, s.err
}

type scriptedEvaluator struct {
	created map[string]bool
	fails   map[string]bool
	seen    []string
}

func (e *scriptedEvaluator) Evaluate(_ context.Context, vehicleID string) (bool, error) {
	e.seen = append(e.seen, vehicleID)
	if e.fails[vehicleID] {
		return false, errors.New("evaluation failed")
	}
	return e.created[vehicleID], nil
}

func TestCheckAllCountsCreatedNotifications(t *testing.T) {
	evaluator := &scriptedEvaluator{
		created: map[string]bool{"veh-1": true, "veh-3": true},
	}
	sweeper, err := NewSweeper(stubVehicleSource{ids: []string{"veh-1", "veh-2", "veh-3"}}, evaluator, 0, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	created, err := sweeper.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if created != 2 {
		t.Fatalf("expected 2 created, got %d", created)
	}
	if len(evaluator.seen) != 3 {
		t.Fatalf("expected all vehicles evaluated, got %v", evaluator.seen)
	}
}

func TestCheckAllFailingVehicleDoesNotStopSweep(t *testing.T) {
	evaluator := &scriptedEvaluator{
		created: map[string]bool{"veh-3": true},
		fails:   map[string]bool{"veh-2": true},
	}
	sweeper, err := NewSweeper(stubVehicleSource{ids: []string{"veh-1", "veh-2", "veh-3"}}, evaluator, 0, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}

	created, err := sweeper.CheckAll(context.Background())
	if err != nil {
		t.Fatalf("check all: %v", err)
	}
	if created != 1 {
		t.Fatalf("expected 1 created, got %d", created)
	}
	if len(evaluator.seen) != 3 {
		t.Fatalf("failure must not stop the sweep, evaluated %v", evaluator.seen)
	}
}

func TestCheckAllListFailure(t *testing.T) {
	sweeper, err := NewSweeper(stubVehicleSource{err: errors.New("db down")}, &scriptedEvaluator{}, 0, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	if _, err := sweeper.CheckAll(context.Background()); err == nil {
		t.Fatalf("expected list failure propagated")
	}
}

func TestCheckAllStopsOnCancelledContext(t *testing.T) {
	evaluator := &scriptedEvaluator{}
	sweeper, err := NewSweeper(stubVehicleSource{ids: []string{"veh-1", "veh-2"}}, evaluator, 0, nil)
	if err != nil {
		t.Fatalf("new sweeper: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := sweeper.CheckAll(ctx); err == nil {
		t.Fatalf("expected context error")
	}
	if len(evaluator.seen) != 0 {
		t.Fatalf("cancelled sweep must not evaluate, got %v", evaluator.seen)
	}
}
