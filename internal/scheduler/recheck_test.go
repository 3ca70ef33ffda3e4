package scheduler

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

// memoryTaskStore is an in-memory TaskStore with one pending task per
// vehicle.
type memoryTaskStore struct {
	tasks  map[string]*Task
	status map[string]string
	nextID int
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: map[string]*Task{}, status: map[string]string{}}
}

func (s *memoryTaskStore) Enqueue(_ context.Context, vehicleID string, runAfter time.Time) error {
	for id, task := range s.tasks {
		if task.VehicleID == vehicleID && s.status[id] == "pending" {
			task.RunAfter = runAfter
			return nil
		}
	}
	s.nextID++
	id := "task-" + strconv.Itoa(s.nextID)
	s.tasks[id] = &Task{ID: id, VehicleID: vehicleID, RunAfter: runAfter}
	s.status[id] = "pending"
	return nil
}

func (s *memoryTaskStore) ListDue(_ context.Context, now time.Time, limit int) ([]Task, error) {
	var result []Task
	for id, task := range s.tasks {
		if s.status[id] == "pending" && !task.RunAfter.After(now) {
			result = append(result, *task)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (s *memoryTaskStore) MarkDone(_ context.Context, id string) error {
	s.status[id] = "done"
	return nil
}

func (s *memoryTaskStore) Retry(_ context.Context, id string, runAfter time.Time) error {
	task, ok := s.tasks[id]
	if !ok {
		return errors.New("unknown task")
	}
	task.RunAfter = runAfter
	task.Attempts++
	return nil
}

func (s *memoryTaskStore) MarkFailed(_ context.Context, id string) error {
	s.status[id] = "failed"
	return nil
}

type flakyEvaluator struct {
	failures int
	calls    int
}

func (e *flakyEvaluator) Evaluate(_ context.Context, _ string) (bool, error) {
	e.calls++
	if e.calls <= e.failures {
		return false, errors.New("transient failure")
	}
	return false, nil
}

type queueClock struct {
	now time.Time
}

func (c *queueClock) Now() time.Time { return c.now }

func (c *queueClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestQueue(t *testing.T, store TaskStore, evaluator Evaluator) (*RecheckQueue, *queueClock) {
	t.Helper()
	clock := &queueClock{now: time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)}
	cfg := Config{RecheckPoll: time.Millisecond, RecheckMaxAttempts: 3, RecheckBackoff: time.Minute}
	queue, err := NewRecheckQueue(store, evaluator, cfg, nil, WithRecheckClock(clock))
	if err != nil {
		t.Fatalf("new recheck queue: %v", err)
	}
	return queue, clock
}

func TestRunOnceProcessesDueTasks(t *testing.T) {
	store := newMemoryTaskStore()
	evaluator := &flakyEvaluator{}
	queue, clock := newTestQueue(t, store, evaluator)

	past := clock.Now().Add(-time.Second)
	if err := queue.Enqueue(context.Background(), "veh-1", past); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processed, err := queue.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 task processed, got %d", processed)
	}
	if evaluator.calls != 1 {
		t.Fatalf("expected 1 evaluation, got %d", evaluator.calls)
	}
	if store.status["task-1"] != "done" {
		t.Fatalf("expected task done, got %s", store.status["task-1"])
	}
}

func TestRunOnceSkipsFutureTasks(t *testing.T) {
	store := newMemoryTaskStore()
	evaluator := &flakyEvaluator{}
	queue, clock := newTestQueue(t, store, evaluator)

	future := clock.Now().Add(time.Hour)
	if err := queue.Enqueue(context.Background(), "veh-1", future); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	processed, err := queue.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if processed != 0 || evaluator.calls != 0 {
		t.Fatalf("future task must not run yet")
	}

	clock.Advance(2 * time.Hour)
	processed, err = queue.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once after advance: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected task due after clock advance, got %d processed", processed)
	}
}

func TestFailingTaskIsRetriedThenSucceeds(t *testing.T) {
	store := newMemoryTaskStore()
	evaluator := &flakyEvaluator{failures: 1}
	queue, clock := newTestQueue(t, store, evaluator)

	past := clock.Now().Add(-time.Second)
	if err := queue.Enqueue(context.Background(), "veh-1", past); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if _, err := queue.RunOnce(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if store.status["task-1"] != "pending" {
		t.Fatalf("expected task rescheduled, got %s", store.status["task-1"])
	}
	if store.tasks["task-1"].Attempts != 1 {
		t.Fatalf("expected 1 attempt recorded, got %d", store.tasks["task-1"].Attempts)
	}
	if want := clock.Now().Add(time.Minute); !store.tasks["task-1"].RunAfter.Equal(want) {
		t.Fatalf("expected retry at %s, got %s", want, store.tasks["task-1"].RunAfter)
	}

	// Still inside the backoff window.
	if processed, _ := queue.RunOnce(context.Background()); processed != 0 {
		t.Fatalf("retry must wait for backoff, got %d processed", processed)
	}

	clock.Advance(2 * time.Minute)
	if _, err := queue.RunOnce(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if store.status["task-1"] != "done" {
		t.Fatalf("expected task done after retry, got %s", store.status["task-1"])
	}
}

func TestTaskFailsPermanentlyAfterMaxAttempts(t *testing.T) {
	store := newMemoryTaskStore()
	evaluator := &flakyEvaluator{failures: 100}
	queue, clock := newTestQueue(t, store, evaluator)

	past := clock.Now().Add(-time.Second)
	if err := queue.Enqueue(context.Background(), "veh-1", past); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := queue.RunOnce(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		clock.Advance(2 * time.Minute)
	}
	if store.status["task-1"] != "failed" {
		t.Fatalf("expected task failed after max attempts, got %s", store.status["task-1"])
	}
	if evaluator.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", evaluator.calls)
	}
}

func TestEnqueueCollapsesPendingTasks(t *testing.T) {
	store := newMemoryTaskStore()
	queue, clock := newTestQueue(t, store, &flakyEvaluator{})

	at := clock.Now().Add(time.Minute)
	if err := queue.Enqueue(context.Background(), "veh-1", at); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := queue.Enqueue(context.Background(), "veh-1", at.Add(time.Minute)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(store.tasks) != 1 {
		t.Fatalf("expected one pending task per vehicle, got %d", len(store.tasks))
	}
}

func TestEnqueueRejectsEmptyVehicleID(t *testing.T) {
	queue, clock := newTestQueue(t, newMemoryTaskStore(), &flakyEvaluator{})
	if err := queue.Enqueue(context.Background(), "", clock.Now()); err == nil {
		t.Fatalf("expected empty vehicle id rejected")
	}
}
