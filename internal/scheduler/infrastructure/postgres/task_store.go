package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"fleet-maintenance/internal/scheduler"
)

// TaskStore is a Postgres store for recheck tasks.
type TaskStore struct {
	db *sql.DB
}

// NewTaskStore constructs a task store.
func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Enqueue inserts a pending task. An existing pending task for the
// same vehicle is moved instead, so bursts of completions collapse
// into one recheck.
func (s *TaskStore) Enqueue(ctx context.Context, vehicleID string, runAfter time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("task store: nil db")
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO recheck_tasks (id, vehicle_id, run_after, attempts, status, created_at, updated_at)
VALUES ($1, $2, $3, 0, 'pending', $4, $4)
ON CONFLICT (vehicle_id) WHERE status = 'pending' DO UPDATE SET
	run_after = EXCLUDED.run_after,
	updated_at = EXCLUDED.updated_at`,
		newTaskID(), vehicleID, runAfter.UTC(), now)
	return err
}

// ListDue returns pending tasks whose run time has passed, oldest
// first.
func (s *TaskStore) ListDue(ctx context.Context, now time.Time, limit int) ([]scheduler.Task, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("task store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, vehicle_id, run_after, attempts
FROM recheck_tasks
WHERE status = 'pending' AND run_after <= $1
ORDER BY run_after
LIMIT $2`, now.UTC(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []scheduler.Task
	for rows.Next() {
		var task scheduler.Task
		if err := rows.Scan(&task.ID, &task.VehicleID, &task.RunAfter, &task.Attempts); err != nil {
			return nil, err
		}
		task.RunAfter = task.RunAfter.UTC()
		result = append(result, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// MarkDone finishes a task.
func (s *TaskStore) MarkDone(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, "done")
}

// Retry reschedules a failed task and counts the attempt.
func (s *TaskStore) Retry(ctx context.Context, id string, runAfter time.Time) error {
	if s == nil || s.db == nil {
		return errors.New("task store: nil db")
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE recheck_tasks
SET run_after = $1, attempts = attempts + 1, updated_at = $2
WHERE id = $3`, runAfter.UTC(), time.Now().UTC(), id)
	return err
}

// MarkFailed abandons a task after its retries are exhausted.
func (s *TaskStore) MarkFailed(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, "failed")
}

func (s *TaskStore) setStatus(ctx context.Context, id, status string) error {
	if s == nil || s.db == nil {
		return errors.New("task store: nil db")
	}
	_, err := s.db.ExecContext(ctx, `
UPDATE recheck_tasks
SET status = $1, updated_at = $2
WHERE id = $3`, status, time.Now().UTC(), id)
	return err
}

func newTaskID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "task-" + hex.EncodeToString(buf[:])
	}
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return "task-" + hex.EncodeToString(buf[:])
}
