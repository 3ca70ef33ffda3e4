package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	counter "fleet-maintenance/internal/counter/domain"
	maintenance "fleet-maintenance/internal/maintenance/domain"
)

const visitLabelLimit = 50

// VisitRepository is a Postgres repository for service visits.
type VisitRepository struct {
	db *sql.DB
}

// NewVisitRepository constructs a repository.
func NewVisitRepository(db *sql.DB) *VisitRepository {
	return &VisitRepository{db: db}
}

// Create inserts a visit and advances the vehicle odometer to the
// visit's counter when it exceeds the stored reading, in one
// transaction.
func (r *VisitRepository) Create(ctx context.Context, visit *maintenance.Visit) error {
	if r == nil || r.db == nil {
		return errors.New("visit repo: nil db")
	}
	if visit == nil {
		return errors.New("visit repo: nil visit")
	}
	if visit.VehicleID == "" {
		return errors.New("visit repo: empty vehicle id")
	}
	if visit.ID == "" {
		visit.ID = newVisitID()
	}
	now := time.Now().UTC()
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = now
	}
	if visit.UpdatedAt.IsZero() {
		visit.UpdatedAt = visit.CreatedAt
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO service_visits (
	id, vehicle_id, counter, started_at, planned_end, details, status,
	completed_at, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10
)`,
		visit.ID,
		visit.VehicleID,
		visit.Counter,
		visit.StartedAt,
		nullableTime(visit.PlannedEnd),
		visit.Details,
		visit.Status,
		nullableTime(visit.CompletedAt),
		visit.CreatedAt,
		visit.UpdatedAt,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE vehicles
SET odometer = GREATEST(odometer, $1), updated_at = $2
WHERE id = $3`, visit.Counter, now, visit.VehicleID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetByID fetches a visit by id. Returns nil when not found.
func (r *VisitRepository) GetByID(ctx context.Context, id string) (*maintenance.Visit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("visit repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, vehicle_id, counter, started_at, planned_end, details, status,
	completed_at, created_at, updated_at
FROM service_visits
WHERE id = $1`, id)
	return scanVisit(row)
}

// UpdateStatus persists the status and completion timestamp of a visit.
func (r *VisitRepository) UpdateStatus(ctx context.Context, visit *maintenance.Visit) error {
	if r == nil || r.db == nil {
		return errors.New("visit repo: nil db")
	}
	if visit == nil {
		return errors.New("visit repo: nil visit")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE service_visits
SET status = $1, completed_at = $2, updated_at = $3
WHERE id = $4`, visit.Status, nullableTime(visit.CompletedAt), visit.UpdatedAt, visit.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return maintenance.ErrNotFound
	}
	return nil
}

// LastCompleted returns the most recently completed visit of a vehicle,
// by completion time then start time. Returns nil when none exists.
func (r *VisitRepository) LastCompleted(ctx context.Context, vehicleID string) (*maintenance.Visit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("visit repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, vehicle_id, counter, started_at, planned_end, details, status,
	completed_at, created_at, updated_at
FROM service_visits
WHERE vehicle_id = $1 AND status = $2
ORDER BY completed_at DESC, started_at DESC
LIMIT 1`, vehicleID, maintenance.StatusCompleted)
	return scanVisit(row)
}

// CountCompleted counts the completed visits of a vehicle.
func (r *VisitRepository) CountCompleted(ctx context.Context, vehicleID string) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("visit repo: nil db")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM service_visits
WHERE vehicle_id = $1 AND status = $2`, vehicleID, maintenance.StatusCompleted).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListByVehicle lists the visits of a vehicle, newest first.
func (r *VisitRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]maintenance.Visit, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("visit repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, vehicle_id, counter, started_at, planned_end, details, status,
	completed_at, created_at, updated_at
FROM service_visits
WHERE vehicle_id = $1
ORDER BY started_at DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []maintenance.Visit
	for rows.Next() {
		visit, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *visit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CounterEvents lists every visit as a counter event, so the ledger
// sees both streams as one sequence. A visit's observation time is its
// start, falling back to creation time.
func (r *VisitRepository) CounterEvents(ctx context.Context, vehicleID string) ([]counter.Event, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("visit repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT vehicle_id, counter, COALESCE(started_at, created_at), details
FROM service_visits
WHERE vehicle_id = $1
ORDER BY started_at`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []counter.Event
	for rows.Next() {
		var event counter.Event
		var details sql.NullString
		if err := rows.Scan(&event.VehicleID, &event.Value, &event.OccurredAt, &details); err != nil {
			return nil, err
		}
		event.OccurredAt = event.OccurredAt.UTC()
		event.Source = counter.SourceService
		if details.Valid {
			event.Label = truncateLabel(details.String)
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type visitScanner interface {
	Scan(dest ...any) error
}

func scanVisit(row visitScanner) (*maintenance.Visit, error) {
	var visit maintenance.Visit
	var plannedEnd sql.NullTime
	var completedAt sql.NullTime
	var details sql.NullString
	if err := row.Scan(
		&visit.ID,
		&visit.VehicleID,
		&visit.Counter,
		&visit.StartedAt,
		&plannedEnd,
		&details,
		&visit.Status,
		&completedAt,
		&visit.CreatedAt,
		&visit.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	visit.StartedAt = visit.StartedAt.UTC()
	visit.CreatedAt = visit.CreatedAt.UTC()
	visit.UpdatedAt = visit.UpdatedAt.UTC()
	if plannedEnd.Valid {
		visit.PlannedEnd = plannedEnd.Time.UTC()
	}
	if completedAt.Valid {
		visit.CompletedAt = completedAt.Time.UTC()
	}
	if details.Valid {
		visit.Details = details.String
	}
	return &visit, nil
}

func nullableTime(value time.Time) sql.NullTime {
	if value.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: value, Valid: true}
}

func truncateLabel(details string) string {
	if len(details) <= visitLabelLimit {
		return details
	}
	return details[:visitLabelLimit] + "..."
}

func newVisitID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "visit-" + hex.EncodeToString(buf[:])
	}
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return "visit-" + hex.EncodeToString(buf[:])
}
