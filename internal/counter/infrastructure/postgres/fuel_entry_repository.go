package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	counter "fleet-maintenance/internal/counter/domain"
)

// FuelEntryRepository is a Postgres repository for fuel-purchase counter
// events.
type FuelEntryRepository struct {
	db *sql.DB
}

// NewFuelEntryRepository constructs a repository.
func NewFuelEntryRepository(db *sql.DB) *FuelEntryRepository {
	return &FuelEntryRepository{db: db}
}

// Record inserts a fuel counter event and advances the vehicle odometer
// to the recorded value when it exceeds the stored reading, in one
// transaction.
func (r *FuelEntryRepository) Record(ctx context.Context, event counter.Event) error {
	if r == nil || r.db == nil {
		return errors.New("fuel repo: nil db")
	}
	if event.VehicleID == "" {
		return errors.New("fuel repo: empty vehicle id")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
INSERT INTO fuel_entries (id, vehicle_id, counter, occurred_at, label, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		newEntryID(), event.VehicleID, event.Value, event.OccurredAt, event.Label, now,
	); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE vehicles
SET odometer = GREATEST(odometer, $1), updated_at = $2
WHERE id = $3`, event.Value, now, event.VehicleID); err != nil {
		return err
	}

	return tx.Commit()
}

// CounterEvents lists the fuel counter events of a vehicle.
func (r *FuelEntryRepository) CounterEvents(ctx context.Context, vehicleID string) ([]counter.Event, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("fuel repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT vehicle_id, counter, occurred_at, label
FROM fuel_entries
WHERE vehicle_id = $1
ORDER BY occurred_at`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []counter.Event
	for rows.Next() {
		var event counter.Event
		var label sql.NullString
		if err := rows.Scan(&event.VehicleID, &event.Value, &event.OccurredAt, &label); err != nil {
			return nil, err
		}
		event.OccurredAt = event.OccurredAt.UTC()
		event.Source = counter.SourceFuel
		if label.Valid {
			event.Label = label.String
		}
		result = append(result, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func newEntryID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "fuel-" + hex.EncodeToString(buf[:])
	}
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return "fuel-" + hex.EncodeToString(buf[:])
}
