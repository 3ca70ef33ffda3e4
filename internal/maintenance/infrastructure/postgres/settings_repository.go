package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	maintenance "fleet-maintenance/internal/maintenance/domain"
)

// SettingsRepository is a Postgres repository for reminder settings.
// There is at most one row per vehicle.
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository constructs a repository.
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Upsert creates or replaces the settings row of a vehicle.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *maintenance.ReminderSettings) error {
	if r == nil || r.db == nil {
		return errors.New("settings repo: nil db")
	}
	if settings == nil {
		return errors.New("settings repo: nil settings")
	}
	if settings.VehicleID == "" {
		return errors.New("settings repo: empty vehicle id")
	}
	if settings.ID == "" {
		settings.ID = newSettingsID()
	}
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO reminder_settings (
	id, vehicle_id, service_interval, notification_threshold, enabled,
	created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (vehicle_id) DO UPDATE SET
	service_interval = EXCLUDED.service_interval,
	notification_threshold = EXCLUDED.notification_threshold,
	enabled = EXCLUDED.enabled,
	updated_at = EXCLUDED.updated_at`,
		settings.ID,
		settings.VehicleID,
		settings.ServiceInterval,
		settings.NotificationThreshold,
		settings.Enabled,
		settings.CreatedAt,
		settings.UpdatedAt,
	)
	return err
}

// GetByVehicle fetches the settings of a vehicle. Returns nil when the
// vehicle has none.
func (r *SettingsRepository) GetByVehicle(ctx context.Context, vehicleID string) (*maintenance.ReminderSettings, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settings repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, vehicle_id, service_interval, notification_threshold, enabled,
	created_at, updated_at
FROM reminder_settings
WHERE vehicle_id = $1`, vehicleID)
	return scanSettings(row)
}

// Delete removes the settings of a vehicle.
func (r *SettingsRepository) Delete(ctx context.Context, vehicleID string) error {
	if r == nil || r.db == nil {
		return errors.New("settings repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
DELETE FROM reminder_settings WHERE vehicle_id = $1`, vehicleID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return maintenance.ErrSettingsNotFound
	}
	return nil
}

// List returns all settings rows.
func (r *SettingsRepository) List(ctx context.Context) ([]maintenance.ReminderSettings, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("settings repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, vehicle_id, service_interval, notification_threshold, enabled,
	created_at, updated_at
FROM reminder_settings
ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []maintenance.ReminderSettings
	for rows.Next() {
		settings, err := scanSettings(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *settings)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Exists reports whether a vehicle has a settings row.
func (r *SettingsRepository) Exists(ctx context.Context, vehicleID string) (bool, error) {
	if r == nil || r.db == nil {
		return false, errors.New("settings repo: nil db")
	}
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM reminder_settings WHERE vehicle_id = $1)`, vehicleID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

type settingsScanner interface {
	Scan(dest ...any) error
}

func scanSettings(row settingsScanner) (*maintenance.ReminderSettings, error) {
	var settings maintenance.ReminderSettings
	if err := row.Scan(
		&settings.ID,
		&settings.VehicleID,
		&settings.ServiceInterval,
		&settings.NotificationThreshold,
		&settings.Enabled,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	settings.CreatedAt = settings.CreatedAt.UTC()
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return &settings, nil
}

func newSettingsID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "rset-" + hex.EncodeToString(buf[:])
	}
	buf[6] = (buf[6] & 0x0f) | 0x40
	buf[8] = (buf[8] & 0x3f) | 0x80
	return "rset-" + hex.EncodeToString(buf[:])
}
