package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	notifications "fleet-maintenance/internal/notifications/domain"
)

// NotificationRepository is a Postgres repository for maintenance
// notifications. A partial unique index on (vehicle_id) WHERE active
// backs the one-active-notification-per-vehicle rule; Create relies on
// it so concurrent evaluations collapse into one row.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository constructs a repository.
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification. When an active row for the vehicle
// already exists the insert folds into an update of that row.
func (r *NotificationRepository) Create(ctx context.Context, notification *notifications.Notification) error {
	if r == nil || r.db == nil {
		return errors.New("notification repo: nil db")
	}
	if notification == nil {
		return errors.New("notification repo: nil notification")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO notifications (
	id, vehicle_id, message, type, distance_to_next, service_count,
	read, active, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (vehicle_id) WHERE active DO UPDATE SET
	message = EXCLUDED.message,
	type = EXCLUDED.type,
	distance_to_next = EXCLUDED.distance_to_next,
	service_count = EXCLUDED.service_count,
	updated_at = EXCLUDED.updated_at`,
		notification.ID,
		notification.VehicleID,
		notification.Message,
		notification.Type,
		notification.DistanceToNext,
		notification.ServiceCount,
		notification.Read,
		notification.Active,
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	return err
}

// Update rewrites the mutable fields of a notification.
func (r *NotificationRepository) Update(ctx context.Context, notification *notifications.Notification) error {
	if r == nil || r.db == nil {
		return errors.New("notification repo: nil db")
	}
	if notification == nil {
		return errors.New("notification repo: nil notification")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET message = $1, type = $2, distance_to_next = $3, service_count = $4,
	read = $5, active = $6, updated_at = $7
WHERE id = $8`,
		notification.Message,
		notification.Type,
		notification.DistanceToNext,
		notification.ServiceCount,
		notification.Read,
		notification.Active,
		notification.UpdatedAt,
		notification.ID,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

// FindActiveByVehicle fetches the active notification of a vehicle.
// Returns nil when the vehicle has none.
func (r *NotificationRepository) FindActiveByVehicle(ctx context.Context, vehicleID string) (*notifications.Notification, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("notification repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, vehicle_id, message, type, distance_to_next, service_count,
	read, active, created_at, updated_at
FROM notifications
WHERE vehicle_id = $1 AND active`, vehicleID)
	return scanNotification(row)
}

// GetByID fetches a notification by id. Returns nil when not found.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*notifications.Notification, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("notification repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, vehicle_id, message, type, distance_to_next, service_count,
	read, active, created_at, updated_at
FROM notifications
WHERE id = $1`, id)
	return scanNotification(row)
}

// ListActive returns all active notifications, newest first.
func (r *NotificationRepository) ListActive(ctx context.Context) ([]notifications.Notification, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("notification repo: nil db")
	}
	return r.list(ctx, `
SELECT id, vehicle_id, message, type, distance_to_next, service_count,
	read, active, created_at, updated_at
FROM notifications
WHERE active
ORDER BY created_at DESC`)
}

// ListByVehicle returns the notification history of a vehicle, newest
// first.
func (r *NotificationRepository) ListByVehicle(ctx context.Context, vehicleID string) ([]notifications.Notification, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("notification repo: nil db")
	}
	return r.list(ctx, `
SELECT id, vehicle_id, message, type, distance_to_next, service_count,
	read, active, created_at, updated_at
FROM notifications
WHERE vehicle_id = $1
ORDER BY created_at DESC`, vehicleID)
}

// MarkRead flags one notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("notification repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET read = TRUE, updated_at = $1
WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notifications.ErrNotFound
	}
	return nil
}

// MarkAllRead flags every unread active notification as read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("notification repo: nil db")
	}
	_, err := r.db.ExecContext(ctx, `
UPDATE notifications
SET read = TRUE, updated_at = $1
WHERE active AND NOT read`, at)
	return err
}

// CountUnread counts the unread active notifications.
func (r *NotificationRepository) CountUnread(ctx context.Context) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("notification repo: nil db")
	}
	var count int
	err := r.db.QueryRowContext(ctx, `
SELECT COUNT(*) FROM notifications WHERE active AND NOT read`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *NotificationRepository) list(ctx context.Context, query string, args ...any) ([]notifications.Notification, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []notifications.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *notification)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type notificationScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row notificationScanner) (*notifications.Notification, error) {
	var notification notifications.Notification
	if err := row.Scan(
		&notification.ID,
		&notification.VehicleID,
		&notification.Message,
		&notification.Type,
		&notification.DistanceToNext,
		&notification.ServiceCount,
		&notification.Read,
		&notification.Active,
		&notification.CreatedAt,
		&notification.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	notification.CreatedAt = notification.CreatedAt.UTC()
	notification.UpdatedAt = notification.UpdatedAt.UTC()
	return &notification, nil
}
