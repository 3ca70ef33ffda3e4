package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	fleet "fleet-maintenance/internal/fleet/domain"
	maintenance "fleet-maintenance/internal/maintenance/domain"
	notifications "fleet-maintenance/internal/notifications/domain"
	"fleet-maintenance/internal/observability/metrics"
)

// Notifier publishes notification lifecycle events.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Event represents a lifecycle update.
type Event struct {
	Type         string                     `json:"type"`
	Notification notifications.Notification `json:"notification"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// VehicleStore reads vehicles.
type VehicleStore interface {
	GetByID(ctx context.Context, id string) (*fleet.Vehicle, error)
}

// SettingsStore reads reminder settings.
type SettingsStore interface {
	GetByVehicle(ctx context.Context, vehicleID string) (*maintenance.ReminderSettings, error)
}

// VisitStore reads completed service visits.
type VisitStore interface {
	LastCompleted(ctx context.Context, vehicleID string) (*maintenance.Visit, error)
	CountCompleted(ctx context.Context, vehicleID string) (int, error)
}

// NotificationStore persists notifications.
type NotificationStore interface {
	FindActiveByVehicle(ctx context.Context, vehicleID string) (*notifications.Notification, error)
	GetByID(ctx context.Context, id string) (*notifications.Notification, error)
	Create(ctx context.Context, notification *notifications.Notification) error
	Update(ctx context.Context, notification *notifications.Notification) error
	ListActive(ctx context.Context) ([]notifications.Notification, error)
	ListByVehicle(ctx context.Context, vehicleID string) ([]notifications.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, at time.Time) error
	CountUnread(ctx context.Context) (int, error)
}

// Engine owns the singleton active notification per vehicle and drives
// it through absent, warning and overdue states.
type Engine struct {
	vehicles VehicleStore
	settings SettingsStore
	visits   VisitStore
	store    NotificationStore
	notifier Notifier
	clock    Clock
	logger   *log.Logger
	locks    keyedMutex
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithNotifier assigns a lifecycle notifier.
func WithNotifier(notifier Notifier) EngineOption {
	return func(e *Engine) {
		e.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine constructs a notification engine.
func NewEngine(vehicles VehicleStore, settings SettingsStore, visits VisitStore, store NotificationStore, opts ...EngineOption) (*Engine, error) {
	if vehicles == nil || settings == nil || visits == nil || store == nil {
		return nil, errors.New("notification engine: nil dependency")
	}
	engine := &Engine{
		vehicles: vehicles,
		settings: settings,
		visits:   visits,
		store:    store,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Evaluate recomputes the maintenance position of a vehicle and
// transitions its notification. Returns true when a notification was
// newly created. Calls for the same vehicle are serialized; different
// vehicles evaluate in parallel. Missing or disabled settings are a
// no-op, and a distance above the threshold never retracts an active
// notification.
func (e *Engine) Evaluate(ctx context.Context, vehicleID string) (created bool, err error) {
	if vehicleID == "" {
		return false, errors.New("notification engine: empty vehicle id")
	}
	start := e.clock.Now()
	defer func() {
		metrics.ObserveEvaluation(err, e.clock.Now().Sub(start).Seconds())
	}()

	unlock := e.locks.Lock(vehicleID)
	defer unlock()

	vehicle, err := e.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	if vehicle == nil {
		return false, fleet.ErrNotFound
	}

	settings, err := e.settings.GetByVehicle(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	if settings == nil || !settings.Enabled {
		return false, nil
	}

	last, err := e.visits.LastCompleted(ctx, vehicleID)
	if err != nil {
		return false, err
	}
	count, err := e.visits.CountCompleted(ctx, vehicleID)
	if err != nil {
		return false, err
	}

	schedule := maintenance.ComputeSchedule(vehicle.Odometer, *settings, last, count)
	if schedule.DistanceToNext > settings.NotificationThreshold {
		return false, nil
	}

	target := notifications.TypeWarning
	if schedule.DistanceToNext < 0 {
		target = notifications.TypeOverdue
	}
	message := formatMessage(vehicle.Details(), schedule)

	active, err := e.store.FindActiveByVehicle(ctx, vehicleID)
	if err != nil {
		return false, err
	}

	now := e.clock.Now()
	if active == nil {
		notification := &notifications.Notification{
			ID:             newNotificationID(vehicleID, now),
			VehicleID:      vehicleID,
			Message:        message,
			Type:           target,
			DistanceToNext: schedule.DistanceToNext,
			ServiceCount:   count,
			CreatedAt:      now,
			Active:         true,
			UpdatedAt:      now,
		}
		if err := e.store.Create(ctx, notification); err != nil {
			return false, err
		}
		e.notify(ctx, "created", *notification)
		return true, nil
	}

	if active.Type == target && active.DistanceToNext == schedule.DistanceToNext &&
		active.ServiceCount == count && active.Message == message {
		return false, nil
	}

	active.Type = target
	active.DistanceToNext = schedule.DistanceToNext
	active.ServiceCount = count
	active.Message = message
	active.UpdatedAt = now
	if err := e.store.Update(ctx, active); err != nil {
		return false, err
	}
	e.notify(ctx, "updated", *active)
	return false, nil
}

// Deactivate clears the active notification for a vehicle, if any.
// Called when a service visit completes or settings are deleted.
func (e *Engine) Deactivate(ctx context.Context, vehicleID string) error {
	if vehicleID == "" {
		return errors.New("notification engine: empty vehicle id")
	}
	unlock := e.locks.Lock(vehicleID)
	defer unlock()

	active, err := e.store.FindActiveByVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if active == nil {
		return nil
	}
	active.Active = false
	active.UpdatedAt = e.clock.Now()
	if err := e.store.Update(ctx, active); err != nil {
		return err
	}
	e.notify(ctx, "deactivated", *active)
	return nil
}

// DeactivateByID deactivates a single notification by id.
func (e *Engine) DeactivateByID(ctx context.Context, id string) error {
	notification, err := e.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil {
		return notifications.ErrNotFound
	}
	if !notification.Active {
		return nil
	}
	unlock := e.locks.Lock(notification.VehicleID)
	defer unlock()

	notification.Active = false
	notification.UpdatedAt = e.clock.Now()
	if err := e.store.Update(ctx, notification); err != nil {
		return err
	}
	e.notify(ctx, "deactivated", *notification)
	return nil
}

// MarkRead flags a notification as read.
func (e *Engine) MarkRead(ctx context.Context, id string) error {
	notification, err := e.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if notification == nil {
		return notifications.ErrNotFound
	}
	return e.store.MarkRead(ctx, id, e.clock.Now())
}

// MarkAllRead flags every active notification as read.
func (e *Engine) MarkAllRead(ctx context.Context) error {
	return e.store.MarkAllRead(ctx, e.clock.Now())
}

// Active returns all active notifications.
func (e *Engine) Active(ctx context.Context) ([]notifications.Notification, error) {
	return e.store.ListActive(ctx)
}

// ForVehicle returns the notification history of a vehicle.
func (e *Engine) ForVehicle(ctx context.Context, vehicleID string) ([]notifications.Notification, error) {
	if vehicleID == "" {
		return nil, errors.New("notification engine: empty vehicle id")
	}
	return e.store.ListByVehicle(ctx, vehicleID)
}

// UnreadCount returns the number of unread active notifications.
func (e *Engine) UnreadCount(ctx context.Context) (int, error) {
	return e.store.CountUnread(ctx)
}

// Stats aggregates active notifications by read state and type.
func (e *Engine) Stats(ctx context.Context) (notifications.Stats, error) {
	active, err := e.store.ListActive(ctx)
	if err != nil {
		return notifications.Stats{}, err
	}
	stats := notifications.Stats{Total: len(active)}
	for _, notification := range active {
		if !notification.Read {
			stats.Unread++
		}
		switch notification.Type {
		case notifications.TypeWarning:
			stats.Warning++
		case notifications.TypeOverdue:
			stats.Overdue++
		case notifications.TypeInfo:
			stats.Info++
		}
	}
	return stats, nil
}

func (e *Engine) notify(ctx context.Context, eventType string, notification notifications.Notification) {
	metrics.IncNotificationEvent(eventType)
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, Event{Type: eventType, Notification: notification})
}

func formatMessage(details string, schedule maintenance.Schedule) string {
	distance := schedule.DistanceToNext
	switch {
	case distance < 0:
		return fmt.Sprintf("maintenance for %s is overdue by %d km", details, -distance)
	case distance == 0:
		return fmt.Sprintf("maintenance for %s is due now", details)
	case schedule.FirstService:
		return fmt.Sprintf("%d km remaining until the first service for %s", distance, details)
	default:
		return fmt.Sprintf("%d km remaining until the next service for %s", distance, details)
	}
}

func newNotificationID(vehicleID string, at time.Time) string {
	sum := sha1.Sum([]byte(vehicleID + "|" + at.Format(time.RFC3339Nano)))
	return "ntf-" + hex.EncodeToString(sum[:8])
}
