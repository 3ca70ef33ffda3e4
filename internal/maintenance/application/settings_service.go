package application

import (
	"context"
	"errors"
	"log"

	fleet "fleet-maintenance/internal/fleet/domain"
	maintenance "fleet-maintenance/internal/maintenance/domain"
)

// SettingsStore persists reminder settings, one row per vehicle.
type SettingsStore interface {
	Upsert(ctx context.Context, settings *maintenance.ReminderSettings) error
	GetByVehicle(ctx context.Context, vehicleID string) (*maintenance.ReminderSettings, error)
	Delete(ctx context.Context, vehicleID string) error
	List(ctx context.Context) ([]maintenance.ReminderSettings, error)
	Exists(ctx context.Context, vehicleID string) (bool, error)
}

// VehicleStore reads vehicles.
type VehicleStore interface {
	GetByID(ctx context.Context, id string) (*fleet.Vehicle, error)
}

// Evaluator re-evaluates the maintenance notification for a vehicle.
type Evaluator interface {
	Evaluate(ctx context.Context, vehicleID string) (bool, error)
}

// SettingsService manages reminder settings. Saving settings triggers a
// re-evaluation; deleting them deactivates the vehicle's notification
// first.
type SettingsService struct {
	settings      SettingsStore
	vehicles      VehicleStore
	evaluator     Evaluator
	notifications NotificationDeactivator
	logger        *log.Logger
}

// NewSettingsService constructs a settings service.
func NewSettingsService(settings SettingsStore, vehicles VehicleStore, evaluator Evaluator, notifications NotificationDeactivator, logger *log.Logger) (*SettingsService, error) {
	if settings == nil {
		return nil, errors.New("settings service: nil settings store")
	}
	if vehicles == nil {
		return nil, errors.New("settings service: nil vehicle store")
	}
	return &SettingsService{
		settings:      settings,
		vehicles:      vehicles,
		evaluator:     evaluator,
		notifications: notifications,
		logger:        logger,
	}, nil
}

// Save creates or updates the reminder settings of a vehicle and
// re-evaluates its notification.
func (s *SettingsService) Save(ctx context.Context, params maintenance.SettingsParams) (*maintenance.ReminderSettings, error) {
	vehicle, err := s.vehicles.GetByID(ctx, params.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fleet.ErrNotFound
	}

	settings, err := maintenance.NewReminderSettings(params)
	if err != nil {
		return nil, err
	}
	if err := s.settings.Upsert(ctx, &settings); err != nil {
		return nil, err
	}

	if s.evaluator != nil {
		if _, err := s.evaluator.Evaluate(ctx, params.VehicleID); err != nil && s.logger != nil {
			s.logger.Printf("settings service: re-evaluation after save failed: vehicle=%s err=%v", params.VehicleID, err)
		}
	}
	return &settings, nil
}

// Get fetches the settings of a vehicle.
func (s *SettingsService) Get(ctx context.Context, vehicleID string) (*maintenance.ReminderSettings, error) {
	settings, err := s.settings.GetByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, maintenance.ErrSettingsNotFound
	}
	return settings, nil
}

// List returns all reminder settings.
func (s *SettingsService) List(ctx context.Context) ([]maintenance.ReminderSettings, error) {
	return s.settings.List(ctx)
}

// Exists reports whether a vehicle has reminder settings.
func (s *SettingsService) Exists(ctx context.Context, vehicleID string) (bool, error) {
	return s.settings.Exists(ctx, vehicleID)
}

// Delete removes the settings of a vehicle, deactivating its active
// notification first.
func (s *SettingsService) Delete(ctx context.Context, vehicleID string) error {
	settings, err := s.settings.GetByVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}
	if settings == nil {
		return maintenance.ErrSettingsNotFound
	}
	if s.notifications != nil {
		if err := s.notifications.Deactivate(ctx, vehicleID); err != nil && s.logger != nil {
			s.logger.Printf("settings service: deactivating notification failed: vehicle=%s err=%v", vehicleID, err)
		}
	}
	return s.settings.Delete(ctx, vehicleID)
}
