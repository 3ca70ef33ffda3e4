package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	fleet "fleet-maintenance/internal/fleet/domain"
	maintenance "fleet-maintenance/internal/maintenance/domain"
)

// CompletedVisitStore reads completed service visits.
type CompletedVisitStore interface {
	LastCompleted(ctx context.Context, vehicleID string) (*maintenance.Visit, error)
	CountCompleted(ctx context.Context, vehicleID string) (int, error)
}

// VehicleLister reads and lists vehicles.
type VehicleLister interface {
	VehicleStore
	List(ctx context.Context) ([]fleet.Vehicle, error)
}

// Reminder summarizes the maintenance position of one vehicle.
type Reminder struct {
	VehicleID        string                     `json:"vehicle_id"`
	VehicleDetails   string                     `json:"vehicle_details"`
	CurrentCounter   int64                      `json:"current_counter"`
	ServiceInterval  int64                      `json:"service_interval,omitempty"`
	LastVisitAt      *time.Time                 `json:"last_visit_at,omitempty"`
	LastVisitCounter *int64                     `json:"last_visit_counter,omitempty"`
	DistanceToNext   *int64                     `json:"distance_to_next_service,omitempty"`
	Status           maintenance.ReminderStatus `json:"status"`
	Message          string                     `json:"message"`
	HasSettings      bool                       `json:"has_settings"`
}

// ReminderService computes display reminders for vehicles.
type ReminderService struct {
	vehicles VehicleLister
	settings SettingsStore
	visits   CompletedVisitStore
}

// NewReminderService constructs a reminder service.
func NewReminderService(vehicles VehicleLister, settings SettingsStore, visits CompletedVisitStore) (*ReminderService, error) {
	if vehicles == nil || settings == nil || visits == nil {
		return nil, errors.New("reminder service: nil dependency")
	}
	return &ReminderService{vehicles: vehicles, settings: settings, visits: visits}, nil
}

// ForVehicle builds the reminder for one vehicle.
func (s *ReminderService) ForVehicle(ctx context.Context, vehicleID string) (*Reminder, error) {
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, fleet.ErrNotFound
	}
	reminder, err := s.build(ctx, *vehicle)
	if err != nil {
		return nil, err
	}
	return &reminder, nil
}

// All builds reminders for every vehicle.
func (s *ReminderService) All(ctx context.Context) ([]Reminder, error) {
	vehicles, err := s.vehicles.List(ctx)
	if err != nil {
		return nil, err
	}
	reminders := make([]Reminder, 0, len(vehicles))
	for _, vehicle := range vehicles {
		reminder, err := s.build(ctx, vehicle)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, nil
}

// RequiringAttention returns warning and overdue reminders.
func (s *ReminderService) RequiringAttention(ctx context.Context) ([]Reminder, error) {
	return s.filtered(ctx, maintenance.ReminderWarning, maintenance.ReminderOverdue)
}

// Overdue returns overdue reminders only.
func (s *ReminderService) Overdue(ctx context.Context) ([]Reminder, error) {
	return s.filtered(ctx, maintenance.ReminderOverdue)
}

func (s *ReminderService) filtered(ctx context.Context, statuses ...maintenance.ReminderStatus) ([]Reminder, error) {
	all, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	var result []Reminder
	for _, reminder := range all {
		for _, status := range statuses {
			if reminder.Status == status {
				result = append(result, reminder)
				break
			}
		}
	}
	return result, nil
}

func (s *ReminderService) build(ctx context.Context, vehicle fleet.Vehicle) (Reminder, error) {
	reminder := Reminder{
		VehicleID:      vehicle.ID,
		VehicleDetails: vehicle.Details(),
		CurrentCounter: vehicle.Odometer,
	}

	settings, err := s.settings.GetByVehicle(ctx, vehicle.ID)
	if err != nil {
		return Reminder{}, err
	}
	if settings == nil {
		reminder.Status = maintenance.ReminderWarning
		reminder.Message = "service interval not configured"
		return reminder, nil
	}
	reminder.HasSettings = true
	reminder.ServiceInterval = settings.ServiceInterval

	last, err := s.visits.LastCompleted(ctx, vehicle.ID)
	if err != nil {
		return Reminder{}, err
	}
	count, err := s.visits.CountCompleted(ctx, vehicle.ID)
	if err != nil {
		return Reminder{}, err
	}
	if last != nil {
		lastAt := last.CompletedAt
		reminder.LastVisitAt = &lastAt
		lastCounter := last.Counter
		reminder.LastVisitCounter = &lastCounter
	}

	schedule := maintenance.ComputeSchedule(vehicle.Odometer, *settings, last, count)
	distance := schedule.DistanceToNext
	reminder.DistanceToNext = &distance
	reminder.Status = schedule.Status(settings.NotificationThreshold)

	switch {
	case distance < 0:
		reminder.Message = fmt.Sprintf("maintenance overdue by %d km", -distance)
	case schedule.FirstService:
		reminder.Message = fmt.Sprintf("%d km remaining until the first service", distance)
	default:
		reminder.Message = fmt.Sprintf("%d km remaining until the next service", distance)
	}
	return reminder, nil
}
