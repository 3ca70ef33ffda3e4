package application

import (
	"context"
	"testing"
	"time"

	fleet "fleet-maintenance/internal/fleet/domain"
	maintenance "fleet-maintenance/internal/maintenance/domain"
)

type stubFleet struct {
	vehicles []fleet.Vehicle
}

func (s stubFleet) GetByID(_ context.Context, id string) (*fleet.Vehicle, error) {
	for _, vehicle := range s.vehicles {
		if vehicle.ID == id {
			copied := vehicle
			return &copied, nil
		}
	}
	return nil, nil
}

func (s stubFleet) List(_ context.Context) ([]fleet.Vehicle, error) {
	return s.vehicles, nil
}

type stubCompletedVisits struct {
	last  map[string]*maintenance.Visit
	count map[string]int
}

func (s stubCompletedVisits) LastCompleted(_ context.Context, vehicleID string) (*maintenance.Visit, error) {
	return s.last[vehicleID], nil
}

func (s stubCompletedVisits) CountCompleted(_ context.Context, vehicleID string) (int, error) {
	return s.count[vehicleID], nil
}

func reminderFixture(t *testing.T) *ReminderService {
	t.Helper()
	vehicles := stubFleet{vehicles: []fleet.Vehicle{
		{ID: "veh-ok", Make: "Volvo", Model: "FH", Odometer: 46000},
		{ID: "veh-warn", Make: "Scania", Model: "R450", Odometer: 54800},
		{ID: "veh-over", Make: "MAN", Model: "TGX", Odometer: 56500},
		{ID: "veh-bare", Make: "DAF", Model: "XF", Odometer: 12000},
	}}
	settings := newMemorySettingsStore()
	for _, vehicleID := range []string{"veh-ok", "veh-warn", "veh-over"} {
		if err := settings.Upsert(context.Background(), &maintenance.ReminderSettings{
			VehicleID:             vehicleID,
			ServiceInterval:       10000,
			NotificationThreshold: 500,
			Enabled:               true,
		}); err != nil {
			t.Fatalf("seed settings: %v", err)
		}
	}
	completedAt := time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)
	visits := stubCompletedVisits{
		last: map[string]*maintenance.Visit{
			"veh-ok":   {Counter: 45000, Status: maintenance.StatusCompleted, CompletedAt: completedAt},
			"veh-warn": {Counter: 45000, Status: maintenance.StatusCompleted, CompletedAt: completedAt},
			"veh-over": {Counter: 45000, Status: maintenance.StatusCompleted, CompletedAt: completedAt},
		},
		count: map[string]int{"veh-ok": 2, "veh-warn": 2, "veh-over": 2},
	}
	service, err := NewReminderService(vehicles, settings, visits)
	if err != nil {
		t.Fatalf("new reminder service: %v", err)
	}
	return service
}

func TestAllClassifiesReminders(t *testing.T) {
	service := reminderFixture(t)

	reminders, err := service.All(context.Background())
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(reminders) != 4 {
		t.Fatalf("expected 4 reminders, got %d", len(reminders))
	}
	byVehicle := map[string]Reminder{}
	for _, reminder := range reminders {
		byVehicle[reminder.VehicleID] = reminder
	}

	if got := byVehicle["veh-ok"]; got.Status != maintenance.ReminderOK {
		t.Fatalf("veh-ok: expected ok, got %s", got.Status)
	}
	if got := byVehicle["veh-warn"]; got.Status != maintenance.ReminderWarning || *got.DistanceToNext != 200 {
		t.Fatalf("veh-warn: expected warning at 200 km, got %+v", got)
	}
	if got := byVehicle["veh-over"]; got.Status != maintenance.ReminderOverdue {
		t.Fatalf("veh-over: expected overdue, got %s", got.Status)
	}
	if got := byVehicle["veh-over"]; got.Message != "maintenance overdue by 1500 km" {
		t.Fatalf("veh-over: unexpected message %q", got.Message)
	}
}

func TestUnconfiguredVehicleIsFlagged(t *testing.T) {
	service := reminderFixture(t)

	reminder, err := service.ForVehicle(context.Background(), "veh-bare")
	if err != nil {
		t.Fatalf("for vehicle: %v", err)
	}
	if reminder.HasSettings {
		t.Fatalf("expected has_settings false")
	}
	if reminder.Status != maintenance.ReminderWarning {
		t.Fatalf("unconfigured vehicle should surface as warning, got %s", reminder.Status)
	}
	if reminder.Message != "service interval not configured" {
		t.Fatalf("unexpected message %q", reminder.Message)
	}
}

func TestRequiringAttentionFiltersOKVehicles(t *testing.T) {
	service := reminderFixture(t)

	reminders, err := service.RequiringAttention(context.Background())
	if err != nil {
		t.Fatalf("requiring attention: %v", err)
	}
	// warning, overdue and the unconfigured vehicle.
	if len(reminders) != 3 {
		t.Fatalf("expected 3 reminders, got %d", len(reminders))
	}
	for _, reminder := range reminders {
		if reminder.Status == maintenance.ReminderOK {
			t.Fatalf("ok vehicle must be filtered out")
		}
	}
}

func TestOverdueFilter(t *testing.T) {
	service := reminderFixture(t)

	reminders, err := service.Overdue(context.Background())
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if len(reminders) != 1 || reminders[0].VehicleID != "veh-over" {
		t.Fatalf("expected only veh-over, got %+v", reminders)
	}
}

func TestForVehicleUnknown(t *testing.T) {
	service := reminderFixture(t)

	if _, err := service.ForVehicle(context.Background(), "veh-x"); err != fleet.ErrNotFound {
		t.Fatalf("expected fleet.ErrNotFound, got %v", err)
	}
}
