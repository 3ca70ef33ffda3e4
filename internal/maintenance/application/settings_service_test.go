package application

import (
	"context"
	"errors"
	"testing"

	fleet "fleet-maintenance/internal/fleet/domain"
	maintenance "fleet-maintenance/internal/maintenance/domain"
)

type memorySettingsStore struct {
	rows map[string]*maintenance.ReminderSettings
}

func newMemorySettingsStore() *memorySettingsStore {
	return &memorySettingsStore{rows: map[string]*maintenance.ReminderSettings{}}
}

func (s *memorySettingsStore) Upsert(_ context.Context, settings *maintenance.ReminderSettings) error {
	copied := *settings
	s.rows[settings.VehicleID] = &copied
	return nil
}

func (s *memorySettingsStore) GetByVehicle(_ context.Context, vehicleID string) (*maintenance.ReminderSettings, error) {
	settings, ok := s.rows[vehicleID]
	if !ok {
		return nil, nil
	}
	copied := *settings
	return &copied, nil
}

func (s *memorySettingsStore) Delete(_ context.Context, vehicleID string) error {
	if _, ok := s.rows[vehicleID]; !ok {
		return maintenance.ErrSettingsNotFound
	}
	delete(s.rows, vehicleID)
	return nil
}

func (s *memorySettingsStore) List(_ context.Context) ([]maintenance.ReminderSettings, error) {
	var result []maintenance.ReminderSettings
	for _, settings := range s.rows {
		result = append(result, *settings)
	}
	return result, nil
}

func (s *memorySettingsStore) Exists(_ context.Context, vehicleID string) (bool, error) {
	_, ok := s.rows[vehicleID]
	return ok, nil
}

type stubVehicles struct {
	vehicle *fleet.Vehicle
}

func (s stubVehicles) GetByID(_ context.Context, _ string) (*fleet.Vehicle, error) {
	return s.vehicle, nil
}

type stubEvaluator struct {
	vehicleIDs []string
}

func (e *stubEvaluator) Evaluate(_ context.Context, vehicleID string) (bool, error) {
	e.vehicleIDs = append(e.vehicleIDs, vehicleID)
	return false, nil
}

func knownVehicle() *fleet.Vehicle {
	return &fleet.Vehicle{ID: "veh-1", Make: "MAN", Model: "TGX", Odometer: 40000}
}

func TestSaveSettingsAppliesDefaultsAndEvaluates(t *testing.T) {
	store := newMemorySettingsStore()
	evaluator := &stubEvaluator{}
	service, err := NewSettingsService(store, stubVehicles{vehicle: knownVehicle()}, evaluator, nil, nil)
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}

	settings, err := service.Save(context.Background(), maintenance.SettingsParams{
		VehicleID:       "veh-1",
		ServiceInterval: 10000,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if settings.NotificationThreshold != maintenance.DefaultNotificationThreshold {
		t.Fatalf("expected default threshold, got %d", settings.NotificationThreshold)
	}
	if !settings.Enabled {
		t.Fatalf("expected enabled by default")
	}
	if len(evaluator.vehicleIDs) != 1 || evaluator.vehicleIDs[0] != "veh-1" {
		t.Fatalf("expected re-evaluation after save, got %v", evaluator.vehicleIDs)
	}
	stored, _ := store.GetByVehicle(context.Background(), "veh-1")
	if stored == nil {
		t.Fatalf("expected settings persisted")
	}
}

func TestSaveSettingsUnknownVehicle(t *testing.T) {
	service, err := NewSettingsService(newMemorySettingsStore(), stubVehicles{}, nil, nil, nil)
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}
	_, err = service.Save(context.Background(), maintenance.SettingsParams{VehicleID: "veh-x", ServiceInterval: 10000})
	if !errors.Is(err, fleet.ErrNotFound) {
		t.Fatalf("expected fleet.ErrNotFound, got %v", err)
	}
}

func TestSaveSettingsRejectsInvalidInterval(t *testing.T) {
	store := newMemorySettingsStore()
	service, err := NewSettingsService(store, stubVehicles{vehicle: knownVehicle()}, nil, nil, nil)
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}
	if _, err := service.Save(context.Background(), maintenance.SettingsParams{VehicleID: "veh-1", ServiceInterval: -5}); err == nil {
		t.Fatalf("expected invalid interval rejected")
	}
	if len(store.rows) != 0 {
		t.Fatalf("invalid settings must not be persisted")
	}
}

func TestGetSettingsMissing(t *testing.T) {
	service, err := NewSettingsService(newMemorySettingsStore(), stubVehicles{vehicle: knownVehicle()}, nil, nil, nil)
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}
	if _, err := service.Get(context.Background(), "veh-1"); !errors.Is(err, maintenance.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
}

func TestDeleteSettingsDeactivatesNotificationFirst(t *testing.T) {
	store := newMemorySettingsStore()
	deactivator := &recordingDeactivator{}
	service, err := NewSettingsService(store, stubVehicles{vehicle: knownVehicle()}, nil, deactivator, nil)
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}
	if _, err := service.Save(context.Background(), maintenance.SettingsParams{VehicleID: "veh-1", ServiceInterval: 10000}); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := service.Delete(context.Background(), "veh-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(deactivator.vehicleIDs) != 1 || deactivator.vehicleIDs[0] != "veh-1" {
		t.Fatalf("expected notification deactivated, got %v", deactivator.vehicleIDs)
	}
	exists, _ := store.Exists(context.Background(), "veh-1")
	if exists {
		t.Fatalf("expected settings removed")
	}
}

func TestDeleteSettingsMissing(t *testing.T) {
	service, err := NewSettingsService(newMemorySettingsStore(), stubVehicles{vehicle: knownVehicle()}, nil, nil, nil)
	if err != nil {
		t.Fatalf("new settings service: %v", err)
	}
	if err := service.Delete(context.Background(), "veh-1"); !errors.Is(err, maintenance.ErrSettingsNotFound) {
		t.Fatalf("expected ErrSettingsNotFound, got %v", err)
	}
}
