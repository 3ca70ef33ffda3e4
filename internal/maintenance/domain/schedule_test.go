package maintenance

import "testing"

func settingsWith(interval, threshold int64) ReminderSettings {
	return ReminderSettings{
		VehicleID:             "veh-1",
		ServiceInterval:       interval,
		NotificationThreshold: threshold,
		Enabled:               true,
	}
}

func TestComputeScheduleAfterCompletedVisit(t *testing.T) {
	last := &Visit{Counter: 45000, Status: StatusCompleted}
	schedule := ComputeSchedule(52000, settingsWith(10000, 500), last, 3)

	if schedule.DistanceToNext != 3000 {
		t.Fatalf("expected distance 3000, got %d", schedule.DistanceToNext)
	}
	if schedule.NextServiceCounter != 55000 {
		t.Fatalf("expected next service at 55000, got %d", schedule.NextServiceCounter)
	}
	if schedule.FirstService {
		t.Fatalf("a vehicle with completed visits is past its first service")
	}
	if schedule.CompletedVisits != 3 {
		t.Fatalf("expected 3 completed visits, got %d", schedule.CompletedVisits)
	}
}

func TestComputeScheduleWithoutVisitsUsesIntervalBaseline(t *testing.T) {
	schedule := ComputeSchedule(4000, settingsWith(10000, 500), nil, 0)

	if schedule.DistanceToNext != 6000 {
		t.Fatalf("expected distance 6000, got %d", schedule.DistanceToNext)
	}
	if schedule.NextServiceCounter != 10000 {
		t.Fatalf("expected first service at 10000, got %d", schedule.NextServiceCounter)
	}
	if !schedule.FirstService {
		t.Fatalf("expected first service flag")
	}
}

func TestComputeScheduleOverdueIsNegative(t *testing.T) {
	last := &Visit{Counter: 45000, Status: StatusCompleted}
	schedule := ComputeSchedule(56500, settingsWith(10000, 500), last, 1)

	if schedule.DistanceToNext != -1500 {
		t.Fatalf("expected distance -1500, got %d", schedule.DistanceToNext)
	}
}

func TestStatusThresholdBoundaryIsWarning(t *testing.T) {
	cases := []struct {
		distance int64
		want     ReminderStatus
	}{
		{distance: 501, want: ReminderOK},
		{distance: 500, want: ReminderWarning},
		{distance: 1, want: ReminderWarning},
		{distance: 0, want: ReminderWarning},
		{distance: -1, want: ReminderOverdue},
	}
	for _, tc := range cases {
		got := Schedule{DistanceToNext: tc.distance}.Status(500)
		if got != tc.want {
			t.Fatalf("distance %d: expected %s, got %s", tc.distance, tc.want, got)
		}
	}
}

func TestNewReminderSettingsDefaults(t *testing.T) {
	settings, err := NewReminderSettings(SettingsParams{VehicleID: "veh-1", ServiceInterval: 10000})
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	if settings.NotificationThreshold != DefaultNotificationThreshold {
		t.Fatalf("expected default threshold %d, got %d", DefaultNotificationThreshold, settings.NotificationThreshold)
	}
	if !settings.Enabled {
		t.Fatalf("expected settings enabled by default")
	}
}

func TestNewReminderSettingsOverrides(t *testing.T) {
	threshold := int64(1000)
	enabled := false
	settings, err := NewReminderSettings(SettingsParams{
		VehicleID:             "veh-1",
		ServiceInterval:       15000,
		NotificationThreshold: &threshold,
		Enabled:               &enabled,
	})
	if err != nil {
		t.Fatalf("new settings: %v", err)
	}
	if settings.NotificationThreshold != 1000 {
		t.Fatalf("expected threshold 1000, got %d", settings.NotificationThreshold)
	}
	if settings.Enabled {
		t.Fatalf("expected settings disabled")
	}
}

func TestNewReminderSettingsRejectsInvalid(t *testing.T) {
	if _, err := NewReminderSettings(SettingsParams{VehicleID: "veh-1", ServiceInterval: 0}); err == nil {
		t.Fatalf("expected zero interval rejected")
	}
	negative := int64(-1)
	if _, err := NewReminderSettings(SettingsParams{VehicleID: "veh-1", ServiceInterval: 10000, NotificationThreshold: &negative}); err == nil {
		t.Fatalf("expected negative threshold rejected")
	}
	if _, err := NewReminderSettings(SettingsParams{ServiceInterval: 10000}); err == nil {
		t.Fatalf("expected empty vehicle id rejected")
	}
}
