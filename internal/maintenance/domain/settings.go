package maintenance

import (
	"errors"
	"time"
)

// ErrSettingsNotFound indicates missing reminder settings.
var ErrSettingsNotFound = errors.New("maintenance: reminder settings not found")

// DefaultNotificationThreshold is the warning distance applied when a
// threshold is not provided.
const DefaultNotificationThreshold = 500

// ReminderSettings configures maintenance reminders for one vehicle.
// At most one row exists per vehicle.
type ReminderSettings struct {
	ID                    string
	VehicleID             string
	ServiceInterval       int64
	NotificationThreshold int64
	Enabled               bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// SettingsParams carries reminder settings input. Optional fields left
// nil take their defaults exactly once, at construction.
type SettingsParams struct {
	VehicleID             string
	ServiceInterval       int64
	NotificationThreshold *int64
	Enabled               *bool
}

// NewReminderSettings builds settings from params, applying defaults
// for the threshold (500) and enabled flag (true).
func NewReminderSettings(params SettingsParams) (ReminderSettings, error) {
	settings := ReminderSettings{
		VehicleID:             params.VehicleID,
		ServiceInterval:       params.ServiceInterval,
		NotificationThreshold: DefaultNotificationThreshold,
		Enabled:               true,
	}
	if params.NotificationThreshold != nil {
		settings.NotificationThreshold = *params.NotificationThreshold
	}
	if params.Enabled != nil {
		settings.Enabled = *params.Enabled
	}
	if err := settings.Validate(); err != nil {
		return ReminderSettings{}, err
	}
	return settings, nil
}

// Validate checks settings invariants.
func (s ReminderSettings) Validate() error {
	if s.VehicleID == "" {
		return errors.New("reminder settings: empty vehicle id")
	}
	if s.ServiceInterval <= 0 {
		return errors.New("reminder settings: service interval must be positive")
	}
	if s.NotificationThreshold < 0 {
		return errors.New("reminder settings: notification threshold must not be negative")
	}
	return nil
}
