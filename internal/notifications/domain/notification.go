package notifications

import (
	"errors"
	"time"
)

// ErrNotFound indicates a missing notification record.
var ErrNotFound = errors.New("notification: not found")

// Type is the notification severity.
type Type string

const (
	TypeWarning Type = "warning"
	TypeOverdue Type = "overdue"
	TypeInfo    Type = "info"
)

// Notification is the singleton active maintenance alert for a vehicle.
// While the underlying condition persists the row is updated in place;
// it is deactivated, never deleted, when the condition clears.
type Notification struct {
	ID             string    `json:"id"`
	VehicleID      string    `json:"vehicle_id"`
	Message        string    `json:"message"`
	Type           Type      `json:"type"`
	DistanceToNext int64     `json:"distance_to_next_service"`
	ServiceCount   int       `json:"completed_service_count"`
	CreatedAt      time.Time `json:"created_at"`
	Read           bool      `json:"read"`
	Active         bool      `json:"active"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Stats aggregates active notifications by read state and type.
type Stats struct {
	Total   int `json:"total"`
	Unread  int `json:"unread"`
	Warning int `json:"warning"`
	Overdue int `json:"overdue"`
	Info    int `json:"info"`
}
