package maintenance

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound indicates a missing service visit record.
var ErrNotFound = errors.New("maintenance: visit not found")

// VisitStatus is the lifecycle status of a service visit.
type VisitStatus string

const (
	StatusPlanned    VisitStatus = "planned"
	StatusInProgress VisitStatus = "in_progress"
	StatusCompleted  VisitStatus = "completed"
	StatusCancelled  VisitStatus = "cancelled"
)

// Valid returns true when the status is supported.
func (s VisitStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Visit is a scheduled or performed maintenance job. Only completed
// visits participate in the "last service" computation.
type Visit struct {
	ID          string
	VehicleID   string
	Counter     int64
	StartedAt   time.Time
	PlannedEnd  time.Time
	Details     string
	Status      VisitStatus
	CompletedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApplyStatus moves the visit to the given status, maintaining the
// completion timestamp: entering COMPLETED sets it, leaving COMPLETED
// clears it. Returns true when the visit transitioned into COMPLETED.
func (v *Visit) ApplyStatus(status VisitStatus, now time.Time) (bool, error) {
	if v == nil {
		return false, errors.New("maintenance: nil visit")
	}
	if !status.Valid() {
		return false, fmt.Errorf("maintenance: invalid visit status %q", status)
	}
	previous := v.Status
	v.Status = status
	v.UpdatedAt = now
	if status == StatusCompleted {
		if v.CompletedAt.IsZero() {
			v.CompletedAt = now
		}
		return previous != StatusCompleted, nil
	}
	if previous == StatusCompleted {
		v.CompletedAt = time.Time{}
	}
	return false, nil
}

// Completed returns true when the visit counts toward the last-service
// computation.
func (v Visit) Completed() bool {
	return v.Status == StatusCompleted
}
