package counter

import (
	"errors"
	"fmt"
	"time"
)

// Reason classifies a counter consistency violation.
type Reason string

const (
	ReasonBelowMinimum      Reason = "below_minimum"
	ReasonOrderingViolation Reason = "ordering_violation"
)

// ConsistencyError rejects a counter reading that would break the
// per-vehicle monotonicity invariant. Minimum is set for below-minimum
// rejections; Conflict carries the recorded event that contradicts the
// reading for ordering violations.
type ConsistencyError struct {
	Reason     Reason
	VehicleID  string
	Value      int64
	OccurredAt time.Time
	Minimum    int64
	Conflict   *Event
}

func (e *ConsistencyError) Error() string {
	switch e.Reason {
	case ReasonBelowMinimum:
		return fmt.Sprintf("counter: reading %d km is below the minimum allowed value %d km", e.Value, e.Minimum)
	case ReasonOrderingViolation:
		if e.Conflict != nil {
			return fmt.Sprintf("counter: reading %d km at %s conflicts with the %s record of %d km at %s",
				e.Value, e.OccurredAt.Format(time.RFC3339), e.Conflict.Source, e.Conflict.Value, e.Conflict.OccurredAt.Format(time.RFC3339))
		}
		return fmt.Sprintf("counter: reading %d km at %s breaks counter ordering", e.Value, e.OccurredAt.Format(time.RFC3339))
	default:
		return fmt.Sprintf("counter: reading %d km rejected", e.Value)
	}
}

// NewBelowMinimum builds a below-minimum rejection.
func NewBelowMinimum(vehicleID string, value int64, occurredAt time.Time, minimum int64) *ConsistencyError {
	return &ConsistencyError{
		Reason:     ReasonBelowMinimum,
		VehicleID:  vehicleID,
		Value:      value,
		OccurredAt: occurredAt,
		Minimum:    minimum,
	}
}

// NewOrderingViolation builds an ordering rejection with the conflicting event.
func NewOrderingViolation(vehicleID string, value int64, occurredAt time.Time, conflict Event) *ConsistencyError {
	return &ConsistencyError{
		Reason:     ReasonOrderingViolation,
		VehicleID:  vehicleID,
		Value:      value,
		OccurredAt: occurredAt,
		Conflict:   &conflict,
	}
}

// AsConsistency unwraps a ConsistencyError from err.
func AsConsistency(err error) (*ConsistencyError, bool) {
	var ce *ConsistencyError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
