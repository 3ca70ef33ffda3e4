package fleet

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound indicates a missing vehicle record.
var ErrNotFound = errors.New("fleet: vehicle not found")

// Vehicle is a fleet vehicle. The odometer field is the authoritative
// current counter value; the counter ledger advances it on every
// recorded reading that exceeds it.
type Vehicle struct {
	ID           string
	Make         string
	Model        string
	LicensePlate string
	Odometer     int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Details returns a short human-readable identification of the vehicle.
func (v Vehicle) Details() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{v.Make, v.Model, v.LicensePlate} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return v.ID
	}
	return strings.Join(parts, " ")
}
