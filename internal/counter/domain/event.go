package counter

import "time"

// Source identifies the stream a counter event came from.
type Source string

const (
	SourceFuel    Source = "fuel"
	SourceService Source = "service"
)

// Valid returns true when the source is supported.
func (s Source) Valid() bool {
	switch s {
	case SourceFuel, SourceService:
		return true
	default:
		return false
	}
}

// Event is a timestamped counter observation for a vehicle. Events from
// all sources form a single ordered sequence per vehicle over which the
// monotonicity invariant is enforced.
type Event struct {
	VehicleID  string    `json:"vehicle_id"`
	Value      int64     `json:"value"`
	OccurredAt time.Time `json:"occurred_at"`
	Source     Source    `json:"source"`
	Label      string    `json:"label,omitempty"`
}
