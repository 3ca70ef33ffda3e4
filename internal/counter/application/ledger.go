package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	counter "fleet-maintenance/internal/counter/domain"
	fleet "fleet-maintenance/internal/fleet/domain"
	"fleet-maintenance/internal/observability/metrics"
)

// VehicleStore reads vehicles for floor computation.
type VehicleStore interface {
	GetByID(ctx context.Context, id string) (*fleet.Vehicle, error)
}

// EventSource lists counter events for a vehicle from one stream.
type EventSource interface {
	CounterEvents(ctx context.Context, vehicleID string) ([]counter.Event, error)
}

// EventRecorder persists a validated counter event and advances the
// vehicle odometer in the same transaction.
type EventRecorder interface {
	Record(ctx context.Context, event counter.Event) error
}

// Evaluator re-evaluates the maintenance notification for a vehicle.
type Evaluator interface {
	Evaluate(ctx context.Context, vehicleID string) (bool, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Ledger enforces the monotonicity invariant over the union of counter
// events recorded for a vehicle, across all sources.
type Ledger struct {
	vehicles  VehicleStore
	sources   []EventSource
	recorder  EventRecorder
	evaluator Evaluator
	logger    *log.Logger
	clock     Clock
	locks     keyedMutex
}

// LedgerOption customizes the ledger.
type LedgerOption func(*Ledger)

// WithRecorder assigns the event recorder used by Record.
func WithRecorder(recorder EventRecorder) LedgerOption {
	return func(l *Ledger) {
		l.recorder = recorder
	}
}

// WithEvaluator assigns the notification evaluator triggered after a
// successful Record.
func WithEvaluator(evaluator Evaluator) LedgerOption {
	return func(l *Ledger) {
		l.evaluator = evaluator
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) LedgerOption {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) LedgerOption {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// NewLedger constructs a counter ledger over the given event sources.
func NewLedger(vehicles VehicleStore, sources []EventSource, opts ...LedgerOption) (*Ledger, error) {
	if vehicles == nil {
		return nil, errors.New("counter ledger: nil vehicle store")
	}
	if len(sources) == 0 {
		return nil, errors.New("counter ledger: no event sources")
	}
	ledger := &Ledger{
		vehicles: vehicles,
		sources:  sources,
		clock:    systemClock{},
	}
	for _, opt := range opts {
		opt(ledger)
	}
	return ledger, nil
}

// MinimumAllowed returns the floor for any new counter reading for the
// vehicle: the maximum of the stored odometer and every recorded event
// value, regardless of timestamps. Returns 0 for an unknown vehicle or
// when nothing has been recorded.
func (l *Ledger) MinimumAllowed(ctx context.Context, vehicleID string) (int64, error) {
	vehicle, err := l.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return 0, err
	}
	var minimum int64
	if vehicle != nil {
		minimum = vehicle.Odometer
	}
	events, err := l.allEvents(ctx, vehicleID)
	if err != nil {
		return 0, err
	}
	for _, event := range events {
		if event.Value > minimum {
			minimum = event.Value
		}
	}
	return minimum, nil
}

// Validate checks a prospective counter reading against the floor and
// against two-sided ordering over all recorded events: a later event
// with a lower value or an earlier event with a higher value both break
// monotonicity. Either direction alone is insufficient for back-dated
// insertions.
func (l *Ledger) Validate(ctx context.Context, vehicleID string, value int64, occurredAt time.Time) error {
	minimum, err := l.MinimumAllowed(ctx, vehicleID)
	if err != nil {
		return err
	}
	if value < 0 || value < minimum {
		metrics.IncValidationRejection(string(counter.ReasonBelowMinimum))
		return counter.NewBelowMinimum(vehicleID, value, occurredAt, minimum)
	}

	events, err := l.allEvents(ctx, vehicleID)
	if err != nil {
		return err
	}
	for _, event := range events {
		if event.OccurredAt.After(occurredAt) && event.Value < value {
			metrics.IncValidationRejection(string(counter.ReasonOrderingViolation))
			return counter.NewOrderingViolation(vehicleID, value, occurredAt, event)
		}
		if event.OccurredAt.Before(occurredAt) && event.Value > value {
			metrics.IncValidationRejection(string(counter.ReasonOrderingViolation))
			return counter.NewOrderingViolation(vehicleID, value, occurredAt, event)
		}
	}
	return nil
}

// Record validates and appends a counter event. The recorder persists
// the event and advances the vehicle odometer to the value when it
// exceeds the stored reading, in one transaction. A successful record
// triggers a notification re-evaluation for the vehicle.
func (l *Ledger) Record(ctx context.Context, event counter.Event) error {
	if l.recorder == nil {
		return errors.New("counter ledger: no recorder configured")
	}
	if event.VehicleID == "" {
		return errors.New("counter ledger: empty vehicle id")
	}
	if !event.Source.Valid() {
		return errors.New("counter ledger: invalid event source")
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = l.clock.Now()
	}
	err := l.RecordReading(ctx, event.VehicleID, event.Value, event.OccurredAt, func(ctx context.Context) error {
		return l.recorder.Record(ctx, event)
	})
	if err != nil {
		return err
	}
	if l.evaluator != nil {
		if _, err := l.evaluator.Evaluate(ctx, event.VehicleID); err != nil && l.logger != nil {
			l.logger.Printf("counter ledger: re-evaluation after record failed: vehicle=%s err=%v", event.VehicleID, err)
		}
	}
	return nil
}

// RecordReading validates a prospective reading and, while still
// holding the vehicle's lock, runs persist to append it. Callers that
// write counter events outside the ledger's own recorder (service
// visits) must go through here so that concurrent readings for one
// vehicle validate against each other's committed history.
func (l *Ledger) RecordReading(ctx context.Context, vehicleID string, value int64, occurredAt time.Time, persist func(context.Context) error) error {
	if persist == nil {
		return errors.New("counter ledger: nil persist func")
	}
	unlock := l.locks.Lock(vehicleID)
	defer unlock()

	if err := l.Validate(ctx, vehicleID, value, occurredAt); err != nil {
		return err
	}
	return persist(ctx)
}

// Info summarizes the recorded counter history of a vehicle.
type Info struct {
	VehicleDetails string         `json:"vehicle_details"`
	MinimumAllowed int64          `json:"minimum_allowed"`
	LastEvent      *counter.Event `json:"last_event,omitempty"`
	TotalEvents    int            `json:"total_events"`
	Message        string         `json:"message"`
}

// Info returns the counter summary for a vehicle.
func (l *Ledger) Info(ctx context.Context, vehicleID string) (*Info, error) {
	minimum, err := l.MinimumAllowed(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	details := "unknown vehicle"
	vehicle, err := l.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle != nil {
		details = vehicle.Details()
	}

	events, err := l.allEvents(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].OccurredAt.After(events[j].OccurredAt)
	})

	info := &Info{
		VehicleDetails: details,
		MinimumAllowed: minimum,
		TotalEvents:    len(events),
		Message:        fmt.Sprintf("minimum allowed counter reading: %d km", minimum),
	}
	if len(events) > 0 {
		last := events[0]
		info.LastEvent = &last
	}
	return info, nil
}

func (l *Ledger) allEvents(ctx context.Context, vehicleID string) ([]counter.Event, error) {
	var all []counter.Event
	for _, source := range l.sources {
		events, err := source.CounterEvents(ctx, vehicleID)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
	}
	return all, nil
}
