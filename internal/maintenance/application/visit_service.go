package application

import (
	"context"
	"errors"
	"log"
	"time"

	maintenance "fleet-maintenance/internal/maintenance/domain"
)

// VisitStore persists service visits.
type VisitStore interface {
	Create(ctx context.Context, visit *maintenance.Visit) error
	GetByID(ctx context.Context, id string) (*maintenance.Visit, error)
	UpdateStatus(ctx context.Context, visit *maintenance.Visit) error
	ListByVehicle(ctx context.Context, vehicleID string) ([]maintenance.Visit, error)
}

// CounterRecorder validates a counter reading against the ledger and
// runs the persist step under the vehicle's counter lock, so visit
// creation is serialized with concurrent fuel entries.
type CounterRecorder interface {
	RecordReading(ctx context.Context, vehicleID string, value int64, occurredAt time.Time, persist func(context.Context) error) error
}

// NotificationDeactivator clears the active notification for a vehicle.
type NotificationDeactivator interface {
	Deactivate(ctx context.Context, vehicleID string) error
}

// RecheckEnqueuer schedules a delayed notification re-evaluation.
type RecheckEnqueuer interface {
	Enqueue(ctx context.Context, vehicleID string, runAfter time.Time) error
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

const defaultRecheckDelay = 2 * time.Second

// VisitService manages service visit lifecycle. Completing a visit
// deactivates the vehicle's notification and schedules a re-evaluation
// that runs after the completion write is visible.
type VisitService struct {
	visits        VisitStore
	ledger        CounterRecorder
	notifications NotificationDeactivator
	recheck       RecheckEnqueuer
	recheckDelay  time.Duration
	clock         Clock
	logger        *log.Logger
}

// VisitOption customizes the visit service.
type VisitOption func(*VisitService)

// WithRecheckDelay overrides the delay before the post-completion
// re-evaluation runs.
func WithRecheckDelay(delay time.Duration) VisitOption {
	return func(s *VisitService) {
		if delay > 0 {
			s.recheckDelay = delay
		}
	}
}

// WithVisitClock assigns a clock.
func WithVisitClock(clock Clock) VisitOption {
	return func(s *VisitService) {
		s.clock = clock
	}
}

// WithVisitLogger assigns a logger.
func WithVisitLogger(logger *log.Logger) VisitOption {
	return func(s *VisitService) {
		s.logger = logger
	}
}

// NewVisitService constructs a visit service.
func NewVisitService(visits VisitStore, ledger CounterRecorder, notifications NotificationDeactivator, recheck RecheckEnqueuer, opts ...VisitOption) (*VisitService, error) {
	if visits == nil {
		return nil, errors.New("visit service: nil visit store")
	}
	if ledger == nil {
		return nil, errors.New("visit service: nil counter recorder")
	}
	service := &VisitService{
		visits:        visits,
		ledger:        ledger,
		notifications: notifications,
		recheck:       recheck,
		recheckDelay:  defaultRecheckDelay,
		clock:         systemClock{},
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// VisitParams carries service visit input.
type VisitParams struct {
	VehicleID  string
	Counter    int64
	StartedAt  time.Time
	PlannedEnd time.Time
	Details    string
}

// Create validates the counter reading and records a planned visit. The
// visit store advances the vehicle odometer in the same transaction.
func (s *VisitService) Create(ctx context.Context, params VisitParams) (*maintenance.Visit, error) {
	if params.VehicleID == "" {
		return nil, errors.New("visit service: empty vehicle id")
	}
	now := s.clock.Now()
	startedAt := params.StartedAt
	if startedAt.IsZero() {
		startedAt = now
	}
	visit := &maintenance.Visit{
		VehicleID:  params.VehicleID,
		Counter:    params.Counter,
		StartedAt:  startedAt,
		PlannedEnd: params.PlannedEnd,
		Details:    params.Details,
		Status:     maintenance.StatusPlanned,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.ledger.RecordReading(ctx, params.VehicleID, params.Counter, startedAt, func(ctx context.Context) error {
		return s.visits.Create(ctx, visit)
	})
	if err != nil {
		return nil, err
	}
	return visit, nil
}

// GetByID fetches a visit.
func (s *VisitService) GetByID(ctx context.Context, id string) (*maintenance.Visit, error) {
	visit, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, maintenance.ErrNotFound
	}
	return visit, nil
}

// ListByVehicle lists the visits of a vehicle.
func (s *VisitService) ListByVehicle(ctx context.Context, vehicleID string) ([]maintenance.Visit, error) {
	if vehicleID == "" {
		return nil, errors.New("visit service: empty vehicle id")
	}
	return s.visits.ListByVehicle(ctx, vehicleID)
}

// UpdateStatus moves a visit through its lifecycle. On the transition
// into COMPLETED the vehicle's notification is deactivated immediately
// and a delayed recheck is enqueued so the re-evaluation sees the
// committed completion instead of a stale read.
func (s *VisitService) UpdateStatus(ctx context.Context, id string, status maintenance.VisitStatus) (*maintenance.Visit, error) {
	visit, err := s.visits.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, maintenance.ErrNotFound
	}

	completedNow, err := visit.ApplyStatus(status, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.visits.UpdateStatus(ctx, visit); err != nil {
		return nil, err
	}

	if completedNow {
		if s.notifications != nil {
			if err := s.notifications.Deactivate(ctx, visit.VehicleID); err != nil && s.logger != nil {
				s.logger.Printf("visit service: deactivating notification failed: vehicle=%s err=%v", visit.VehicleID, err)
			}
		}
		if s.recheck != nil {
			runAfter := s.clock.Now().Add(s.recheckDelay)
			if err := s.recheck.Enqueue(ctx, visit.VehicleID, runAfter); err != nil && s.logger != nil {
				s.logger.Printf("visit service: enqueueing recheck failed: vehicle=%s err=%v", visit.VehicleID, err)
			}
		}
	}
	return visit, nil
}
