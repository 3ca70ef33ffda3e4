package maintenance

// Schedule is the computed maintenance position of a vehicle. A
// negative DistanceToNext means the service is overdue by that many km.
type Schedule struct {
	DistanceToNext     int64
	NextServiceCounter int64
	CompletedVisits    int
	FirstService       bool
}

// ReminderStatus classifies a schedule against the warning threshold.
type ReminderStatus string

const (
	ReminderOK      ReminderStatus = "ok"
	ReminderWarning ReminderStatus = "warning"
	ReminderOverdue ReminderStatus = "overdue"
)

// ComputeSchedule derives the distance to the next service. With a
// completed visit the next service is due at that visit's counter plus
// the interval. Without one the interval itself is the baseline, which
// assumes the vehicle entered the fleet near counter zero.
func ComputeSchedule(currentCounter int64, settings ReminderSettings, last *Visit, completedVisits int) Schedule {
	if last != nil {
		next := last.Counter + settings.ServiceInterval
		return Schedule{
			DistanceToNext:     next - currentCounter,
			NextServiceCounter: next,
			CompletedVisits:    completedVisits,
		}
	}
	return Schedule{
		DistanceToNext:     settings.ServiceInterval - currentCounter,
		NextServiceCounter: settings.ServiceInterval,
		CompletedVisits:    completedVisits,
		FirstService:       true,
	}
}

// Status classifies the schedule. The threshold boundary itself is a
// warning.
func (s Schedule) Status(threshold int64) ReminderStatus {
	switch {
	case s.DistanceToNext < 0:
		return ReminderOverdue
	case s.DistanceToNext <= threshold:
		return ReminderWarning
	default:
		return ReminderOK
	}
}
