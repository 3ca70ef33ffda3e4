package notify

import (
	"context"

	"fleet-maintenance/internal/notifications/application"
)

// MultiNotifier fans one event out to several notifiers.
type MultiNotifier []application.Notifier

// Notify delivers the event to every notifier in order.
func (m MultiNotifier) Notify(ctx context.Context, event application.Event) {
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		notifier.Notify(ctx, event)
	}
}
