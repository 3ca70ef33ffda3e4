package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"fleet-maintenance/internal/notifications/application"
)

const defaultWebhookTimeout = 10 * time.Second

// WebhookNotifier posts notification lifecycle events to an HTTP
// endpoint as JSON. Delivery is best effort; failures are logged and
// never surfaced to the caller.
type WebhookNotifier struct {
	url    string
	client *http.Client
	logger *log.Logger
}

// WebhookOption customizes the notifier.
type WebhookOption func(*WebhookNotifier)

// WithHTTPClient assigns a custom HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(n *WebhookNotifier) {
		n.client = client
	}
}

// WithWebhookLogger assigns a logger.
func WithWebhookLogger(logger *log.Logger) WebhookOption {
	return func(n *WebhookNotifier) {
		n.logger = logger
	}
}

// NewWebhookNotifier constructs a webhook notifier for the given URL.
func NewWebhookNotifier(url string, opts ...WebhookOption) *WebhookNotifier {
	notifier := &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: defaultWebhookTimeout},
	}
	for _, opt := range opts {
		opt(notifier)
	}
	return notifier
}

// Notify posts the event to the configured endpoint.
func (n *WebhookNotifier) Notify(ctx context.Context, event application.Event) {
	if n == nil || n.url == "" {
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		n.logf("webhook: encoding event failed: %v", err)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		n.logf("webhook: building request failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logf("webhook: delivery failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		n.logf("webhook: endpoint returned %d for event %q", resp.StatusCode, event.Type)
	}
}

func (n *WebhookNotifier) logf(format string, args ...any) {
	if n.logger == nil {
		return
	}
	n.logger.Printf(format, args...)
}
