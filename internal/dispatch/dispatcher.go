// Package dispatch hands job payloads to the external message queue that
// later invokes this service's worker endpoints.
package dispatch

import "context"

// PublishOptions tunes one publish call. DelaySeconds defers the first
// delivery attempt; Retries bounds queue-side redelivery on transport failure.
type PublishOptions struct {
	DelaySeconds int
	Retries      int
}

// Result is the queue's acknowledgment of an accepted message.
type Result struct {
	MessageID string
}

// Dispatcher is the task hand-off contract consumed by the job lifecycle
// manager. Publish failures must propagate so a job is never confirmed
// without a recorded dispatch. Cancel is best-effort and never blocks a
// user-facing cancel flow on queue trouble.
type Dispatcher interface {
	Publish(ctx context.Context, endpoint string, payload any, opts PublishOptions) (*Result, error)
	Cancel(ctx context.Context, messageID string) bool
}
