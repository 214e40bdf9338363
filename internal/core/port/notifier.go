package port

import "context"

// Notifier delivers a message to an email address. Failures are reported as
// errors and never retried by the core; callers decide whether delivery is
// best-effort or mandatory.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}
