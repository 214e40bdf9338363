package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishAccountLocked logs auth.account.locked events.
func (p *StubPublisher) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	payload := map[string]any{
		"user_id":           event.UserID,
		"username":          event.Username,
		"failed_attempts":   event.FailedAttempts,
		"locked_at":         event.LockedAt,
		"lock_expires_at":   event.LockExpiresAt,
		"notification_sent": event.NotificationSent,
		"metadata":          event.Metadata,
	}
	p.logEvent("auth.account.locked", event.UserID, event.LockedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":    event.UserID,
		"email":      event.Email,
		"changed_at": event.ChangedAt,
		"method":     event.Method,
		"metadata":   event.Metadata,
	}
	p.logEvent("auth.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"user_id":            event.UserID,
		"request_id":         event.RequestID,
		"requested_at":       event.RequestedAt,
		"masked_destination": event.MaskedDestination,
		"expires_at":         event.ExpiresAt,
		"metadata":           event.Metadata,
	}
	p.logEvent("auth.password.reset_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
