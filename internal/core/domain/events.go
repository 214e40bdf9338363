package domain

import "time"

// AccountLockedEvent represents the payload for auth.account.locked messages.
type AccountLockedEvent struct {
	EventID          string
	UserID           string
	Username         string
	FailedAttempts   int
	LockedAt         time.Time
	LockExpiresAt    time.Time
	NotificationSent bool
	Metadata         map[string]any
}

// PasswordChangedEvent represents the payload for auth.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	Email     string
	ChangedAt time.Time
	Method    string
	Metadata  map[string]any
}

// PasswordResetRequestedEvent represents the payload for auth.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            string
	RequestID         string
	RequestedAt       time.Time
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}
