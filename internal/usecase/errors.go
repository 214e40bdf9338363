package usecase

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUsernameNotFound indicates no directory record matches the username.
	ErrUsernameNotFound = errors.New("username not found")
	// ErrEmailNotFound indicates no directory record matches the email.
	ErrEmailNotFound = errors.New("email not found")
	// ErrNoActiveCode indicates code verification was attempted without an issued code.
	ErrNoActiveCode = errors.New("no verification code exists")
	// ErrCodeExpired indicates the issued code aged past its TTL.
	ErrCodeExpired = errors.New("verification code has expired")
	// ErrCodeMismatch indicates the submitted code differs from the issued one.
	ErrCodeMismatch = errors.New("invalid verification code")
	// ErrNotVerified indicates a password change was attempted before code verification.
	ErrNotVerified = errors.New("email not verified")
	// ErrSendFailed indicates the notification channel rejected the reset code.
	ErrSendFailed = errors.New("failed to send verification code")
	// ErrNewPasswordInvalid indicates the proposed password failed policy checks.
	ErrNewPasswordInvalid = errors.New("new password does not meet requirements")
)

// ValidationError reports empty or malformed input. It never implies any
// state change occurred.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// InvalidPasswordError reports a credential mismatch along with how many
// attempts remain before the account locks.
type InvalidPasswordError struct {
	RemainingAttempts int
}

func (e *InvalidPasswordError) Error() string {
	return fmt.Sprintf("incorrect password, %d attempts left", e.RemainingAttempts)
}

// LockedError reports an active lock and how long until it expires.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry in %s", e.Remaining.Round(time.Second))
}

// RateLimitExceededError indicates a scope exceeded its sliding-window quota.
type RateLimitExceededError struct {
	Scope      string
	RetryAfter time.Duration
}

func (e *RateLimitExceededError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %s", e.Scope, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("%s rate limit exceeded", e.Scope)
}
