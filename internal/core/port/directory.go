package port

import (
	"context"
	"time"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
)

// Directory exposes the persisted user-record store. Every call is a
// synchronous round trip; there is no transaction spanning a
// read-modify-write, so counter updates are last-write-wins.
type Directory interface {
	// FindByUsername resolves a record by exact, case-sensitive username.
	FindByUsername(ctx context.Context, username string) (*domain.UserRecord, error)
	// FindByEmail resolves a record by its registered email address.
	FindByEmail(ctx context.Context, email string) (*domain.UserRecord, error)
	UpdateFailedAttempts(ctx context.Context, username string, attempts int) error
	// UpdateLockUntil sets or clears (nil) the lock expiry for a username.
	UpdateLockUntil(ctx context.Context, username string, lockUntil *time.Time) error
	UpdateLastActive(ctx context.Context, id string, at time.Time) error
	// UpdatePasswordSecret overwrites the stored credential for the record
	// matching the given email.
	UpdatePasswordSecret(ctx context.Context, email string, secret string) error
}
