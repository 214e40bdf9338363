package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/core/port"
	"github.com/k-chan22/DeteXTB-System/internal/repository"
)

// LockoutTick is emitted on every countdown interval. The final tick has
// Unlocked set and Remaining at zero.
type LockoutTick struct {
	Remaining time.Duration
	Unlocked  bool
}

// LockoutService resolves the time left on an active lock and drives the
// countdown back to an authenticatable state. The directory value is always
// the one that determines whether a lock is still active; the session cache
// is only updated to follow it.
type LockoutService struct {
	directory port.Directory
	logger    *zap.Logger
	now       func() time.Time
}

// NewLockoutService constructs a LockoutService.
func NewLockoutService(directory port.Directory, log *zap.Logger) *LockoutService {
	return &LockoutService{directory: directory, logger: log, now: time.Now}
}

// WithClock overrides the internal clock, used in tests.
func (s *LockoutService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// RemainingSeconds reads the authoritative lock expiry from the directory and
// returns the seconds left, clamped to zero. The session cache is synced as a
// side effect.
func (s *LockoutService) RemainingSeconds(ctx context.Context, sess *domain.SessionContext, username string) (int, error) {
	if username == "" {
		return 0, &ValidationError{Field: "username"}
	}

	user, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUsernameNotFound
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	sess.SyncFromDirectory(username, user.FailedAttempts, user.LockUntil)

	if user.LockUntil == nil {
		return 0, nil
	}

	remaining := user.LockUntil.Sub(s.now().UTC())
	if remaining <= 0 {
		return 0, nil
	}

	// Round up so a lock that just engaged reports its full duration.
	return int((remaining + time.Second - 1) / time.Second), nil
}

// Watch starts a cancellable countdown for the username's active lock. Each
// interval it recomputes the remaining time and emits a tick; when the lock
// elapses it clears the counter and lock on both the directory and the
// session cache, emits a terminal Unlocked tick, and closes the channel.
//
// If no lock is active, a single Unlocked tick is emitted immediately. The
// channel is closed without a terminal tick when ctx is cancelled first.
func (s *LockoutService) Watch(ctx context.Context, sess *domain.SessionContext, username string, interval time.Duration) (<-chan LockoutTick, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username"}
	}
	if interval <= 0 {
		interval = time.Second
	}

	user, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUsernameNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sess.SyncFromDirectory(username, user.FailedAttempts, user.LockUntil)

	lockUntil := user.LockUntil
	ticks := make(chan LockoutTick, 1)

	go func() {
		defer close(ticks)

		if lockUntil == nil || !s.now().UTC().Before(*lockUntil) {
			s.unlock(ctx, sess, username)
			ticks <- LockoutTick{Unlocked: true}
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining := lockUntil.Sub(s.now().UTC())
				if remaining > 0 {
					select {
					case ticks <- LockoutTick{Remaining: remaining}:
					case <-ctx.Done():
						return
					}
					continue
				}

				s.unlock(ctx, sess, username)
				select {
				case ticks <- LockoutTick{Unlocked: true}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return ticks, nil
}

// unlock clears the failure counter and lock expiry on the directory and the
// session cache. Directory failures are logged and the cache still clears, so
// the surface re-enables login; the next authenticate call re-reads the
// directory regardless.
func (s *LockoutService) unlock(ctx context.Context, sess *domain.SessionContext, username string) {
	if err := s.directory.UpdateFailedAttempts(ctx, username, 0); err != nil {
		s.logger.Warn("clear failed attempts on unlock failed", zap.String("username", username), zap.Error(err))
	}
	if err := s.directory.UpdateLockUntil(ctx, username, nil); err != nil {
		s.logger.Warn("clear lock on unlock failed", zap.String("username", username), zap.Error(err))
	}

	sess.SyncFromDirectory(username, 0, nil)

	s.logger.Info("lock expired", zap.String("username", username))
}
