package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/core/port"
	"github.com/k-chan22/DeteXTB-System/internal/infra/config"
	"github.com/k-chan22/DeteXTB-System/internal/infra/logger"
	"github.com/k-chan22/DeteXTB-System/internal/infra/metrics"
	"github.com/k-chan22/DeteXTB-System/internal/infra/security"
	"github.com/k-chan22/DeteXTB-System/internal/repository"
)

// AuthResult is returned on successful authentication. SessionToken is empty
// when no token issuer is configured.
type AuthResult struct {
	User         domain.UserRecord
	SessionToken string
}

// AuthService validates credentials against the directory, applying the
// lockout rules and emitting security alerts when the failure threshold is
// crossed.
type AuthService struct {
	cfg       *config.AppConfig
	directory port.Directory
	matcher   port.PasswordMatcher
	notifier  port.Notifier
	events    port.EventPublisher
	tokens    *security.SessionTokenIssuer
	metrics   *metrics.AuthMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService constructs an AuthService. The token issuer, event publisher
// and metrics may be nil; authentication then proceeds without them.
func NewAuthService(
	cfg *config.AppConfig,
	directory port.Directory,
	matcher port.PasswordMatcher,
	notifier port.Notifier,
	events port.EventPublisher,
	tokens *security.SessionTokenIssuer,
	m *metrics.AuthMetrics,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:       cfg,
		directory: directory,
		matcher:   matcher,
		notifier:  notifier,
		events:    events,
		tokens:    tokens,
		metrics:   m,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *AuthService) maxFailedAttempts() int {
	if s.cfg != nil && s.cfg.Auth.MaxFailedAttempts > 0 {
		return s.cfg.Auth.MaxFailedAttempts
	}
	return 3
}

func (s *AuthService) lockDuration() time.Duration {
	if s.cfg != nil && s.cfg.Auth.LockDuration > 0 {
		return s.cfg.Auth.LockDuration
	}
	return 300 * time.Second
}

// Authenticate validates a username/password pair for one UI session. The
// directory is the source of truth for counters and locks; the session cache
// only short-circuits attempts while a lock is visibly counting down.
//
// The failure counter is read from the fetched record and written back
// incremented. There is no atomic increment or row lock, so concurrent
// failures from separate sessions can under-count; the lock threshold is
// enforced per observed read. Known defect, tracked for a conditional-update
// fix.
func (s *AuthService) Authenticate(ctx context.Context, sess *domain.SessionContext, username, password string) (*AuthResult, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password"}
	}

	now := s.now().UTC()

	state := sess.Attempts(username)
	if state.Locked(now) {
		return nil, &LockedError{Remaining: state.LockUntil.Sub(now)}
	}

	user, err := s.directory.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.metrics.LoginFailure()
			return nil, ErrUsernameNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	sess.SyncFromDirectory(username, user.FailedAttempts, user.LockUntil)
	state.CachedEmail = user.Email

	if user.Locked(now) {
		return nil, &LockedError{Remaining: user.LockUntil.Sub(now)}
	}

	match, err := s.matcher.Match(password, user.PasswordSecret)
	if err != nil {
		return nil, fmt.Errorf("compare password: %w", err)
	}

	if !match {
		return nil, s.recordFailure(ctx, sess, user, now)
	}

	if err := s.directory.UpdateFailedAttempts(ctx, username, 0); err != nil {
		return nil, fmt.Errorf("reset failed attempts: %w", err)
	}
	if err := s.directory.UpdateLockUntil(ctx, username, nil); err != nil {
		return nil, fmt.Errorf("clear lock: %w", err)
	}
	if err := s.directory.UpdateLastActive(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last active: %w", err)
	}

	sess.SyncFromDirectory(username, 0, nil)

	result := &AuthResult{User: user.Sanitized()}
	if s.tokens != nil {
		token, err := s.tokens.Issue(*user)
		if err != nil {
			return nil, fmt.Errorf("issue session token: %w", err)
		}
		result.SessionToken = token
	}

	s.metrics.LoginSuccess()
	s.logger.Info("login succeeded",
		zap.String("username", username),
		zap.String("role", string(user.Role)),
	)

	return result, nil
}

// recordFailure increments the persisted counter and locks the account when
// the threshold is reached. The security-alert mail is best effort; the lock
// itself is the control and is enforced regardless of delivery.
func (s *AuthService) recordFailure(ctx context.Context, sess *domain.SessionContext, user *domain.UserRecord, now time.Time) error {
	username := user.Username
	attempts := user.FailedAttempts + 1

	if err := s.directory.UpdateFailedAttempts(ctx, username, attempts); err != nil {
		return fmt.Errorf("persist failed attempts: %w", err)
	}

	max := s.maxFailedAttempts()
	if attempts < max {
		sess.SyncFromDirectory(username, attempts, nil)
		s.metrics.LoginFailure()
		return &InvalidPasswordError{RemainingAttempts: max - attempts}
	}

	lockDuration := s.lockDuration()
	lockUntil := now.Add(lockDuration)

	if err := s.directory.UpdateLockUntil(ctx, username, &lockUntil); err != nil {
		return fmt.Errorf("persist lock: %w", err)
	}

	sess.SyncFromDirectory(username, attempts, &lockUntil)

	notified := false
	if s.notifier != nil && user.Email != "" {
		if err := s.notifier.Send(ctx, user.Email, securityAlertSubject, securityAlertBody(username, lockDuration)); err != nil {
			s.logger.Warn("security alert delivery failed",
				zap.String("username", username),
				zap.String("email", logger.MaskEmail(user.Email)),
				zap.Error(err),
			)
		} else {
			notified = true
		}
	}

	if s.events != nil {
		event := domain.AccountLockedEvent{
			EventID:          uuid.NewString(),
			UserID:           user.ID,
			Username:         username,
			FailedAttempts:   attempts,
			LockedAt:         now,
			LockExpiresAt:    lockUntil,
			NotificationSent: notified,
		}
		if err := s.events.PublishAccountLocked(ctx, event); err != nil {
			s.logger.Warn("account locked event publish failed", zap.Error(err))
		}
	}

	s.metrics.LoginFailure()
	s.metrics.AccountLocked()
	s.logger.Warn("account locked",
		zap.String("username", username),
		zap.Int("failed_attempts", attempts),
		zap.Time("lock_until", lockUntil),
	)

	return &LockedError{Remaining: lockDuration}
}
