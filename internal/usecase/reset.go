package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

const passwordResetRateLimitScope = "password_reset"

// PasswordResetService drives the request/verify/set state machine for a
// mailed one-time reset code. All flow state lives on the session's
// ResetSession; the directory is only touched to resolve the email and to
// write the final credential.
type PasswordResetService struct {
	cfg        *config.AppConfig
	directory  port.Directory
	matcher    port.PasswordMatcher
	notifier   port.Notifier
	rateLimits port.RateLimitStore
	events     port.EventPublisher
	validator  *security.PasswordValidator
	metrics    *metrics.AuthMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService. The rate limit
// store, event publisher and metrics may be nil; the flow then runs without
// them.
func NewPasswordResetService(
	cfg *config.AppConfig,
	directory port.Directory,
	matcher port.PasswordMatcher,
	notifier port.Notifier,
	rateLimits port.RateLimitStore,
	events port.EventPublisher,
	validator *security.PasswordValidator,
	m *metrics.AuthMetrics,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		cfg:        cfg,
		directory:  directory,
		matcher:    matcher,
		notifier:   notifier,
		rateLimits: rateLimits,
		events:     events,
		validator:  validator,
		metrics:    m,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *PasswordResetService) codeLength() int {
	if s.cfg != nil && s.cfg.Auth.OTPLength > 0 {
		return s.cfg.Auth.OTPLength
	}
	return 4
}

func (s *PasswordResetService) codeTTL() time.Duration {
	if s.cfg != nil && s.cfg.Auth.OTPTTL > 0 {
		return s.cfg.Auth.OTPTTL
	}
	return 300 * time.Second
}

// RequestCode resolves the email against the directory, issues a fresh code
// (invalidating any previous one) and mails it. On delivery failure the
// session is cleared so the user can retry from a clean slate.
func (s *PasswordResetService) RequestCode(ctx context.Context, sess *domain.SessionContext, email string) error {
	if email == "" {
		return &ValidationError{Field: "email"}
	}

	now := s.now().UTC()

	if err := s.enforceResetRateLimit(ctx, email, now); err != nil {
		s.metrics.ResetRateLimited()
		return err
	}

	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	code, err := security.GenerateNumericCode(s.codeLength())
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}

	// The whole triple swaps together: the old code is dead from here on.
	sess.Reset.Replace(email, code, now)

	ttl := s.codeTTL()
	if err := s.notifier.Send(ctx, email, resetCodeSubject, resetCodeBody(code, ttl)); err != nil {
		sess.Reset.Clear()
		s.logger.Warn("reset code delivery failed",
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	if s.events != nil {
		event := domain.PasswordResetRequestedEvent{
			EventID:           uuid.NewString(),
			UserID:            user.ID,
			RequestID:         uuid.NewString(),
			RequestedAt:       now,
			MaskedDestination: logger.MaskEmail(email),
			ExpiresAt:         now.Add(ttl),
		}
		if err := s.events.PublishPasswordResetRequested(ctx, event); err != nil {
			s.logger.Warn("reset requested event publish failed", zap.Error(err))
		}
	}

	s.metrics.ResetRequested()
	s.logger.Info("reset code sent", zap.String("email", logger.MaskEmail(email)))

	return nil
}

// VerifyCode checks the submitted code against the issued one. An expired
// code stays in the session but is unusable; only a fresh RequestCode
// replaces it.
func (s *PasswordResetService) VerifyCode(sess *domain.SessionContext, submitted string) error {
	if !sess.Reset.Active() {
		return ErrNoActiveCode
	}

	now := s.now().UTC()
	if sess.Reset.CodeIssuedAt == nil || now.Sub(*sess.Reset.CodeIssuedAt) > s.codeTTL() {
		return ErrCodeExpired
	}

	if submitted != sess.Reset.Code {
		return ErrCodeMismatch
	}

	sess.Reset.Verified = true
	return nil
}

// SetNewPassword overwrites the directory credential for the verified email
// and destroys the reset session. The verified guard is checked before any
// input validation: an unverified session fails the same way no matter what
// was submitted.
func (s *PasswordResetService) SetNewPassword(ctx context.Context, sess *domain.SessionContext, newPassword, confirm string) error {
	if !sess.Reset.Verified {
		return ErrNotVerified
	}

	if newPassword == "" {
		return &ValidationError{Field: "new_password"}
	}
	if confirm == "" {
		return &ValidationError{Field: "confirm_password"}
	}
	if newPassword != confirm {
		return &ValidationError{Field: "confirm_password", Message: "passwords do not match"}
	}
	if s.validator != nil {
		if err := s.validator.Validate(newPassword); err != nil {
			return fmt.Errorf("%w: %v", ErrNewPasswordInvalid, err)
		}
	}

	email := sess.Reset.Email

	if score := security.PasswordStrength(newPassword, email); score <= 1 {
		s.logger.Warn("weak password accepted",
			zap.String("email", logger.MaskEmail(email)),
			zap.Int("strength_score", score),
		)
	}

	user, err := s.directory.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	secret, err := s.matcher.Encode(newPassword)
	if err != nil {
		return fmt.Errorf("encode password: %w", err)
	}

	if err := s.directory.UpdatePasswordSecret(ctx, email, secret); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEmailNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	now := s.now().UTC()
	sess.Reset.Clear()
	sess.Notice = passwordResetNotice

	if s.events != nil {
		event := domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			Email:     email,
			ChangedAt: now,
			Method:    "reset_flow",
		}
		if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
			s.logger.Warn("password changed event publish failed", zap.Error(err))
		}
	}

	s.metrics.ResetCompleted()
	s.logger.Info("password reset completed", zap.String("email", logger.MaskEmail(email)))

	return nil
}

// Back steps the flow one state toward email entry. From the verified state
// only the verified flag clears, so the already-issued code can be re-entered;
// from the code-sent state the code itself is discarded.
func (s *PasswordResetService) Back(sess *domain.SessionContext) {
	switch sess.Reset.Stage() {
	case domain.ResetStageVerified:
		sess.Reset.Verified = false
	case domain.ResetStageCodeSent:
		sess.Reset.Code = ""
		sess.Reset.CodeIssuedAt = nil
	}
}

// Cancel abandons the flow entirely, clearing all reset state so nothing
// lingers into a later attempt on the same session.
func (s *PasswordResetService) Cancel(sess *domain.SessionContext) {
	sess.Reset.Clear()
}

// Stage reports which step of the flow the session is in.
func (s *PasswordResetService) Stage(sess *domain.SessionContext) domain.ResetStage {
	return sess.Reset.Stage()
}

func (s *PasswordResetService) enforceResetRateLimit(ctx context.Context, identifier string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	identifierKey := strings.ToLower(strings.TrimSpace(identifier))
	if identifierKey == "" {
		return nil
	}

	storageKey := fmt.Sprintf("%s:%s", passwordResetRateLimitScope, identifierKey)

	if err := s.rateLimits.TrimWindow(ctx, storageKey, window, now); err != nil {
		s.logger.Warn("reset rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, storageKey, window, now)
	if err != nil {
		s.logger.Warn("reset rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, storageKey, window, now); err == nil && ok {
			reset := oldest.Add(window)
			if reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("reset rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: passwordResetRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, storageKey, now); err != nil {
		s.logger.Warn("reset rate limit record failed", zap.Error(err))
	}

	return nil
}
