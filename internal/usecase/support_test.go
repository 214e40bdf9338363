package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/k-chan22/DeteXTB-System/internal/core/domain"
	"github.com/k-chan22/DeteXTB-System/internal/infra/config"
	"github.com/k-chan22/DeteXTB-System/internal/repository"
)

func newTestConfig() *config.AppConfig {
	return &config.AppConfig{
		Auth: config.AuthSettings{
			MaxFailedAttempts: 3,
			LockDuration:      300 * time.Second,
			OTPLength:         4,
			OTPTTL:            300 * time.Second,
			MinPasswordLength: 8,
		},
		RateLimit: config.RateLimitSettings{
			WindowDuration:           time.Hour,
			PasswordResetMaxAttempts: 5,
		},
	}
}

type fakeDirectory struct {
	mu    sync.Mutex
	users map[string]*domain.UserRecord

	findErr   error
	updateErr error

	onFind           func()
	onUpdateAttempts func()
}

func newFakeDirectory(users ...*domain.UserRecord) *fakeDirectory {
	dir := &fakeDirectory{users: make(map[string]*domain.UserRecord)}
	for _, u := range users {
		copied := *u
		dir.users[u.Username] = &copied
	}
	return dir
}

func (d *fakeDirectory) get(username string) *domain.UserRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.users[username]
}

func (d *fakeDirectory) FindByUsername(_ context.Context, username string) (*domain.UserRecord, error) {
	if d.onFind != nil {
		d.onFind()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	user, ok := d.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*domain.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.findErr != nil {
		return nil, d.findErr
	}
	for _, user := range d.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *fakeDirectory) UpdateFailedAttempts(_ context.Context, username string, attempts int) error {
	if d.onUpdateAttempts != nil {
		d.onUpdateAttempts()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	user, ok := d.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedAttempts = attempts
	return nil
}

func (d *fakeDirectory) UpdateLockUntil(_ context.Context, username string, lockUntil *time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	user, ok := d.users[username]
	if !ok {
		return repository.ErrNotFound
	}
	user.LockUntil = lockUntil
	return nil
}

func (d *fakeDirectory) UpdateLastActive(_ context.Context, id string, at time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, user := range d.users {
		if user.ID == id {
			user.LastActive = at
			return nil
		}
	}
	return repository.ErrNotFound
}

func (d *fakeDirectory) UpdatePasswordSecret(_ context.Context, email, secret string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	for _, user := range d.users {
		if user.Email == email {
			user.PasswordSecret = secret
			return nil
		}
	}
	return repository.ErrNotFound
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) last() sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

type fakeEvents struct {
	mu        sync.Mutex
	locked    []domain.AccountLockedEvent
	changed   []domain.PasswordChangedEvent
	requested []domain.PasswordResetRequestedEvent
}

func (e *fakeEvents) PublishAccountLocked(_ context.Context, event domain.AccountLockedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.locked = append(e.locked, event)
	return nil
}

func (e *fakeEvents) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changed = append(e.changed, event)
	return nil
}

func (e *fakeEvents) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.requested = append(e.requested, event)
	return nil
}

type fakeRateLimits struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newFakeRateLimits() *fakeRateLimits {
	return &fakeRateLimits{attempts: make(map[string][]time.Time)}
}

func (r *fakeRateLimits) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.attempts[identifier][:0]
	for _, at := range r.attempts[identifier] {
		if !at.Before(reference.Add(-window)) {
			kept = append(kept, at)
		}
	}
	r.attempts[identifier] = kept
	return nil
}

func (r *fakeRateLimits) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, at := range r.attempts[identifier] {
		if !at.Before(reference.Add(-window)) && !at.After(reference) {
			count++
		}
	}
	return count, nil
}

func (r *fakeRateLimits) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[identifier] = append(r.attempts[identifier], at)
	return nil
}

func (r *fakeRateLimits) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var oldest time.Time
	found := false
	for _, at := range r.attempts[identifier] {
		if at.Before(reference.Add(-window)) || at.After(reference) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}
