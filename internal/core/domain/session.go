package domain

import "time"

// AttemptState caches the failure counter and lock expiry for one username as
// seen by a single UI session. The directory remains the source of truth; the
// cache only spares a round trip while a lock is visibly counting down.
type AttemptState struct {
	Attempts    int
	LockUntil   *time.Time
	CachedEmail string
}

// Locked reports whether the cached lock is still active at the given instant.
func (a *AttemptState) Locked(now time.Time) bool {
	return a != nil && a.LockUntil != nil && now.Before(*a.LockUntil)
}

// ResetStage identifies the step of an in-flight password reset.
type ResetStage string

const (
	ResetStageEmailEntry ResetStage = "email_entry"
	ResetStageCodeSent   ResetStage = "code_sent"
	ResetStageVerified   ResetStage = "verified"
)

// ResetSession is the in-flight state of a single password-reset attempt.
// At most one exists per SessionContext; it is destroyed on cancellation or
// on a successful password change.
type ResetSession struct {
	Email        string
	Code         string
	CodeIssuedAt *time.Time
	Verified     bool
}

// Stage derives the flow step from the session fields, the same way the login
// surface picks which form to render.
func (r *ResetSession) Stage() ResetStage {
	switch {
	case r == nil:
		return ResetStageEmailEntry
	case r.Verified:
		return ResetStageVerified
	case r.Code != "":
		return ResetStageCodeSent
	default:
		return ResetStageEmailEntry
	}
}

// Active reports whether a code is currently held by the session.
func (r *ResetSession) Active() bool {
	return r != nil && r.Code != ""
}

// Replace installs a freshly issued code, invalidating any previous one. The
// whole triple is swapped together so an old code can never survive alongside
// a new issued-at timestamp.
func (r *ResetSession) Replace(email, code string, issuedAt time.Time) {
	r.Email = email
	r.Code = code
	r.CodeIssuedAt = &issuedAt
	r.Verified = false
}

// Clear resets the session to its empty state.
func (r *ResetSession) Clear() {
	r.Email = ""
	r.Code = ""
	r.CodeIssuedAt = nil
	r.Verified = false
}

// SessionContext carries the per-UI-session mutable state for the
// authentication core: the attempt cache and the reset flow. It is passed
// explicitly into every operation and is never shared across sessions.
type SessionContext struct {
	attempts map[string]*AttemptState

	Reset ResetSession

	// Notice holds a message queued for the login surface, such as the
	// success banner after a completed password reset.
	Notice string
}

// NewSessionContext constructs an empty per-session context.
func NewSessionContext() *SessionContext {
	return &SessionContext{attempts: make(map[string]*AttemptState)}
}

// Attempts returns the cached attempt state for the username, creating an
// empty entry on first sight.
func (s *SessionContext) Attempts(username string) *AttemptState {
	if s.attempts == nil {
		s.attempts = make(map[string]*AttemptState)
	}
	state, ok := s.attempts[username]
	if !ok {
		state = &AttemptState{}
		s.attempts[username] = state
	}
	return state
}

// SyncFromDirectory overwrites the cached counters with the directory values.
// Called after every directory read or mutation so the cache never diverges
// silently.
func (s *SessionContext) SyncFromDirectory(username string, attempts int, lockUntil *time.Time) {
	state := s.Attempts(username)
	state.Attempts = attempts
	state.LockUntil = lockUntil
}
