package domain

import "time"

// Role enumerates the clinic roles a user record can carry.
type Role string

const (
	RoleManager      Role = "manager"
	RoleReceptionist Role = "receptionist"
)

// UserRecord mirrors the persisted representation in the clinic users table.
// PasswordSecret is stored exactly as the directory holds it; see the matcher
// in infra/security for how it is compared.
type UserRecord struct {
	ID             string
	Username       string
	PasswordSecret string
	Email          string
	Role           Role
	FirstName      string
	MiddleName     string
	LastName       string
	FailedAttempts int
	LockUntil      *time.Time
	LastActive     time.Time
}

// FullName joins the name parts the way the dashboard header renders them.
func (u UserRecord) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Sanitized returns a copy safe to hand to the UI layer.
func (u UserRecord) Sanitized() UserRecord {
	clean := u
	clean.PasswordSecret = ""
	return clean
}

// Locked reports whether the record carries an active lock at the given instant.
func (u UserRecord) Locked(now time.Time) bool {
	return u.LockUntil != nil && now.Before(*u.LockUntil)
}
