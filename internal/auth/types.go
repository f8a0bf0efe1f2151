package auth

import "time"

// Status is the lifecycle state of a principal. Only confirmed
// principals may authenticate or refresh tokens.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusArchived    Status = "archived"
)

// Valid reports whether s is one of the known states.
func (s Status) Valid() bool {
	switch s {
	case StatusUnconfirmed, StatusConfirmed, StatusArchived:
		return true
	}
	return false
}

// Principal is the resolved identity of a caller after successful
// authentication.
type Principal struct {
	ID           string
	Email        string
	PasswordHash string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the principal may hold a session.
func (p *Principal) Active() bool {
	return p != nil && p.Status == StatusConfirmed
}

// Group is a named collection of roles a principal can belong to.
type Group struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Role is a named collection of permissions.
type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Permission is an atomic named capability, e.g. "wish:create".
// Names are matched case-sensitively with no wildcard semantics.
type Permission struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
