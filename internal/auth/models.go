package auth

import (
	"time"

	"github.com/google/uuid"
)

// User represents an account that owns files and folders.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SafeUser removes sensitive fields for response payloads.
func (u User) SafeUser() User {
	u.PasswordHash = ""
	return u
}

// AccessToken is a signed bearer token and its expiry.
type AccessToken struct {
	Token     string
	ExpiresAt time.Time
}

// ProfilePatch carries the fields a user asked to change. Empty fields are ignored.
type ProfilePatch struct {
	Username string
	Email    string
	Password string
}

// UpdateOutcome reports whether a profile patch changed anything.
type UpdateOutcome int

const (
	// Updated means at least one field was written.
	Updated UpdateOutcome = iota
	// NothingChanged means every supplied field matched the stored value.
	NothingChanged
)

func (o UpdateOutcome) String() string {
	if o == NothingChanged {
		return "nothing_changed"
	}
	return "updated"
}
