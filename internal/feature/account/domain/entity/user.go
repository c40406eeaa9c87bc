// Package entity defines the domain entities for the account feature.
package entity

import "time"

// User is a registered account together with its credential material.
type User struct {
	// ID is an opaque 128-bit identifier in canonical UUID form. Immutable.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// Email is unique across all live records and doubles as the login key.
	Email string `json:"email"`

	// PasswordHash is the self-describing encoded hash of the password.
	// It must never leave the server.
	PasswordHash string `json:"hashed_password"`

	// Salt is generated once at creation and never changes.
	Salt string `json:"salt"`

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// UpdateProfile replaces the name and email and advances UpdatedAt.
func (u *User) UpdateProfile(name, email string, now time.Time) {
	u.Name = name
	u.Email = email
	u.UpdatedAt = now
}

// UpdatePasswordHash stores a new hash and advances UpdatedAt. The salt is kept.
func (u *User) UpdatePasswordHash(hash string, now time.Time) {
	u.PasswordHash = hash
	u.UpdatedAt = now
}

// Projection is the display-safe subset of a User returned to clients.
// Email is omitted from the JSON payload when empty.
type Projection struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Public returns the full projection (id, name, email).
func (u *User) Public() Projection {
	return Projection{ID: u.ID, Name: u.Name, Email: u.Email}
}

// PublicWithoutEmail returns the projection used for lookups by id, which
// withholds the email address.
func (u *User) PublicWithoutEmail() Projection {
	return Projection{ID: u.ID, Name: u.Name}
}
