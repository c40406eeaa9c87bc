// Package usecase implements the business logic for the account feature.
package usecase

import "errors"

// Errors returned by every UserStore implementation.
var (
	// ErrUserNotFound is returned when a user cannot be found by email or ID.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailAlreadyExists is returned when an insert or replace would give two records the same email.
	ErrEmailAlreadyExists = errors.New("email already exists")
)
