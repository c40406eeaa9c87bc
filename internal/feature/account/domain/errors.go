// Package domain defines domain-level errors for the account feature.
package domain

import "errors"

// Outcomes of account operations.
// Upper layers map these to user-facing messages; anything else is wrapped in ErrInternal.
var (
	// ErrUserNotFound indicates that no record matches the given id or email.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailInUse indicates that another record already owns the email.
	ErrEmailInUse = errors.New("email already in use")

	// ErrUnauthorized indicates that the current password supplied with a
	// profile mutation did not verify.
	ErrUnauthorized = errors.New("user not authenticated")

	// ErrInvalidPassword indicates that the password supplied at login did not verify.
	ErrInvalidPassword = errors.New("invalid password")

	// ErrPasswordNotProvided indicates that a password change request carried no new password.
	ErrPasswordNotProvided = errors.New("password not provided")

	// ErrInternal covers storage, hashing and token encoding failures.
	ErrInternal = errors.New("internal error")
)
