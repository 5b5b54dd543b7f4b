package models

import "errors"

var (
	// ErrValidation signals a malformed enum value, location payload or request field.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when an issue or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden signals an ownership or role guard failure.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals a state guard failure, such as editing an issue that is no longer Pending.
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized signals missing or bad credentials.
	ErrUnauthorized = errors.New("unauthorized")
)
