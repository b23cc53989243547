package domain

import "errors"

var (
	// ErrNotFound is returned when a user, role, or contact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrEmailExists is returned on unique-constraint violations for email columns.
	ErrEmailExists = errors.New("email already registered")
)
