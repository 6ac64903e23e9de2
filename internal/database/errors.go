package database

import "errors"

// Sentinel errors mapped to HTTP statuses by the boundary layer.
var (
	// ErrNotFound indicates the referenced row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the requesting account does not own the row.
	ErrForbidden = errors.New("forbidden")

	// ErrDuplicate indicates a uniqueness constraint violation, such as
	// a taken username.
	ErrDuplicate = errors.New("already exists")
)
