package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrMissingSociety occurs when a tenant-scoped request carries no society id.
	ErrMissingSociety = errors.New("society id required")
)
