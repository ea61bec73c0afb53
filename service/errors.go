package service

import "errors"

// The four recoverable error kinds. Everything the service returns to the
// API layer wraps one of these (or is an internal fault).
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
)
