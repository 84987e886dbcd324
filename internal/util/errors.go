// internal/util/errors.go
package util

import "errors"

// Common application-specific errors.
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input provided")
	ErrDuplicateEntry   = errors.New("duplicate entry") // unique-key violation, e.g. a profile created by a concurrent request
	ErrProfileNotFound  = errors.New("profile not found")
	ErrConcurrentUpdate = errors.New("profile was modified concurrently")
	ErrUnauthorized     = errors.New("unauthorized")
)

// IsError reports whether err matches target anywhere in its chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
