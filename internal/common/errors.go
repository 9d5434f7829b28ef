// Package common defines shared constants and sentinel errors used across
// the onboarding service. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Lifecycle errors.
	ErrIllegalTransition = errors.New("illegal transition")
	ErrTerminalState     = errors.New("terminal state violation")

	// Ingestion errors.
	ErrMalformedTable = errors.New("malformed table")
	ErrMissingColumns = errors.New("missing columns")

	// Infrastructure errors.
	ErrStorage   = errors.New("storage failure")
	ErrTransport = errors.New("transport failure")

	// Chat binding errors.
	ErrAlreadyBound = errors.New("invitation code is bound to another chat")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// IsDomain reports whether err is an expected domain outcome that should be
// reported to the user rather than treated as an infrastructure failure.
func IsDomain(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrAlreadyExists, ErrIllegalTransition, ErrTerminalState,
		ErrMalformedTable, ErrMissingColumns, ErrAlreadyBound, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
