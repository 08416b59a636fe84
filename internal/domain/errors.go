package domain

import "errors"

// Failure taxonomy shared by every network-facing component. Callers check
// with errors.Is; components wrap these with context via fmt.Errorf and %w.
var (
	// ErrInvalidQuery means user input failed validation. Recoverable:
	// re-prompt without making any remote call.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrServiceUnavailable is a transient remote failure or timeout.
	// Surfaced to the caller untouched; the caller may retry with backoff.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuth means a credential was rejected. Fatal for the session until
	// credentials are replaced.
	ErrAuth = errors.New("authentication failed")

	// ErrConnection means a backend endpoint is unreachable. Fatal for the
	// current operation.
	ErrConnection = errors.New("connection failed")
)
