package application

import "errors"

// Failure kinds surfaced by the service. Every operation returns either a
// success payload or an error wrapping exactly one of these sentinels, so
// the transport layer can map kinds to status codes with errors.Is.
var (
	// ErrConflict reports a duplicate username or email.
	ErrConflict = errors.New("conflict")
	// ErrNotFound reports that no user matches the given key.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput reports a policy violation in the request payload.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized reports bad credentials or an invalid, expired, or
	// revoked token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInternal reports an unexpected store failure. The cause is
	// logged, never forwarded to the client.
	ErrInternal = errors.New("internal error")
)
