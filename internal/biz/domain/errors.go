package domain

import "errors"

// Error kinds surfaced to API callers. Matched with errors.Is; lower layers
// wrap these with fmt.Errorf("...: %w", ...) to add context.
var (
	// ErrNotAuthenticated means no verified session exists for the account,
	// or none could be re-established.
	ErrNotAuthenticated = errors.New("account not authenticated")

	// ErrTransientConnection means a verified session exists but connect
	// attempts were exhausted. Retryable, unlike ErrNotAuthenticated.
	ErrTransientConnection = errors.New("connection attempts exhausted")

	// ErrEntityNotFound means resolution failed, including after the
	// cache-warm retry.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrPermissionDenied means the provider signalled an authorization
	// failure (not a member, admin rights required).
	ErrPermissionDenied = errors.New("permission denied")
)
