// internal/service/errors.go
package service

import "errors"

var (
	// ErrAllocationExhausted means code generation collided on every attempt
	// of the create loop. Fatal to that create call; no higher-level retry.
	ErrAllocationExhausted = errors.New("lobby: could not allocate a unique code")
	// ErrLobbyNotFound covers join/fetch against a code that matches no
	// lobby. Callers should prompt for the code again.
	ErrLobbyNotFound = errors.New("lobby: not found")
	// ErrStoreUnavailable means the store is misconfigured or unreachable.
	ErrStoreUnavailable = errors.New("lobby: store unavailable")
	// ErrConstraintViolation is a unique or foreign-key violation that no
	// operation handles explicitly.
	ErrConstraintViolation = errors.New("lobby: constraint violation")
)
