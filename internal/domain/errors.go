package domain

import "errors"

// Sentinel errors shared by services and adapters.
var (
	// ErrInvalidRequest marks malformed input that is rejected before evaluation.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotFound is returned by registries when the looked up entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a collaborator failure. Validation cannot produce a
	// verdict when it is returned.
	ErrUnavailable = errors.New("service unavailable")
)
