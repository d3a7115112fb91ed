package domain

import "errors"

var (
	// ErrNotFound indicates that a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrForbidden indicates that the actor may not perform the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConfiguration indicates the organization is missing required setup
	// (e.g. no usable messaging numbers). Not retryable; requires an operator.
	ErrConfiguration = errors.New("configuration error")
	// ErrDuplicateEntry indicates a unique constraint violation.
	ErrDuplicateEntry = errors.New("duplicate entry")
	// ErrInvalidState indicates an operation against an entity in the wrong
	// lifecycle state, e.g. force-sending a message that was never blocked.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation indicates malformed or missing caller input.
	ErrValidation = errors.New("validation error")
	// ErrProvider indicates the external SMS provider call failed. The
	// message event is marked failed; the caller retries manually.
	ErrProvider = errors.New("provider send failed")
)
