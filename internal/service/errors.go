package service

import (
	"errors"

	"github.com/alechenninger/keymint/internal/keys"
)

// Error kinds surfaced to callers. Every error leaving the engine wraps one
// of these; repository and credential-store internals never leak through.
var (
	// ErrInvalidParameter covers malformed input: non-positive durations,
	// non-positive key ids, disallowed key sizes, unknown algorithms.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConflict means the requested key id already exists for the tenant
	ErrConflict = errors.New("a key with this key_id already exists for this tenant")

	// ErrNotFound means the addressed record does not exist
	ErrNotFound = errors.New("key not found")

	// ErrAllocationExhausted means the id allocator gave up within its
	// attempt budget. Retryable.
	ErrAllocationExhausted = keys.ErrAllocationExhausted

	// ErrStorageFailure covers repository I/O failures not otherwise
	// classified. Retryable.
	ErrStorageFailure = errors.New("storage failure")
)

// Retryable reports whether the caller may safely retry the operation with
// the same input. All other kinds are deterministic and will repeat.
func Retryable(err error) bool {
	return errors.Is(err, ErrAllocationExhausted) || errors.Is(err, ErrStorageFailure)
}
