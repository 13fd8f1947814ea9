// Package common defines the sentinel errors shared across the ImageStore
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// ErrInvalidInput marks caller-fixable validation failures: missing
	// fields, an empty tag list, a malformed pagination cursor or payload
	// encoding. Reported before any write is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when no image record exists for an id.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable marks transient backing-store failures. The
	// caller may retry the whole operation; nothing is retried internally.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrPartiallyPersisted means a multi-step write stopped after the blob
	// was stored but before the record and tag index were fully written.
	// The blob/record/index triad needs reconciliation; retrying as-is
	// will not repair it.
	ErrPartiallyPersisted = errors.New("partially persisted")
)
