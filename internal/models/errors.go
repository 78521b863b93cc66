package models

import "errors"

// Sentinel errors for version store operations.
var (
	// ErrInvalidChangeNotes is returned by Save when change notes are empty.
	ErrInvalidChangeNotes = errors.New("change notes are required")

	// ErrInvalidChangeType is returned by Save for an unknown change type.
	ErrInvalidChangeType = errors.New("invalid change type")

	// ErrVersionNotFound is returned when a version id does not exist.
	ErrVersionNotFound = errors.New("version not found")

	// ErrCannotDeleteLatest is returned when deleting the current latest
	// version of a document; doing so would leave the chain without a
	// deterministic successor.
	ErrCannotDeleteLatest = errors.New("cannot delete the latest version")
)

// ErrMalformedSnapshot indicates a structurally invalid document snapshot
// (missing document id or a step without a step id).
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// ErrStoreUnavailable indicates the persistence backend failed. It is
// surfaced immediately and never swallowed.
var ErrStoreUnavailable = errors.New("store unavailable")
