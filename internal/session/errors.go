package session

import "errors"

// Sentinel errors for session operations, checked with errors.Is().
var (
	// ErrSessionNotFound indicates the session id is not in the index.
	// Only Append returns it; reads on unknown ids yield empty results.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAttachmentNotFound indicates a turn's attachment reference
	// does not resolve to a stored file.
	ErrAttachmentNotFound = errors.New("attachment not found")

	// ErrStorage indicates a durable read or write failed. The
	// previously persisted state is left unchanged.
	ErrStorage = errors.New("session storage failure")

	// ErrInvalidName indicates an owner, feature or session id that
	// cannot be used as a path component.
	ErrInvalidName = errors.New("invalid name")
)
