package model

import "errors"

// Sentinel error kinds shared by every layer. Wrap with %w so callers can
// branch with errors.Is.
var (
	// ErrInvalidContest marks a malformed contest window.
	ErrInvalidContest = errors.New("invalid contest configuration")
	// ErrDataAccess marks a failed read against the run store.
	ErrDataAccess = errors.New("data access failed")
	// ErrNotFound marks a contest that does not exist.
	ErrNotFound = errors.New("not found")
)
