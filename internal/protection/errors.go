package protection

import "errors"

// Sentinel errors for the protection package.
var (
	// ErrNoHistory is returned when a viewer has no watch events for a show.
	ErrNoHistory = errors.New("no watch history")

	// ErrNotFound is returned when a protection or task record does not exist.
	ErrNotFound = errors.New("record not found")
)
