package queue

import "errors"

// Sentinel errors for the queue package.
var (
	// ErrNotFound is returned when a queue item does not exist.
	ErrNotFound = errors.New("queue item not found")

	// ErrInvalidTransition is returned for a state change the machine forbids.
	ErrInvalidTransition = errors.New("invalid queue transition")
)
