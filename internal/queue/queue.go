// Package queue holds matched media in a buffered waiting state until their
// deletion becomes eligible, and tracks the outcome of each deletion.
package queue

import (
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// Status tracks a queue item's state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusError     Status = "error"
)

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled, StatusError},
	StatusCompleted: {},                // terminal
	StatusCancelled: {},                // terminal
	StatusError:     {StatusPending},   // explicit operator retry only
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	for _, v := range validTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status has no way back to pending.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Item is one queued deletion candidate. Items enter pending with an
// action_at eligibility time and leave through the sweep, a user save, or a
// delete-now. Rows are destroyed only by retention pruning.
type Item struct {
	ID         int64
	MediaID    int64
	MetadataID string
	Kind       media.Kind
	Title      string
	RuleID     *int64 // nil for manual entries

	// Episode is set for episode-kind items; the protection check at
	// deletion time needs it.
	Episode *media.EpisodeRef

	Status      Status
	ActionAt    time.Time
	IsDryRun    bool
	ErrorDetail string

	CreatedAt        time.Time
	LastTransitionAt time.Time
}

// Filter specifies criteria for listing queue items.
type Filter struct {
	Status   *Status
	RuleID   *int64
	MediaID  *int64
	DueBy    *time.Time // action_at <= DueBy
	DryRun   *bool
	Limit    int // 0 = no limit
}
