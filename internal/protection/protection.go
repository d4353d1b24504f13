// Package protection implements velocity-aware episode protection (VIPER):
// it tracks each viewer's watch pace per show, derives the range of episodes
// that must not be deleted while an active viewer still needs them, and
// schedules re-acquisition of protected episodes that are missing.
package protection

import (
	"time"
)

// Config holds the protection tunables. All fields are validated at config
// load time, not at each read.
type Config struct {
	// ActiveViewerDays is the recency window for a viewer to count as
	// active on a show. Inactive viewers do not influence protection.
	ActiveViewerDays int

	// MinEpisodesAhead is the floor of episodes kept ahead of every active
	// viewer's position regardless of velocity.
	MinEpisodesAhead int

	// VelocityBufferDays scales velocity into an ahead-buffer:
	// a viewer watching v episodes/day keeps v*VelocityBufferDays ahead.
	VelocityBufferDays int

	// MaxEpisodesAhead caps the ahead-buffer to bound storage for very
	// fast viewers.
	MaxEpisodesAhead int

	// MinVelocitySamples is the minimum number of watch events before a
	// computed velocity is trusted.
	MinVelocitySamples int

	// LookbackEpisodes is how many recent episodes feed the velocity
	// computation (an episode count, not calendar days).
	LookbackEpisodes int

	// DefaultVelocity is the conservative fallback (episodes/day) used when
	// the sample count is below MinVelocitySamples.
	DefaultVelocity float64

	// MinDaysSinceWatch delays deletion eligibility after the watch event
	// that made an episode eligible.
	MinDaysSinceWatch int

	// RequireAllUsersWatched makes an episode eligible only once every
	// active viewer has passed it; otherwise one viewer passing suffices.
	RequireAllUsersWatched bool

	// IncludeSpecials opts season 0 into protection.
	IncludeSpecials bool

	// WatchlistGraceDays fully protects anything added to a watchlist
	// within this window.
	WatchlistGraceDays int
}

// VelocitySample is one viewer's computed pace on one show.
type VelocitySample struct {
	ViewerID       string    `json:"viewer_id"`
	ShowID         int64     `json:"show_id"`
	Season         int       `json:"season"`
	Episode        int       `json:"episode"`
	Ordinal        int       `json:"ordinal"` // current position, absolute
	EpisodesPerDay float64   `json:"episodes_per_day"`
	SampleCount    int       `json:"sample_count"`
	Fallback       bool      `json:"fallback"` // true when below the sample threshold
	UpdatedAt      time.Time `json:"updated_at"`
}

// ViewerWindow is one active viewer's protection reasoning for a show.
type ViewerWindow struct {
	ViewerID         string    `json:"viewer_id"`
	Position         int       `json:"position"` // highest watched ordinal
	Velocity         float64   `json:"velocity"`
	ProtectedThrough int       `json:"protected_through"`
	LastWatchedAt    time.Time `json:"last_watched_at"`
}

// ShowProtection is the per-show result of one protection run: the floor no
// deletion may cross and the per-viewer reasoning behind it. It is
// recomputed each run; the stored copy exists for read-back and for the
// deletion-time guard.
type ShowProtection struct {
	ShowID int64 `json:"show_id"`

	// Floor is the highest protected ordinal: the maximum ProtectedThrough
	// across all active viewers.
	Floor int `json:"floor"`

	// EligibleThrough is the highest ordinal the watch positions make
	// eligible: the minimum position across active viewers when all must
	// have watched, the maximum otherwise.
	EligibleThrough int `json:"eligible_through"`

	Viewers    []ViewerWindow `json:"viewers"`
	ComputedAt time.Time      `json:"computed_at"`
}

// InViewerWindow reports whether the ordinal falls inside some active
// viewer's upcoming range (position exclusive, protected-through inclusive).
func (p *ShowProtection) InViewerWindow(ordinal int) bool {
	for _, v := range p.Viewers {
		if ordinal > v.Position && ordinal <= v.ProtectedThrough {
			return true
		}
	}
	return false
}

// Urgency of a redownload task.
type Urgency string

const (
	UrgencyNormal    Urgency = "normal"
	UrgencyEmergency Urgency = "emergency"
)

// TaskStatus tracks a redownload task's state.
type TaskStatus string

const (
	TaskPending   TaskStatus = "pending"
	TaskRequested TaskStatus = "requested"
	TaskFailed    TaskStatus = "failed"
)

// RedownloadTask is one pending re-acquisition of a protected episode.
type RedownloadTask struct {
	ID       int64      `json:"id"`
	ShowID   int64      `json:"show_id"`
	Season   int        `json:"season"`
	Episode  int        `json:"episode"`
	Ordinal  int        `json:"ordinal"`
	ViewerID string     `json:"viewer_id"` // governing viewer
	DueBy    time.Time  `json:"due_by"`
	Urgency  Urgency    `json:"urgency"`
	Status   TaskStatus `json:"status"`
	Detail   string     `json:"detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary reports one protection run.
type Summary struct {
	RunAt      time.Time        `json:"run_at"`
	DryRun     bool             `json:"dry_run"`
	Shows      []ShowProtection `json:"shows"`
	SamplesUpdated int          `json:"samples_updated"`

	// WindowsExpired counts stale protection windows removed because their
	// show no longer has any active viewer.
	WindowsExpired int `json:"windows_expired"`
}
