package protection

import (
	"fmt"
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// Tracker computes watch velocity from recorded watch events.
type Tracker struct {
	store *Store
	cfg   Config
}

// NewTracker creates a velocity tracker.
func NewTracker(store *Store, cfg Config) *Tracker {
	return &Tracker{store: store, cfg: cfg}
}

// Compute derives the viewer's current velocity sample for a show from the
// most recent LookbackEpisodes watch events.
//
// Below MinVelocitySamples events the computed pace is noise, so the sample
// carries the configured DefaultVelocity instead of an extrapolation and is
// marked as a fallback.
func (t *Tracker) Compute(viewerID string, showID int64) (*VelocitySample, error) {
	events, err := t.store.RecentEvents(viewerID, showID, t.cfg.LookbackEpisodes, t.cfg.IncludeSpecials)
	if err != nil {
		return nil, fmt.Errorf("compute velocity: %w", err)
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("compute velocity for %s on show %d: %w", viewerID, showID, ErrNoHistory)
	}

	pos, err := t.store.Position(viewerID, showID, t.cfg.IncludeSpecials)
	if err != nil {
		return nil, fmt.Errorf("compute velocity: %w", err)
	}

	sample := &VelocitySample{
		ViewerID:    viewerID,
		ShowID:      showID,
		Season:      pos.Season,
		Episode:     pos.Episode,
		Ordinal:     pos.Ordinal,
		SampleCount: len(events),
		UpdatedAt:   time.Now(),
	}

	sample.EpisodesPerDay, sample.Fallback = t.rate(events)
	return sample, nil
}

// rate computes episodes/day over the window, or the configured fallback.
// Events arrive newest first.
func (t *Tracker) rate(events []media.WatchEvent) (float64, bool) {
	if len(events) < t.cfg.MinVelocitySamples || len(events) < 2 {
		return t.cfg.DefaultVelocity, true
	}

	newest := events[0].WatchedAt
	oldest := events[len(events)-1].WatchedAt
	days := newest.Sub(oldest).Hours() / 24
	if days <= 0 {
		// Whole window inside one day reads as a binge; treat the span as
		// one day rather than dividing by zero.
		days = 1
	}
	return float64(len(events)) / days, false
}
