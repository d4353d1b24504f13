package protection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vmunix/prunarr/internal/integration"
	"github.com/vmunix/prunarr/internal/media"
)

// Calculator derives per-show protection floors from viewer velocity and
// answers the deletion-time guard question: may this item be deleted now?
type Calculator struct {
	store    *Store
	tracker  *Tracker
	requests integration.Requests // may be nil; watchlist grace then relies on the snapshot flag
	cfg      Config
	logger   *slog.Logger
}

// NewCalculator creates a protection calculator.
func NewCalculator(store *Store, tracker *Tracker, requests integration.Requests, cfg Config, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		store:    store,
		tracker:  tracker,
		requests: requests,
		cfg:      cfg,
		logger:   logger.With("component", "protection"),
	}
}

// Run recomputes velocity samples and protection windows for every show with
// at least one active viewer. In dry-run mode nothing is persisted; the
// summary is a preview.
func (c *Calculator) Run(ctx context.Context, dryRun bool) (*Summary, error) {
	now := time.Now()
	since := now.AddDate(0, 0, -c.cfg.ActiveViewerDays)

	shows, err := c.store.ActiveShows(since)
	if err != nil {
		return nil, fmt.Errorf("protection run: %w", err)
	}

	summary := &Summary{RunAt: now, DryRun: dryRun}
	protected := make(map[int64]bool, len(shows))
	for _, showID := range shows {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		prot, samples, err := c.computeShow(showID, since, now)
		if err != nil {
			c.logger.Error("show protection failed", "show_id", showID, "error", err)
			// Keep the old window rather than dropping protection on a
			// transient failure.
			protected[showID] = true
			continue
		}
		if prot == nil {
			continue
		}
		protected[showID] = true
		summary.Shows = append(summary.Shows, *prot)
		summary.SamplesUpdated += len(samples)

		if dryRun {
			continue
		}
		for _, sample := range samples {
			if err := c.store.UpsertSample(sample); err != nil {
				c.logger.Error("save velocity sample failed", "show_id", showID, "viewer", sample.ViewerID, "error", err)
			}
		}
		if err := c.store.SaveProtection(prot); err != nil {
			c.logger.Error("save protection failed", "show_id", showID, "error", err)
		}
	}

	if !dryRun {
		expired, err := c.expireStale(protected)
		if err != nil {
			c.logger.Error("expire stale windows failed", "error", err)
		}
		summary.WindowsExpired = expired
	}

	c.logger.Info("protection run finished",
		"shows", len(summary.Shows),
		"samples", summary.SamplesUpdated,
		"expired", summary.WindowsExpired,
		"dry_run", dryRun)
	return summary, nil
}

// expireStale removes stored protection windows for shows that no longer
// have an active viewer. A window only ever reflects the latest run.
func (c *Calculator) expireStale(protected map[int64]bool) (int, error) {
	prots, err := c.store.Protections()
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, p := range prots {
		if protected[p.ShowID] {
			continue
		}
		if err := c.store.DeleteProtection(p.ShowID); err != nil {
			c.logger.Error("delete stale window failed", "show_id", p.ShowID, "error", err)
			continue
		}
		c.logger.Info("protection window expired", "show_id", p.ShowID)
		expired++
	}
	return expired, nil
}

// computeShow builds the protection window for one show from its active
// viewers. Returns nil when no viewer qualifies.
func (c *Calculator) computeShow(showID int64, since, now time.Time) (*ShowProtection, []*VelocitySample, error) {
	viewers, err := c.store.ActiveViewers(showID, since)
	if err != nil {
		return nil, nil, err
	}
	if len(viewers) == 0 {
		return nil, nil, nil
	}

	prot := &ShowProtection{ShowID: showID, ComputedAt: now}
	var samples []*VelocitySample

	minPos, maxPos := math.MaxInt, 0
	for _, viewer := range viewers {
		sample, err := c.tracker.Compute(viewer, showID)
		if err != nil {
			if errors.Is(err, ErrNoHistory) {
				continue
			}
			return nil, nil, err
		}
		samples = append(samples, sample)

		through := protectedThrough(sample.Ordinal, sample.EpisodesPerDay, c.cfg)
		pos, err := c.store.Position(viewer, showID, c.cfg.IncludeSpecials)
		if err != nil {
			return nil, nil, err
		}

		prot.Viewers = append(prot.Viewers, ViewerWindow{
			ViewerID:         viewer,
			Position:         sample.Ordinal,
			Velocity:         sample.EpisodesPerDay,
			ProtectedThrough: through,
			LastWatchedAt:    pos.WatchedAt,
		})
		if through > prot.Floor {
			prot.Floor = through
		}
		if sample.Ordinal < minPos {
			minPos = sample.Ordinal
		}
		if sample.Ordinal > maxPos {
			maxPos = sample.Ordinal
		}
	}
	if len(prot.Viewers) == 0 {
		return nil, nil, nil
	}

	if c.cfg.RequireAllUsersWatched {
		prot.EligibleThrough = minPos
	} else {
		prot.EligibleThrough = maxPos
	}
	return prot, samples, nil
}

// protectedThrough is the highest ordinal one viewer still needs: at least
// MinEpisodesAhead past their position, more for fast viewers, capped by
// MaxEpisodesAhead.
func protectedThrough(position int, velocity float64, cfg Config) int {
	ahead := cfg.MinEpisodesAhead
	byVelocity := int(math.Ceil(velocity * float64(cfg.VelocityBufferDays)))
	if byVelocity > ahead {
		ahead = byVelocity
	}
	if ahead > cfg.MaxEpisodesAhead {
		ahead = cfg.MaxEpisodesAhead
	}
	return position + ahead
}

// Decision explains one protection check.
type Decision struct {
	Protected bool   `json:"protected"`
	Reason    string `json:"reason"`
}

// Check reports whether the item may be deleted right now. It is consulted
// together with the queue buffer before any delete action executes; a
// protected item's queue entry stays pending.
func (c *Calculator) Check(ctx context.Context, item *media.Item, now time.Time) (Decision, error) {
	if ok, d, err := c.watchlistGrace(ctx, item, now); err != nil {
		return Decision{}, err
	} else if ok {
		return d, nil
	}

	switch item.Kind {
	case media.KindMovie:
		return Decision{Protected: false, Reason: "not protected"}, nil

	case media.KindShow, media.KindSeason:
		// Deleting a show or season removes every episode in it, so any
		// active protection on the show blocks it.
		prot, err := c.store.Protection(item.ID)
		if err != nil {
			return Decision{}, err
		}
		if prot != nil && len(prot.Viewers) > 0 {
			return Decision{Protected: true, Reason: fmt.Sprintf("show has %d active viewer(s)", len(prot.Viewers))}, nil
		}
		return Decision{Protected: false, Reason: "no active viewers"}, nil

	case media.KindEpisode:
		if item.Episode == nil {
			return Decision{Protected: false, Reason: "no episode reference"}, nil
		}
		return c.checkEpisode(item.Episode, now)
	}
	return Decision{Protected: false, Reason: "not protected"}, nil
}

func (c *Calculator) checkEpisode(ref *media.EpisodeRef, now time.Time) (Decision, error) {
	if ref.Season == 0 && !c.cfg.IncludeSpecials {
		return Decision{Protected: false, Reason: "specials not protected"}, nil
	}

	prot, err := c.store.Protection(ref.ShowID)
	if err != nil {
		return Decision{}, err
	}
	if prot == nil || len(prot.Viewers) == 0 {
		return Decision{Protected: false, Reason: "no active viewers"}, nil
	}

	if prot.InViewerWindow(ref.Ordinal) {
		return Decision{Protected: true, Reason: fmt.Sprintf("within protection floor %d", prot.Floor)}, nil
	}
	if ref.Ordinal > prot.EligibleThrough {
		return Decision{Protected: true, Reason: "not yet watched by required viewers"}, nil
	}

	// The episode is behind every required viewer; hold it for the
	// configured cool-off after the watch event that made it eligible.
	if c.cfg.MinDaysSinceWatch > 0 {
		held, err := c.withinWatchCooloff(prot, ref, now)
		if err != nil {
			return Decision{}, err
		}
		if held {
			return Decision{Protected: true, Reason: fmt.Sprintf("watched less than %d day(s) ago", c.cfg.MinDaysSinceWatch)}, nil
		}
	}
	return Decision{Protected: false, Reason: "behind all required viewers"}, nil
}

// withinWatchCooloff reports whether the eligibility-triggering watch event
// is younger than MinDaysSinceWatch. With require-all the trigger is the
// last required viewer to pass the episode; otherwise the first.
func (c *Calculator) withinWatchCooloff(prot *ShowProtection, ref *media.EpisodeRef, now time.Time) (bool, error) {
	times, err := c.store.WatchedAt(ref.ShowID, ref.Ordinal)
	if err != nil {
		return false, err
	}

	var trigger time.Time
	for _, v := range prot.Viewers {
		at, ok := times[v.ViewerID]
		if !ok {
			continue
		}
		if trigger.IsZero() {
			trigger = at
			continue
		}
		if c.cfg.RequireAllUsersWatched {
			if at.After(trigger) {
				trigger = at
			}
		} else if at.Before(trigger) {
			trigger = at
		}
	}
	if trigger.IsZero() {
		return false, nil
	}
	return now.Sub(trigger).Hours()/24 < float64(c.cfg.MinDaysSinceWatch), nil
}

func (c *Calculator) watchlistGrace(ctx context.Context, item *media.Item, now time.Time) (bool, Decision, error) {
	if c.cfg.WatchlistGraceDays <= 0 {
		return false, Decision{}, nil
	}
	if c.requests == nil {
		// No request tracker configured; the snapshot flag alone grants
		// the full grace period.
		if item.OnWatchlist {
			return true, Decision{Protected: true, Reason: "on watchlist"}, nil
		}
		return false, Decision{}, nil
	}
	addedAt, err := c.requests.WatchlistAddedAt(ctx, item.MetadataID)
	if err != nil {
		return false, Decision{}, fmt.Errorf("watchlist lookup: %w", err)
	}
	if addedAt == nil {
		return false, Decision{}, nil
	}
	if now.Sub(*addedAt).Hours()/24 < float64(c.cfg.WatchlistGraceDays) {
		return true, Decision{Protected: true, Reason: "watchlist grace period"}, nil
	}
	return false, Decision{}, nil
}
