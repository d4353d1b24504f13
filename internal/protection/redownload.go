package protection

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/integration"
	"github.com/vmunix/prunarr/internal/media"
)

// RedownloadConfig holds the re-acquisition tunables.
type RedownloadConfig struct {
	// LeadDays is how far before a viewer needs an episode its
	// re-acquisition is triggered.
	LeadDays float64

	// EmergencyBufferHours escalates a task to emergency urgency when the
	// viewer is this close to needing the episode.
	EmergencyBufferHours float64

	// VelocityChangeThresholdPercent triggers an out-of-cycle recomputation
	// when a viewer's pace swings this much against the stored baseline.
	VelocityChangeThresholdPercent float64
}

// RedownloadScheduler re-acquires protected episodes that were deleted
// before a slower viewer reached them.
type RedownloadScheduler struct {
	store   *Store
	tracker *Tracker
	server  integration.MediaServer
	tv      integration.Manager
	bus     *events.Bus
	cfg     RedownloadConfig
	logger  *slog.Logger
}

// NewRedownloadScheduler creates a redownload scheduler.
func NewRedownloadScheduler(store *Store, tracker *Tracker, server integration.MediaServer,
	tv integration.Manager, bus *events.Bus, cfg RedownloadConfig, logger *slog.Logger) *RedownloadScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedownloadScheduler{
		store:   store,
		tracker: tracker,
		server:  server,
		tv:      tv,
		bus:     bus,
		cfg:     cfg,
		logger:  logger.With("component", "redownload"),
	}
}

// Run checks every protected show for missing episodes and triggers
// re-acquisition for those a viewer will need within the lead time.
// Failures are isolated per episode.
func (r *RedownloadScheduler) Run(ctx context.Context) error {
	if r.server == nil || r.tv == nil {
		return fmt.Errorf("redownload run: %w", integration.ErrUnavailable)
	}

	prots, err := r.store.Protections()
	if err != nil {
		return fmt.Errorf("redownload run: %w", err)
	}

	now := time.Now()
	var lastErr error
	for _, prot := range prots {
		missing, err := r.server.MissingEpisodes(ctx, prot.ShowID, prot.Floor)
		if err != nil {
			r.logger.Error("missing episode lookup failed", "show_id", prot.ShowID, "error", err)
			lastErr = err
			continue
		}
		for _, ref := range missing {
			if err := r.checkEpisode(ctx, prot, ref.Season, ref.Episode, ref.Ordinal, now); err != nil {
				r.logger.Error("redownload check failed",
					"show_id", prot.ShowID, "ordinal", ref.Ordinal, "error", err)
				lastErr = err
			}
		}
	}
	return lastErr
}

// checkEpisode computes days-until-needed for the governing viewer and, when
// inside the lead window, creates and fires a redownload task.
func (r *RedownloadScheduler) checkEpisode(ctx context.Context, prot *ShowProtection, season, episode, ordinal int, now time.Time) error {
	viewer, daysUntil := governingViewer(prot, ordinal)
	if viewer == "" {
		// Nobody is approaching this episode.
		return nil
	}

	urgency := UrgencyNormal
	switch {
	case daysUntil <= r.cfg.EmergencyBufferHours/24:
		urgency = UrgencyEmergency
	case daysUntil <= r.cfg.LeadDays:
	default:
		return nil
	}

	task := &RedownloadTask{
		ShowID:   prot.ShowID,
		Season:   season,
		Episode:  episode,
		Ordinal:  ordinal,
		ViewerID: viewer,
		DueBy:    now.Add(time.Duration(daysUntil * 24 * float64(time.Hour))),
		Urgency:  urgency,
		Status:   TaskPending,
	}
	if err := r.store.AddTask(task); err != nil {
		return err
	}
	if task.Status != TaskPending {
		// An open task already covers this episode.
		return nil
	}

	ref := media.EpisodeRef{ShowID: prot.ShowID, Season: season, Episode: episode, Ordinal: ordinal}
	if err := r.tv.Request(ctx, ref); err != nil {
		_ = r.store.UpdateTaskStatus(task.ID, TaskFailed, err.Error())
		r.publish(ctx, &events.ServiceDown{
			BaseEvent: events.NewBaseEvent(events.EventServiceDown, events.EntityService, 0),
			Service:   "tv_manager",
			Detail:    err.Error(),
		})
		return fmt.Errorf("request episode: %w", err)
	}
	if err := r.store.UpdateTaskStatus(task.ID, TaskRequested, ""); err != nil {
		return err
	}

	r.logger.Info("redownload requested",
		"show_id", prot.ShowID, "season", season, "episode", episode,
		"viewer", viewer, "urgency", urgency, "days_until_needed", daysUntil)
	r.publish(ctx, &events.RedownloadRequested{
		BaseEvent: events.NewBaseEvent(events.EventRedownloadRequested, events.EntityEpisode, prot.ShowID),
		ShowID:    prot.ShowID,
		Season:    season,
		Episode:   episode,
		Viewer:    viewer,
		Urgency:   string(urgency),
	})
	return nil
}

// governingViewer is the active viewer who reaches the ordinal first, with
// their projected days until they need it.
func governingViewer(prot *ShowProtection, ordinal int) (string, float64) {
	best := ""
	bestDays := math.Inf(1)
	for _, v := range prot.Viewers {
		if v.Position >= ordinal || v.Velocity <= 0 {
			continue
		}
		days := float64(ordinal-v.Position) / v.Velocity
		if days < bestDays {
			best = v.ViewerID
			bestDays = days
		}
	}
	return best, bestDays
}

// CheckVelocityChanges recomputes every stored sample and reports whether
// any viewer's pace swung past the configured threshold. A binge session can
// invalidate the last schedule within hours, so a swing triggers an
// out-of-cycle Run instead of waiting for the normal interval.
func (r *RedownloadScheduler) CheckVelocityChanges(ctx context.Context) (bool, error) {
	samples, err := r.store.Samples()
	if err != nil {
		return false, fmt.Errorf("velocity check: %w", err)
	}

	changed := false
	for _, baseline := range samples {
		if ctx.Err() != nil {
			return changed, ctx.Err()
		}
		current, err := r.tracker.Compute(baseline.ViewerID, baseline.ShowID)
		if err != nil {
			r.logger.Error("velocity recompute failed",
				"viewer", baseline.ViewerID, "show_id", baseline.ShowID, "error", err)
			continue
		}
		if baseline.EpisodesPerDay > 0 {
			swing := math.Abs(current.EpisodesPerDay-baseline.EpisodesPerDay) / baseline.EpisodesPerDay * 100
			if swing > r.cfg.VelocityChangeThresholdPercent {
				r.logger.Info("velocity swing detected",
					"viewer", baseline.ViewerID, "show_id", baseline.ShowID,
					"baseline", baseline.EpisodesPerDay, "current", current.EpisodesPerDay)
				changed = true
			}
		}
		if err := r.store.UpsertSample(current); err != nil {
			r.logger.Error("save velocity sample failed",
				"viewer", baseline.ViewerID, "show_id", baseline.ShowID, "error", err)
		}
	}
	return changed, nil
}

func (r *RedownloadScheduler) publish(ctx context.Context, e events.Event) {
	if r.bus != nil {
		_ = r.bus.Publish(ctx, e)
	}
}
