package protection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vmunix/prunarr/internal/integration"
)

// HistorySync pulls watch history from the media server into the local
// store. The store ignores duplicates, so overlapping windows are safe.
type HistorySync struct {
	server integration.MediaServer
	store  *Store
	logger *slog.Logger

	mu       sync.Mutex
	lastSync time.Time
}

// NewHistorySync creates a history syncer. The first Sync pulls lookback
// worth of history; later ones pull from the previous sync with an hour of
// overlap.
func NewHistorySync(server integration.MediaServer, store *Store, lookback time.Duration, logger *slog.Logger) *HistorySync {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistorySync{
		server:   server,
		store:    store,
		logger:   logger.With("component", "historysync"),
		lastSync: time.Now().Add(-lookback),
	}
}

// Sync fetches and stores new watch events.
func (h *HistorySync) Sync(ctx context.Context) (int, error) {
	h.mu.Lock()
	since := h.lastSync.Add(-time.Hour)
	h.mu.Unlock()

	events, err := h.server.WatchHistory(ctx, since)
	if err != nil {
		return 0, fmt.Errorf("watch history: %w", err)
	}
	if err := h.store.AddWatchEvents(events); err != nil {
		return 0, err
	}

	h.mu.Lock()
	h.lastSync = time.Now()
	h.mu.Unlock()

	if len(events) > 0 {
		h.logger.Info("watch history synced", "events", len(events), "since", since)
	}
	return len(events), nil
}
