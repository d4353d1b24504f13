package media

import "time"

// WatchEvent records one viewer finishing one episode. Events are append-only
// and are the source of truth for watch velocity.
type WatchEvent struct {
	ID       int64
	ViewerID string
	ShowID   int64
	Season   int
	Episode  int
	// Ordinal is the absolute episode number within the show, the unit all
	// protection arithmetic uses.
	Ordinal   int
	WatchedAt time.Time
}
