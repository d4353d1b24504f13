// Package media defines the read-only media item snapshots the decision
// core evaluates. Snapshots are supplied by the media-server collaborator
// and are never mutated here.
package media

import "time"

// Kind is the type of library entry.
type Kind string

const (
	KindMovie   Kind = "movie"
	KindShow    Kind = "show"
	KindSeason  Kind = "season"
	KindEpisode Kind = "episode"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMovie, KindShow, KindSeason, KindEpisode:
		return true
	}
	return false
}

// Item is a point-in-time snapshot of one library entry.
type Item struct {
	ID         int64  // library id
	MetadataID string // external metadata id (tmdb/tvdb)
	Library    string
	Kind       Kind
	Title      string

	Watched       bool
	ViewCount     int
	LastWatchedAt *time.Time
	AddedAt       time.Time

	Rating        float64
	Genres        []string
	ContentRating string
	FileSizeBytes int64

	Monitored        bool
	HasActiveRequest bool
	OnWatchlist      bool

	// Episode is set for KindEpisode items only.
	Episode *EpisodeRef
}

// EpisodeRef identifies one episode within a show. Ordinal is the absolute
// episode number, the unit protection arithmetic uses.
type EpisodeRef struct {
	ShowID  int64
	Season  int
	Episode int
	Ordinal int
}

// DaysSinceWatched returns full days since the item was last watched,
// or false if it was never watched.
func (i *Item) DaysSinceWatched(now time.Time) (float64, bool) {
	if i.LastWatchedAt == nil {
		return 0, false
	}
	return now.Sub(*i.LastWatchedAt).Hours() / 24, true
}

// DaysSinceAdded returns full days since the item entered the library.
func (i *Item) DaysSinceAdded(now time.Time) float64 {
	return now.Sub(i.AddedAt).Hours() / 24
}
