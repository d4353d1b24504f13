// Package integration declares the collaborator capabilities the decision
// core consumes, plus the concrete Plex, Sonarr, Radarr, and Overseerr
// clients backing them. Tests use the generated mocks.
package integration

import (
	"context"
	"errors"
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

//go:generate mockgen -source=integration.go -destination=mocks/integration.go -package=mocks

// Sentinel errors for collaborator calls.
var (
	// ErrUnavailable is returned when a collaborator cannot be reached or is
	// not configured.
	ErrUnavailable = errors.New("collaborator unavailable")
)

// MediaServer reads library state and watch history, and performs library
// writes.
type MediaServer interface {
	// Items returns current snapshots of the given kind, all libraries if
	// library is empty.
	Items(ctx context.Context, library string, kind media.Kind) ([]*media.Item, error)

	// WatchHistory returns watch events recorded after since.
	WatchHistory(ctx context.Context, since time.Time) ([]media.WatchEvent, error)

	// MissingEpisodes returns episodes of the show up to and including the
	// given ordinal that have no file in the library.
	MissingEpisodes(ctx context.Context, showID int64, throughOrdinal int) ([]media.EpisodeRef, error)

	AddToCollection(ctx context.Context, mediaID int64, collection string) error
	AddTag(ctx context.Context, mediaID int64, tag string) error
	DeleteItem(ctx context.Context, mediaID int64) error
	DeleteFiles(ctx context.Context, mediaID int64) error
}

// Manager is a download manager for one kind of content (TV or movie).
type Manager interface {
	Unmonitor(ctx context.Context, metadataID string) error

	// Delete removes the title from the manager, optionally deleting files
	// and excluding it from automatic re-import.
	Delete(ctx context.Context, metadataID string, deleteFiles, addExclusion bool) error

	// Request triggers acquisition of one episode (re-download of previously
	// deleted content). For movies the ref carries only the show id.
	Request(ctx context.Context, ref media.EpisodeRef) error
}

// Requests reads and clears pending request records and watchlist membership.
type Requests interface {
	ClearRequest(ctx context.Context, mediaID int64) error

	// WatchlistAddedAt returns when the title entered any watchlist, or nil
	// if it is on none.
	WatchlistAddedAt(ctx context.Context, metadataID string) (*time.Time, error)
}
