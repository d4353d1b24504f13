package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vmunix/prunarr/internal/media"
)

// RadarrClient implements Manager for movie content against the Radarr v3
// API.
type RadarrClient struct {
	arr arrClient
	log *slog.Logger
}

// NewRadarrClient creates a new Radarr client.
func NewRadarrClient(baseURL, apiKey string, log *slog.Logger) *RadarrClient {
	if log == nil {
		log = slog.Default()
	}
	return &RadarrClient{
		arr: newArrClient(baseURL, apiKey),
		log: log.With("component", "radarr"),
	}
}

type radarrMovie struct {
	ID        int64  `json:"id"`
	TMDBID    int64  `json:"tmdbId"`
	Title     string `json:"title"`
	Monitored bool   `json:"monitored"`
}

func (c *RadarrClient) movie(ctx context.Context, metadataID string) (*radarrMovie, error) {
	tmdbID, err := externalID(metadataID)
	if err != nil {
		return nil, err
	}

	var list []radarrMovie
	if err := c.arr.request(ctx, http.MethodGet, "/api/v3/movie", nil, &list); err != nil {
		return nil, fmt.Errorf("radarr: list movies: %w", err)
	}
	for i := range list {
		if list[i].TMDBID == tmdbID || list[i].ID == tmdbID {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("radarr: movie for %s not found", metadataID)
}

// Unmonitor stops Radarr from tracking the movie.
func (c *RadarrClient) Unmonitor(ctx context.Context, metadataID string) error {
	m, err := c.movie(ctx, metadataID)
	if err != nil {
		return err
	}

	var raw map[string]any
	path := fmt.Sprintf("/api/v3/movie/%d", m.ID)
	if err := c.arr.request(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return fmt.Errorf("radarr: get movie %d: %w", m.ID, err)
	}
	raw["monitored"] = false

	if err := c.arr.request(ctx, http.MethodPut, path, raw, nil); err != nil {
		return fmt.Errorf("radarr: unmonitor movie %d: %w", m.ID, err)
	}
	c.log.Info("movie unmonitored", "movie_id", m.ID, "title", m.Title)
	return nil
}

// Delete removes the movie from Radarr.
func (c *RadarrClient) Delete(ctx context.Context, metadataID string, deleteFiles, addExclusion bool) error {
	m, err := c.movie(ctx, metadataID)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/api/v3/movie/%d?deleteFiles=%t&addImportExclusion=%t",
		m.ID, deleteFiles, addExclusion)
	if err := c.arr.request(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("radarr: delete movie %d: %w", m.ID, err)
	}
	c.log.Info("movie deleted", "movie_id", m.ID, "title", m.Title,
		"delete_files", deleteFiles, "add_exclusion", addExclusion)
	return nil
}

// Request triggers a search for the movie. The ref carries only the show
// id, which for movies is the Radarr movie id.
func (c *RadarrClient) Request(ctx context.Context, ref media.EpisodeRef) error {
	cmd := map[string]any{"name": "MoviesSearch", "movieIds": []int64{ref.ShowID}}
	if err := c.arr.request(ctx, http.MethodPost, "/api/v3/command", cmd, nil); err != nil {
		return fmt.Errorf("radarr: movie search: %w", err)
	}
	c.log.Info("movie search requested", "movie_id", ref.ShowID)
	return nil
}
