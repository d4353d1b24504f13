package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vmunix/prunarr/internal/media"
)

// SonarrClient implements Manager for TV content against the Sonarr v3 API.
type SonarrClient struct {
	arr arrClient
	log *slog.Logger
}

// NewSonarrClient creates a new Sonarr client.
func NewSonarrClient(baseURL, apiKey string, log *slog.Logger) *SonarrClient {
	if log == nil {
		log = slog.Default()
	}
	return &SonarrClient{
		arr: newArrClient(baseURL, apiKey),
		log: log.With("component", "sonarr"),
	}
}

// sonarrSeries is the subset of the series resource we touch.
type sonarrSeries struct {
	ID        int64  `json:"id"`
	TVDBID    int64  `json:"tvdbId"`
	Title     string `json:"title"`
	Monitored bool   `json:"monitored"`
}

// series finds the Sonarr series for a metadata id.
func (c *SonarrClient) series(ctx context.Context, metadataID string) (*sonarrSeries, error) {
	tvdbID, err := externalID(metadataID)
	if err != nil {
		return nil, err
	}

	var list []sonarrSeries
	if err := c.arr.request(ctx, http.MethodGet, "/api/v3/series", nil, &list); err != nil {
		return nil, fmt.Errorf("sonarr: list series: %w", err)
	}
	for i := range list {
		if list[i].TVDBID == tvdbID || list[i].ID == tvdbID {
			return &list[i], nil
		}
	}
	return nil, fmt.Errorf("sonarr: series for %s not found", metadataID)
}

// seriesRaw fetches the full series document so a partial update does not
// drop fields Sonarr requires on PUT.
func (c *SonarrClient) seriesRaw(ctx context.Context, id int64) (map[string]any, error) {
	var raw map[string]any
	path := fmt.Sprintf("/api/v3/series/%d", id)
	if err := c.arr.request(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, fmt.Errorf("sonarr: get series %d: %w", id, err)
	}
	return raw, nil
}

// Unmonitor stops Sonarr from tracking the series.
func (c *SonarrClient) Unmonitor(ctx context.Context, metadataID string) error {
	s, err := c.series(ctx, metadataID)
	if err != nil {
		return err
	}
	raw, err := c.seriesRaw(ctx, s.ID)
	if err != nil {
		return err
	}
	raw["monitored"] = false

	path := fmt.Sprintf("/api/v3/series/%d", s.ID)
	if err := c.arr.request(ctx, http.MethodPut, path, raw, nil); err != nil {
		return fmt.Errorf("sonarr: unmonitor series %d: %w", s.ID, err)
	}
	c.log.Info("series unmonitored", "series_id", s.ID, "title", s.Title)
	return nil
}

// Delete removes the series from Sonarr.
func (c *SonarrClient) Delete(ctx context.Context, metadataID string, deleteFiles, addExclusion bool) error {
	s, err := c.series(ctx, metadataID)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/api/v3/series/%d?deleteFiles=%t&addImportListExclusion=%t",
		s.ID, deleteFiles, addExclusion)
	if err := c.arr.request(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("sonarr: delete series %d: %w", s.ID, err)
	}
	c.log.Info("series deleted", "series_id", s.ID, "title", s.Title,
		"delete_files", deleteFiles, "add_exclusion", addExclusion)
	return nil
}

// sonarrEpisode is the subset of the episode resource we touch.
type sonarrEpisode struct {
	ID            int64 `json:"id"`
	SeasonNumber  int   `json:"seasonNumber"`
	EpisodeNumber int   `json:"episodeNumber"`
	Monitored     bool  `json:"monitored"`
}

// Request triggers acquisition of one episode: monitor it, then issue an
// episode search command.
func (c *SonarrClient) Request(ctx context.Context, ref media.EpisodeRef) error {
	var list []sonarrSeries
	if err := c.arr.request(ctx, http.MethodGet, "/api/v3/series", nil, &list); err != nil {
		return fmt.Errorf("sonarr: list series: %w", err)
	}
	var seriesID int64
	for _, s := range list {
		if s.TVDBID == ref.ShowID || s.ID == ref.ShowID {
			seriesID = s.ID
			break
		}
	}
	if seriesID == 0 {
		return fmt.Errorf("sonarr: series %d not found", ref.ShowID)
	}

	var episodes []sonarrEpisode
	path := fmt.Sprintf("/api/v3/episode?seriesId=%d", seriesID)
	if err := c.arr.request(ctx, http.MethodGet, path, nil, &episodes); err != nil {
		return fmt.Errorf("sonarr: list episodes: %w", err)
	}
	var episodeID int64
	for _, e := range episodes {
		if e.SeasonNumber == ref.Season && e.EpisodeNumber == ref.Episode {
			episodeID = e.ID
			break
		}
	}
	if episodeID == 0 {
		return fmt.Errorf("sonarr: episode S%02dE%02d of series %d not found", ref.Season, ref.Episode, seriesID)
	}

	monitor := map[string]any{"episodeIds": []int64{episodeID}, "monitored": true}
	if err := c.arr.request(ctx, http.MethodPut, "/api/v3/episode/monitor", monitor, nil); err != nil {
		return fmt.Errorf("sonarr: monitor episode %d: %w", episodeID, err)
	}

	cmd := map[string]any{"name": "EpisodeSearch", "episodeIds": []int64{episodeID}}
	if err := c.arr.request(ctx, http.MethodPost, "/api/v3/command", cmd, nil); err != nil {
		return fmt.Errorf("sonarr: episode search: %w", err)
	}
	c.log.Info("episode search requested",
		"series_id", seriesID, "season", ref.Season, "episode", ref.Episode)
	return nil
}
