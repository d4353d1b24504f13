package integration

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// OverseerrClient implements Requests against the Overseerr API.
type OverseerrClient struct {
	arr arrClient
	log *slog.Logger
}

// NewOverseerrClient creates a new Overseerr client.
func NewOverseerrClient(baseURL, apiKey string, log *slog.Logger) *OverseerrClient {
	if log == nil {
		log = slog.Default()
	}
	return &OverseerrClient{
		arr: newArrClient(baseURL, apiKey),
		log: log.With("component", "overseerr"),
	}
}

type overseerrRequest struct {
	ID    int64 `json:"id"`
	Media struct {
		ID     int64 `json:"id"`
		TMDBID int64 `json:"tmdbId"`
		TVDBID int64 `json:"tvdbId"`
	} `json:"media"`
}

type overseerrRequestList struct {
	Results []overseerrRequest `json:"results"`
}

// ClearRequest removes pending request records for the media item.
func (c *OverseerrClient) ClearRequest(ctx context.Context, mediaID int64) error {
	var list overseerrRequestList
	if err := c.arr.request(ctx, http.MethodGet, "/api/v1/request?take=100&filter=all", nil, &list); err != nil {
		return fmt.Errorf("overseerr: list requests: %w", err)
	}

	cleared := 0
	for _, req := range list.Results {
		if req.Media.ID != mediaID {
			continue
		}
		path := fmt.Sprintf("/api/v1/request/%d", req.ID)
		if err := c.arr.request(ctx, http.MethodDelete, path, nil, nil); err != nil {
			return fmt.Errorf("overseerr: delete request %d: %w", req.ID, err)
		}
		cleared++
	}
	if cleared > 0 {
		c.log.Info("requests cleared", "media_id", mediaID, "count", cleared)
	}
	return nil
}

type overseerrWatchlistPage struct {
	Results []struct {
		TMDBID  int64  `json:"tmdbId"`
		TVDBID  int64  `json:"tvdbId"`
		AddedAt string `json:"createdAt"`
	} `json:"results"`
}

// WatchlistAddedAt returns when the title entered any watchlist, or nil if
// it is on none.
func (c *OverseerrClient) WatchlistAddedAt(ctx context.Context, metadataID string) (*time.Time, error) {
	id, err := externalID(metadataID)
	if err != nil {
		return nil, err
	}

	var page overseerrWatchlistPage
	if err := c.arr.request(ctx, http.MethodGet, "/api/v1/watchlist?take=100", nil, &page); err != nil {
		return nil, fmt.Errorf("overseerr: watchlist: %w", err)
	}
	for _, entry := range page.Results {
		if entry.TMDBID != id && entry.TVDBID != id {
			continue
		}
		t, err := time.Parse(time.RFC3339, entry.AddedAt)
		if err != nil {
			// Membership without a usable timestamp still counts; treat as
			// freshly added.
			now := time.Now()
			return &now, nil
		}
		return &t, nil
	}
	return nil, nil
}
