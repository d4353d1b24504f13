package integration

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/vmunix/prunarr/internal/media"
)

// PlexClient implements MediaServer against the Plex Media Server API.
type PlexClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewPlexClient creates a new Plex client.
func NewPlexClient(baseURL, token string, log *slog.Logger) *PlexClient {
	if log == nil {
		log = slog.Default()
	}
	return &PlexClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		log:     log.With("component", "plex"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// section represents a Plex library section.
type section struct {
	Key   string `xml:"key,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type sectionsResponse struct {
	XMLName  xml.Name  `xml:"MediaContainer"`
	Sections []section `xml:"Directory"`
}

// video is one library entry in a section listing.
type video struct {
	RatingKey     string  `xml:"ratingKey,attr"`
	GUID          string  `xml:"guid,attr"`
	Title         string  `xml:"title,attr"`
	Type          string  `xml:"type,attr"`
	ViewCount     int     `xml:"viewCount,attr"`
	LastViewedAt  int64   `xml:"lastViewedAt,attr"`
	AddedAt       int64   `xml:"addedAt,attr"`
	Rating        float64 `xml:"rating,attr"`
	ContentRating string  `xml:"contentRating,attr"`
	Genres        []struct {
		Tag string `xml:"tag,attr"`
	} `xml:"Genre"`
	Media []struct {
		Parts []struct {
			Size int64 `xml:"size,attr"`
		} `xml:"Part"`
	} `xml:"Media"`

	// Episode fields
	GrandparentKey string `xml:"grandparentRatingKey,attr"`
	ParentIndex    int    `xml:"parentIndex,attr"`
	Index          int    `xml:"index,attr"`
	AbsoluteIndex  int    `xml:"absoluteIndex,attr"`
}

type videosResponse struct {
	XMLName xml.Name `xml:"MediaContainer"`
	Videos  []video  `xml:"Video"`
}

// Items returns current snapshots of the given kind, all libraries if
// library is empty.
func (c *PlexClient) Items(ctx context.Context, library string, kind media.Kind) ([]*media.Item, error) {
	sections, err := c.sections(ctx)
	if err != nil {
		return nil, err
	}

	var items []*media.Item
	for _, sec := range sections {
		if library != "" && !strings.EqualFold(sec.Title, library) {
			continue
		}
		secItems, err := c.sectionItems(ctx, sec, kind)
		if err != nil {
			return nil, err
		}
		items = append(items, secItems...)
	}
	return items, nil
}

func (c *PlexClient) sections(ctx context.Context) ([]section, error) {
	var result sectionsResponse
	if err := c.get(ctx, "/library/sections", nil, &result); err != nil {
		return nil, err
	}
	return result.Sections, nil
}

func (c *PlexClient) sectionItems(ctx context.Context, sec section, kind media.Kind) ([]*media.Item, error) {
	plexType, ok := plexTypeFor(kind)
	if !ok {
		return nil, fmt.Errorf("plex: unsupported kind %q", kind)
	}

	var result videosResponse
	path := fmt.Sprintf("/library/sections/%s/all", sec.Key)
	if err := c.get(ctx, path, url.Values{"type": {plexType}}, &result); err != nil {
		return nil, err
	}

	items := make([]*media.Item, 0, len(result.Videos))
	for _, v := range result.Videos {
		items = append(items, videoToItem(v, sec.Title, kind))
	}
	return items, nil
}

// plexTypeFor maps media kinds to the numeric type Plex uses in filters.
func plexTypeFor(kind media.Kind) (string, bool) {
	switch kind {
	case media.KindMovie:
		return "1", true
	case media.KindShow:
		return "2", true
	case media.KindSeason:
		return "3", true
	case media.KindEpisode:
		return "4", true
	}
	return "", false
}

func videoToItem(v video, library string, kind media.Kind) *media.Item {
	id, _ := strconv.ParseInt(v.RatingKey, 10, 64)

	item := &media.Item{
		ID:            id,
		MetadataID:    v.GUID,
		Library:       library,
		Kind:          kind,
		Title:         v.Title,
		Watched:       v.ViewCount > 0,
		ViewCount:     v.ViewCount,
		AddedAt:       time.Unix(v.AddedAt, 0),
		Rating:        v.Rating,
		ContentRating: v.ContentRating,
	}
	if v.LastViewedAt > 0 {
		t := time.Unix(v.LastViewedAt, 0)
		item.LastWatchedAt = &t
	}
	for _, g := range v.Genres {
		item.Genres = append(item.Genres, g.Tag)
	}
	for _, m := range v.Media {
		for _, p := range m.Parts {
			item.FileSizeBytes += p.Size
		}
	}
	if kind == media.KindEpisode {
		showID, _ := strconv.ParseInt(v.GrandparentKey, 10, 64)
		ordinal := v.AbsoluteIndex
		if ordinal == 0 {
			// Plex omits absolute numbering for most libraries; season and
			// episode alone cannot order across seasons, so fall back to a
			// season-major composite.
			ordinal = v.ParentIndex*1000 + v.Index
		}
		item.Episode = &media.EpisodeRef{
			ShowID:  showID,
			Season:  v.ParentIndex,
			Episode: v.Index,
			Ordinal: ordinal,
		}
	}
	return item
}

// historyEntry is one row of the session history.
type historyEntry struct {
	AccountID            int    `xml:"accountID,attr"`
	RatingKey            string `xml:"ratingKey,attr"`
	GrandparentRatingKey string `xml:"grandparentRatingKey,attr"`
	Type                 string `xml:"type,attr"`
	ParentIndex          int    `xml:"parentIndex,attr"`
	Index                int    `xml:"index,attr"`
	ViewedAt             int64  `xml:"viewedAt,attr"`
}

type historyResponse struct {
	XMLName xml.Name       `xml:"MediaContainer"`
	Entries []historyEntry `xml:"Video"`
}

// WatchHistory returns watch events recorded after since. Only episode
// views are reported; movie watch state comes from the item snapshot.
func (c *PlexClient) WatchHistory(ctx context.Context, since time.Time) ([]media.WatchEvent, error) {
	var result historyResponse
	params := url.Values{
		"viewedAt>": {strconv.FormatInt(since.Unix(), 10)},
		"sort":      {"viewedAt:asc"},
	}
	if err := c.get(ctx, "/status/sessions/history/all", params, &result); err != nil {
		return nil, err
	}

	var events []media.WatchEvent
	for _, e := range result.Entries {
		if e.Type != "episode" {
			continue
		}
		showID, _ := strconv.ParseInt(e.GrandparentRatingKey, 10, 64)
		events = append(events, media.WatchEvent{
			ViewerID:  strconv.Itoa(e.AccountID),
			ShowID:    showID,
			Season:    e.ParentIndex,
			Episode:   e.Index,
			Ordinal:   e.ParentIndex*1000 + e.Index,
			WatchedAt: time.Unix(e.ViewedAt, 0),
		})
	}
	return events, nil
}

// leafEntry is one episode in a show's full leaf listing.
type leafEntry struct {
	ParentIndex   int `xml:"parentIndex,attr"`
	Index         int `xml:"index,attr"`
	AbsoluteIndex int `xml:"absoluteIndex,attr"`
	Media         []struct {
		Parts []struct {
			Size int64 `xml:"size,attr"`
		} `xml:"Part"`
	} `xml:"Media"`
}

type leavesResponse struct {
	XMLName xml.Name    `xml:"MediaContainer"`
	Entries []leafEntry `xml:"Video"`
}

// MissingEpisodes returns episodes of the show up to and including the
// given ordinal that have no file in the library.
func (c *PlexClient) MissingEpisodes(ctx context.Context, showID int64, throughOrdinal int) ([]media.EpisodeRef, error) {
	var result leavesResponse
	path := fmt.Sprintf("/library/metadata/%d/allLeaves", showID)
	if err := c.get(ctx, path, nil, &result); err != nil {
		return nil, err
	}

	var missing []media.EpisodeRef
	for _, e := range result.Entries {
		ordinal := e.AbsoluteIndex
		if ordinal == 0 {
			ordinal = e.ParentIndex*1000 + e.Index
		}
		if ordinal > throughOrdinal {
			continue
		}
		hasFile := false
		for _, m := range e.Media {
			if len(m.Parts) > 0 {
				hasFile = true
			}
		}
		if !hasFile {
			missing = append(missing, media.EpisodeRef{
				ShowID:  showID,
				Season:  e.ParentIndex,
				Episode: e.Index,
				Ordinal: ordinal,
			})
		}
	}
	return missing, nil
}

// AddToCollection adds the item to a named collection, creating it if
// needed.
func (c *PlexClient) AddToCollection(ctx context.Context, mediaID int64, collection string) error {
	path := fmt.Sprintf("/library/metadata/%d", mediaID)
	params := url.Values{"collection[0].tag.tag": {collection}}
	return c.do(ctx, http.MethodPut, path, params)
}

// AddTag labels the item.
func (c *PlexClient) AddTag(ctx context.Context, mediaID int64, tag string) error {
	path := fmt.Sprintf("/library/metadata/%d", mediaID)
	params := url.Values{"label[0].tag.tag": {tag}}
	return c.do(ctx, http.MethodPut, path, params)
}

// DeleteItem removes the item and its files from the library.
func (c *PlexClient) DeleteItem(ctx context.Context, mediaID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/library/metadata/%d", mediaID), nil)
}

// DeleteFiles removes the item's media files. Plex deletes files with the
// item, so this is the same call.
func (c *PlexClient) DeleteFiles(ctx context.Context, mediaID int64) error {
	return c.DeleteItem(ctx, mediaID)
}

// get performs a GET and decodes the XML body into out.
func (c *PlexClient) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plex: %w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plex: unexpected status: %d", resp.StatusCode)
	}

	if err := xml.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do performs a bodyless write request.
func (c *PlexClient) do(ctx context.Context, method, path string, params url.Values) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("plex: %w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("plex: unexpected status: %d", resp.StatusCode)
	}
	return nil
}
