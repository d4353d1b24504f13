package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client wraps HTTP calls to the prunarr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new prunarr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal error: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func (c *Client) delete(path string) error {
	req, err := http.NewRequest(http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("request creation failed: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// API response types (mirror server types)

type StatusResponse struct {
	Version    string `json:"version"`
	Protection bool   `json:"protection"`
	Redownload bool   `json:"redownload"`
}

type RuleResponse struct {
	ID             int64           `json:"id"`
	Name           string          `json:"name"`
	Kind           string          `json:"kind"`
	Libraries      []string        `json:"libraries,omitempty"`
	Expression     json.RawMessage `json:"expression"`
	Actions        json.RawMessage `json:"actions"`
	BufferDays     *int            `json:"buffer_days,omitempty"`
	Priority       int             `json:"priority"`
	Active         bool            `json:"active"`
	LastRunAt      *string         `json:"last_run_at,omitempty"`
	LastMatchCount int             `json:"last_match_count"`
}

type ListRulesResponse struct {
	Items []RuleResponse `json:"items"`
	Total int            `json:"total"`
}

type PreviewResponse struct {
	Matched int `json:"matched"`
	Items   []struct {
		ID      int64  `json:"id"`
		Kind    string `json:"kind"`
		Title   string `json:"title"`
		Library string `json:"library,omitempty"`
	} `json:"items"`
}

type RunResponse struct {
	RunID string `json:"run_id"`
}

type RunStatusResponse struct {
	RunID      string `json:"run_id"`
	RuleID     int64  `json:"rule_id"`
	State      string `json:"state"`
	DryRun     bool   `json:"dry_run"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	Result     *struct {
		Matched int `json:"matched"`
		Queued  int `json:"queued"`
		Deleted int `json:"deleted"`
		Errors  int `json:"errors"`
	} `json:"result,omitempty"`
	Error string `json:"error,omitempty"`
}

type QueueItemResponse struct {
	ID          int64  `json:"id"`
	MediaID     int64  `json:"media_id"`
	Kind        string `json:"kind"`
	Title       string `json:"title"`
	RuleID      *int64 `json:"rule_id,omitempty"`
	Status      string `json:"status"`
	ActionAt    string `json:"action_at"`
	IsDryRun    bool   `json:"is_dry_run,omitempty"`
	ErrorDetail string `json:"error_detail,omitempty"`
}

type ListQueueResponse struct {
	Items []QueueItemResponse `json:"items"`
	Total int                 `json:"total"`
}

type ProtectionResponse struct {
	ShowID          int64 `json:"show_id"`
	Floor           int   `json:"floor"`
	EligibleThrough int   `json:"eligible_through"`
	Viewers         []struct {
		ViewerID         string  `json:"viewer_id"`
		Position         int     `json:"position"`
		Velocity         float64 `json:"velocity"`
		ProtectedThrough int     `json:"protected_through"`
	} `json:"viewers"`
	ComputedAt string `json:"computed_at"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
	OccurredAt string `json:"occurred_at"`
}

type ListEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
}

// Typed calls

func (c *Client) Status() (*StatusResponse, error) {
	var s StatusResponse
	if err := c.get("/api/v1/status", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) Rules() (*ListRulesResponse, error) {
	var r ListRulesResponse
	if err := c.get("/api/v1/rules", &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) PreviewRule(id int64) (*PreviewResponse, error) {
	var p PreviewResponse
	if err := c.post(fmt.Sprintf("/api/v1/rules/%d/preview", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) RunRule(id int64, dryRun bool) (*RunResponse, error) {
	var r RunResponse
	body := map[string]bool{"dry_run": dryRun}
	if err := c.post(fmt.Sprintf("/api/v1/rules/%d/run", id), body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Run(runID string) (*RunStatusResponse, error) {
	var r RunStatusResponse
	if err := c.get("/api/v1/runs/"+runID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *Client) Queue(status string) (*ListQueueResponse, error) {
	path := "/api/v1/queue"
	if status != "" {
		path += "?status=" + status
	}
	var q ListQueueResponse
	if err := c.get(path, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) SaveItem(id int64) (*QueueItemResponse, error) {
	var it QueueItemResponse
	if err := c.post(fmt.Sprintf("/api/v1/queue/%d/save", id), nil, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) DeleteNow(id int64) (*QueueItemResponse, error) {
	var it QueueItemResponse
	if err := c.post(fmt.Sprintf("/api/v1/queue/%d/delete-now", id), nil, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) ExtendItem(id int64, days int) (*QueueItemResponse, error) {
	var it QueueItemResponse
	body := map[string]int{"days": days}
	if err := c.post(fmt.Sprintf("/api/v1/queue/%d/extend", id), body, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (c *Client) Protections() ([]ProtectionResponse, error) {
	var p []ProtectionResponse
	if err := c.get("/api/v1/protection", &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (c *Client) RunProtection(dryRun bool) (json.RawMessage, error) {
	var out json.RawMessage
	body := map[string]bool{"dry_run": dryRun}
	if err := c.post("/api/v1/protection/run", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Events(limit int) (*ListEventsResponse, error) {
	var e ListEventsResponse
	if err := c.get(fmt.Sprintf("/api/v1/events?limit=%d", limit), &e); err != nil {
		return nil, err
	}
	return &e, nil
}
