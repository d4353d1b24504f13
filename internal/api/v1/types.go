package v1

import (
	"encoding/json"
	"time"

	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/rules"
)

// Rules

type ruleRequest struct {
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	Libraries  []string         `json:"libraries,omitempty"`
	Expression rules.Expression `json:"expression"`
	Actions    json.RawMessage  `json:"actions"`
	BufferDays *int             `json:"buffer_days,omitempty"`
	Priority   int              `json:"priority"`
	Active     *bool            `json:"active,omitempty"`
}

type ruleResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Kind           string           `json:"kind"`
	Libraries      []string         `json:"libraries,omitempty"`
	Expression     rules.Expression `json:"expression"`
	Actions        json.RawMessage  `json:"actions"`
	BufferDays     *int             `json:"buffer_days,omitempty"`
	Priority       int              `json:"priority"`
	Active         bool             `json:"active"`
	CreatedAt      time.Time        `json:"created_at"`
	LastRunAt      *time.Time       `json:"last_run_at,omitempty"`
	LastMatchCount int              `json:"last_match_count"`
}

type listRulesResponse struct {
	Items []ruleResponse `json:"items"`
	Total int            `json:"total"`
}

type runRequest struct {
	DryRun bool `json:"dry_run,omitempty"`
}

type runAccepted struct {
	RunID string `json:"run_id"`
}

type runAllAccepted struct {
	RunIDs []string `json:"run_ids"`
}

type previewResponse struct {
	Matched int            `json:"matched"`
	Items   []matchedMedia `json:"items"`
}

type matchedMedia struct {
	ID      int64  `json:"id"`
	Kind    string `json:"kind"`
	Title   string `json:"title"`
	Library string `json:"library,omitempty"`
}

// Queue

type queueItemResponse struct {
	ID               int64             `json:"id"`
	MediaID          int64             `json:"media_id"`
	MetadataID       string            `json:"metadata_id,omitempty"`
	Kind             string            `json:"kind"`
	Title            string            `json:"title"`
	RuleID           *int64            `json:"rule_id,omitempty"`
	Episode          *media.EpisodeRef `json:"episode,omitempty"`
	Status           string            `json:"status"`
	ActionAt         time.Time         `json:"action_at"`
	IsDryRun         bool              `json:"is_dry_run,omitempty"`
	ErrorDetail      string            `json:"error_detail,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	LastTransitionAt time.Time         `json:"last_transition_at"`
}

type listQueueResponse struct {
	Items []queueItemResponse `json:"items"`
	Total int                 `json:"total"`
}

type extendRequest struct {
	Days int `json:"days"`
}

// Protection

type protectionResponse struct {
	ShowID          int64          `json:"show_id"`
	Floor           int            `json:"floor"`
	EligibleThrough int            `json:"eligible_through"`
	Viewers         []viewerWindow `json:"viewers"`
	ComputedAt      time.Time      `json:"computed_at"`
}

type viewerWindow struct {
	ViewerID         string  `json:"viewer_id"`
	Position         int     `json:"position"`
	Velocity         float64 `json:"velocity"`
	ProtectedThrough int     `json:"protected_through"`
}

type taskResponse struct {
	ID      int64     `json:"id"`
	ShowID  int64     `json:"show_id"`
	Season  int       `json:"season"`
	Episode int       `json:"episode"`
	Ordinal int       `json:"ordinal"`
	Viewer  string    `json:"viewer_id"`
	DueBy   time.Time `json:"due_by"`
	Urgency string    `json:"urgency"`
	Status  string    `json:"status"`
	Detail  string    `json:"detail,omitempty"`
}

// Events

type eventResponse struct {
	ID         int64           `json:"id"`
	EventType  string          `json:"event_type"`
	EntityType string          `json:"entity_type"`
	EntityID   int64           `json:"entity_id"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	OccurredAt string          `json:"occurred_at"`
}

type listEventsResponse struct {
	Items []eventResponse `json:"items"`
	Total int             `json:"total"`
}
