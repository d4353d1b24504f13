package events

import "time"

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	EntityType() string // "queue_item", "rule", "media", "episode", "service"
	EntityID() int64
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity_type"`
	ID        int64     `json:"entity_id"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EntityType() string    { return e.Entity }
func (e BaseEvent) EntityID() int64       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, entityType string, entityID int64) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Entity:    entityType,
		ID:        entityID,
		Timestamp: time.Now(),
	}
}

// Entity types
const (
	EntityQueueItem = "queue_item"
	EntityRule      = "rule"
	EntityMedia     = "media"
	EntityEpisode   = "episode"
	EntityService   = "service"
)

// Event type constants
const (
	EventQueueItemAdded      = "queue.item.added"
	EventMediaDeleted        = "media.deleted"
	EventRuleRunCompleted    = "rule.run.completed"
	EventRunError            = "run.error"
	EventServiceDown         = "service.down"
	EventRedownloadRequested = "redownload.requested"
)

// QueueItemAdded is emitted when a rule stages media into the deletion queue.
type QueueItemAdded struct {
	BaseEvent
	MediaID  int64     `json:"media_id"`
	Title    string    `json:"title"`
	RuleID   *int64    `json:"rule_id,omitempty"`
	ActionAt time.Time `json:"action_at"`
	DryRun   bool      `json:"dry_run,omitempty"`
}

// MediaDeleted is emitted after deferred deletion actions complete.
type MediaDeleted struct {
	BaseEvent
	MediaID int64  `json:"media_id"`
	Title   string `json:"title"`
	RuleID  *int64 `json:"rule_id,omitempty"`
}

// RuleRunCompleted is emitted when every matched item of a run has reached a
// terminal per-item state.
type RuleRunCompleted struct {
	BaseEvent
	RuleID  int64  `json:"rule_id"`
	RunID   string `json:"run_id"`
	Matched int    `json:"matched"`
	Queued  int    `json:"queued"`
	Deleted int    `json:"deleted"`
	Errors  int    `json:"errors"`
	DryRun  bool   `json:"dry_run,omitempty"`
}

// RunError is emitted when a single item in a run or sweep fails.
type RunError struct {
	BaseEvent
	MediaID int64  `json:"media_id,omitempty"`
	RuleID  *int64 `json:"rule_id,omitempty"`
	Detail  string `json:"detail"`
}

// ServiceDown is emitted when a collaborator is unreachable.
type ServiceDown struct {
	BaseEvent
	Service string `json:"service"`
	Detail  string `json:"detail"`
}

// RedownloadRequested is emitted when re-acquisition of a protected episode
// is triggered.
type RedownloadRequested struct {
	BaseEvent
	ShowID  int64  `json:"show_id"`
	Season  int    `json:"season"`
	Episode int    `json:"episode"`
	Viewer  string `json:"viewer"`
	Urgency string `json:"urgency"`
}
