package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vmunix/prunarr/internal/rules"
)

// RunState is the lifecycle of one tracked run.
type RunState string

const (
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// RunStatus is the poll-visible record of one rule run. Records live until
// the caller clears them or the TTL expires; the engine never deletes a
// record a caller might still be reading before that.
type RunStatus struct {
	RunID      string           `json:"run_id"`
	RuleID     int64            `json:"rule_id"`
	State      RunState         `json:"state"`
	DryRun     bool             `json:"dry_run"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Result     *rules.RunResult `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// StatusStore tracks run status records keyed by run id, with lazy TTL
// expiry of unclaimed records.
type StatusStore struct {
	mu      sync.Mutex
	records map[string]*RunStatus
	ttl     time.Duration
}

// NewStatusStore creates a status store. Records older than ttl (measured
// from finish time) are expired on access.
func NewStatusStore(ttl time.Duration) *StatusStore {
	return &StatusStore{
		records: make(map[string]*RunStatus),
		ttl:     ttl,
	}
}

// Begin registers a new running record and returns its run id.
func (s *StatusStore) Begin(ruleID int64, dryRun bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	id := uuid.NewString()
	s.records[id] = &RunStatus{
		RunID:     id,
		RuleID:    ruleID,
		State:     RunRunning,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}
	return id
}

// Finish records the terminal state of a run.
func (s *StatusStore) Finish(runID string, result *rules.RunResult, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[runID]
	if !ok {
		return
	}
	now := time.Now()
	rec.FinishedAt = &now
	rec.Result = result
	if runErr != nil {
		rec.State = RunFailed
		rec.Error = runErr.Error()
	} else {
		rec.State = RunCompleted
	}
}

// Get returns a copy of the record, or false if unknown or expired.
func (s *StatusStore) Get(runID string) (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	rec, ok := s.records[runID]
	if !ok {
		return RunStatus{}, false
	}
	return *rec, true
}

// ForRule returns the most recent record for a rule, or false.
func (s *StatusStore) ForRule(ruleID int64) (RunStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	var latest *RunStatus
	for _, rec := range s.records {
		if rec.RuleID != ruleID {
			continue
		}
		if latest == nil || rec.StartedAt.After(latest.StartedAt) {
			latest = rec
		}
	}
	if latest == nil {
		return RunStatus{}, false
	}
	return *latest, true
}

// Clear removes a consumed record. Running records are kept.
func (s *StatusStore) Clear(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[runID]; ok && rec.State != RunRunning {
		delete(s.records, runID)
	}
}

// expireLocked drops finished records older than the TTL.
func (s *StatusStore) expireLocked(now time.Time) {
	for id, rec := range s.records {
		if rec.FinishedAt != nil && now.Sub(*rec.FinishedAt) > s.ttl {
			delete(s.records, id)
		}
	}
}
