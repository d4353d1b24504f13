package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
)

// Sweeper drives the deletion queue: on each sweep it takes every pending
// item whose buffer has expired, re-checks protection, and executes the
// owning rule's deferred deletion actions. It also serves the operator
// operations on individual items (save, delete-now, extend) and retention
// pruning.
type Sweeper struct {
	queue    *queue.Store
	rules    *rules.Store
	pipeline *Pipeline
	guard    *protection.Calculator
	bus      *events.Bus
	logger   *slog.Logger

	retentionDays int
}

// NewSweeper creates a queue sweeper.
func NewSweeper(q *queue.Store, ruleStore *rules.Store, pipeline *Pipeline,
	guard *protection.Calculator, bus *events.Bus, retentionDays int, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		queue:         q,
		rules:         ruleStore,
		pipeline:      pipeline,
		guard:         guard,
		bus:           bus,
		logger:        logger.With("component", "sweeper"),
		retentionDays: retentionDays,
	}
}

// SweepResult summarizes one sweep.
type SweepResult struct {
	Due       int `json:"due"`
	Completed int `json:"completed"`
	Skipped   int `json:"skipped"` // still protected; stays pending
	Errors    int `json:"errors"`
}

// Sweep processes all due pending items. Dry-run items are never promoted.
// A protected item stays pending and is re-evaluated next sweep; a
// collaborator failure moves the item to error with the detail attached and
// the sweep continues.
func (s *Sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	now := time.Now()
	pending := queue.StatusPending
	live := false
	due, err := s.queue.List(queue.Filter{Status: &pending, DueBy: &now, DryRun: &live})
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	result := &SweepResult{Due: len(due)}
	for _, it := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		switch s.process(ctx, it, now) {
		case queue.StatusCompleted:
			result.Completed++
		case queue.StatusPending:
			result.Skipped++
		case queue.StatusError:
			result.Errors++
		}
	}

	s.logger.Info("queue sweep finished",
		"due", result.Due, "completed", result.Completed,
		"skipped", result.Skipped, "errors", result.Errors)
	return result, nil
}

// process executes one due item and returns the status it ended in.
func (s *Sweeper) process(ctx context.Context, it *queue.Item, now time.Time) queue.Status {
	if s.guard != nil {
		decision, err := s.guard.Check(ctx, snapshotFor(it), now)
		if err != nil {
			// Protection state unavailable; keep the item pending rather than
			// deleting something a viewer may need.
			s.logger.Error("protection check failed", "item_id", it.ID, "error", err)
			return queue.StatusPending
		}
		if decision.Protected {
			s.logger.Debug("item still protected", "item_id", it.ID, "reason", decision.Reason)
			return queue.StatusPending
		}
	}

	if err := s.executeDeletion(ctx, it); err != nil {
		if terr := s.queue.Transition(it, queue.StatusError, err.Error()); terr != nil {
			s.logger.Error("error transition failed", "item_id", it.ID, "error", terr)
		}
		s.publish(ctx, &events.RunError{
			BaseEvent: events.NewBaseEvent(events.EventRunError, events.EntityQueueItem, it.ID),
			MediaID:   it.MediaID,
			RuleID:    it.RuleID,
			Detail:    err.Error(),
		})
		return queue.StatusError
	}

	if err := s.queue.Transition(it, queue.StatusCompleted, ""); err != nil {
		s.logger.Error("complete transition failed", "item_id", it.ID, "error", err)
		return queue.StatusError
	}
	s.publish(ctx, &events.MediaDeleted{
		BaseEvent: events.NewBaseEvent(events.EventMediaDeleted, events.EntityMedia, it.MediaID),
		MediaID:   it.MediaID,
		Title:     it.Title,
		RuleID:    it.RuleID,
	})
	return queue.StatusCompleted
}

// executeDeletion runs the deferred actions for the item's owning rule, or
// a plain library delete for manual entries.
func (s *Sweeper) executeDeletion(ctx context.Context, it *queue.Item) error {
	actions := []rules.Action{rules.DeleteFromLibrary{}}
	if it.RuleID != nil {
		rule, err := s.rules.Get(*it.RuleID)
		if err != nil {
			return fmt.Errorf("load rule %d: %w", *it.RuleID, err)
		}
		actions = rule.Actions
	}
	return s.pipeline.ExecuteDeferred(ctx, actions, it)
}

// Save cancels a pending item (terminal). Idempotent: re-saving a cancelled
// item is a no-op, not an error.
func (s *Sweeper) Save(id int64) (*queue.Item, error) {
	it, err := s.queue.Get(id)
	if err != nil {
		return nil, err
	}
	if it.Status == queue.StatusCancelled {
		return it, nil
	}
	if err := s.queue.Transition(it, queue.StatusCancelled, ""); err != nil {
		return nil, err
	}
	return it, nil
}

// DeleteNow bypasses the buffer for one item. The protection check still
// applies; a protected item is refused and stays pending.
func (s *Sweeper) DeleteNow(ctx context.Context, id int64) (*queue.Item, error) {
	it, err := s.queue.Get(id)
	if err != nil {
		return nil, err
	}
	if it.Status != queue.StatusPending {
		return nil, fmt.Errorf("delete now item %d: status %s: %w", id, it.Status, queue.ErrInvalidTransition)
	}
	if it.IsDryRun {
		return nil, fmt.Errorf("delete now item %d: dry-run items are previews only", id)
	}

	if s.guard != nil {
		decision, err := s.guard.Check(ctx, snapshotFor(it), time.Now())
		if err != nil {
			return nil, err
		}
		if decision.Protected {
			return nil, fmt.Errorf("delete now item %d: protected (%s)", id, decision.Reason)
		}
	}

	if err := s.executeDeletion(ctx, it); err != nil {
		if terr := s.queue.Transition(it, queue.StatusError, err.Error()); terr != nil {
			s.logger.Error("error transition failed", "item_id", it.ID, "error", terr)
		}
		return it, err
	}
	if err := s.queue.Transition(it, queue.StatusCompleted, ""); err != nil {
		return nil, err
	}
	s.publish(ctx, &events.MediaDeleted{
		BaseEvent: events.NewBaseEvent(events.EventMediaDeleted, events.EntityMedia, it.MediaID),
		MediaID:   it.MediaID,
		Title:     it.Title,
		RuleID:    it.RuleID,
	})
	return it, nil
}

// Extend pushes a pending item's eligibility forward by days.
func (s *Sweeper) Extend(id int64, days int) (*queue.Item, error) {
	it, err := s.queue.Get(id)
	if err != nil {
		return nil, err
	}
	if err := s.queue.Extend(it, days); err != nil {
		return nil, err
	}
	return it, nil
}

// Prune removes terminal items past the retention window.
func (s *Sweeper) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	n, err := s.queue.Prune(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("queue retention prune", "removed", n)
	}
	return n, nil
}

// snapshotFor rebuilds the minimal media snapshot the protection check
// needs from a stored queue item.
func snapshotFor(it *queue.Item) *media.Item {
	return &media.Item{
		ID:         it.MediaID,
		MetadataID: it.MetadataID,
		Kind:       it.Kind,
		Title:      it.Title,
		Episode:    it.Episode,
	}
}

func (s *Sweeper) publish(ctx context.Context, e events.Event) {
	if s.bus != nil {
		_ = s.bus.Publish(ctx, e)
	}
}
