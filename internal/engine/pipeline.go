package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/integration"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
)

// Pipeline executes a rule's actions against one matched item. Soft actions
// run at match time; deletion-class actions are deferred until the queue
// buffer expires and run through ExecuteDeferred.
type Pipeline struct {
	queue    *queue.Store
	server   integration.MediaServer
	tv       integration.Manager
	movie    integration.Manager
	requests integration.Requests
	bus      *events.Bus
	logger   *slog.Logger

	defaultBufferDays int
}

// NewPipeline creates an action pipeline. Collaborators may be nil when not
// configured; their actions then fail with ErrUnavailable.
func NewPipeline(q *queue.Store, server integration.MediaServer, tv, movie integration.Manager,
	requests integration.Requests, bus *events.Bus, defaultBufferDays int, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		queue:             q,
		server:            server,
		tv:                tv,
		movie:             movie,
		requests:          requests,
		bus:               bus,
		logger:            logger.With("component", "pipeline"),
		defaultBufferDays: defaultBufferDays,
	}
}

// MatchOutcome reports what the match-time pass did for one item.
type MatchOutcome struct {
	Queued bool
	Errors []error
}

// ExecuteMatch runs the rule's actions against one matched item in
// configured order. Deferred actions are skipped here; add_to_collection
// stages the item into the queue instead. Dry-run stages a cosmetic queue
// item and performs nothing else.
func (p *Pipeline) ExecuteMatch(ctx context.Context, rule *rules.Rule, item *media.Item, dryRun bool) MatchOutcome {
	var out MatchOutcome
	for _, action := range rule.Actions {
		if action.Deferred() {
			continue
		}
		if err := p.executeImmediate(ctx, rule, item, action, dryRun, &out); err != nil {
			out.Errors = append(out.Errors, err)
			p.logger.Error("action failed",
				"rule_id", rule.ID, "media_id", item.ID,
				"action", fmt.Sprintf("%T", action), "error", err)
		}
	}
	return out
}

func (p *Pipeline) executeImmediate(ctx context.Context, rule *rules.Rule, item *media.Item,
	action rules.Action, dryRun bool, out *MatchOutcome) error {

	switch a := action.(type) {
	case rules.AddToCollection:
		queued, err := p.stage(ctx, rule, item, a.Collection, dryRun)
		if err != nil {
			return err
		}
		out.Queued = out.Queued || queued
		return nil

	case rules.Unmonitor:
		if dryRun {
			return nil
		}
		mgr := p.manager(a.Kind)
		if mgr == nil {
			return fmt.Errorf("unmonitor: %w", integration.ErrUnavailable)
		}
		return mgr.Unmonitor(ctx, item.MetadataID)

	case rules.ClearRequest:
		if dryRun {
			return nil
		}
		if p.requests == nil {
			return fmt.Errorf("clear request: %w", integration.ErrUnavailable)
		}
		return p.requests.ClearRequest(ctx, item.ID)

	case rules.AddTag:
		if dryRun {
			return nil
		}
		if p.server == nil {
			return fmt.Errorf("add tag: %w", integration.ErrUnavailable)
		}
		return p.server.AddTag(ctx, item.ID, a.Tag)
	}
	return fmt.Errorf("unexpected immediate action %T", action)
}

// stage creates the pending queue item for (media, rule). Idempotent: an
// existing pending pair is reused, not duplicated.
func (p *Pipeline) stage(ctx context.Context, rule *rules.Rule, item *media.Item, collection string, dryRun bool) (bool, error) {
	bufferDays := p.defaultBufferDays
	if rule.BufferDays != nil {
		bufferDays = *rule.BufferDays
	}

	ruleID := rule.ID
	it := &queue.Item{
		MediaID:    item.ID,
		MetadataID: item.MetadataID,
		Kind:       item.Kind,
		Title:      item.Title,
		RuleID:     &ruleID,
		Episode:    item.Episode,
		ActionAt:   time.Now().AddDate(0, 0, bufferDays),
		IsDryRun:   dryRun,
	}
	created, err := p.queue.Add(it)
	if err != nil {
		return false, fmt.Errorf("stage queue item: %w", err)
	}

	if !dryRun && p.server != nil && collection != "" {
		if err := p.server.AddToCollection(ctx, item.ID, collection); err != nil {
			// Queue staging already succeeded; collection membership is
			// cosmetic and the next run retries it.
			p.logger.Warn("add to collection failed", "media_id", item.ID, "error", err)
		}
	}

	if created {
		p.publish(ctx, &events.QueueItemAdded{
			BaseEvent: events.NewBaseEvent(events.EventQueueItemAdded, events.EntityQueueItem, it.ID),
			MediaID:   item.ID,
			Title:     item.Title,
			RuleID:    &ruleID,
			ActionAt:  it.ActionAt,
			DryRun:    dryRun,
		})
	}
	return created, nil
}

// ExecuteDeferred runs the rule's deletion-class actions for one queue item
// whose buffer has expired and whose protection check passed.
func (p *Pipeline) ExecuteDeferred(ctx context.Context, actions []rules.Action, it *queue.Item) error {
	for _, action := range actions {
		if !action.Deferred() {
			continue
		}
		if err := p.executeDeferred(ctx, action, it); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) executeDeferred(ctx context.Context, action rules.Action, it *queue.Item) error {
	switch a := action.(type) {
	case rules.DeleteFromLibrary:
		if p.server == nil {
			return fmt.Errorf("delete from library: %w", integration.ErrUnavailable)
		}
		return p.server.DeleteItem(ctx, it.MediaID)

	case rules.DeleteFiles:
		if p.server == nil {
			return fmt.Errorf("delete files: %w", integration.ErrUnavailable)
		}
		return p.server.DeleteFiles(ctx, it.MediaID)

	case rules.DeleteFromManager:
		mgr := p.manager(a.Kind)
		if mgr == nil {
			return fmt.Errorf("delete from manager: %w", integration.ErrUnavailable)
		}
		return mgr.Delete(ctx, it.MetadataID, a.DeleteFiles, a.AddExclusion)
	}
	return fmt.Errorf("unexpected deferred action %T", action)
}

func (p *Pipeline) manager(kind media.Kind) integration.Manager {
	switch kind {
	case media.KindMovie:
		return p.movie
	default:
		return p.tv
	}
}

func (p *Pipeline) publish(ctx context.Context, e events.Event) {
	if p.bus != nil {
		_ = p.bus.Publish(ctx, e)
	}
}
