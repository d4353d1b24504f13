// Package engine orchestrates rule execution: candidate selection, the
// action pipeline, the deletion-queue sweep, and run-status tracking.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/integration"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/rules"
)

// Sentinel errors for the engine package.
var (
	// ErrAlreadyRunning signals a duplicate run request for a rule that is
	// still in flight. It is a no-op signal, not a failure.
	ErrAlreadyRunning = errors.New("rule run already in flight")

	// ErrNoActiveRules signals a run-all request with nothing eligible.
	ErrNoActiveRules = errors.New("no active rules")
)

// Engine evaluates rules against library snapshots and drives the pipeline.
// At most one execution per rule id is in flight at a time; cross-rule runs
// execute concurrently.
type Engine struct {
	rules    *rules.Store
	pipeline *Pipeline
	server   integration.MediaServer
	status   *StatusStore
	bus      *events.Bus
	logger   *slog.Logger

	mu       sync.Mutex
	inflight map[int64]bool
}

// New creates a rule engine.
func New(ruleStore *rules.Store, pipeline *Pipeline, server integration.MediaServer,
	status *StatusStore, bus *events.Bus, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		rules:    ruleStore,
		pipeline: pipeline,
		server:   server,
		status:   status,
		bus:      bus,
		logger:   logger.With("component", "engine"),
		inflight: make(map[int64]bool),
	}
}

// Status returns the run-status store for external polling.
func (e *Engine) Status() *StatusStore {
	return e.status
}

// Evaluate returns the items the rule matches right now, with no side
// effects. Used for previews; safe to call any number of times.
func (e *Engine) Evaluate(ctx context.Context, rule *rules.Rule) ([]*media.Item, error) {
	if e.server == nil {
		return nil, fmt.Errorf("evaluate: %w", integration.ErrUnavailable)
	}

	now := time.Now()
	var matches []*media.Item
	libraries := rule.Libraries
	if len(libraries) == 0 {
		libraries = []string{""} // all libraries
	}
	for _, lib := range libraries {
		items, err := e.server.Items(ctx, lib, rule.Kind)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		for _, item := range items {
			if rule.Matches(item, now) {
				matches = append(matches, item)
			}
		}
	}
	return matches, nil
}

// Run starts one rule's execution as an independent unit of work and
// returns its run id immediately. A second request while the rule is in
// flight returns ErrAlreadyRunning.
func (e *Engine) Run(ctx context.Context, ruleID int64, dryRun bool) (string, error) {
	rule, err := e.rules.Get(ruleID)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	if e.inflight[rule.ID] {
		e.mu.Unlock()
		return "", fmt.Errorf("rule %d: %w", rule.ID, ErrAlreadyRunning)
	}
	e.inflight[rule.ID] = true
	e.mu.Unlock()

	runID := e.status.Begin(rule.ID, dryRun)
	go func() {
		defer func() {
			e.mu.Lock()
			delete(e.inflight, rule.ID)
			e.mu.Unlock()
		}()
		result, err := e.execute(context.WithoutCancel(ctx), rule, runID, dryRun)
		e.status.Finish(runID, result, err)
	}()
	return runID, nil
}

// RunAll starts every active rule in priority order as independent
// concurrent units and returns the accepted run ids. ErrNoActiveRules means
// nothing is eligible; ErrAlreadyRunning means every active rule is still
// in flight from an earlier request.
func (e *Engine) RunAll(ctx context.Context, dryRun bool) ([]string, error) {
	active := true
	list, err := e.rules.List(rules.Filter{Active: &active})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ErrNoActiveRules
	}

	var runIDs []string
	skipped := 0
	for _, rule := range list {
		runID, err := e.Run(ctx, rule.ID, dryRun)
		if errors.Is(err, ErrAlreadyRunning) {
			skipped++
			continue
		}
		if err != nil {
			return runIDs, err
		}
		runIDs = append(runIDs, runID)
	}
	if len(runIDs) == 0 && skipped > 0 {
		return nil, fmt.Errorf("%d active rules: %w", skipped, ErrAlreadyRunning)
	}
	return runIDs, nil
}

// execute runs one rule to completion. Per-item failures are isolated: the
// run continues with remaining matches and the result counts the errors.
func (e *Engine) execute(ctx context.Context, rule *rules.Rule, runID string, dryRun bool) (*rules.RunResult, error) {
	start := time.Now()
	matches, err := e.Evaluate(ctx, rule)
	if err != nil {
		e.publish(ctx, &events.RunError{
			BaseEvent: events.NewBaseEvent(events.EventRunError, events.EntityRule, rule.ID),
			RuleID:    &rule.ID,
			Detail:    err.Error(),
		})
		if errors.Is(err, integration.ErrUnavailable) {
			e.publish(ctx, &events.ServiceDown{
				BaseEvent: events.NewBaseEvent(events.EventServiceDown, events.EntityService, 0),
				Service:   "media_server",
				Detail:    err.Error(),
			})
		}
		return nil, err
	}

	result := &rules.RunResult{Matched: len(matches)}

	// Matches proceed independently; a slow or failing collaborator call
	// for one item must not block the rest.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	var mu sync.Mutex
	for _, item := range matches {
		g.Go(func() error {
			out := e.pipeline.ExecuteMatch(gctx, rule, item, dryRun)
			mu.Lock()
			defer mu.Unlock()
			if out.Queued {
				result.Queued++
			}
			result.Errors += len(out.Errors)
			for _, actionErr := range out.Errors {
				e.publish(gctx, &events.RunError{
					BaseEvent: events.NewBaseEvent(events.EventRunError, events.EntityMedia, item.ID),
					MediaID:   item.ID,
					RuleID:    &rule.ID,
					Detail:    actionErr.Error(),
				})
			}
			return nil
		})
	}
	_ = g.Wait()

	if !dryRun {
		if err := e.rules.RecordRun(rule.ID, start, result.Matched); err != nil {
			e.logger.Error("record run failed", "rule_id", rule.ID, "error", err)
		}
	}

	e.logger.Info("rule run finished",
		"rule_id", rule.ID, "run_id", runID,
		"matched", result.Matched, "queued", result.Queued, "errors", result.Errors,
		"dry_run", dryRun, "duration_ms", time.Since(start).Milliseconds())
	e.publish(ctx, &events.RuleRunCompleted{
		BaseEvent: events.NewBaseEvent(events.EventRuleRunCompleted, events.EntityRule, rule.ID),
		RuleID:    rule.ID,
		RunID:     runID,
		Matched:   result.Matched,
		Queued:    result.Queued,
		Deleted:   result.Deleted,
		Errors:    result.Errors,
		DryRun:    dryRun,
	})
	return result, nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if e.bus != nil {
		_ = e.bus.Publish(ctx, ev)
	}
}
