// internal/engine/sweeper_test.go
package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/prunarr/internal/integration/mocks"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
)

type sweeperFixture struct {
	sweeper   *Sweeper
	queue     *queue.Store
	rules     *rules.Store
	protStore *protection.Store
	server    *mocks.MockMediaServer
}

func newSweeperFixture(t *testing.T, withGuard bool) *sweeperFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)
	protStore := protection.NewStore(db)
	pipeline := NewPipeline(queueStore, server, nil, nil, nil, nil, 7, testLogger())

	var guard *protection.Calculator
	if withGuard {
		cfg := protection.Config{
			ActiveViewerDays: 30, MinEpisodesAhead: 3, VelocityBufferDays: 14,
			MaxEpisodesAhead: 50, MinVelocitySamples: 3, LookbackEpisodes: 10,
			DefaultVelocity: 0.5,
		}
		guard = protection.NewCalculator(protStore, protection.NewTracker(protStore, cfg), nil, cfg, testLogger())
	}

	return &sweeperFixture{
		sweeper:   NewSweeper(queueStore, ruleStore, pipeline, guard, nil, 90, testLogger()),
		queue:     queueStore,
		rules:     ruleStore,
		protStore: protStore,
		server:    server,
	}
}

func (f *sweeperFixture) dueItem(t *testing.T, mediaID int64, ruleID *int64) *queue.Item {
	t.Helper()
	it := &queue.Item{
		MediaID:  mediaID,
		Kind:     media.KindMovie,
		Title:    "Heat",
		RuleID:   ruleID,
		ActionAt: time.Now().Add(-time.Minute),
	}
	created, err := f.queue.Add(it)
	require.NoError(t, err)
	require.True(t, created)
	return it
}

// The whole staged-then-swept path: a due item's deferred delete runs and
// the item completes.
func TestSweeper_Sweep(t *testing.T) {
	f := newSweeperFixture(t, false)
	rule := watchedMovieRule(t, f.rules)

	due := f.dueItem(t, 100, &rule.ID)
	notDue := &queue.Item{MediaID: 200, Kind: media.KindMovie, Title: "Tenet", ActionAt: time.Now().AddDate(0, 0, 5)}
	_, err := f.queue.Add(notDue)
	require.NoError(t, err)

	f.server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(nil)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Completed)
	assert.Zero(t, result.Skipped)
	assert.Zero(t, result.Errors)

	got, err := f.queue.Get(due.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, got.Status)

	got, err = f.queue.Get(notDue.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, got.Status)
}

// Manual entries have no rule; the sweep falls back to a plain library
// delete.
func TestSweeper_Sweep_ManualItem(t *testing.T) {
	f := newSweeperFixture(t, false)

	it := f.dueItem(t, 100, nil)
	f.server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(nil)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)

	got, err := f.queue.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, got.Status)
}

// Dry-run items are previews; the sweep never promotes them.
func TestSweeper_Sweep_SkipsDryRun(t *testing.T) {
	f := newSweeperFixture(t, false)

	it := &queue.Item{MediaID: 100, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now().Add(-time.Minute), IsDryRun: true}
	_, err := f.queue.Add(it)
	require.NoError(t, err)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Due)
}

// A due episode inside a viewer's window stays pending and is retried on
// the next sweep.
func TestSweeper_Sweep_ProtectedStaysPending(t *testing.T) {
	f := newSweeperFixture(t, true)

	require.NoError(t, f.protStore.SaveProtection(&protection.ShowProtection{
		ShowID: 7, Floor: 24, EligibleThrough: 10,
		Viewers:    []protection.ViewerWindow{{ViewerID: "alice", Position: 10, ProtectedThrough: 24}},
		ComputedAt: time.Now(),
	}))

	it := &queue.Item{
		MediaID: 300, Kind: media.KindEpisode, Title: "Dark S02E03",
		Episode:  &media.EpisodeRef{ShowID: 7, Season: 2, Episode: 3, Ordinal: 15},
		ActionAt: time.Now().Add(-time.Minute),
	}
	_, err := f.queue.Add(it)
	require.NoError(t, err)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Skipped)
	assert.Zero(t, result.Completed)

	got, err := f.queue.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, got.Status)
}

// A collaborator failure moves the item to error with the detail attached;
// the sweep keeps going.
func TestSweeper_Sweep_CollaboratorFailure(t *testing.T) {
	f := newSweeperFixture(t, false)

	failing := f.dueItem(t, 100, nil)
	passing := f.dueItem(t, 200, nil)

	f.server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(errors.New("plex timeout"))
	f.server.EXPECT().DeleteItem(gomock.Any(), int64(200)).Return(nil)

	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Errors)
	assert.Equal(t, 1, result.Completed)

	got, err := f.queue.Get(failing.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusError, got.Status)
	assert.Contains(t, got.ErrorDetail, "plex timeout")

	got, err = f.queue.Get(passing.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, got.Status)
}

// An errored item retried by the operator completes on the next sweep.
func TestSweeper_Sweep_RetryAfterError(t *testing.T) {
	f := newSweeperFixture(t, false)

	it := f.dueItem(t, 100, nil)
	f.server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(errors.New("plex timeout"))
	_, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)

	got, err := f.queue.Get(it.ID)
	require.NoError(t, err)
	require.NoError(t, f.queue.Transition(got, queue.StatusPending, ""))

	f.server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(nil)
	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Completed)
}

func TestSweeper_Save(t *testing.T) {
	f := newSweeperFixture(t, false)
	it := f.dueItem(t, 100, nil)

	saved, err := f.sweeper.Save(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCancelled, saved.Status)

	// Idempotent.
	saved, err = f.sweeper.Save(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCancelled, saved.Status)

	// A saved item is invisible to the sweep.
	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Due)
}

func TestSweeper_Save_Completed(t *testing.T) {
	f := newSweeperFixture(t, false)
	it := f.dueItem(t, 100, nil)
	require.NoError(t, f.queue.Transition(it, queue.StatusCompleted, ""))

	_, err := f.sweeper.Save(it.ID)
	assert.True(t, errors.Is(err, queue.ErrInvalidTransition))
}

func TestSweeper_DeleteNow(t *testing.T) {
	f := newSweeperFixture(t, false)

	it := &queue.Item{MediaID: 100, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now().AddDate(0, 0, 7)}
	_, err := f.queue.Add(it)
	require.NoError(t, err)

	f.server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(nil)

	got, err := f.sweeper.DeleteNow(context.Background(), it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCompleted, got.Status)
}

func TestSweeper_DeleteNow_ProtectedRefused(t *testing.T) {
	f := newSweeperFixture(t, true)

	require.NoError(t, f.protStore.SaveProtection(&protection.ShowProtection{
		ShowID: 7, Floor: 24, EligibleThrough: 10,
		Viewers:    []protection.ViewerWindow{{ViewerID: "alice", Position: 10, ProtectedThrough: 24}},
		ComputedAt: time.Now(),
	}))

	it := &queue.Item{
		MediaID: 300, Kind: media.KindEpisode, Title: "Dark S02E03",
		Episode:  &media.EpisodeRef{ShowID: 7, Season: 2, Episode: 3, Ordinal: 15},
		ActionAt: time.Now().AddDate(0, 0, 7),
	}
	_, err := f.queue.Add(it)
	require.NoError(t, err)

	_, err = f.sweeper.DeleteNow(context.Background(), it.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "protected")

	got, err := f.queue.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, got.Status)
}

// A saved item must stay saved: delete-now refuses before any collaborator
// call fires. The mock has no DeleteItem expectation, so a stray delete
// fails the test.
func TestSweeper_DeleteNow_SavedRefused(t *testing.T) {
	f := newSweeperFixture(t, false)
	it := f.dueItem(t, 100, nil)

	_, err := f.sweeper.Save(it.ID)
	require.NoError(t, err)

	_, err = f.sweeper.DeleteNow(context.Background(), it.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, queue.ErrInvalidTransition))

	got, err := f.queue.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusCancelled, got.Status)
}

// A completed item's actions never fire a second time.
func TestSweeper_DeleteNow_CompletedRefused(t *testing.T) {
	f := newSweeperFixture(t, false)
	it := f.dueItem(t, 100, nil)
	require.NoError(t, f.queue.Transition(it, queue.StatusCompleted, ""))

	_, err := f.sweeper.DeleteNow(context.Background(), it.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, queue.ErrInvalidTransition))
}

func TestSweeper_DeleteNow_DryRunRefused(t *testing.T) {
	f := newSweeperFixture(t, false)

	it := &queue.Item{MediaID: 100, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now().AddDate(0, 0, 7), IsDryRun: true}
	_, err := f.queue.Add(it)
	require.NoError(t, err)

	_, err = f.sweeper.DeleteNow(context.Background(), it.ID)
	require.Error(t, err)
}

func TestSweeper_Extend(t *testing.T) {
	f := newSweeperFixture(t, false)
	it := f.dueItem(t, 100, nil)
	before := it.ActionAt

	got, err := f.sweeper.Extend(it.ID, 7)
	require.NoError(t, err)
	assert.WithinDuration(t, before.AddDate(0, 0, 7), got.ActionAt, time.Second)

	// No longer due.
	result, err := f.sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Due)
}

func TestSweeper_Prune(t *testing.T) {
	f := newSweeperFixture(t, false)

	it := f.dueItem(t, 100, nil)
	require.NoError(t, f.queue.Transition(it, queue.StatusCompleted, ""))

	// Retention is 90 days; a fresh terminal row survives.
	n, err := f.sweeper.Prune(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
