// internal/engine/pipeline_test.go
package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/prunarr/internal/integration"
	"github.com/vmunix/prunarr/internal/integration/mocks"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
)

func TestPipeline_ExecuteMatch_Stages(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)
	rule := watchedMovieRule(t, ruleStore)

	p := NewPipeline(queueStore, server, nil, nil, nil, nil, 7, testLogger())
	item := watchedMovie(100, "Heat")

	server.EXPECT().AddToCollection(gomock.Any(), int64(100), "Leaving Soon").Return(nil)

	out := p.ExecuteMatch(context.Background(), rule, item, false)
	assert.True(t, out.Queued)
	assert.Empty(t, out.Errors)

	staged, err := queueStore.List(queue.Filter{})
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.Equal(t, queue.StatusPending, staged[0].Status)
	assert.Equal(t, int64(100), staged[0].MediaID)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), staged[0].ActionAt, time.Minute)

	// The deferred delete did not run at match time.
	// (No DeleteItem expectation set; gomock would fail the test if called.)
}

func TestPipeline_ExecuteMatch_BufferOverride(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	server.EXPECT().AddToCollection(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)
	rule := watchedMovieRule(t, ruleStore)
	days := 30
	rule.BufferDays = &days
	require.NoError(t, ruleStore.Update(rule))

	p := NewPipeline(queueStore, server, nil, nil, nil, nil, 7, testLogger())
	out := p.ExecuteMatch(context.Background(), rule, watchedMovie(100, "Heat"), false)
	require.True(t, out.Queued)

	staged, err := queueStore.List(queue.Filter{})
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), staged[0].ActionAt, time.Minute)
}

// Dry-run stages a cosmetic queue item and touches no collaborator.
func TestPipeline_ExecuteMatch_DryRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	tv := mocks.NewMockManager(ctrl)

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)
	rule := watchedMovieRule(t, ruleStore)
	rule.Actions = append(rule.Actions, rules.Unmonitor{Kind: media.KindMovie}, rules.AddTag{Tag: "pruned"})
	require.NoError(t, ruleStore.Update(rule))

	p := NewPipeline(queueStore, server, tv, tv, nil, nil, 7, testLogger())
	out := p.ExecuteMatch(context.Background(), rule, watchedMovie(100, "Heat"), true)
	assert.True(t, out.Queued)
	assert.Empty(t, out.Errors)

	staged, err := queueStore.List(queue.Filter{})
	require.NoError(t, err)
	require.Len(t, staged, 1)
	assert.True(t, staged[0].IsDryRun)
}

func TestPipeline_ExecuteMatch_ImmediateActions(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	movie := mocks.NewMockManager(ctrl)
	requests := mocks.NewMockRequests(ctrl)

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)

	rule := watchedMovieRule(t, ruleStore)
	rule.Actions = []rules.Action{
		rules.Unmonitor{Kind: media.KindMovie},
		rules.ClearRequest{},
		rules.AddTag{Tag: "pruned"},
	}
	require.NoError(t, ruleStore.Update(rule))

	item := watchedMovie(100, "Heat")
	movie.EXPECT().Unmonitor(gomock.Any(), "tmdb://603").Return(nil)
	requests.EXPECT().ClearRequest(gomock.Any(), int64(100)).Return(nil)
	server.EXPECT().AddTag(gomock.Any(), int64(100), "pruned").Return(nil)

	p := NewPipeline(queueStore, server, nil, movie, requests, nil, 7, testLogger())
	out := p.ExecuteMatch(context.Background(), rule, item, false)
	assert.False(t, out.Queued)
	assert.Empty(t, out.Errors)
}

// One failing action does not stop the rest of the list.
func TestPipeline_ExecuteMatch_ErrorsIsolated(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	movie := mocks.NewMockManager(ctrl)

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)

	rule := watchedMovieRule(t, ruleStore)
	rule.Actions = []rules.Action{
		rules.Unmonitor{Kind: media.KindMovie},
		rules.AddTag{Tag: "pruned"},
	}
	require.NoError(t, ruleStore.Update(rule))

	movie.EXPECT().Unmonitor(gomock.Any(), gomock.Any()).Return(errors.New("radarr down"))
	server.EXPECT().AddTag(gomock.Any(), int64(100), "pruned").Return(nil)

	p := NewPipeline(queueStore, server, nil, movie, nil, nil, 7, testLogger())
	out := p.ExecuteMatch(context.Background(), rule, watchedMovie(100, "Heat"), false)
	assert.Len(t, out.Errors, 1)
}

// A missing collaborator fails the action with ErrUnavailable instead of
// panicking.
func TestPipeline_ExecuteMatch_MissingCollaborator(t *testing.T) {
	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)

	rule := watchedMovieRule(t, ruleStore)
	rule.Actions = []rules.Action{rules.Unmonitor{Kind: media.KindMovie}}
	require.NoError(t, ruleStore.Update(rule))

	p := NewPipeline(queueStore, nil, nil, nil, nil, nil, 7, testLogger())
	out := p.ExecuteMatch(context.Background(), rule, watchedMovie(100, "Heat"), false)
	require.Len(t, out.Errors, 1)
	assert.True(t, errors.Is(out.Errors[0], integration.ErrUnavailable))
}

// Queue staging survives a failed collection write; membership is cosmetic.
func TestPipeline_ExecuteMatch_CollectionFailureTolerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	server.EXPECT().AddToCollection(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("plex busy"))

	db := setupTestDB(t)
	queueStore := queue.NewStore(db)
	ruleStore := rules.NewStore(db)
	rule := watchedMovieRule(t, ruleStore)

	p := NewPipeline(queueStore, server, nil, nil, nil, nil, 7, testLogger())
	out := p.ExecuteMatch(context.Background(), rule, watchedMovie(100, "Heat"), false)
	assert.True(t, out.Queued)
	assert.Empty(t, out.Errors)
}

func TestPipeline_ExecuteDeferred(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	tv := mocks.NewMockManager(ctrl)

	db := setupTestDB(t)
	p := NewPipeline(queue.NewStore(db), server, tv, nil, nil, nil, 7, testLogger())

	it := &queue.Item{ID: 1, MediaID: 100, MetadataID: "tvdb://361753", Kind: media.KindShow, Title: "Dark"}
	actions := []rules.Action{
		rules.AddToCollection{Collection: "Leaving Soon"}, // immediate, skipped here
		rules.DeleteFromLibrary{},
		rules.DeleteFromManager{Kind: media.KindShow, DeleteFiles: true},
	}

	server.EXPECT().DeleteItem(gomock.Any(), int64(100)).Return(nil)
	tv.EXPECT().Delete(gomock.Any(), "tvdb://361753", true, false).Return(nil)

	require.NoError(t, p.ExecuteDeferred(context.Background(), actions, it))
}

func TestPipeline_ExecuteDeferred_StopsOnError(t *testing.T) {
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)
	server.EXPECT().DeleteItem(gomock.Any(), gomock.Any()).Return(errors.New("plex down"))

	db := setupTestDB(t)
	p := NewPipeline(queue.NewStore(db), server, nil, nil, nil, nil, 7, testLogger())

	it := &queue.Item{ID: 1, MediaID: 100, Kind: media.KindMovie}
	actions := []rules.Action{
		rules.DeleteFromLibrary{},
		rules.DeleteFiles{}, // must not run after the first failure
	}
	err := p.ExecuteDeferred(context.Background(), actions, it)
	require.Error(t, err)
}
