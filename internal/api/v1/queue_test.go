// internal/api/v1/queue_test.go
package v1

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/prunarr/internal/engine"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/queue"
)

func TestListQueue(t *testing.T) {
	f := newFixture(t)
	rule := f.addRule(t)

	f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindMovie, Title: "Heat", RuleID: &rule.ID,
		ActionAt: time.Now().Add(-time.Hour),
	})
	f.addQueueItem(t, &queue.Item{
		MediaID: 2, Kind: media.KindMovie, Title: "Tenet",
		ActionAt: time.Now().AddDate(0, 0, 7),
	})

	w := f.do(t, http.MethodGet, "/api/v1/queue", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[listQueueResponse](t, w)
	assert.Equal(t, 2, resp.Total)

	// Only the overdue item is due.
	w = f.do(t, http.MethodGet, "/api/v1/queue?due=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[listQueueResponse](t, w)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Heat", resp.Items[0].Title)

	w = f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/queue?rule_id=%d", rule.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[listQueueResponse](t, w)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, rule.ID, *resp.Items[0].RuleID)

	w = f.do(t, http.MethodGet, "/api/v1/queue?status=completed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, decode[listQueueResponse](t, w).Total)
}

func TestGetQueueItem(t *testing.T) {
	f := newFixture(t)
	it := f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindEpisode, Title: "Dark S02E03",
		Episode:  &media.EpisodeRef{ShowID: 7, Season: 2, Episode: 3, Ordinal: 15},
		ActionAt: time.Now().AddDate(0, 0, 7),
	})

	w := f.do(t, http.MethodGet, fmt.Sprintf("/api/v1/queue/%d", it.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[queueItemResponse](t, w)
	assert.Equal(t, "Dark S02E03", resp.Title)
	assert.Equal(t, "pending", resp.Status)
	require.NotNil(t, resp.Episode)
	assert.Equal(t, 15, resp.Episode.Ordinal)
}

func TestGetQueueItem_NotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/v1/queue/999", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorResponse](t, w).Code)
}

func TestSaveQueueItem(t *testing.T) {
	f := newFixture(t)
	it := f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now().AddDate(0, 0, 7),
	})

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/save", it.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[queueItemResponse](t, w).Status)

	// Saving again is a no-op, not a conflict.
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/save", it.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[queueItemResponse](t, w).Status)

	// A completed item cannot be saved.
	done := f.addQueueItem(t, &queue.Item{
		MediaID: 2, Kind: media.KindMovie, Title: "Tenet",
		ActionAt: time.Now().AddDate(0, 0, 7),
	})
	require.NoError(t, f.queue.Transition(done, queue.StatusCompleted, ""))
	w = f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/save", done.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", decode[errorResponse](t, w).Code)
}

func TestDeleteNowQueueItem(t *testing.T) {
	f := newFixture(t)
	it := f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now().AddDate(0, 0, 7),
	})

	f.server.EXPECT().DeleteItem(gomock.Any(), int64(1)).Return(nil)

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/delete-now", it.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode[queueItemResponse](t, w).Status)
}

func TestDeleteNowQueueItem_ProtectedRefused(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.protStore.SaveProtection(&protection.ShowProtection{
		ShowID: 7, Floor: 24, EligibleThrough: 10,
		Viewers:    []protection.ViewerWindow{{ViewerID: "alice", Position: 10, ProtectedThrough: 24}},
		ComputedAt: time.Now(),
	}))
	it := f.addQueueItem(t, &queue.Item{
		MediaID: 300, Kind: media.KindEpisode, Title: "Dark S02E03",
		Episode:  &media.EpisodeRef{ShowID: 7, Season: 2, Episode: 3, Ordinal: 15},
		ActionAt: time.Now().AddDate(0, 0, 7),
	})

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/delete-now", it.ID), nil)
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Equal(t, "DELETE_REFUSED", resp.Code)
	assert.Contains(t, resp.Error, "protected")

	got, err := f.queue.Get(it.ID)
	require.NoError(t, err)
	assert.Equal(t, queue.StatusPending, got.Status)
}

func TestExtendQueueItem(t *testing.T) {
	f := newFixture(t)
	it := f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now(),
	})

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/extend", it.ID), extendRequest{Days: 14})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[queueItemResponse](t, w)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), resp.ActionAt, time.Minute)
}

func TestExtendQueueItem_InvalidDays(t *testing.T) {
	f := newFixture(t)
	it := f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindMovie, Title: "Heat", ActionAt: time.Now(),
	})

	w := f.do(t, http.MethodPost, fmt.Sprintf("/api/v1/queue/%d/extend", it.ID), extendRequest{Days: 0})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DAYS", decode[errorResponse](t, w).Code)
}

func TestTriggerSweep(t *testing.T) {
	f := newFixture(t)
	f.addQueueItem(t, &queue.Item{
		MediaID: 1, Kind: media.KindMovie, Title: "Heat",
		ActionAt: time.Now().Add(-time.Hour),
	})
	f.server.EXPECT().DeleteItem(gomock.Any(), int64(1)).Return(nil)

	w := f.do(t, http.MethodPost, "/api/v1/queue/sweep", nil)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[engine.SweepResult](t, w)
	assert.Equal(t, 1, result.Due)
	assert.Equal(t, 1, result.Completed)
}

func TestProtectionEndpoints(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.protStore.SaveProtection(&protection.ShowProtection{
		ShowID: 7, Floor: 24, EligibleThrough: 10,
		Viewers:    []protection.ViewerWindow{{ViewerID: "alice", Position: 10, Velocity: 1, ProtectedThrough: 24}},
		ComputedAt: time.Now(),
	}))

	w := f.do(t, http.MethodGet, "/api/v1/protection", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]protectionResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, int64(7), list[0].ShowID)
	assert.Equal(t, 24, list[0].Floor)

	w = f.do(t, http.MethodGet, "/api/v1/protection/7", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[protectionResponse](t, w)
	require.Len(t, got.Viewers, 1)
	assert.Equal(t, "alice", got.Viewers[0].ViewerID)

	w = f.do(t, http.MethodGet, "/api/v1/protection/8", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunProtection(t *testing.T) {
	f := newFixture(t)

	// No watch history at all; the run completes with nothing to protect.
	w := f.do(t, http.MethodPost, "/api/v1/protection/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.protStore.AddTask(&protection.RedownloadTask{
		ShowID: 7, Season: 2, Episode: 3, Ordinal: 15, ViewerID: "alice",
		DueBy: time.Now().AddDate(0, 0, 3), Urgency: protection.UrgencyNormal,
	}))

	w := f.do(t, http.MethodGet, "/api/v1/protection/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	tasks := decode[[]taskResponse](t, w)
	require.Len(t, tasks, 1)
	assert.Equal(t, 15, tasks[0].Ordinal)
	assert.Equal(t, "alice", tasks[0].Viewer)
}

func TestProtection_Unconfigured(t *testing.T) {
	srv := New(Deps{Version: "test"})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)
	f := &fixture{mux: mux}

	w := f.do(t, http.MethodGet, "/api/v1/protection", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decode[errorResponse](t, w).Code)

	w = f.do(t, http.MethodPost, "/api/v1/protection/redownload/run", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
