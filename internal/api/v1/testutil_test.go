// internal/api/v1/testutil_test.go
package v1

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/vmunix/prunarr/internal/engine"
	"github.com/vmunix/prunarr/internal/events"
	"github.com/vmunix/prunarr/internal/integration/mocks"
	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/migrations"
	"github.com/vmunix/prunarr/internal/protection"
	"github.com/vmunix/prunarr/internal/queue"
	"github.com/vmunix/prunarr/internal/rules"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)
	return db
}

// fixture wires a full v1 server over an in-memory database with a mocked
// media server. Requests go through the mux so path values resolve.
type fixture struct {
	mux       *http.ServeMux
	rules     *rules.Store
	queue     *queue.Store
	protStore *protection.Store
	eventLog  *events.EventLog
	server    *mocks.MockMediaServer
	engine    *engine.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	ctrl := gomock.NewController(t)
	server := mocks.NewMockMediaServer(ctrl)

	ruleStore := rules.NewStore(db)
	queueStore := queue.NewStore(db)
	protStore := protection.NewStore(db)
	eventLog := events.NewEventLog(db)

	cfg := protection.Config{
		ActiveViewerDays: 30, MinEpisodesAhead: 3, VelocityBufferDays: 14,
		MaxEpisodesAhead: 50, MinVelocitySamples: 3, LookbackEpisodes: 10,
		DefaultVelocity: 0.5,
	}
	guard := protection.NewCalculator(protStore, protection.NewTracker(protStore, cfg), nil, cfg, testLogger())

	pipeline := engine.NewPipeline(queueStore, server, nil, nil, nil, nil, 7, testLogger())
	eng := engine.New(ruleStore, pipeline, server, engine.NewStatusStore(time.Hour), nil, testLogger())
	sweeper := engine.NewSweeper(queueStore, ruleStore, pipeline, guard, nil, 90, testLogger())

	srv := New(Deps{
		Rules:     ruleStore,
		Queue:     queueStore,
		Engine:    eng,
		Sweeper:   sweeper,
		Guard:     guard,
		ProtStore: protStore,
		EventLog:  eventLog,
		Version:   "test",
	})
	mux := http.NewServeMux()
	srv.RegisterRoutes(mux)

	return &fixture{
		mux:       mux,
		rules:     ruleStore,
		queue:     queueStore,
		protStore: protStore,
		eventLog:  eventLog,
		server:    server,
		engine:    eng,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (f *fixture) addRule(t *testing.T) *rules.Rule {
	t.Helper()
	r := &rules.Rule{
		Name: "watched movies",
		Kind: media.KindMovie,
		Expression: rules.Expression{
			{Field: rules.FieldWatched, Op: rules.OpEquals, Value: "true"},
		},
		Actions: []rules.Action{
			rules.AddToCollection{Collection: "Leaving Soon"},
			rules.DeleteFromLibrary{},
		},
		Active: true,
	}
	require.NoError(t, f.rules.Add(r))
	return r
}

func (f *fixture) addQueueItem(t *testing.T, it *queue.Item) *queue.Item {
	t.Helper()
	created, err := f.queue.Add(it)
	require.NoError(t, err)
	require.True(t, created)
	return it
}
