// internal/engine/testutil_test.go
package engine

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/migrations"
	"github.com/vmunix/prunarr/internal/rules"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// watchedMovieRule matches watched movies and stages then deletes them.
func watchedMovieRule(t *testing.T, store *rules.Store) *rules.Rule {
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
	require.NoError(t, store.Add(r))
	return r
}

func watchedMovie(id int64, title string) *media.Item {
	watched := time.Now().AddDate(0, 0, -120)
	return &media.Item{
		ID:            id,
		MetadataID:    "tmdb://603",
		Library:       "Movies",
		Kind:          media.KindMovie,
		Title:         title,
		Watched:       true,
		ViewCount:     1,
		LastWatchedAt: &watched,
		AddedAt:       time.Now().AddDate(0, 0, -200),
	}
}
