// internal/protection/testutil_test.go
package protection

import (
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/migrations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

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

func testConfig() Config {
	return Config{
		ActiveViewerDays:   30,
		MinEpisodesAhead:   3,
		VelocityBufferDays: 14,
		MaxEpisodesAhead:   50,
		MinVelocitySamples: 3,
		LookbackEpisodes:   10,
		DefaultVelocity:    0.5,
	}
}

// watchRun appends one event per day ending at end, advancing the ordinal
// by step each day. ordinal is the final (highest) position.
func watchRun(t *testing.T, store *Store, viewer string, showID int64, ordinal, count int, perDay float64, end time.Time) {
	t.Helper()
	var events []media.WatchEvent
	for i := 0; i < count; i++ {
		o := ordinal - i
		events = append(events, media.WatchEvent{
			ViewerID:  viewer,
			ShowID:    showID,
			Season:    1,
			Episode:   o,
			Ordinal:   o,
			WatchedAt: end.Add(-time.Duration(float64(i)/perDay*24) * time.Hour),
		})
	}
	if err := store.AddWatchEvents(events); err != nil {
		t.Fatalf("add watch events: %v", err)
	}
}
