// internal/rules/testutil_test.go
package rules

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/prunarr/internal/media"
	"github.com/vmunix/prunarr/internal/migrations"
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

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}

func testItem(overrides func(*media.Item)) *media.Item {
	item := &media.Item{
		ID:       1,
		Library:  "Movies",
		Kind:     media.KindMovie,
		Title:    "Heat",
		AddedAt:  time.Now().AddDate(0, 0, -100),
		Rating:   8.3,
		Genres:   []string{"Crime", "Thriller"},
		Watched:  true,
		ViewCount: 2,
	}
	if overrides != nil {
		overrides(item)
	}
	return item
}
