// internal/rules/condition_test.go
package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vmunix/prunarr/internal/media"
)

func TestCondition_Eval_Bool(t *testing.T) {
	now := time.Now()
	item := testItem(func(i *media.Item) {
		i.Watched = true
		i.Monitored = false
		i.OnWatchlist = true
	})

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"watched true", Condition{Field: FieldWatched, Op: OpEquals, Value: "true"}, true},
		{"watched false", Condition{Field: FieldWatched, Op: OpEquals, Value: "false"}, false},
		{"monitored false", Condition{Field: FieldMonitored, Op: OpEquals, Value: "false"}, true},
		{"on watchlist", Condition{Field: FieldOnWatchlist, Op: OpEquals, Value: "true"}, true},
		{"active request default", Condition{Field: FieldHasActiveRequest, Op: OpEquals, Value: "false"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Eval(item, now))
		})
	}
}

func TestCondition_Eval_Number(t *testing.T) {
	now := time.Now()
	watched := now.AddDate(0, 0, -30)
	item := testItem(func(i *media.Item) {
		i.ViewCount = 3
		i.LastWatchedAt = &watched
		i.AddedAt = now.AddDate(0, 0, -365)
		i.Rating = 6.5
		i.FileSizeBytes = 4 * 1024 * 1024 * 1024
	})

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"view count gt", Condition{Field: FieldViewCount, Op: OpGreaterThan, Value: "2"}, true},
		{"view count eq", Condition{Field: FieldViewCount, Op: OpEquals, Value: "3"}, true},
		{"days since watched gt", Condition{Field: FieldDaysSinceWatched, Op: OpGreaterThan, Value: "29"}, true},
		{"days since watched lt", Condition{Field: FieldDaysSinceWatched, Op: OpLessThan, Value: "29"}, false},
		{"days since added ge", Condition{Field: FieldDaysSinceAdded, Op: OpGreaterOrEqual, Value: "364"}, true},
		{"rating lt", Condition{Field: FieldRating, Op: OpLessThan, Value: "7"}, true},
		{"file size gb gt", Condition{Field: FieldFileSizeGB, Op: OpGreaterThan, Value: "3.5"}, true},
		{"file size gb le", Condition{Field: FieldFileSizeGB, Op: OpLessOrEqual, Value: "4"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Eval(item, now))
		})
	}
}

// A never-watched item reads as infinitely many days since watched: it
// matches "older than N" conditions and never matches "newer than N".
func TestCondition_Eval_NeverWatched(t *testing.T) {
	now := time.Now()
	item := testItem(func(i *media.Item) {
		i.Watched = false
		i.LastWatchedAt = nil
	})

	older := Condition{Field: FieldDaysSinceWatched, Op: OpGreaterThan, Value: "10000"}
	assert.True(t, older.Eval(item, now))

	newer := Condition{Field: FieldDaysSinceWatched, Op: OpLessThan, Value: "10000"}
	assert.False(t, newer.Eval(item, now))
}

func TestCondition_Eval_Text(t *testing.T) {
	now := time.Now()
	item := testItem(func(i *media.Item) {
		i.Title = "The Long Goodbye"
		i.Genres = []string{"Crime", "Neo-Noir"}
		i.ContentRating = "R"
	})

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"title equals folded", Condition{Field: FieldTitle, Op: OpEquals, Value: "the long goodbye"}, true},
		{"title contains", Condition{Field: FieldTitle, Op: OpContains, Value: "goodbye"}, true},
		{"title not contains", Condition{Field: FieldTitle, Op: OpNotContains, Value: "hello"}, true},
		{"genre any member", Condition{Field: FieldGenre, Op: OpEquals, Value: "crime"}, true},
		{"genre contains member", Condition{Field: FieldGenre, Op: OpContains, Value: "noir"}, true},
		{"genre not equals absent", Condition{Field: FieldGenre, Op: OpNotEquals, Value: "comedy"}, true},
		{"content rating", Condition{Field: FieldContentRating, Op: OpEquals, Value: "r"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Eval(item, now))
		})
	}
}

// Malformed conditions never match; they must not fail the sweep.
func TestCondition_Eval_MalformedFailsClosed(t *testing.T) {
	now := time.Now()
	item := testItem(nil)

	tests := []struct {
		name string
		cond Condition
	}{
		{"unknown field", Condition{Field: "resolution", Op: OpEquals, Value: "4k"}},
		{"operator wrong for type", Condition{Field: FieldWatched, Op: OpGreaterThan, Value: "true"}},
		{"bad bool value", Condition{Field: FieldWatched, Op: OpEquals, Value: "yes please"}},
		{"bad number value", Condition{Field: FieldRating, Op: OpGreaterThan, Value: "high"}},
		{"contains on number", Condition{Field: FieldViewCount, Op: OpContains, Value: "1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.cond.Eval(item, now))
		})
	}
}

func TestCondition_Validate(t *testing.T) {
	good := Condition{Field: FieldRating, Op: OpLessThan, Value: "6", Join: JoinAnd}
	assert.Empty(t, good.Validate(false))

	// Last condition may omit the join.
	last := Condition{Field: FieldWatched, Op: OpEquals, Value: "true"}
	assert.Empty(t, last.Validate(true))

	tests := []struct {
		name   string
		cond   Condition
		isLast bool
	}{
		{"unknown field", Condition{Field: "codec", Op: OpEquals, Value: "x"}, true},
		{"disallowed operator", Condition{Field: FieldTitle, Op: OpGreaterThan, Value: "x"}, true},
		{"bad bool", Condition{Field: FieldWatched, Op: OpEquals, Value: "maybe"}, true},
		{"bad number", Condition{Field: FieldViewCount, Op: OpEquals, Value: "many"}, true},
		{"missing join", Condition{Field: FieldWatched, Op: OpEquals, Value: "true"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.cond.Validate(tt.isLast))
		})
	}
}
