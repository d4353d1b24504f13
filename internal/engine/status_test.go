// internal/engine/status_test.go
package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/prunarr/internal/rules"
)

func TestStatusStore_Lifecycle(t *testing.T) {
	store := NewStatusStore(time.Hour)

	id := store.Begin(1, false)
	require.NotEmpty(t, id)

	rec, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, RunRunning, rec.State)
	assert.Equal(t, int64(1), rec.RuleID)
	assert.Nil(t, rec.FinishedAt)

	store.Finish(id, &rules.RunResult{Matched: 5, Queued: 3}, nil)

	rec, ok = store.Get(id)
	require.True(t, ok)
	assert.Equal(t, RunCompleted, rec.State)
	require.NotNil(t, rec.Result)
	assert.Equal(t, 5, rec.Result.Matched)
	assert.NotNil(t, rec.FinishedAt)
}

func TestStatusStore_Failure(t *testing.T) {
	store := NewStatusStore(time.Hour)

	id := store.Begin(1, true)
	store.Finish(id, nil, errors.New("media server down"))

	rec, ok := store.Get(id)
	require.True(t, ok)
	assert.Equal(t, RunFailed, rec.State)
	assert.Equal(t, "media server down", rec.Error)
	assert.True(t, rec.DryRun)
}

func TestStatusStore_Clear(t *testing.T) {
	store := NewStatusStore(time.Hour)

	running := store.Begin(1, false)
	done := store.Begin(2, false)
	store.Finish(done, &rules.RunResult{}, nil)

	// Clearing a running record is a no-op.
	store.Clear(running)
	_, ok := store.Get(running)
	assert.True(t, ok)

	store.Clear(done)
	_, ok = store.Get(done)
	assert.False(t, ok)
}

func TestStatusStore_TTLExpiry(t *testing.T) {
	store := NewStatusStore(time.Millisecond)

	finished := store.Begin(1, false)
	store.Finish(finished, &rules.RunResult{}, nil)
	running := store.Begin(2, false)

	time.Sleep(5 * time.Millisecond)

	// Finished records expire; running ones never do.
	_, ok := store.Get(finished)
	assert.False(t, ok)
	_, ok = store.Get(running)
	assert.True(t, ok)
}

func TestStatusStore_ForRule(t *testing.T) {
	store := NewStatusStore(time.Hour)

	first := store.Begin(1, false)
	store.Finish(first, &rules.RunResult{}, nil)
	second := store.Begin(1, false)
	store.Begin(9, false)

	rec, ok := store.ForRule(1)
	require.True(t, ok)
	assert.Equal(t, second, rec.RunID)

	_, ok = store.ForRule(404)
	assert.False(t, ok)
}
