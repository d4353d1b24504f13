// internal/events/bus_test.go
package events

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/prunarr/internal/migrations"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

func TestBus_PublishSubscribe(t *testing.T) {
	bus := NewBus(nil, testLogger())
	defer func() { _ = bus.Close() }()

	deleted := bus.Subscribe(EventMediaDeleted, 4)
	all := bus.SubscribeAll(4)

	e := &MediaDeleted{
		BaseEvent: NewBaseEvent(EventMediaDeleted, EntityMedia, 100),
		MediaID:   100,
		Title:     "Heat",
	}
	require.NoError(t, bus.Publish(context.Background(), e))

	select {
	case got := <-deleted:
		assert.Equal(t, EventMediaDeleted, got.EventType())
		assert.Equal(t, int64(100), got.EntityID())
	case <-time.After(time.Second):
		t.Fatal("typed subscriber did not receive event")
	}
	select {
	case got := <-all:
		assert.Equal(t, EventMediaDeleted, got.EventType())
	case <-time.After(time.Second):
		t.Fatal("all-subscriber did not receive event")
	}

	// Other types do not reach the typed subscriber.
	require.NoError(t, bus.Publish(context.Background(), &RunError{
		BaseEvent: NewBaseEvent(EventRunError, EntityMedia, 1),
	}))
	select {
	case e := <-deleted:
		t.Fatalf("unexpected event %s", e.EventType())
	default:
	}
}

// A full subscriber drops events instead of blocking the publisher.
func TestBus_PublishNonBlocking(t *testing.T) {
	bus := NewBus(nil, testLogger())
	defer func() { _ = bus.Close() }()

	_ = bus.Subscribe(EventMediaDeleted, 1)

	for i := 0; i < 10; i++ {
		done := make(chan struct{})
		go func() {
			_ = bus.Publish(context.Background(), &MediaDeleted{
				BaseEvent: NewBaseEvent(EventMediaDeleted, EntityMedia, int64(i)),
			})
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked on a full subscriber")
		}
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(nil, testLogger())
	ch := bus.SubscribeAll(1)

	require.NoError(t, bus.Close())
	_, open := <-ch
	assert.False(t, open)

	// Publish and double close after close are no-ops.
	assert.NoError(t, bus.Publish(context.Background(), &MediaDeleted{
		BaseEvent: NewBaseEvent(EventMediaDeleted, EntityMedia, 1),
	}))
	assert.NoError(t, bus.Close())
}

func TestBus_PersistsToLog(t *testing.T) {
	db := setupTestDB(t)
	log := NewEventLog(db)
	bus := NewBus(log, testLogger())
	defer func() { _ = bus.Close() }()

	require.NoError(t, bus.Publish(context.Background(), &QueueItemAdded{
		BaseEvent: NewBaseEvent(EventQueueItemAdded, EntityQueueItem, 5),
		MediaID:   100,
		Title:     "Heat",
	}))

	recent, err := log.Recent(10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, EventQueueItemAdded, recent[0].EventType)
	assert.Equal(t, int64(5), recent[0].EntityID)
	assert.Contains(t, recent[0].Payload, "Heat")
}
