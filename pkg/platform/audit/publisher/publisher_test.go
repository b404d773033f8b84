package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "snowflake/pkg/domain"
	audit "snowflake/pkg/platform/audit"
	"snowflake/pkg/platform/audit/store/memory"
)

type failingSink struct {
	mu    sync.Mutex
	calls int
}

func (f *failingSink) Append(context.Context, audit.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return errors.New("broker unavailable")
}

type writeOnly struct{}

func (writeOnly) Append(context.Context, audit.Event) error { return nil }

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		TokenID: id.TokenID(1),
		Action:  string(audit.EventTokenMinted),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), id.TokenID(1))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventTokenMinted), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, uuid.Nil, events[0].ID, "event id should be assigned")
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			TokenID: id.TokenID(7),
			Action:  string(audit.EventFieldEntriesWritten),
		})
		require.NoError(t, err)
	}

	pub.Close()
	pub.Close()

	events, err := store.ListByToken(context.Background(), id.TokenID(7))
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				TokenID: id.TokenID(1),
				Action:  string(audit.EventTokenMinted),
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_Timestamp(t *testing.T) {
	t.Run("sets timestamp when missing", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)

		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{TokenID: 1, Action: string(audit.EventResolverAdded)}))
		after := time.Now()

		events, err := pub.List(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := NewPublisher(store)
		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, pub.Emit(context.Background(), audit.Event{TokenID: 1, Action: string(audit.EventEntryAttested), Timestamp: custom}))

		events, err := pub.List(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}

func TestPublisher_SinkFailureDoesNotFailEmit(t *testing.T) {
	store := memory.NewInMemoryStore()
	sink := &failingSink{}
	pub := NewPublisher(store, WithSinks(sink, nil))

	err := pub.Emit(context.Background(), audit.Event{TokenID: 3, Action: string(audit.EventFieldAdded)})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.calls)

	events, err := store.ListByToken(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_ListRequiresReader(t *testing.T) {
	pub := NewPublisher(writeOnly{})
	_, err := pub.List(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotReadable)
}

func TestPublisher_CategoryFromAction(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventHandleSignedUp), Category: audit.CategoryCompliance}))

	events, err := store.ListByToken(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategoryOperations, events[0].Category)
}
