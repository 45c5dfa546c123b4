package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "sess-1", KeyToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, s.Set(ctx, "sess-1", KeyToken, "abc"))
	require.NoError(t, s.Set(ctx, "sess-1", KeyActiveTab, "pendidikan"))

	got, err := s.Get(ctx, "sess-1", KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = s.Get(ctx, "sess-1", "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	keys, err := s.Keys(ctx, "sess-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{KeyToken, KeyActiveTab}, keys)

	require.NoError(t, s.Delete(ctx, "sess-1", KeyActiveTab))
	_, err = s.Get(ctx, "sess-1", KeyActiveTab)
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreSessionsAndClear(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "sess-1", KeyToken, "a"))
	require.NoError(t, s.Set(ctx, "sess-2", KeyToken, "b"))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"sess-1", "sess-2"}, sessions)

	require.NoError(t, s.Clear(ctx, "sess-1"))
	_, err = s.Get(ctx, "sess-1", KeyToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sessions, err = s.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sess-2"}, sessions)
}

func TestWatchDeliversChangeEvents(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	events, cancel := s.Watch()
	defer cancel()

	require.NoError(t, s.Set(ctx, "sess-1", KeyProfileLocked, `{"nik":true}`))
	require.NoError(t, s.Delete(ctx, "sess-1", KeyProfileLocked))
	require.NoError(t, s.Clear(ctx, "sess-1"))

	want := []Event{
		{SessionID: "sess-1", Key: KeyProfileLocked, Value: `{"nik":true}`},
		{SessionID: "sess-1", Key: KeyProfileLocked, Deleted: true},
		{SessionID: "sess-1", Deleted: true},
	}

	for _, expected := range want {
		select {
		case ev := <-events:
			assert.Equal(t, expected, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %+v", expected)
		}
	}
}

func TestWatchCancelStopsDelivery(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	events, cancel := s.Watch()
	cancel()

	require.NoError(t, s.Set(ctx, "sess-1", KeyToken, "a"))

	_, open := <-events
	assert.False(t, open, "cancelled subscription channel must be closed")
}
