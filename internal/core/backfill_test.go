package core

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zslim1101/location-relay/internal/store"
)

// TestBackfillResolver_Resolve_ReturnsWindow verifies the slice covers
// since <= timestamp <= now in ascending order.
func TestBackfillResolver_Resolve_ReturnsWindow(t *testing.T) {
	log := NewEventLog(store.NewMemory(), 0, zerolog.Nop())
	resolver := NewBackfillResolver(log, zerolog.Nop())

	for _, ts := range []int64{1000, 2000, 3000, 4000} {
		_, err := log.Append("d1", testEvent(ts))
		require.NoError(t, err)
	}

	events, err := resolver.Resolve("d1", 2000, 3500)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2000), events[0].Timestamp)
	assert.Equal(t, int64(3000), events[1].Timestamp)
}

// TestBackfillResolver_Resolve_FutureWatermark verifies since > now is a
// designed no-op for any such pair, not an error.
func TestBackfillResolver_Resolve_FutureWatermark(t *testing.T) {
	log := NewEventLog(store.NewMemory(), 0, zerolog.Nop())
	resolver := NewBackfillResolver(log, zerolog.Nop())

	_, err := log.Append("d1", testEvent(1000))
	require.NoError(t, err)

	for _, tc := range []struct{ since, now int64 }{
		{5000, 4999},
		{1, 0},
		{1 << 40, 1000},
	} {
		events, err := resolver.Resolve("d1", tc.since, tc.now)
		require.NoError(t, err)
		assert.Empty(t, events)
	}
}

// TestBackfillResolver_Resolve_UnknownEntity verifies an entity with no log
// yields an empty slice.
func TestBackfillResolver_Resolve_UnknownEntity(t *testing.T) {
	log := NewEventLog(store.NewMemory(), 0, zerolog.Nop())
	resolver := NewBackfillResolver(log, zerolog.Nop())

	events, err := resolver.Resolve("unknown", 0, 10000)
	require.NoError(t, err)
	assert.Empty(t, events)
}
