package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zslim1101/location-relay/internal/models"
)

func event(lat, lon float64, ts int64) models.LocationEvent {
	return models.LocationEvent{Latitude: lat, Longitude: lon, Timestamp: ts}
}

// TestMemory_AppendEvent_OrdersByTimestamp verifies the log is observable in
// timestamp order regardless of arrival order.
func TestMemory_AppendEvent_OrdersByTimestamp(t *testing.T) {
	m := NewMemory()

	for _, ts := range []int64{3000, 1000, 5000, 2000, 4000} {
		inserted, err := m.AppendEvent("d1", event(52.0, -0.1, ts))
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	events, err := m.EventRange("d1", 0, 10000)
	require.NoError(t, err)
	require.Len(t, events, 5)
	for i, ts := range []int64{1000, 2000, 3000, 4000, 5000} {
		assert.Equal(t, ts, events[i].Timestamp)
	}
}

// TestMemory_AppendEvent_DuplicateCollapses verifies idempotent re-delivery:
// appending an identical (timestamp, payload) pair twice keeps one entry.
func TestMemory_AppendEvent_DuplicateCollapses(t *testing.T) {
	m := NewMemory()
	ev := event(52.0, -0.1, 1000)

	inserted, err := m.AppendEvent("d1", ev)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = m.AppendEvent("d1", ev)
	require.NoError(t, err)
	assert.False(t, inserted)

	events, err := m.EventRange("d1", 0, 10000)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

// TestMemory_AppendEvent_SameTimestampDifferentPayload verifies the score is
// not required to be unique: distinct payloads share a timestamp.
func TestMemory_AppendEvent_SameTimestampDifferentPayload(t *testing.T) {
	m := NewMemory()

	inserted, err := m.AppendEvent("d1", event(52.0, -0.1, 1000))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = m.AppendEvent("d1", event(52.5, -0.2, 1000))
	require.NoError(t, err)
	assert.True(t, inserted)

	events, err := m.EventRange("d1", 1000, 1000)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

// TestMemory_EventRange_EmptyStates verifies absent logs and inverted windows
// are valid empty results, not errors.
func TestMemory_EventRange_EmptyStates(t *testing.T) {
	m := NewMemory()

	events, err := m.EventRange("unknown", 0, 10000)
	require.NoError(t, err)
	assert.Empty(t, events)

	_, err = m.AppendEvent("d1", event(52.0, -0.1, 1000))
	require.NoError(t, err)

	events, err = m.EventRange("d1", 5000, 1000)
	require.NoError(t, err)
	assert.Empty(t, events)
}

// TestMemory_EventRange_InclusiveBounds verifies both window edges admit
// matching timestamps.
func TestMemory_EventRange_InclusiveBounds(t *testing.T) {
	m := NewMemory()
	for _, ts := range []int64{1000, 2000, 3000, 4000} {
		_, err := m.AppendEvent("d1", event(52.0, -0.1, ts))
		require.NoError(t, err)
	}

	events, err := m.EventRange("d1", 2000, 3000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2000), events[0].Timestamp)
	assert.Equal(t, int64(3000), events[1].Timestamp)
}

// TestMemory_PruneEventsBefore verifies only entries older than the cutoff
// are dropped.
func TestMemory_PruneEventsBefore(t *testing.T) {
	m := NewMemory()
	for _, ts := range []int64{1000, 2000, 3000} {
		_, err := m.AppendEvent("d1", event(52.0, -0.1, ts))
		require.NoError(t, err)
	}

	pruned, err := m.PruneEventsBefore("d1", 2000)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)

	events, err := m.EventRange("d1", 0, 10000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2000), events[0].Timestamp)

	pruned, err = m.PruneEventsBefore("unknown", 2000)
	require.NoError(t, err)
	assert.Zero(t, pruned)
}

// TestMemory_Subscribers verifies watermark storage, replacement and the
// eligibility filter.
func TestMemory_Subscribers(t *testing.T) {
	m := NewMemory()

	require.NoError(t, m.PutSubscriber("d1", "c1", 1000))
	require.NoError(t, m.PutSubscriber("d1", "c2", 5000))

	receivers, err := m.SubscribersThrough("d1", 3000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1"}, receivers)

	// Watermark boundary is inclusive.
	receivers, err = m.SubscribersThrough("d1", 5000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c1", "c2"}, receivers)

	// Replacing an entry updates its watermark in place.
	require.NoError(t, m.PutSubscriber("d1", "c2", 100))
	receivers, err = m.SubscribersThrough("d1", 200)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c2"}, receivers)

	// Removal is idempotent.
	require.NoError(t, m.RemoveSubscriber("d1", "c1"))
	require.NoError(t, m.RemoveSubscriber("d1", "c1"))
	require.NoError(t, m.RemoveSubscriber("unknown", "c1"))

	receivers, err = m.SubscribersThrough("d1", 10000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"c2"}, receivers)
}

// TestMemory_ConnectionIndex verifies the bind/lookup/unbind cycle.
func TestMemory_ConnectionIndex(t *testing.T) {
	m := NewMemory()

	_, bound, err := m.ConnectionEntity("c1")
	require.NoError(t, err)
	assert.False(t, bound)

	require.NoError(t, m.BindConnection("c1", "d1"))
	entityID, bound, err := m.ConnectionEntity("c1")
	require.NoError(t, err)
	assert.True(t, bound)
	assert.Equal(t, "d1", entityID)

	require.NoError(t, m.BindConnection("c1", "d2"))
	entityID, bound, err = m.ConnectionEntity("c1")
	require.NoError(t, err)
	assert.True(t, bound)
	assert.Equal(t, "d2", entityID)

	require.NoError(t, m.UnbindConnection("c1"))
	require.NoError(t, m.UnbindConnection("c1"))
	_, bound, err = m.ConnectionEntity("c1")
	require.NoError(t, err)
	assert.False(t, bound)
}

// TestMemory_ConcurrentAppends verifies interleaved appends from many
// goroutines still yield a sorted log.
func TestMemory_ConcurrentAppends(t *testing.T) {
	m := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(offset int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ts := int64(offset*100 + j)
				_, err := m.AppendEvent("d1", event(52.0, -0.1, ts))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	events, err := m.EventRange("d1", 0, 100000)
	require.NoError(t, err)
	require.Len(t, events, 1000)
	for i := 1; i < len(events); i++ {
		assert.LessOrEqual(t, events[i-1].Timestamp, events[i].Timestamp)
	}
}
