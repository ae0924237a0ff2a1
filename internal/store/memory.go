package store

import (
	"sort"
	"sync"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/zslim1101/location-relay/internal/models"
)

// entityLog is one entity's ordered event collection. Entries are kept sorted
// by timestamp; arrival order is preserved among equal timestamps.
type entityLog struct {
	mu      sync.RWMutex
	entries []models.LocationEvent
}

// subscriberSet is one entity's watermark-keyed subscriber collection.
type subscriberSet struct {
	mu      sync.RWMutex
	entries map[string]int64
}

// Memory is the in-memory storage engine. Collections are sharded with a
// concurrent map keyed by the same key patterns a persistent engine would
// use, with per-collection locks for ordered access.
type Memory struct {
	events cmap.ConcurrentMap[string, *entityLog]
	subs   cmap.ConcurrentMap[string, *subscriberSet]
	conns  cmap.ConcurrentMap[string, string]
}

// NewMemory creates an empty in-memory engine.
func NewMemory() *Memory {
	return &Memory{
		events: cmap.New[*entityLog](),
		subs:   cmap.New[*subscriberSet](),
		conns:  cmap.New[string](),
	}
}

// log returns the entity's event collection, creating it when needed.
func (m *Memory) log(entityID string) *entityLog {
	return m.events.Upsert(EventsKey(entityID), nil, func(exists bool, current, _ *entityLog) *entityLog {
		if exists {
			return current
		}
		return &entityLog{}
	})
}

// set returns the entity's subscriber set, creating it when needed.
func (m *Memory) set(entityID string) *subscriberSet {
	return m.subs.Upsert(SubsKey(entityID), nil, func(exists bool, current, _ *subscriberSet) *subscriberSet {
		if exists {
			return current
		}
		return &subscriberSet{entries: make(map[string]int64)}
	})
}

// AppendEvent inserts the event in timestamp order, collapsing duplicates
// with identical timestamp and payload.
func (m *Memory) AppendEvent(entityID string, event models.LocationEvent) (bool, error) {
	l := m.log(entityID)
	l.mu.Lock()
	defer l.mu.Unlock()

	// Upper bound: first index whose timestamp is strictly greater.
	idx := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Timestamp > event.Timestamp
	})

	// Equal-timestamp entries sit immediately before idx.
	for i := idx - 1; i >= 0 && l.entries[i].Timestamp == event.Timestamp; i-- {
		if l.entries[i] == event {
			return false, nil
		}
	}

	l.entries = append(l.entries, models.LocationEvent{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = event
	return true, nil
}

// EventRange returns the inclusive window in ascending timestamp order.
func (m *Memory) EventRange(entityID string, minTS, maxTS int64) ([]models.LocationEvent, error) {
	if minTS > maxTS {
		return nil, nil
	}
	l, ok := m.events.Get(EventsKey(entityID))
	if !ok {
		return nil, nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	lo := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Timestamp >= minTS
	})
	hi := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Timestamp > maxTS
	})
	if lo >= hi {
		return nil, nil
	}
	out := make([]models.LocationEvent, hi-lo)
	copy(out, l.entries[lo:hi])
	return out, nil
}

// PruneEventsBefore drops events older than cutoffTS.
func (m *Memory) PruneEventsBefore(entityID string, cutoffTS int64) (int, error) {
	l, ok := m.events.Get(EventsKey(entityID))
	if !ok {
		return 0, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	lo := sort.Search(len(l.entries), func(i int) bool {
		return l.entries[i].Timestamp >= cutoffTS
	})
	if lo == 0 {
		return 0, nil
	}
	l.entries = append(l.entries[:0], l.entries[lo:]...)
	return lo, nil
}

// PutSubscriber creates or replaces the connection's watermark entry.
func (m *Memory) PutSubscriber(entityID, connectionID string, watermark int64) error {
	s := m.set(entityID)
	s.mu.Lock()
	s.entries[connectionID] = watermark
	s.mu.Unlock()
	return nil
}

// RemoveSubscriber deletes the entry if present.
func (m *Memory) RemoveSubscriber(entityID, connectionID string) error {
	s, ok := m.subs.Get(SubsKey(entityID))
	if !ok {
		return nil
	}
	s.mu.Lock()
	delete(s.entries, connectionID)
	s.mu.Unlock()
	return nil
}

// SubscribersThrough returns connections whose watermark admits atTS.
func (m *Memory) SubscribersThrough(entityID string, atTS int64) ([]string, error) {
	s, ok := m.subs.Get(SubsKey(entityID))
	if !ok {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for connectionID, watermark := range s.entries {
		if watermark <= atTS {
			out = append(out, connectionID)
		}
	}
	return out, nil
}

// BindConnection records the connection's bound entity.
func (m *Memory) BindConnection(connectionID, entityID string) error {
	m.conns.Set(EntityKey(connectionID), entityID)
	return nil
}

// ConnectionEntity looks up the connection's bound entity.
func (m *Memory) ConnectionEntity(connectionID string) (string, bool, error) {
	entityID, ok := m.conns.Get(EntityKey(connectionID))
	return entityID, ok, nil
}

// UnbindConnection removes the binding if present.
func (m *Memory) UnbindConnection(connectionID string) error {
	m.conns.Remove(EntityKey(connectionID))
	return nil
}
