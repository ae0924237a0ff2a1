package core

import (
	"sync"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/models"
	"github.com/zslim1101/location-relay/internal/store"
)

// Relay wires the core components together behind the three boundary calls
// the transports invoke: Ingest for producers, OnSubscribe and OnDisconnect
// for the realtime layer.
//
// A per-entity critical section spans append+match on the ingest side and
// register+resolve on the subscribe side. Registering before resolving inside
// that section means a joining subscriber can neither miss an event appended
// concurrently nor receive it twice.
type Relay struct {
	log      *EventLog
	matcher  *DeliveryMatcher
	backfill *BackfillResolver
	sessions *SessionManager
	sink     PushSink
	logger   zerolog.Logger

	entityLocks cmap.ConcurrentMap[string, *sync.Mutex]
	now         func() int64
}

// NewRelay assembles the core over the given storage engine and push sink.
func NewRelay(st store.Store, sink PushSink, retention time.Duration, logger zerolog.Logger) *Relay {
	log := NewEventLog(st, retention, logger.With().Str("component", "eventlog").Logger())
	registry := NewSubscriberRegistry(st, logger.With().Str("component", "registry").Logger())
	return &Relay{
		log:         log,
		matcher:     NewDeliveryMatcher(registry, sink, logger.With().Str("component", "matcher").Logger()),
		backfill:    NewBackfillResolver(log, logger.With().Str("component", "backfill").Logger()),
		sessions:    NewSessionManager(st, registry, logger.With().Str("component", "sessions").Logger()),
		sink:        sink,
		logger:      logger,
		entityLocks: cmap.New[*sync.Mutex](),
		now:         func() int64 { return time.Now().UnixMilli() },
	}
}

// entityLock returns the mutex guarding one entity's append/subscribe
// critical sections.
func (r *Relay) entityLock(entityID string) *sync.Mutex {
	return r.entityLocks.Upsert(entityID, nil, func(exists bool, current, _ *sync.Mutex) *sync.Mutex {
		if exists {
			return current
		}
		return &sync.Mutex{}
	})
}

// Ingest appends one validated event to the entity's log and fans it out to
// the eligible subscribers. Duplicate (timestamp, payload) re-deliveries are
// absorbed without a second fan-out. The caller can await completion; store
// faults propagate, delivery faults never do.
func (r *Relay) Ingest(entityID string, event models.LocationEvent) error {
	mu := r.entityLock(entityID)
	mu.Lock()
	defer mu.Unlock()

	inserted, err := r.log.Append(entityID, event)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	return r.matcher.Match(entityID, event)
}

// OnSubscribe binds the connection to the entity with the given watermark and
// sends the historical slice the watermark admits. Nothing at all is sent
// when the slice is empty. Safe for concurrent invocation with Ingest and
// OnDisconnect.
func (r *Relay) OnSubscribe(connectionID, entityID string, since int64) error {
	mu := r.entityLock(entityID)
	mu.Lock()
	defer mu.Unlock()

	if err := r.sessions.Bind(connectionID, entityID, since); err != nil {
		return err
	}
	events, err := r.backfill.Resolve(entityID, since, r.now())
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	if err := r.sink.PushBackfill(connectionID, models.NewBackfillPush(entityID, events)); err != nil {
		r.logger.Debug().
			Err(err).
			Str("connection_id", connectionID).
			Str("entity_id", entityID).
			Msg("Backfill push failed")
	}
	return nil
}

// OnDisconnect tears the connection's session down. Idempotent: a second
// disconnect for the same connection is a no-op.
func (r *Relay) OnDisconnect(connectionID string) error {
	return r.sessions.Unbind(connectionID)
}
