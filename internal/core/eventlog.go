// Package core implements the relay's functional core: the per-entity event
// log, the subscriber registry, live delivery matching, catch-up backfill and
// session lifecycle, tied together by the Relay facade.
package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/models"
	"github.com/zslim1101/location-relay/internal/store"
)

// EventLog is the append-only, time-ordered store of location events, one
// ordered collection per entity.
type EventLog struct {
	store     store.Store
	retention time.Duration
	logger    zerolog.Logger
	now       func() int64
}

// NewEventLog creates an event log over the given storage engine. A zero
// retention keeps the log unbounded; otherwise entries older than the window
// are pruned on append.
func NewEventLog(st store.Store, retention time.Duration, logger zerolog.Logger) *EventLog {
	return &EventLog{
		store:     st,
		retention: retention,
		logger:    logger,
		now:       func() int64 { return time.Now().UnixMilli() },
	}
}

// Append inserts the event into the entity's log in timestamp order. It
// reports false when an identical (timestamp, payload) entry already exists;
// the log is then unchanged and the caller must not fan the event out again.
func (l *EventLog) Append(entityID string, event models.LocationEvent) (bool, error) {
	inserted, err := l.store.AppendEvent(entityID, event)
	if err != nil {
		return false, fmt.Errorf("append event for %s: %w", entityID, err)
	}
	if !inserted {
		l.logger.Debug().
			Str("entity_id", entityID).
			Int64("timestamp", event.Timestamp).
			Msg("Duplicate event ignored")
		return false, nil
	}

	if l.retention > 0 {
		cutoff := l.now() - l.retention.Milliseconds()
		pruned, err := l.store.PruneEventsBefore(entityID, cutoff)
		if err != nil {
			return true, fmt.Errorf("prune events for %s: %w", entityID, err)
		}
		if pruned > 0 {
			l.logger.Debug().
				Str("entity_id", entityID).
				Int("pruned", pruned).
				Msg("Expired events pruned")
		}
	}
	return true, nil
}

// Range returns all events for the entity with minTS <= timestamp <= maxTS in
// ascending timestamp order. An inverted window or an entity with no log
// yields an empty slice, never an error.
func (l *EventLog) Range(entityID string, minTS, maxTS int64) ([]models.LocationEvent, error) {
	events, err := l.store.EventRange(entityID, minTS, maxTS)
	if err != nil {
		return nil, fmt.Errorf("range query for %s: %w", entityID, err)
	}
	return events, nil
}
