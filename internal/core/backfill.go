package core

import (
	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/models"
)

// BackfillResolver computes the historical slice a newly joined subscriber
// catches up with. The whole window goes out as one batched payload so a
// late joiner costs one message regardless of how far back it reaches.
type BackfillResolver struct {
	log    *EventLog
	logger zerolog.Logger
}

// NewBackfillResolver creates a resolver reading from the given event log.
func NewBackfillResolver(log *EventLog, logger zerolog.Logger) *BackfillResolver {
	return &BackfillResolver{log: log, logger: logger}
}

// Resolve returns the events for the entity with since <= timestamp <= now in
// ascending order. A future watermark (since > now) is a designed no-op and
// yields an empty slice; callers send nothing at all when the slice is empty.
func (r *BackfillResolver) Resolve(entityID string, since, now int64) ([]models.LocationEvent, error) {
	if since > now {
		return nil, nil
	}
	events, err := r.log.Range(entityID, since, now)
	if err != nil {
		return nil, err
	}
	if len(events) > 0 {
		r.logger.Debug().
			Str("entity_id", entityID).
			Int64("since", since).
			Int("events", len(events)).
			Msg("Backfill resolved")
	}
	return events, nil
}
