package core

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/models"
)

// PushSink is the outbound delivery boundary. Implementations must be
// non-blocking: a slow or dead receiver is the implementation's problem, the
// core never waits on a socket. Returned errors are advisory; the core logs
// them and moves on.
type PushSink interface {
	// PushEvent delivers one live event to a connection.
	PushEvent(connectionID string, push models.LivePush) error
	// PushBackfill delivers the ordered catch-up slice to a connection.
	PushBackfill(connectionID string, push models.BackfillPush) error
}

// DeliveryMatcher fans a freshly appended event out to every subscriber whose
// watermark admits it. Delivery is at-most-once and independent per receiver:
// one failed push never blocks the rest.
type DeliveryMatcher struct {
	registry *SubscriberRegistry
	sink     PushSink
	logger   zerolog.Logger
	now      func() int64
}

// NewDeliveryMatcher creates a matcher pushing through the given sink.
func NewDeliveryMatcher(registry *SubscriberRegistry, sink PushSink, logger zerolog.Logger) *DeliveryMatcher {
	return &DeliveryMatcher{
		registry: registry,
		sink:     sink,
		logger:   logger,
		now:      func() int64 { return time.Now().UnixMilli() },
	}
}

// Match computes the eligible receivers for the event and pushes it to each.
// "Now" is sampled exactly once so every receiver observes the same cutoff.
// Eligibility is gated on the subscriber's watermark against now, never
// against the event's own timestamp; backfill is the only two-sided filter.
func (m *DeliveryMatcher) Match(entityID string, event models.LocationEvent) error {
	atTS := m.now()
	receivers, err := m.registry.EligibleReceivers(entityID, atTS)
	if err != nil {
		return err
	}
	if len(receivers) == 0 {
		return nil
	}

	push := models.NewLivePush(entityID, event)
	for _, connectionID := range receivers {
		if err := m.sink.PushEvent(connectionID, push); err != nil {
			// Best effort: the receiver may have torn down between the
			// registry read and the push.
			m.logger.Debug().
				Err(err).
				Str("connection_id", connectionID).
				Str("entity_id", entityID).
				Msg("Live push failed")
		}
	}

	m.logger.Debug().
		Str("entity_id", entityID).
		Int64("timestamp", event.Timestamp).
		Int("receivers", len(receivers)).
		Msg("Event matched to receivers")
	return nil
}
