package core

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/store"
)

// SubscriberRegistry tracks, per entity, which connections are subscribed and
// the watermark each declared at subscribe time. The watermark is fixed at
// registration and acts as a standing filter for every future event.
type SubscriberRegistry struct {
	store  store.Store
	logger zerolog.Logger
}

// NewSubscriberRegistry creates a registry over the given storage engine.
func NewSubscriberRegistry(st store.Store, logger zerolog.Logger) *SubscriberRegistry {
	return &SubscriberRegistry{store: st, logger: logger}
}

// Register creates or replaces the connection's entry under the entity.
// Moving a connection between entities is handled by the session manager,
// which deregisters the old binding before calling Register.
func (r *SubscriberRegistry) Register(entityID, connectionID string, watermark int64) error {
	if err := r.store.PutSubscriber(entityID, connectionID, watermark); err != nil {
		return fmt.Errorf("register %s under %s: %w", connectionID, entityID, err)
	}
	r.logger.Debug().
		Str("entity_id", entityID).
		Str("connection_id", connectionID).
		Int64("watermark", watermark).
		Msg("Subscriber registered")
	return nil
}

// Deregister removes the connection's entry under the entity. Absent entries
// are a no-op; disconnect races must never turn into errors.
func (r *SubscriberRegistry) Deregister(entityID, connectionID string) error {
	if err := r.store.RemoveSubscriber(entityID, connectionID); err != nil {
		return fmt.Errorf("deregister %s under %s: %w", connectionID, entityID, err)
	}
	return nil
}

// EligibleReceivers returns the connections subscribed to the entity whose
// watermark is <= atTS. Order across receivers is unspecified.
func (r *SubscriberRegistry) EligibleReceivers(entityID string, atTS int64) ([]string, error) {
	receivers, err := r.store.SubscribersThrough(entityID, atTS)
	if err != nil {
		return nil, fmt.Errorf("eligible receivers for %s: %w", entityID, err)
	}
	return receivers, nil
}
