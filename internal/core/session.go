package core

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/store"
)

// SessionManager owns the connection→entity index and drives the per
// connection lifecycle: unbound until the first subscribe, bound to exactly
// one entity afterwards, unbound again on disconnect. The index is derived
// state used only to find which registry to clean up; the subscriber entry
// stays authoritative.
type SessionManager struct {
	store    store.Store
	registry *SubscriberRegistry
	logger   zerolog.Logger
}

// NewSessionManager creates a session manager over the given storage engine
// and registry.
func NewSessionManager(st store.Store, registry *SubscriberRegistry, logger zerolog.Logger) *SessionManager {
	return &SessionManager{store: st, registry: registry, logger: logger}
}

// Bind binds the connection to the entity and registers its watermark. A
// connection holds at most one binding: re-subscribing to a different entity
// deregisters the old entry first so it cannot leak.
func (s *SessionManager) Bind(connectionID, entityID string, watermark int64) error {
	previous, bound, err := s.store.ConnectionEntity(connectionID)
	if err != nil {
		return fmt.Errorf("look up binding for %s: %w", connectionID, err)
	}
	if bound && previous != entityID {
		if err := s.registry.Deregister(previous, connectionID); err != nil {
			return err
		}
		s.logger.Debug().
			Str("connection_id", connectionID).
			Str("previous_entity", previous).
			Str("entity_id", entityID).
			Msg("Connection rebound to new entity")
	}

	if err := s.store.BindConnection(connectionID, entityID); err != nil {
		return fmt.Errorf("bind %s to %s: %w", connectionID, entityID, err)
	}
	return s.registry.Register(entityID, connectionID, watermark)
}

// Unbind tears the connection's session down. A connection that never
// subscribed has no index entry, which is a normal no-op. The index entry is
// always removed, even when the registry had nothing, so partial state cannot
// leak.
func (s *SessionManager) Unbind(connectionID string) error {
	entityID, bound, err := s.store.ConnectionEntity(connectionID)
	if err != nil {
		return fmt.Errorf("look up binding for %s: %w", connectionID, err)
	}
	if bound {
		if err := s.registry.Deregister(entityID, connectionID); err != nil {
			return err
		}
	}
	if err := s.store.UnbindConnection(connectionID); err != nil {
		return fmt.Errorf("unbind %s: %w", connectionID, err)
	}
	if bound {
		s.logger.Debug().
			Str("connection_id", connectionID).
			Str("entity_id", entityID).
			Msg("Session unbound")
	}
	return nil
}
