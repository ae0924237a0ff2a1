// Package store defines the persistence contract for the relay core and
// ships an in-memory engine. The layout mirrors an ordered key-value store:
// one ordered event collection per entity, one subscriber set per entity and
// one scalar entity binding per connection.
package store

import "github.com/zslim1101/location-relay/internal/models"

// Key patterns for the persisted collections.
const (
	EventsKeySuffix = ":events"
	SubsKeySuffix   = ":subs"
	EntityKeySuffix = ":entity"
)

// EventsKey returns the key of an entity's ordered event collection.
func EventsKey(entityID string) string { return entityID + EventsKeySuffix }

// SubsKey returns the key of an entity's subscriber set.
func SubsKey(entityID string) string { return entityID + SubsKeySuffix }

// EntityKey returns the key of a connection's entity binding.
func EntityKey(connectionID string) string { return connectionID + EntityKeySuffix }

// Store is the storage contract the core components are built against.
// Absent keys are valid empty states, never errors. Errors signal the storage
// engine itself failing; callers propagate them without retry.
type Store interface {
	// AppendEvent inserts the event into the entity's collection ordered by
	// timestamp. It reports false when an entry with the same timestamp and
	// payload already exists (the insert is then a no-op).
	AppendEvent(entityID string, event models.LocationEvent) (bool, error)

	// EventRange returns all events with minTS <= timestamp <= maxTS in
	// ascending timestamp order. An inverted window or unknown entity yields
	// an empty slice.
	EventRange(entityID string, minTS, maxTS int64) ([]models.LocationEvent, error)

	// PruneEventsBefore removes events with timestamp < cutoffTS and reports
	// how many were removed.
	PruneEventsBefore(entityID string, cutoffTS int64) (int, error)

	// PutSubscriber creates or replaces the watermark entry for the
	// connection under the entity.
	PutSubscriber(entityID, connectionID string, watermark int64) error

	// RemoveSubscriber deletes the entry if present; absent entries are a
	// no-op.
	RemoveSubscriber(entityID, connectionID string) error

	// SubscribersThrough returns the connection IDs under the entity whose
	// watermark is <= atTS, in unspecified order.
	SubscribersThrough(entityID string, atTS int64) ([]string, error)

	// BindConnection records the connection's entity binding, replacing any
	// previous one.
	BindConnection(connectionID, entityID string) error

	// ConnectionEntity looks up the connection's bound entity.
	ConnectionEntity(connectionID string) (string, bool, error)

	// UnbindConnection removes the binding if present.
	UnbindConnection(connectionID string) error
}
