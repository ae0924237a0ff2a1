package models

// Push payload types sent to subscribers.
const (
	PushTypeLocation = "location"
	PushTypeBackfill = "backfill"
)

// LivePush wraps a single event delivered to a subscriber in real time.
type LivePush struct {
	Type     string        `json:"type"`
	EntityID string        `json:"entity_id"`
	Data     LocationEvent `json:"data"`
}

// BackfillPush wraps the ordered historical slice sent once on subscribe.
type BackfillPush struct {
	Type     string          `json:"type"`
	EntityID string          `json:"entity_id"`
	Data     []LocationEvent `json:"data"`
}

// NewLivePush builds the envelope for a live event delivery.
func NewLivePush(entityID string, event LocationEvent) LivePush {
	return LivePush{Type: PushTypeLocation, EntityID: entityID, Data: event}
}

// NewBackfillPush builds the envelope for a catch-up delivery.
func NewBackfillPush(entityID string, events []LocationEvent) BackfillPush {
	return BackfillPush{Type: PushTypeBackfill, EntityID: entityID, Data: events}
}
