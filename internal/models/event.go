package models

import (
	"errors"
	"fmt"
	"math"
)

// LocationEvent is a single immutable location sample for one entity.
// Timestamp is milliseconds since the Unix epoch.
type LocationEvent struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// ErrInvalidEvent is returned when a location event fails validation.
var ErrInvalidEvent = errors.New("invalid location event")

// NewLocationEvent validates the raw fields and builds an event. Malformed
// values are rejected here so they never reach the core.
func NewLocationEvent(latitude, longitude float64, timestamp int64) (LocationEvent, error) {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return LocationEvent{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidEvent, latitude)
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return LocationEvent{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidEvent, longitude)
	}
	if timestamp < 0 {
		return LocationEvent{}, fmt.Errorf("%w: negative timestamp %d", ErrInvalidEvent, timestamp)
	}
	return LocationEvent{Latitude: latitude, Longitude: longitude, Timestamp: timestamp}, nil
}
