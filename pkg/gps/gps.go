// Package gps decodes raw NMEA sentences from GPS producers into location
// events, so trackers can forward their receiver output unparsed.
package gps

import (
	"errors"
	"fmt"
	"time"

	"github.com/adrianmo/go-nmea"

	"github.com/zslim1101/location-relay/internal/models"
)

// ErrNoFix is returned for sentences whose fix is flagged invalid by the
// receiver.
var ErrNoFix = errors.New("gps: sentence carries no valid fix")

// DecodeRMC parses a $--RMC sentence and converts it into a location event.
// RMC is required rather than GGA because it is the only common sentence
// carrying both date and time, which the event timestamp needs.
func DecodeRMC(sentence string) (models.LocationEvent, error) {
	parsed, err := nmea.Parse(sentence)
	if err != nil {
		return models.LocationEvent{}, fmt.Errorf("gps: parse sentence: %w", err)
	}

	rmc, ok := parsed.(nmea.RMC)
	if !ok {
		return models.LocationEvent{}, fmt.Errorf("gps: expected RMC sentence, got %s", parsed.DataType())
	}
	if rmc.Validity != nmea.ValidRMC {
		return models.LocationEvent{}, ErrNoFix
	}
	if !rmc.Date.Valid || !rmc.Time.Valid {
		return models.LocationEvent{}, fmt.Errorf("gps: RMC sentence missing date or time")
	}

	fixTime := time.Date(
		2000+rmc.Date.YY, time.Month(rmc.Date.MM), rmc.Date.DD,
		rmc.Time.Hour, rmc.Time.Minute, rmc.Time.Second,
		rmc.Time.Millisecond*int(time.Millisecond),
		time.UTC,
	)

	return models.NewLocationEvent(rmc.Latitude, rmc.Longitude, fixTime.UnixMilli())
}
