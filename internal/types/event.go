package types

import (
	"encoding/json"

	"github.com/paulmach/orb"
)

// Event is a single location sample as returned by the /api endpoint.
// Events are read-only and passed through to the map unmodified.
type Event struct {
	// ID is opaque: any JSON value, kept as received.
	ID        json.RawMessage `json:"id,omitempty"`
	// CreatedAt is an RFC 3339 timestamp.
	CreatedAt string          `json:"created_at,omitempty"`
	Geohash   string          `json:"geohash,omitempty"`
	Lat       float64         `json:"lat"`
	Lon       float64         `json:"lon"`
}

// Point returns the event position as an orb point (lon, lat).
func (e Event) Point() orb.Point {
	return orb.Point{e.Lon, e.Lat}
}

// Day returns the YYYY-MM-DD prefix of CreatedAt, or "" when it is too short.
func (e Event) Day() string {
	if len(e.CreatedAt) < 10 {
		return ""
	}
	return e.CreatedAt[:10]
}

// EventsBound returns the bounding box of all events.
func EventsBound(events []Event) orb.Bound {
	if len(events) == 0 {
		return orb.Bound{}
	}
	b := events[0].Point().Bound()
	for _, e := range events[1:] {
		b = b.Extend(e.Point())
	}
	return b
}
