// Package types holds the data model shared by the data source, the view
// dispatcher and the map collaborators.
package types

import (
	"fmt"

	"github.com/paulmach/orb"
)

// DefaultViewport is the view a fresh map starts with (continental US).
var DefaultViewport = Viewport{Center: orb.Point{-95, 40}, Zoom: 4}

// Viewport is a map center and integer zoom level.
type Viewport struct {
	Center orb.Point
	Zoom   int
}

// String returns a human-readable representation of the viewport
func (v Viewport) String() string {
	return fmt.Sprintf("viewport(%.6f,%.6f z%d)", v.Center.Lat(), v.Center.Lon(), v.Zoom)
}

// North returns the northern edge of b.
func North(b orb.Bound) float64 { return b.Max.Lat() }

// East returns the eastern edge of b.
func East(b orb.Bound) float64 { return b.Max.Lon() }

// South returns the southern edge of b.
func South(b orb.Bound) float64 { return b.Min.Lat() }

// West returns the western edge of b.
func West(b orb.Bound) float64 { return b.Min.Lon() }
