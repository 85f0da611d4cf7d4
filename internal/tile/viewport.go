// Package tile converts between geographic coordinates and Web Mercator pixel
// space, so a headless map can compute the bounds of a viewport the same way
// a slippy map widget would.
package tile

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// Size is the edge length of a map tile in pixels.
const Size = 256

// maxLat is the latitude limit of the Web Mercator projection.
const maxLat = 85.0511287798

// worldSize returns the width of the world in pixels at zoom.
func worldSize(zoom int) float64 {
	return Size * math.Exp2(float64(zoom))
}

// Project converts WGS84 (lon, lat) to pixel coordinates at zoom.
// x grows eastward, y grows southward.
func Project(p orb.Point, zoom int) (x, y float64) {
	lat := math.Max(-maxLat, math.Min(maxLat, p.Lat()))
	ws := worldSize(zoom)

	x = (p.Lon() + 180.0) / 360.0 * ws
	latRad := lat * math.Pi / 180.0
	y = (1 - math.Log(math.Tan(math.Pi/4.0+latRad/2.0))/math.Pi) / 2 * ws
	return x, y
}

// Unproject converts pixel coordinates at zoom back to WGS84.
func Unproject(x, y float64, zoom int) orb.Point {
	ws := worldSize(zoom)

	lon := x/ws*360.0 - 180.0
	n := math.Pi * (1 - 2*y/ws)
	lat := 180.0 / math.Pi * math.Atan(math.Sinh(n))
	return orb.Point{lon, lat}
}

// ViewportBounds returns the area visible in a width x height pixel viewport
// centered on center at zoom. Latitudes are clamped to the projection.
func ViewportBounds(center orb.Point, zoom, width, height int) orb.Bound {
	cx, cy := Project(center, zoom)
	ws := worldSize(zoom)

	halfW, halfH := float64(width)/2, float64(height)/2
	minY := math.Max(0, cy-halfH)
	maxY := math.Min(ws, cy+halfH)

	nw := Unproject(cx-halfW, minY, zoom)
	se := Unproject(cx+halfW, maxY, zoom)

	return orb.Bound{
		Min: orb.Point{nw.Lon(), se.Lat()},
		Max: orb.Point{se.Lon(), nw.Lat()},
	}
}

// FitZoom returns the highest zoom, at most maxZoom, at which bound fits in a
// width x height viewport.
func FitZoom(bound orb.Bound, width, height, maxZoom int) int {
	for z := maxZoom; z > 0; z-- {
		minX, maxY := Project(bound.Min, z)
		maxX, minY := Project(bound.Max, z)
		if maxX-minX <= float64(width) && maxY-minY <= float64(height) {
			return z
		}
	}
	return 0
}

// At returns the slippy map tile containing p at zoom.
func At(p orb.Point, zoom int) maptile.Tile {
	return maptile.At(p, maptile.Zoom(zoom))
}
