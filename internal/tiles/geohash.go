package tiles

import (
	"fmt"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
)

// Bounds returns the rectangle covered by a geohash token.
func Bounds(token string) (orb.Bound, error) {
	if err := geohash.Validate(token); err != nil {
		return orb.Bound{}, fmt.Errorf("invalid geohash %q: %w", token, err)
	}
	box := geohash.BoundingBox(token)
	return orb.Bound{
		Min: orb.Point{box.MinLng, box.MinLat},
		Max: orb.Point{box.MaxLng, box.MaxLat},
	}, nil
}

// Popup returns the HTML shown when a tile is clicked.
func Popup(token string) string {
	return fmt.Sprintf(`<a href="/#/%s">%s</a>`, token, token)
}
