// Package geojson is a headless map: it keeps the shapes a browser map would
// draw as GeoJSON features, together with a viewport of fixed pixel size.
package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/lochistory/internal/tile"
	"github.com/MeKo-Tech/lochistory/internal/tiles"
	"github.com/MeKo-Tech/lochistory/internal/timing"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/MeKo-Tech/lochistory/internal/view"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
)

// Layer values stored in the "layer" property of every feature.
const (
	LayerTrack  = "track"
	LayerMarker = "marker"
	LayerTile   = "tile"
)

// MaxZoom is the highest zoom the canvas fits to.
const MaxZoom = 18

// ErrDestroyed is returned by every method after Destroy.
var ErrDestroyed = errors.New("canvas destroyed")

// Polyline style, in simplestyle property names.
const (
	trackColor   = "blue"
	trackWeight  = 5
	trackOpacity = 0.5
)

// Canvas implements view.Map without a browser.
type Canvas struct {
	width, height int
	view          types.Viewport
	shapes        []*geojson.Feature
	tiles         []*geojson.Feature
	onChanged     []func()
	loaded        *timing.Latch
	destroyed     bool
	mu            sync.Mutex
}

var _ view.Map = (*Canvas)(nil)

// NewCanvas creates an empty canvas of width x height pixels showing the
// default viewport. It reports loaded once MarkLoaded is called.
func NewCanvas(width, height int) *Canvas {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 768
	}
	return &Canvas{
		width:  width,
		height: height,
		view:   types.DefaultViewport,
		loaded: timing.NewLatch(),
	}
}

// MarkLoaded resolves the canvas readiness and runs OnLoaded callbacks.
func (c *Canvas) MarkLoaded() {
	c.loaded.Resolve()
}

// RenderPoints resets the view and draws events as one polyline or as
// markers, then fits the view to them.
func (c *Canvas) RenderPoints(events []types.Event, opts view.RenderOptions) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}

	v := types.DefaultViewport
	if len(events) > 0 {
		if opts.Polyline {
			c.shapes = append(c.shapes, trackFeature(events))
		} else {
			for _, e := range events {
				c.shapes = append(c.shapes, markerFeature(e, opts.Popup))
			}
		}

		bound := types.EventsBound(events)
		v = types.Viewport{
			Center: bound.Center(),
			Zoom:   tile.FitZoom(bound, c.width, c.height, MaxZoom),
		}
	}
	c.mu.Unlock()

	return c.SetView(v)
}

func trackFeature(events []types.Event) *geojson.Feature {
	ls := make(orb.LineString, 0, len(events))
	for _, e := range events {
		ls = append(ls, e.Point())
	}
	f := geojson.NewFeature(ls)
	f.Properties["layer"] = LayerTrack
	f.Properties["stroke"] = trackColor
	f.Properties["stroke-width"] = trackWeight
	f.Properties["stroke-opacity"] = trackOpacity
	return f
}

func markerFeature(e types.Event, popup func(types.Event) string) *geojson.Feature {
	f := geojson.NewFeature(e.Point())
	f.Properties["layer"] = LayerMarker
	if e.CreatedAt != "" {
		f.Properties["created_at"] = e.CreatedAt
	}
	if e.Geohash != "" {
		f.Properties["geohash"] = e.Geohash
	}
	if popup != nil {
		f.Properties["popup"] = popup(e)
	}
	return f
}

// DrawTileRectangle adds the tile as a polygon feature. The handle is the
// feature itself.
func (c *Canvas) DrawTileRectangle(t tiles.Tile) (tiles.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil, ErrDestroyed
	}

	f := geojson.NewFeature(t.Bounds.ToPolygon())
	f.Properties["layer"] = LayerTile
	f.Properties["geohash"] = t.Token
	f.Properties["popup"] = t.Popup
	c.tiles = append(c.tiles, f)
	return f, nil
}

// EraseTileRectangle removes a feature returned by DrawTileRectangle.
func (c *Canvas) EraseTileRectangle(h tiles.Handle) error {
	f, ok := h.(*geojson.Feature)
	if !ok {
		return fmt.Errorf("unexpected tile handle %T", h)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrDestroyed
	}

	for i, t := range c.tiles {
		if t == f {
			c.tiles = append(c.tiles[:i], c.tiles[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("tile %v is not drawn", f.Properties["geohash"])
}

// Clear removes every shape and tile.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shapes = nil
	c.tiles = nil
}

// Destroy drops all state; later calls fail with ErrDestroyed.
func (c *Canvas) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
	c.shapes = nil
	c.tiles = nil
	c.onChanged = nil
}

// ViewportBounds returns the area the viewport covers.
func (c *Canvas) ViewportBounds() (orb.Bound, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return orb.Bound{}, ErrDestroyed
	}
	return tile.ViewportBounds(c.view.Center, c.view.Zoom, c.width, c.height), nil
}

// Zoom returns the current zoom.
func (c *Canvas) Zoom() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return 0, ErrDestroyed
	}
	return c.view.Zoom, nil
}

// Center returns the current center.
func (c *Canvas) Center() (orb.Point, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return orb.Point{}, ErrDestroyed
	}
	return c.view.Center, nil
}

// CenterTile returns the slippy map tile under the viewport center.
func (c *Canvas) CenterTile() maptile.Tile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return tile.At(c.view.Center, c.view.Zoom)
}

// SetView moves the viewport and notifies the viewport listeners.
func (c *Canvas) SetView(v types.Viewport) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return ErrDestroyed
	}
	if v.Zoom < 0 {
		v.Zoom = 0
	}
	if v.Zoom > MaxZoom {
		v.Zoom = MaxZoom
	}
	changed := c.view != v
	c.view = v
	listeners := append([]func(){}, c.onChanged...)
	c.mu.Unlock()

	if changed {
		for _, fn := range listeners {
			fn()
		}
	}
	return nil
}

// OnViewportChanged registers fn for every view change.
func (c *Canvas) OnViewportChanged(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChanged = append(c.onChanged, fn)
}

// OnLoaded runs fn once MarkLoaded has been called.
func (c *Canvas) OnLoaded(fn func()) {
	c.loaded.OnReady(fn)
}

// Viewport returns the current view.
func (c *Canvas) Viewport() types.Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// FeatureCollection returns the drawn shapes followed by the drawn tiles.
func (c *Canvas) FeatureCollection() *geojson.FeatureCollection {
	c.mu.Lock()
	defer c.mu.Unlock()

	fc := geojson.NewFeatureCollection()
	for _, f := range c.shapes {
		fc.Append(f)
	}
	for _, f := range c.tiles {
		fc.Append(f)
	}
	return fc
}

// MarshalJSON encodes the canvas as a GeoJSON FeatureCollection.
func (c *Canvas) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(c.FeatureCollection())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	return data, nil
}
