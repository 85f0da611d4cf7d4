//go:build js && wasm

// Package leaflet implements the view's map collaborator on top of the
// Leaflet library loaded in the page.
package leaflet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"syscall/js"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/tiles"
	"github.com/MeKo-Tech/lochistory/internal/timing"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/MeKo-Tech/lochistory/internal/view"
	"github.com/paulmach/orb"
)

// ErrRemoved is returned by every method after Destroy.
var ErrRemoved = errors.New("leaflet map removed")

// Config configures a Map.
type Config struct {
	// ContainerID is the id of the element the map is mounted in.
	ContainerID string
	// TileURL is the raster tile template, e.g.
	// "https://tile.openstreetmap.org/{z}/{x}/{y}.png".
	TileURL     string
	Attribution string
	// PollInterval is how often OnLoaded checks whether the map is ready.
	PollInterval time.Duration
	Logger       *slog.Logger
}

// Map wraps one L.map instance.
type Map struct {
	l       js.Value
	m       js.Value
	cfg     Config
	funcs   []js.Func
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
	removed bool
	mu      sync.Mutex
}

var _ view.Map = (*Map)(nil)

// New mounts a map in the configured container at the default viewport.
func New(cfg Config) (*Map, error) {
	l := js.Global().Get("L")
	if !l.Truthy() {
		return nil, errors.New("leaflet is not loaded")
	}
	if cfg.ContainerID == "" {
		cfg.ContainerID = "map"
	}
	if cfg.TileURL == "" {
		cfg.TileURL = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
		cfg.Attribution = `Map data &copy; <a href="https://www.openstreetmap.org/">OpenStreetMap</a> contributors`
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = timing.DefaultDelay
	}

	m := l.Call("map", cfg.ContainerID)
	l.Call("tileLayer", cfg.TileURL, map[string]any{
		"attribution": cfg.Attribution,
	}).Call("addTo", m)

	ctx, cancel := context.WithCancel(context.Background())
	lm := &Map{l: l, m: m, cfg: cfg, ctx: ctx, cancel: cancel, logger: cfg.Logger}
	lm.setView(types.DefaultViewport)
	return lm, nil
}

func latLng(p orb.Point) []any {
	return []any{p.Lat(), p.Lon()}
}

func (m *Map) setView(v types.Viewport) {
	m.m.Call("setView", latLng(v.Center), v.Zoom)
}

// RenderPoints resets the view and draws events as a polyline or as markers,
// fitting the view to them.
func (m *Map) RenderPoints(events []types.Event, opts view.RenderOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrRemoved
	}

	m.setView(types.DefaultViewport)
	if len(events) == 0 {
		return nil
	}

	if !opts.Polyline {
		group := m.l.Call("featureGroup").Call("addTo", m.m)
		for _, e := range events {
			marker := m.l.Call("marker", latLng(e.Point())).Call("addTo", group)
			if opts.Popup != nil {
				marker.Call("bindPopup", opts.Popup(e))
			}
		}
		m.m.Call("fitBounds", group.Call("getBounds"))
		return nil
	}

	points := make([]any, len(events))
	for i, e := range events {
		points[i] = latLng(e.Point())
	}
	line := m.l.Call("polyline", points, map[string]any{
		"color":        "blue",
		"weight":       5,
		"opacity":      0.5,
		"smoothFactor": 5,
	}).Call("addTo", m.m)
	m.m.Call("fitBounds", line.Call("getBounds"))
	return nil
}

// DrawTileRectangle adds a rectangle with a popup linking to the tile view.
func (m *Map) DrawTileRectangle(t tiles.Tile) (tiles.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return nil, ErrRemoved
	}

	bounds := []any{latLng(t.Bounds.Max), latLng(t.Bounds.Min)}
	rect := m.l.Call("rectangle", bounds, map[string]any{
		"color":       "#000",
		"weight":      1,
		"fillOpacity": 0.3,
		"stroke":      true,
	}).Call("addTo", m.m)
	rect.Call("bindPopup", t.Popup)
	return rect, nil
}

// EraseTileRectangle removes a rectangle returned by DrawTileRectangle.
func (m *Map) EraseTileRectangle(h tiles.Handle) error {
	rect, ok := h.(js.Value)
	if !ok {
		return fmt.Errorf("unexpected tile handle %T", h)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrRemoved
	}
	m.m.Call("removeLayer", rect)
	return nil
}

// Clear removes every vector layer (polylines, rectangles) but keeps the
// base tiles and markers.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}

	var paths []js.Value
	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		if len(args) > 0 && args[0].Get("_path").Truthy() {
			paths = append(paths, args[0])
		}
		return nil
	})
	defer cb.Release()

	m.m.Call("eachLayer", cb)
	for _, p := range paths {
		m.m.Call("removeLayer", p)
	}
}

// Destroy removes the map from the page and stops pending load polling.
func (m *Map) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}
	m.removed = true
	m.cancel()
	m.m.Call("off")
	m.m.Call("remove")
	for _, fn := range m.funcs {
		fn.Release()
	}
	m.funcs = nil
}

// ViewportBounds returns the visible area.
func (m *Map) ViewportBounds() (orb.Bound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return orb.Bound{}, ErrRemoved
	}

	b := m.m.Call("getBounds")
	ne := b.Call("getNorthEast")
	sw := b.Call("getSouthWest")
	return orb.Bound{
		Min: orb.Point{sw.Get("lng").Float(), sw.Get("lat").Float()},
		Max: orb.Point{ne.Get("lng").Float(), ne.Get("lat").Float()},
	}, nil
}

// Zoom returns the current zoom level.
func (m *Map) Zoom() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return 0, ErrRemoved
	}
	return m.m.Call("getZoom").Int(), nil
}

// Center returns the current center.
func (m *Map) Center() (orb.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return orb.Point{}, ErrRemoved
	}
	c := m.m.Call("getCenter")
	return orb.Point{c.Get("lng").Float(), c.Get("lat").Float()}, nil
}

// SetView moves the map.
func (m *Map) SetView(v types.Viewport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return ErrRemoved
	}
	m.setView(v)
	return nil
}

// OnViewportChanged calls fn after every pan and zoom. fn must not block.
func (m *Map) OnViewportChanged(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removed {
		return
	}

	cb := js.FuncOf(func(this js.Value, args []js.Value) any {
		fn()
		return nil
	})
	m.funcs = append(m.funcs, cb)
	m.m.Call("on", "moveend", cb)
}

// OnLoaded polls the map until Leaflet reports it loaded, then calls fn once
// on its own goroutine. Polling stops when the map is destroyed.
func (m *Map) OnLoaded(fn func()) {
	loaded := func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		return !m.removed && m.m.Get("_loaded").Truthy()
	}

	go func() {
		if err := timing.WhenLoaded(m.ctx, m.cfg.PollInterval, loaded, fn); err != nil {
			m.log().Debug("Map removed before it loaded", "error", err)
		}
	}()
}

func (m *Map) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}
