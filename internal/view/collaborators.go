package view

import (
	"context"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/tiles"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/paulmach/orb"
)

// Querier fetches aggregates and events. *datasource.Client implements it.
type Querier interface {
	Events(ctx context.Context, from, to time.Time) ([]types.Event, error)
	EventsByGeohash(ctx context.Context, token string) ([]types.Event, error)
	Days(ctx context.Context, year, month int) ([]types.Count, error)
	Months(ctx context.Context, year int) ([]types.Count, error)
	Years(ctx context.Context) ([]types.Count, error)
	Geohashes(ctx context.Context, bound orb.Bound, precision int) ([]string, error)
}

// RenderOptions controls how events are drawn.
type RenderOptions struct {
	// Polyline connects the events in order. When false every event gets its
	// own marker with Popup(event) as content.
	Polyline bool
	Popup    func(types.Event) string
}

// Map is the mapping widget. Only the dispatcher and the map session call it.
type Map interface {
	tiles.Drawer

	// RenderPoints draws events and fits the view to them. An empty slice
	// leaves an empty map at its current view.
	RenderPoints(events []types.Event, opts RenderOptions) error
	// Clear removes drawn shapes but keeps the map.
	Clear()
	// Destroy removes the map; no method may be called afterwards.
	Destroy()

	ViewportBounds() (orb.Bound, error)
	Zoom() (int, error)
	Center() (orb.Point, error)
	SetView(v types.Viewport) error

	// OnViewportChanged registers fn for pan and zoom events.
	OnViewportChanged(fn func())
	// OnLoaded calls fn once, after the map has loaded.
	OnLoaded(fn func())
}

// MapFactory creates a map when a view needs one.
type MapFactory func() (Map, error)

// Page is the list layer next to the map.
type Page interface {
	SetHTML(html string)
	AppendHTML(html string)
}

// History updates the address bar without triggering a navigation.
type History interface {
	Push(fragment string)
}
