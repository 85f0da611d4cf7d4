package geojson

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/tiles"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/MeKo-Tech/lochistory/internal/view"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var track = []types.Event{
	{CreatedAt: "2025-12-20T08:00:00Z", Geohash: "u33db", Lat: 52.50, Lon: 13.40},
	{CreatedAt: "2025-12-20T09:00:00Z", Geohash: "u33dc", Lat: 52.52, Lon: 13.42},
	{CreatedAt: "2025-12-20T10:00:00Z", Geohash: "u33dd", Lat: 52.54, Lon: 13.38},
}

func TestRenderPolyline(t *testing.T) {
	c := NewCanvas(800, 600)

	require.NoError(t, c.RenderPoints(track, view.RenderOptions{Polyline: true}))

	fc := c.FeatureCollection()
	require.Len(t, fc.Features, 1)
	f := fc.Features[0]
	if f.Geometry.GeoJSONType() != "LineString" {
		t.Fatalf("Expected LineString, got %s", f.Geometry.GeoJSONType())
	}
	assert.Len(t, f.Geometry.(orb.LineString), 3)
	assert.Equal(t, LayerTrack, f.Properties["layer"])
	assert.Equal(t, "blue", f.Properties["stroke"])
	assert.Equal(t, 5, f.Properties["stroke-width"])
	assert.Equal(t, 0.5, f.Properties["stroke-opacity"])

	v := c.Viewport()
	bound := types.EventsBound(track)
	assert.True(t, bound.Contains(v.Center))
	assert.Greater(t, v.Zoom, types.DefaultViewport.Zoom)

	// The fitted viewport must cover every event.
	vb, err := c.ViewportBounds()
	require.NoError(t, err)
	for _, e := range track {
		assert.True(t, vb.Contains(e.Point()), "event %v outside %v", e.Point(), vb)
	}
}

func TestRenderMarkers(t *testing.T) {
	c := NewCanvas(800, 600)

	opts := view.RenderOptions{Popup: view.MarkerPopup}
	require.NoError(t, c.RenderPoints(track, opts))

	fc := c.FeatureCollection()
	require.Len(t, fc.Features, 3)
	for i, f := range fc.Features {
		assert.Equal(t, "Point", f.Geometry.GeoJSONType())
		assert.Equal(t, LayerMarker, f.Properties["layer"])
		assert.Equal(t, track[i].Geohash, f.Properties["geohash"])
		assert.Equal(t, view.MarkerPopup(track[i]), f.Properties["popup"])
	}
}

func TestRenderSinglePoint(t *testing.T) {
	c := NewCanvas(800, 600)

	require.NoError(t, c.RenderPoints(track[:1], view.RenderOptions{}))
	v := c.Viewport()
	assert.Equal(t, MaxZoom, v.Zoom)
	assert.Equal(t, track[0].Point(), v.Center)
}

func TestRenderEmptyKeepsDefaultView(t *testing.T) {
	c := NewCanvas(800, 600)

	require.NoError(t, c.RenderPoints(nil, view.RenderOptions{}))
	assert.Equal(t, types.DefaultViewport, c.Viewport())
	assert.Empty(t, c.FeatureCollection().Features)
}

func TestTileRectangles(t *testing.T) {
	c := NewCanvas(800, 600)

	bounds, err := tiles.Bounds("u33")
	require.NoError(t, err)

	h, err := c.DrawTileRectangle(tiles.Tile{Token: "u33", Popup: tiles.Popup("u33"), Bounds: bounds})
	require.NoError(t, err)

	fc := c.FeatureCollection()
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "Polygon", fc.Features[0].Geometry.GeoJSONType())
	assert.Equal(t, "u33", fc.Features[0].Properties["geohash"])
	assert.Equal(t, `<a href="/#/u33">u33</a>`, fc.Features[0].Properties["popup"])

	require.NoError(t, c.EraseTileRectangle(h))
	assert.Empty(t, c.FeatureCollection().Features)

	assert.Error(t, c.EraseTileRectangle(h))
	assert.Error(t, c.EraseTileRectangle("u33"))
}

func TestSetViewNotifiesOnChange(t *testing.T) {
	c := NewCanvas(800, 600)

	calls := 0
	c.OnViewportChanged(func() { calls++ })

	v := types.Viewport{Center: orb.Point{13.4, 52.5}, Zoom: 9}
	require.NoError(t, c.SetView(v))
	require.NoError(t, c.SetView(v))
	assert.Equal(t, 1, calls)

	zoom, err := c.Zoom()
	require.NoError(t, err)
	assert.Equal(t, 9, zoom)

	require.NoError(t, c.SetView(types.Viewport{Center: v.Center, Zoom: 40}))
	assert.Equal(t, MaxZoom, c.Viewport().Zoom)
}

func TestOnLoadedWaitsForMarkLoaded(t *testing.T) {
	c := NewCanvas(800, 600)

	loaded := 0
	c.OnLoaded(func() { loaded++ })
	assert.Equal(t, 0, loaded)

	c.MarkLoaded()
	c.MarkLoaded()
	assert.Equal(t, 1, loaded)

	c.OnLoaded(func() { loaded++ })
	assert.Equal(t, 2, loaded)
}

func TestDestroy(t *testing.T) {
	c := NewCanvas(800, 600)
	c.Destroy()

	_, err := c.Zoom()
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, c.RenderPoints(track, view.RenderOptions{}), ErrDestroyed)
	_, err = c.DrawTileRectangle(tiles.Tile{Token: "u"})
	assert.ErrorIs(t, err, ErrDestroyed)
}

func TestMarshalJSON(t *testing.T) {
	c := NewCanvas(800, 600)
	require.NoError(t, c.RenderPoints(track, view.RenderOptions{Polyline: true}))

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 1)
	assert.Equal(t, "LineString", decoded.Features[0].Geometry.Type)
}

func TestCanvasWithDispatcher(t *testing.T) {
	c := NewCanvas(800, 600)
	page := &stringPage{}
	q := &staticQuerier{hashes: []string{"9z", "dp"}}

	d, err := view.NewDispatcher(view.Config{
		Querier: q,
		NewMap:  func() (view.Map, error) { return c, nil },
		Page:    page,
	})
	require.NoError(t, err)

	nav, err := d.Begin("#/?lat=38&lng=-90&zoom=5")
	require.NoError(t, err)

	c.MarkLoaded()
	assert.Equal(t, 5, c.Viewport().Zoom)

	fc := c.FeatureCollection()
	require.Len(t, fc.Features, 2)
	assert.ElementsMatch(t, []string{"9z", "dp"}, d.Session().Tiles())

	require.NoError(t, nav.Load(t.Context()))
	d.Close()
}

type stringPage struct{ html string }

func (p *stringPage) SetHTML(html string)    { p.html = html }
func (p *stringPage) AppendHTML(html string) { p.html += html }

type staticQuerier struct {
	hashes []string
}

func (q *staticQuerier) Events(context.Context, time.Time, time.Time) ([]types.Event, error) {
	return nil, nil
}

func (q *staticQuerier) EventsByGeohash(context.Context, string) ([]types.Event, error) {
	return nil, nil
}

func (q *staticQuerier) Days(context.Context, int, int) ([]types.Count, error) { return nil, nil }
func (q *staticQuerier) Months(context.Context, int) ([]types.Count, error)    { return nil, nil }
func (q *staticQuerier) Years(context.Context) ([]types.Count, error)          { return nil, nil }

func (q *staticQuerier) Geohashes(context.Context, orb.Bound, int) ([]string, error) {
	return q.hashes, nil
}
