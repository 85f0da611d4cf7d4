package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/datasource"
	"github.com/MeKo-Tech/lochistory/internal/geojson"
	"github.com/MeKo-Tech/lochistory/internal/route"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/MeKo-Tech/lochistory/internal/view"
	"github.com/paulmach/orb"
	orbgeojson "github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render [fragment]",
	Short: "Render a view headlessly: list HTML to stdout, map state as GeoJSON",
	Long: `Render resolves a URL fragment (e.g. "2025-12-20", "#/2025-12", "dbq" or "#/")
exactly as the browser does, queries the API and prints the list HTML.

The map state (polyline, markers or geohash tiles) can be written as a GeoJSON
FeatureCollection with --geojson. For the years index, --center and --zoom set
the viewport used for the tile query.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringP("output", "o", "-", "File for the list HTML (- for stdout)")
	renderCmd.Flags().String("geojson", "", "File for the map state as GeoJSON")
	renderCmd.Flags().String("center", "", "Viewport center as lat,lng (years index only)")
	renderCmd.Flags().Int("zoom", types.DefaultViewport.Zoom, "Viewport zoom (years index only)")
	renderCmd.Flags().Int("width", 1024, "Viewport width in pixels")
	renderCmd.Flags().Int("height", 768, "Viewport height in pixels")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, renderCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("render.output", "output")
	mustBind("render.geojson", "geojson")
	mustBind("render.center", "center")
	mustBind("render.zoom", "zoom")
	mustBind("render.width", "width")
	mustBind("render.height", "height")
}

func runRender(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	fragment := route.Root
	if len(args) == 1 {
		fragment = args[0]
	}

	fragment, err := withViewport(fragment, viper.GetString("render.center"), viper.GetInt("render.zoom"))
	if err != nil {
		return err
	}

	h, err := newHeadless()
	if err != nil {
		return err
	}

	snap, err := h.render(cmd.Context(), fragment)
	if err != nil {
		return err
	}

	if err := writeOutput(viper.GetString("render.output"), cmd.OutOrStdout(), []byte(snap.HTML+"\n")); err != nil {
		return err
	}

	geojsonPath := viper.GetString("render.geojson")
	if geojsonPath == "" {
		return nil
	}
	if snap.Map == nil {
		logger.Warn("view has no map, skipping GeoJSON output", "path", geojsonPath)
		return nil
	}
	if err := writeGeoJSON(geojsonPath, snap.Map); err != nil {
		return err
	}

	logger.Info("wrote map state",
		"path", geojsonPath,
		"features", len(snap.Map.Features),
		"viewport", snap.Viewport.String(),
		"center_tile", fmt.Sprintf("%d/%d/%d", snap.CenterTile.Z, snap.CenterTile.X, snap.CenterTile.Y),
	)
	return nil
}

// headless navigates without a browser: a geojson canvas stands in for the
// map and a buffer for the list layer.
type headless struct {
	client *datasource.Client
	loc    *time.Location
	locale string
	width  int
	height int
}

func newHeadless() (*headless, error) {
	loc, err := loadLocation(viper.GetString("timezone"))
	if err != nil {
		return nil, err
	}

	return &headless{
		client: datasource.New(datasource.Config{
			BaseURL:           viper.GetString("api.url"),
			RequestsPerSecond: viper.GetFloat64("api.rate_limit"),
			Logger:            logger,
		}),
		loc:    loc,
		locale: viper.GetString("locale"),
		width:  viper.GetInt("render.width"),
		height: viper.GetInt("render.height"),
	}, nil
}

// snapshot is a rendered view. Map is nil when the view shows no map.
type snapshot struct {
	Route      route.Route
	HTML       string
	Map        *orbgeojson.FeatureCollection
	Viewport   types.Viewport
	CenterTile maptile.Tile
}

func (h *headless) render(ctx context.Context, fragment string) (snapshot, error) {
	var canvas *geojson.Canvas
	page := &bufferPage{}

	d, err := view.NewDispatcher(view.Config{
		Querier: h.client,
		NewMap: func() (view.Map, error) {
			canvas = geojson.NewCanvas(h.width, h.height)
			return canvas, nil
		},
		Page:     page,
		History:  logHistory{},
		Location: h.loc,
		Locale:   h.locale,
		Logger:   logger,
	})
	if err != nil {
		return snapshot{}, err
	}
	defer d.Close()

	nav, err := d.Begin(fragment)
	if err != nil {
		return snapshot{}, err
	}
	if canvas != nil {
		// Years index: restore the viewport and fetch its tiles.
		canvas.MarkLoaded()
	}
	if err := nav.Load(ctx); err != nil {
		return snapshot{}, err
	}

	snap := snapshot{Route: nav.Route, HTML: page.String()}
	if canvas != nil {
		snap.Map = canvas.FeatureCollection()
		snap.Viewport = canvas.Viewport()
		snap.CenterTile = canvas.CenterTile()
	}

	logger.Debug("rendered view",
		"fragment", nav.Route.Fragment,
		"route", nav.Route.Kind.String(),
		"map", canvas != nil,
	)
	return snap, nil
}

func writeGeoJSON(path string, fc *orbgeojson.FeatureCollection) error {
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write GeoJSON: %w", err)
	}
	return nil
}

// withViewport appends a lat/lng/zoom query to a root fragment when center is
// set. Other fragments are returned unchanged.
func withViewport(fragment, center string, zoom int) (string, error) {
	if center == "" {
		return fragment, nil
	}
	if route.Parse(fragment).Kind != route.KindYears {
		return fragment, nil
	}

	p, err := parseCenter(center)
	if err != nil {
		return "", err
	}
	return route.ViewportFragment(types.Viewport{Center: p, Zoom: zoom}), nil
}

// parseCenter parses "lat,lng".
func parseCenter(s string) (orb.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return orb.Point{}, fmt.Errorf("center must be lat,lng, got %q", s)
	}

	var vals [2]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Point{}, fmt.Errorf("invalid center value %q: %w", p, err)
		}
		vals[i] = v
	}

	lat, lng := vals[0], vals[1]
	if lat < -90 || lat > 90 {
		return orb.Point{}, fmt.Errorf("latitude %v out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return orb.Point{}, fmt.Errorf("longitude %v out of range", lng)
	}
	return orb.Point{lng, lat}, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// bufferPage collects the list HTML.
type bufferPage struct {
	b strings.Builder
}

func (p *bufferPage) SetHTML(html string) {
	p.b.Reset()
	p.b.WriteString(html)
}

func (p *bufferPage) AppendHTML(html string) {
	p.b.WriteString(html)
}

func (p *bufferPage) String() string {
	return p.b.String()
}

// logHistory logs address bar updates instead of applying them.
type logHistory struct{}

func (logHistory) Push(fragment string) {
	logger.Debug("viewport changed", "fragment", fragment)
}
