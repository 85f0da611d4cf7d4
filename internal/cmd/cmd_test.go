package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/lochistory/internal/datestr"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCenter(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    orb.Point
		wantErr bool
	}{
		{name: "valid", input: "52.5,13.4", want: orb.Point{13.4, 52.5}},
		{name: "valid with spaces", input: "52.5, 13.4", want: orb.Point{13.4, 52.5}},
		{name: "negative", input: "-33.9,-70.6", want: orb.Point{-70.6, -33.9}},
		{name: "too few values", input: "52.5", wantErr: true},
		{name: "too many values", input: "52.5,13.4,1", wantErr: true},
		{name: "invalid number", input: "abc,13.4", wantErr: true},
		{name: "latitude out of range", input: "91,13.4", wantErr: true},
		{name: "longitude out of range", input: "52.5,181", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCenter(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("parseCenter(%q) expected error, got nil", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("parseCenter(%q) unexpected error: %v", tt.input, err)
				return
			}
			if got != tt.want {
				t.Errorf("parseCenter(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWithViewport(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		center   string
		zoom     int
		want     string
	}{
		{name: "no center", fragment: "#/", want: "#/"},
		{name: "root", fragment: "#/", center: "52.5,13.4", zoom: 9, want: "#/?lat=52.5&lng=13.4&zoom=9"},
		{name: "bare root", fragment: "", center: "40,-95", zoom: 4, want: "#/?lat=40&lng=-95&zoom=4"},
		{name: "day ignores center", fragment: "2025-12-20", center: "52.5,13.4", zoom: 9, want: "2025-12-20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := withViewport(tt.fragment, tt.center, tt.zoom)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := withViewport("#/", "nope", 4)
	assert.Error(t, err)
}

func TestLoadLocation(t *testing.T) {
	loc, err := loadLocation("")
	require.NoError(t, err)
	assert.Equal(t, "Local", loc.String())

	loc, err = loadLocation("UTC")
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())

	_, err = loadLocation("Not/AZone")
	assert.Error(t, err)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestShiftCommand(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"shift", "2025-12-31", "--by", "1"}, want: "2026-01-01"},
		{args: []string{"shift", "2025-01", "--by", "-1"}, want: "2024-12"},
		{args: []string{"shift", "2024", "--by", "1"}, want: "2025"},
		{args: []string{"shift", "2024-02-28", "--by", "1"}, want: "2024-02-29"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}

	_, err := execute(t, "shift", "not-a-date", "--by", "1")
	assert.Error(t, err)
}

func TestRenderCommand(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/days":
			_, _ = w.Write([]byte(`[{"day":"2025-12-20","count":"1500"}]`))
		case "/api":
			_, _ = w.Write([]byte(`[{"created_at":"2025-12-20T08:00:00Z","geohash":"u33db","lat":52.5,"lon":13.4},` +
				`{"created_at":"2025-12-20T09:00:00Z","geohash":"u33dc","lat":52.52,"lon":13.42}]`))
		case "/api/years":
			_, _ = w.Write([]byte(`[{"year":"2025","count":3}]`))
		case "/api/geohashes":
			_, _ = w.Write([]byte(`["u33","u36"]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	t.Run("month list", func(t *testing.T) {
		out, err := execute(t, "render", "2025-12", "--api-url", api.URL, "-o", "-", "--geojson", "")
		require.NoError(t, err)
		assert.Contains(t, out, "<li><a href='/#/2025-12-20'>2025-12-20</a> - 1,500</li>")
		assert.True(t, strings.HasPrefix(out, "<h2><a href='/#/'>~/</a> "))
	})

	t.Run("day map", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "day.geojson")
		_, err := execute(t, "render", "#/2025-12-20", "--api-url", api.URL, "-o", "-", "--geojson", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)

		var fc struct {
			Features []struct {
				Geometry struct {
					Type string `json:"type"`
				} `json:"geometry"`
			} `json:"features"`
		}
		require.NoError(t, json.Unmarshal(data, &fc))
		require.Len(t, fc.Features, 1)
		assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	})

	t.Run("years index tiles", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tiles.geojson")
		out, err := execute(t, "render", "--api-url", api.URL, "-o", "-", "--geojson", path, "--center", "52.5,13.4", "--zoom", "4")
		require.NoError(t, err)
		assert.Contains(t, out, "<li><a href='/#/2025'>2025</a> - 3</li>")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 2, strings.Count(string(data), `"Polygon"`))
	})
}

func TestExportTasks(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{input: "2025-02", want: []string{"2025-02-01", "2025-02-28"}},
		{input: "2025", want: []string{"2025-01", "2025-12"}},
		{input: "2025-02-03", want: []string{"2025-02-03", "2025-02-03"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := datestr.Parse(tt.input)
			require.NoError(t, err)

			tasks := exportTasks(d)
			require.NotEmpty(t, tasks)
			assert.Equal(t, tt.want[0], tasks[0].Fragment)
			assert.Equal(t, tt.want[1], tasks[len(tasks)-1].Fragment)
		})
	}
}

func TestExportCommand(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/days":
			_, _ = w.Write([]byte(`[{"day":"` + r.URL.Query().Get("year") + `-` + r.URL.Query().Get("month") + `-01","count":1}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer api.Close()

	dir := t.TempDir()
	_, err := execute(t, "export", "2025", "--api-url", api.URL, "--out", dir, "--workers", "3", "--progress=false")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 12)

	data, err := os.ReadFile(filepath.Join(dir, "2025-07.html"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<li><a href='/#/2025-07-01'>2025-07-01</a> - 1</li>")
}

func TestExportCommandReportsFailures(t *testing.T) {
	api := httptest.NewServer(http.NotFoundHandler())
	defer api.Close()

	_, err := execute(t, "export", "2025-02", "--api-url", api.URL, "--out", t.TempDir(), "--workers", "2", "--progress=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "28 of 28 views failed")
}
