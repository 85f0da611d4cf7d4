package tile

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestProjectRoundTrip(t *testing.T) {
	// Test round-trip conversion
	testPoints := []orb.Point{
		{0, 0},           // Null Island
		{9.73, 52.37},    // Hanover
		{-122.42, 37.78}, // San Francisco
		{139.69, 35.69},  // Tokyo
	}

	for _, p := range testPoints {
		for _, zoom := range []int{0, 4, 12, 18} {
			x, y := Project(p, zoom)
			got := Unproject(x, y, zoom)

			if math.Abs(got.Lon()-p.Lon()) > 1e-6 || math.Abs(got.Lat()-p.Lat()) > 1e-6 {
				t.Errorf("round trip at z%d: %v -> (%.2f, %.2f) -> %v", zoom, p, x, y, got)
			}
		}
	}
}

func TestProjectMatchesMaptile(t *testing.T) {
	p := orb.Point{9.73, 52.37}
	zoom := 13

	x, y := Project(p, zoom)
	tl := At(p, zoom)

	if uint32(x/Size) != tl.X || uint32(y/Size) != tl.Y {
		t.Errorf("pixel (%.1f, %.1f) is not inside tile %v", x, y, tl)
	}
}

func TestViewportBounds(t *testing.T) {
	center := orb.Point{-95, 40}
	b := ViewportBounds(center, 4, 1024, 768)

	if !b.Contains(center) {
		t.Fatalf("bounds %v do not contain center %v", b, center)
	}
	// 1024px at z4 is a quarter of the world (4096px).
	if w := b.Max.Lon() - b.Min.Lon(); math.Abs(w-90) > 1e-6 {
		t.Errorf("width = %.6f degrees, want 90", w)
	}
	if b.Min.Lat() >= b.Max.Lat() {
		t.Errorf("south %.6f >= north %.6f", b.Min.Lat(), b.Max.Lat())
	}

	// Zoomed out past the world height the latitude is clamped.
	world := ViewportBounds(orb.Point{0, 0}, 0, 1024, 1024)
	if world.Max.Lat() > maxLat+1e-6 || world.Min.Lat() < -maxLat-1e-6 {
		t.Errorf("world bounds not clamped: %v", world)
	}
}

func TestFitZoom(t *testing.T) {
	tests := []struct {
		name  string
		bound orb.Bound
		want  int
	}{
		{
			name:  "single point",
			bound: orb.Bound{Min: orb.Point{9.73, 52.37}, Max: orb.Point{9.73, 52.37}},
			want:  18,
		},
		{
			name:  "whole world",
			bound: orb.Bound{Min: orb.Point{-180, -85}, Max: orb.Point{180, 85}},
			want:  1, // the world is 512px wide at z1
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FitZoom(tt.bound, 512, 512, 18); got != tt.want {
				t.Errorf("FitZoom = %d, want %d", got, tt.want)
			}
		})
	}

	// A city-sized box lands somewhere in between and fits at the result.
	city := orb.Bound{Min: orb.Point{9.6, 52.3}, Max: orb.Point{9.9, 52.45}}
	z := FitZoom(city, 512, 512, 18)
	if z <= 0 || z >= 18 {
		t.Fatalf("FitZoom(city) = %d, want between 0 and 18", z)
	}
	b := ViewportBounds(city.Center(), z, 512, 512)
	if !b.Contains(city.Min) || !b.Contains(city.Max) {
		t.Errorf("viewport %v at z%d does not contain %v", b, z, city)
	}
}
