// Package tiles keeps the geohash tiles drawn on the map in sync with the tiles
// covering the current viewport.
package tiles

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"
)

// Tile is a geohash rectangle handed to the map for drawing.
type Tile struct {
	Token  string
	Popup  string
	Bounds orb.Bound
}

// Handle identifies a drawn rectangle; its meaning is up to the Drawer.
type Handle any

// Drawer draws and erases tile rectangles. Erasing must remove everything that
// belongs to the tile (outline, fill, sources).
type Drawer interface {
	DrawTileRectangle(t Tile) (Handle, error)
	EraseTileRectangle(h Handle) error
}

// Delta is the outcome of one reconciliation.
type Delta struct {
	Added   []string
	Removed []string
}

// Empty reports whether nothing was drawn or erased.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// Diff returns the tokens in requested but not in current (added) and those in
// current but not in requested (removed), in order of first appearance.
func Diff(current, requested []string) (added, removed []string) {
	want := make(map[string]struct{}, len(requested))
	for _, t := range requested {
		want[t] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))
	for _, t := range current {
		have[t] = struct{}{}
	}

	seen := make(map[string]struct{}, len(requested))
	for _, t := range requested {
		if _, ok := have[t]; ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		added = append(added, t)
	}
	for _, t := range current {
		if _, ok := want[t]; !ok {
			removed = append(removed, t)
		}
	}
	return added, removed
}

// Reconciler owns the live tile set of one map.
// The live set always matches what is drawn.
type Reconciler struct {
	drawer  Drawer
	logger  *slog.Logger
	handles map[string]Handle
	live    []string
	mu      sync.Mutex
}

// NewReconciler creates a reconciler with an empty live set.
func NewReconciler(drawer Drawer, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		drawer:  drawer,
		logger:  logger,
		handles: make(map[string]Handle),
	}
}

// Reconcile makes the drawn tiles equal to requested. Tiles already drawn are
// left alone; tiles no longer requested are erased once. The diff and the
// apply run under one lock, so concurrent calls see each other's results.
func (r *Reconciler) Reconcile(requested []string) (Delta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	added, removed := Diff(r.live, requested)
	var errs []error
	delta := Delta{}

	for _, token := range removed {
		h := r.handles[token]
		if err := r.drawer.EraseTileRectangle(h); err != nil {
			errs = append(errs, fmt.Errorf("failed to erase tile %s: %w", token, err))
			continue
		}
		delete(r.handles, token)
		delta.Removed = append(delta.Removed, token)
	}

	for _, token := range added {
		bounds, err := Bounds(token)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h, err := r.drawer.DrawTileRectangle(Tile{Token: token, Bounds: bounds, Popup: Popup(token)})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to draw tile %s: %w", token, err))
			continue
		}
		r.handles[token] = h
		delta.Added = append(delta.Added, token)
	}

	r.live = r.liveFrom(requested)

	if !delta.Empty() {
		r.log().Debug("reconciled tiles",
			"added", len(delta.Added),
			"removed", len(delta.Removed),
			"live", len(r.live),
		)
	}

	return delta, errors.Join(errs...)
}

// liveFrom returns requested restricted to tiles that are actually drawn,
// followed by tiles that failed to erase. Must be called with lock held.
func (r *Reconciler) liveFrom(requested []string) []string {
	live := make([]string, 0, len(r.handles))
	seen := make(map[string]struct{}, len(r.handles))
	for _, t := range requested {
		if _, ok := r.handles[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		live = append(live, t)
	}
	for _, t := range r.live {
		if _, ok := r.handles[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		live = append(live, t)
	}
	return live
}

// Live returns a copy of the live tile set.
func (r *Reconciler) Live() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.live...)
}

// Reset forgets all tiles without erasing them, for when the map is gone.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = nil
	r.handles = make(map[string]Handle)
}

func (r *Reconciler) log() *slog.Logger {
	if r.logger != nil {
		return r.logger
	}
	return slog.Default()
}
