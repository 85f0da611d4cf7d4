package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/route"
	"github.com/MeKo-Tech/lochistory/internal/tiles"
	"github.com/MeKo-Tech/lochistory/internal/timing"
	"github.com/MeKo-Tech/lochistory/internal/types"
)

// ErrNoMap is returned when an operation needs a map that has been destroyed.
var ErrNoMap = errors.New("no map instance")

// Session is the lifetime of the map shown on the years index. It owns the
// live tile set and the debounced viewport listener; both die with it.
type Session struct {
	m        Map
	querier  Querier
	history  History
	tiles    *tiles.Reconciler
	debounce *timing.Debouncer
	logger   *slog.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	fragment string
	closed   bool
	mu       sync.Mutex
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Map     Map
	Querier Querier
	History History
	// Fragment is the URL fragment the session was opened with; the initial
	// viewport is restored from it.
	Fragment string
	// Debounce is the viewport quiet period before tiles refresh (default: 500ms).
	Debounce time.Duration
	Logger   *slog.Logger
}

// NewSession creates a session; call Start to wire the map callbacks.
func NewSession(cfg SessionConfig) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		m:        cfg.Map,
		querier:  cfg.Querier,
		history:  cfg.History,
		tiles:    tiles.NewReconciler(cfg.Map, cfg.Logger),
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		fragment: cfg.Fragment,
	}
	s.debounce = timing.NewDebouncer(cfg.Debounce, s.onViewportSettled)
	return s
}

// Start restores the viewport and fetches tiles once the map has loaded, and
// refreshes tiles after every settled pan or zoom.
func (s *Session) Start() {
	s.m.OnLoaded(s.onLoaded)
	s.m.OnViewportChanged(s.debounce.Trigger)
}

func (s *Session) onLoaded() {
	if err := s.RestoreViewport(); err != nil {
		s.log().Error("Failed to restore viewport", "error", err)
	}
	if _, err := s.Refresh(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log().Error("Failed to refresh tiles", "error", err)
	}
}

func (s *Session) onViewportSettled() {
	if err := s.PersistViewport(); err != nil {
		s.log().Error("Failed to persist viewport", "error", err)
	}
	if _, err := s.Refresh(s.ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.log().Error("Failed to refresh tiles", "error", err)
	}
}

// RestoreViewport moves the map to the lat/lng/zoom in the session fragment,
// if any.
func (s *Session) RestoreViewport() error {
	m, err := s.liveMap()
	if err != nil {
		return err
	}

	s.mu.Lock()
	fragment := s.fragment
	s.mu.Unlock()

	v, ok, err := route.Parse(fragment).Viewport()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return m.SetView(v)
}

// PersistViewport writes the current center and zoom into the URL.
func (s *Session) PersistViewport() error {
	m, err := s.liveMap()
	if err != nil {
		return err
	}

	center, err := m.Center()
	if err != nil {
		return fmt.Errorf("failed to read center: %w", err)
	}
	zoom, err := m.Zoom()
	if err != nil {
		return fmt.Errorf("failed to read zoom: %w", err)
	}

	fragment := route.ViewportFragment(types.Viewport{Center: center, Zoom: zoom})
	s.mu.Lock()
	s.fragment = fragment
	s.mu.Unlock()

	if s.history != nil {
		s.history.Push(fragment)
	}
	return nil
}

// Refresh fetches the tiles covering the viewport and reconciles the drawn
// tiles with them. The diff runs against the tiles drawn when the response
// arrives, not when it was requested.
func (s *Session) Refresh(ctx context.Context) (tiles.Delta, error) {
	m, err := s.liveMap()
	if err != nil {
		return tiles.Delta{}, err
	}

	bound, err := m.ViewportBounds()
	if err != nil {
		return tiles.Delta{}, fmt.Errorf("failed to read viewport bounds: %w", err)
	}
	zoom, err := m.Zoom()
	if err != nil {
		return tiles.Delta{}, fmt.Errorf("failed to read zoom: %w", err)
	}
	precision := tiles.Precision(zoom)

	hashes, err := s.querier.Geohashes(ctx, bound, precision)
	if err != nil {
		return tiles.Delta{}, fmt.Errorf("failed to fetch geohashes: %w", err)
	}

	s.log().Debug("Fetched geohash tiles", "zoom", zoom, "precision", precision, "count", len(hashes))

	// The map may have been torn down while the request was in flight; Close
	// waits for a running reconciliation.
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return tiles.Delta{}, ErrNoMap
	}
	return s.tiles.Reconcile(hashes)
}

// Tiles returns the live tile set.
func (s *Session) Tiles() []string {
	return s.tiles.Live()
}

// Close cancels pending work and forgets the tile set. The map itself is
// destroyed by the dispatcher.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.debounce.Stop()
	s.cancel()
	s.tiles.Reset()
}

func (s *Session) liveMap() (Map, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.m == nil {
		return nil, ErrNoMap
	}
	return s.m, nil
}

func (s *Session) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
