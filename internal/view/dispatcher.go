// Package view turns a URL fragment into exactly one of five views (years,
// year, month, day, geohash), fetches its data and feeds the list and the map.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/route"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/google/uuid"
)

// ErrStale is returned by Load when a newer navigation has replaced this one.
var ErrStale = errors.New("navigation superseded")

// Config configures a Dispatcher.
type Config struct {
	Querier Querier
	NewMap  MapFactory
	Page    Page
	History History
	// Location is the viewer's time zone for day windows (default: time.Local).
	Location *time.Location
	// Locale is the BCP 47 tag used to format counts (default: "en").
	Locale string
	// Debounce is the viewport quiet period before tiles refresh.
	Debounce time.Duration
	Logger   *slog.Logger
}

// Dispatcher owns the map and the map session; every navigation tears down
// the previous view before building the next one.
type Dispatcher struct {
	querier  Querier
	newMap   MapFactory
	page     Page
	history  History
	loc      *time.Location
	lister   *Lister
	logger   *slog.Logger
	m        Map
	session  *Session
	current  uuid.UUID
	debounce time.Duration
	mu       sync.Mutex
}

// NewDispatcher validates cfg and creates a dispatcher.
func NewDispatcher(cfg Config) (*Dispatcher, error) {
	if cfg.Querier == nil {
		return nil, fmt.Errorf("querier is required")
	}
	if cfg.NewMap == nil {
		return nil, fmt.Errorf("map factory is required")
	}
	if cfg.Page == nil {
		return nil, fmt.Errorf("page is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}

	return &Dispatcher{
		querier:  cfg.Querier,
		newMap:   cfg.NewMap,
		page:     cfg.Page,
		history:  cfg.History,
		loc:      cfg.Location,
		lister:   NewLister(cfg.Locale),
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
	}, nil
}

// Navigation is one handled fragment. Begin does the synchronous part; Load
// fetches data and renders it.
type Navigation struct {
	d     *Dispatcher
	Route route.Route
	ID    uuid.UUID
}

// Navigate handles fragment from start to finish.
func (d *Dispatcher) Navigate(ctx context.Context, fragment string) error {
	nav, err := d.Begin(fragment)
	if err != nil {
		return err
	}
	return nav.Load(ctx)
}

// Begin tears down the previous view, parses fragment and renders everything
// that needs no data: the breadcrumbs, the pager and, for the years index, an
// empty map with its tile session.
func (d *Dispatcher) Begin(fragment string) (*Navigation, error) {
	r := route.Parse(fragment)
	nav := &Navigation{d: d, Route: r, ID: uuid.New()}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.teardownLocked()
	d.current = nav.ID
	d.page.SetHTML("")

	d.log().Debug("Navigating", "nav_id", nav.ID.String(), "fragment", r.Fragment, "route", r.Kind.String())

	switch r.Kind {
	case route.KindDay, route.KindMonth, route.KindYear:
		d.page.SetHTML(Breadcrumbs(r.Breadcrumbs()) + Pager(r.Date))
	case route.KindGeohash:
		d.page.SetHTML(Breadcrumbs(nil))
	default:
		d.page.SetHTML(Breadcrumbs(nil))
		if err := d.openSessionLocked(r.Fragment); err != nil {
			return nil, err
		}
	}
	return nav, nil
}

// Load issues the query for the navigation's view and renders the result.
// It returns ErrStale, without touching the page or map, if another
// navigation began while the query was in flight.
func (n *Navigation) Load(ctx context.Context) error {
	d := n.d
	r := n.Route

	switch r.Kind {
	case route.KindDay:
		from, to := r.Date.Window(d.loc)
		events, err := d.querier.Events(ctx, from, to)
		if err != nil {
			return fmt.Errorf("failed to fetch events for %s: %w", r.Date, err)
		}
		return n.renderEvents(events, RenderOptions{Polyline: r.Polyline()})

	case route.KindGeohash:
		events, err := d.querier.EventsByGeohash(ctx, r.Geohash)
		if err != nil {
			return fmt.Errorf("failed to fetch events for %s: %w", r.Geohash, err)
		}
		return n.renderEvents(events, RenderOptions{Polyline: false, Popup: MarkerPopup})

	case route.KindMonth:
		rows, err := d.querier.Days(ctx, r.Date.Year, r.Date.Month)
		if err != nil {
			return fmt.Errorf("failed to fetch days for %s: %w", r.Date, err)
		}
		return n.renderList(rows)

	case route.KindYear:
		rows, err := d.querier.Months(ctx, r.Date.Year)
		if err != nil {
			return fmt.Errorf("failed to fetch months for %s: %w", r.Date, err)
		}
		return n.renderList(rows)

	default:
		rows, err := d.querier.Years(ctx)
		if err != nil {
			return fmt.Errorf("failed to fetch years: %w", err)
		}
		return n.renderList(rows)
	}
}

func (n *Navigation) renderList(rows []types.Count) error {
	d := n.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != n.ID {
		return ErrStale
	}
	d.page.AppendHTML(d.lister.List(rows))
	return nil
}

func (n *Navigation) renderEvents(events []types.Event, opts RenderOptions) error {
	d := n.d
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.current != n.ID {
		return ErrStale
	}
	if len(events) == 0 {
		d.page.AppendHTML(NoEvents)
		return nil
	}

	if d.m == nil {
		m, err := d.newMap()
		if err != nil {
			return fmt.Errorf("failed to create map: %w", err)
		}
		d.m = m
	}
	if err := d.m.RenderPoints(events, opts); err != nil {
		return fmt.Errorf("failed to render %d events: %w", len(events), err)
	}
	return nil
}

// openSessionLocked creates an empty map and its tile session. Must be
// called with lock held.
func (d *Dispatcher) openSessionLocked(fragment string) error {
	m, err := d.newMap()
	if err != nil {
		return fmt.Errorf("failed to create map: %w", err)
	}
	if err := m.RenderPoints(nil, RenderOptions{}); err != nil {
		m.Destroy()
		return fmt.Errorf("failed to render empty map: %w", err)
	}

	d.m = m
	d.session = NewSession(SessionConfig{
		Map:      m,
		Querier:  d.querier,
		History:  d.history,
		Fragment: fragment,
		Debounce: d.debounce,
		Logger:   d.logger,
	})
	d.session.Start()
	return nil
}

// teardownLocked closes the session and destroys the map. Must be called
// with lock held.
func (d *Dispatcher) teardownLocked() {
	if d.session != nil {
		d.session.Close()
		d.session = nil
	}
	if d.m != nil {
		d.m.Destroy()
		d.m = nil
	}
}

// Session returns the live map session, or nil outside the years index.
func (d *Dispatcher) Session() *Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Close tears down the current view.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardownLocked()
	d.current = uuid.Nil
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger != nil {
		return d.logger
	}
	return slog.Default()
}
