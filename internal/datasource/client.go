// Package datasource queries the location history API: raw events, per-day,
// per-month and per-year counts, and the geohash tiles covering a viewport.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/paulmach/orb"
	"golang.org/x/time/rate"
)

// ErrStatus is wrapped by errors for non-2xx responses.
var ErrStatus = errors.New("unexpected response status")

// isoLayout matches JavaScript's Date.prototype.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Config configures a Client.
type Config struct {
	// BaseURL is prepended to the /api paths. Empty means same origin.
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
	// RequestsPerSecond limits outgoing requests; zero disables the limit.
	RequestsPerSecond float64
	// Burst is the limiter burst size (default: 1).
	Burst  int
	Logger *slog.Logger
}

// Client is the data-query and tile-index collaborator.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	baseURL string
}

// New creates a client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		http:    httpClient,
		limiter: limiter,
		logger:  cfg.Logger,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
	}
}

// Events returns the events recorded in [from, to).
func (c *Client) Events(ctx context.Context, from, to time.Time) ([]types.Event, error) {
	q := url.Values{}
	q.Set("from", FormatInstant(from))
	q.Set("to", FormatInstant(to))

	var events []types.Event
	if err := c.get(ctx, "/api", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// EventsByGeohash returns the events inside a geohash tile.
func (c *Client) EventsByGeohash(ctx context.Context, token string) ([]types.Event, error) {
	q := url.Values{}
	q.Set("geohash", token)

	var events []types.Event
	if err := c.get(ctx, "/api", q, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Days returns per-day counts for a month.
func (c *Client) Days(ctx context.Context, year, month int) ([]types.Count, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", fmt.Sprintf("%02d", month))

	var rows []types.DayCount
	if err := c.get(ctx, "/api/days", q, &rows); err != nil {
		return nil, err
	}
	counts := make([]types.Count, len(rows))
	for i, r := range rows {
		counts[i] = r.Row()
	}
	return counts, nil
}

// Months returns per-month counts for a year.
func (c *Client) Months(ctx context.Context, year int) ([]types.Count, error) {
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))

	var rows []types.MonthCount
	if err := c.get(ctx, "/api/months", q, &rows); err != nil {
		return nil, err
	}
	counts := make([]types.Count, len(rows))
	for i, r := range rows {
		counts[i] = r.Row()
	}
	return counts, nil
}

// Years returns per-year counts.
func (c *Client) Years(ctx context.Context) ([]types.Count, error) {
	var rows []types.YearCount
	if err := c.get(ctx, "/api/years", nil, &rows); err != nil {
		return nil, err
	}
	counts := make([]types.Count, len(rows))
	for i, r := range rows {
		counts[i] = r.Row()
	}
	return counts, nil
}

// Geohashes returns the tiles of the given precision that cover bound and
// contain at least one event.
func (c *Client) Geohashes(ctx context.Context, bound orb.Bound, precision int) ([]string, error) {
	q := url.Values{}
	q.Set("north", formatFloat(types.North(bound)))
	q.Set("east", formatFloat(types.East(bound)))
	q.Set("south", formatFloat(types.South(bound)))
	q.Set("west", formatFloat(types.West(bound)))
	q.Set("precision", strconv.Itoa(precision))

	var hashes []string
	if err := c.get(ctx, "/api/geohashes", q, &hashes); err != nil {
		return nil, err
	}
	return hashes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s returned %d", ErrStatus, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}

	c.log().Debug("api request", "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return nil
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slog.Default()
}

// FormatInstant renders t in UTC with millisecond precision.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
