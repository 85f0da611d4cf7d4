// Package route resolves the hash fragment of the viewer URL into a view request.
package route

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/lochistory/internal/datestr"
	"github.com/MeKo-Tech/lochistory/internal/types"
	"github.com/paulmach/orb"
)

// Root is the marker every fragment starts with.
const Root = "#/"

// ErrBadViewport is returned when the fragment carries an incomplete or
// unparsable lat/lng/zoom query.
var ErrBadViewport = errors.New("malformed viewport in fragment")

// Kind discriminates the route variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindYears
	KindYear
	KindMonth
	KindDay
	KindGeohash
)

func (k Kind) String() string {
	switch k {
	case KindYears:
		return "years"
	case KindYear:
		return "year"
	case KindMonth:
		return "month"
	case KindDay:
		return "day"
	case KindGeohash:
		return "geohash"
	default:
		return "unknown"
	}
}

// Route is a parsed fragment. Date is set for Year, Month and Day routes,
// Geohash for geohash routes. Fragment is the normalized input.
type Route struct {
	Fragment string
	Geohash  string
	Date     datestr.Date
	Kind     Kind
}

var (
	datePattern  = regexp.MustCompile(`^(\d{4})-?(\d{2})?-?(\d{2})?`)
	tokenPattern = regexp.MustCompile(`^(\w+)`)
)

// geohashAlphabet is the base-32 alphabet used by geohash tokens.
const geohashAlphabet = "0123456789bcdefghjkmnpqrstuvwxyz"

// Normalize returns hash with the root marker, defaulting to the root.
func Normalize(hash string) string {
	switch {
	case strings.HasPrefix(hash, Root):
		return hash
	case strings.HasPrefix(hash, "#"):
		return Root + strings.TrimPrefix(hash[1:], "/")
	default:
		return Root + strings.TrimPrefix(hash, "/")
	}
}

// Rewrite reports whether the address bar holding hash must be replaced
// with its normalized form.
func Rewrite(hash string) (string, bool) {
	fragment := Normalize(hash)
	return fragment, fragment != hash
}

// Parse resolves a fragment. Matching is prefix based: anything after a valid
// date or token is ignored.
func Parse(fragment string) Route {
	fragment = Normalize(fragment)
	path := strings.TrimPrefix(fragment, Root)
	r := Route{Fragment: fragment}

	if path == "" || strings.HasPrefix(path, "?") {
		r.Kind = KindYears
		return r
	}

	if m := datePattern.FindStringSubmatch(path); m != nil {
		year, _ := strconv.Atoi(m[1])
		r.Kind = KindYear
		r.Date = datestr.NewYear(year)

		if m[2] == "" {
			return r
		}
		month, _ := strconv.Atoi(m[2])
		if d := datestr.NewMonth(year, month); d.Valid() {
			r.Kind = KindMonth
			r.Date = d
		} else {
			return r
		}

		if m[3] == "" {
			return r
		}
		day, _ := strconv.Atoi(m[3])
		if d := datestr.NewDay(year, month, day); d.Valid() {
			r.Kind = KindDay
			r.Date = d
		}
		return r
	}

	if m := tokenPattern.FindStringSubmatch(path); m != nil && IsGeohash(m[1]) {
		r.Kind = KindGeohash
		r.Geohash = m[1]
		return r
	}

	r.Kind = KindUnknown
	return r
}

// IsGeohash reports whether s is a non-empty run of geohash base-32 characters.
func IsGeohash(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !strings.ContainsRune(geohashAlphabet, c) {
			return false
		}
	}
	return true
}

// Polyline reports whether day views should connect points with a polyline.
func (r Route) Polyline() bool {
	return !strings.Contains(r.Fragment, "polyline=false")
}

// Breadcrumbs returns the date components shown in the heading.
func (r Route) Breadcrumbs() []string {
	switch r.Kind {
	case KindYear, KindMonth, KindDay:
		return r.Date.Components()
	default:
		return nil
	}
}

// Viewport parses the lat/lng/zoom query suffix. ok is false when the fragment
// carries no viewport at all.
func (r Route) Viewport() (v types.Viewport, ok bool, err error) {
	if !strings.Contains(r.Fragment, "lat=") {
		return types.Viewport{}, false, nil
	}

	query := r.Fragment
	if i := strings.IndexByte(query, '?'); i >= 0 {
		query = query[i+1:]
	} else {
		query = strings.TrimPrefix(query, Root)
	}

	values, err := url.ParseQuery(query)
	if err != nil {
		return types.Viewport{}, false, fmt.Errorf("%w: %v", ErrBadViewport, err)
	}

	var nums [3]float64
	for i, key := range []string{"lat", "lng", "zoom"} {
		raw := values.Get(key)
		if raw == "" {
			return types.Viewport{}, false, fmt.Errorf("%w: missing %s", ErrBadViewport, key)
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Viewport{}, false, fmt.Errorf("%w: %s=%q", ErrBadViewport, key, raw)
		}
		nums[i] = n
	}

	return types.Viewport{
		Center: orb.Point{nums[1], nums[0]},
		Zoom:   int(nums[2]),
	}, true, nil
}

// ViewportFragment renders a viewport as a root fragment with a query suffix.
func ViewportFragment(v types.Viewport) string {
	return fmt.Sprintf("%s?lat=%s&lng=%s&zoom=%d",
		Root,
		strconv.FormatFloat(v.Center.Lat(), 'f', -1, 64),
		strconv.FormatFloat(v.Center.Lon(), 'f', -1, 64),
		v.Zoom,
	)
}
