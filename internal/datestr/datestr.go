// Package datestr implements the date strings used in routes and list buckets:
// "YYYY", "YYYY-MM" and "YYYY-MM-DD". The granularity is carried as a tag on
// Date instead of being re-derived from the string on every operation.
package datestr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned when a string is not a well-formed date string.
var ErrMalformed = errors.New("malformed date string")

// Granularity is the precision of a Date.
type Granularity int

const (
	Year Granularity = iota + 1
	Month
	Day
)

func (g Granularity) String() string {
	switch g {
	case Year:
		return "year"
	case Month:
		return "month"
	case Day:
		return "day"
	default:
		return "unknown"
	}
}

// Date is a year, a year+month or a year+month+day.
// Month and Day are zero when the granularity does not include them.
type Date struct {
	Granularity Granularity
	Year        int
	Month       int
	Day         int
}

// NewYear returns a year-granularity date.
func NewYear(year int) Date {
	return Date{Granularity: Year, Year: year}
}

// NewMonth returns a month-granularity date.
func NewMonth(year, month int) Date {
	return Date{Granularity: Month, Year: year, Month: month}
}

// NewDay returns a day-granularity date.
func NewDay(year, month, day int) Date {
	return Date{Granularity: Day, Year: year, Month: month, Day: day}
}

// Parse parses "YYYY", "YYYY-MM" or "YYYY-MM-DD".
func Parse(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) == 0 || len(parts) > 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}

	nums := make([]int, len(parts))
	for i, p := range parts {
		if p == "" || (i > 0 && len(p) != 2) {
			return Date{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Date{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
		nums[i] = n
	}

	var d Date
	switch len(nums) {
	case 1:
		d = NewYear(nums[0])
	case 2:
		d = NewMonth(nums[0], nums[1])
	case 3:
		d = NewDay(nums[0], nums[1], nums[2])
	}
	if !d.Valid() {
		return Date{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	return d, nil
}

// Valid reports whether the month and day components exist on the calendar.
func (d Date) Valid() bool {
	switch d.Granularity {
	case Year:
		return true
	case Month:
		return d.Month >= 1 && d.Month <= 12
	case Day:
		return d.Month >= 1 && d.Month <= 12 && d.Day >= 1 && d.Day <= DaysIn(d.Year, d.Month)
	default:
		return false
	}
}

// DaysIn returns the number of days in the given month.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String renders the date in its canonical shape.
func (d Date) String() string {
	switch d.Granularity {
	case Year:
		return strconv.Itoa(d.Year)
	case Month:
		return fmt.Sprintf("%d-%02d", d.Year, d.Month)
	case Day:
		return fmt.Sprintf("%d-%02d-%02d", d.Year, d.Month, d.Day)
	default:
		return ""
	}
}

// Components returns the printed components, e.g. ["2025", "12", "20"].
func (d Date) Components() []string {
	parts := []string{strconv.Itoa(d.Year)}
	if d.Granularity >= Month {
		parts = append(parts, fmt.Sprintf("%02d", d.Month))
	}
	if d.Granularity >= Day {
		parts = append(parts, fmt.Sprintf("%02d", d.Day))
	}
	return parts
}

// Shift moves the date by delta units of its own granularity.
func (d Date) Shift(delta int) Date {
	switch d.Granularity {
	case Year:
		return NewYear(d.Year + delta)
	case Month:
		t := time.Date(d.Year, time.Month(d.Month)+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
		return NewMonth(t.Year(), int(t.Month()))
	case Day:
		t := time.Date(d.Year, time.Month(d.Month), d.Day+delta, 0, 0, 0, 0, time.UTC)
		return NewDay(t.Year(), int(t.Month()), t.Day())
	default:
		return d
	}
}

// Children returns the months of a year or the days of a month, in order.
// A day has no children.
func (d Date) Children() []Date {
	switch d.Granularity {
	case Year:
		out := make([]Date, 12)
		for m := 1; m <= 12; m++ {
			out[m-1] = NewMonth(d.Year, m)
		}
		return out
	case Month:
		n := DaysIn(d.Year, d.Month)
		out := make([]Date, n)
		for day := 1; day <= n; day++ {
			out[day-1] = NewDay(d.Year, d.Month, day)
		}
		return out
	default:
		return nil
	}
}

// Prev returns the previous year, month or day.
func (d Date) Prev() Date { return d.Shift(-1) }

// Next returns the next year, month or day.
func (d Date) Next() Date { return d.Shift(1) }

// Window returns the 24h window starting at local midnight of a day-granularity
// date in loc. Other granularities start at the first day of their period.
func (d Date) Window(loc *time.Location) (from, to time.Time) {
	month, day := d.Month, d.Day
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	from = time.Date(d.Year, time.Month(month), day, 0, 0, 0, 0, loc)
	return from, from.Add(24 * time.Hour)
}

// Shift parses s and shifts it by delta.
func Shift(s string, delta int) (string, error) {
	d, err := Parse(s)
	if err != nil {
		return "", err
	}
	return d.Shift(delta).String(), nil
}

// Prev returns the date string before s.
func Prev(s string) (string, error) { return Shift(s, -1) }

// Next returns the date string after s.
func Next(s string) (string, error) { return Shift(s, 1) }
