package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Count is one aggregate row: a date bucket and the number of events in it.
type Count struct {
	Bucket string
	Count  int64
}

// CountValue decodes a count that the backend sends either as a JSON string
// ("42", as Postgres bigint aggregates are serialized) or as a number.
type CountValue int64

func (c *CountValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		data = []byte(s)
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid count %q: %w", data, err)
	}
	*c = CountValue(n)
	return nil
}

// YearCount is a row of /api/years.
type YearCount struct {
	Year  string     `json:"year"`
	Count CountValue `json:"count"`
}

// MonthCount is a row of /api/months.
type MonthCount struct {
	Month string     `json:"month"`
	Count CountValue `json:"count"`
}

// DayCount is a row of /api/days.
type DayCount struct {
	Day   string     `json:"day"`
	Count CountValue `json:"count"`
}

func (r YearCount) Row() Count  { return Count{Bucket: r.Year, Count: int64(r.Count)} }
func (r MonthCount) Row() Count { return Count{Bucket: r.Month, Count: int64(r.Count)} }
func (r DayCount) Row() Count   { return Count{Bucket: r.Day, Count: int64(r.Count)} }
