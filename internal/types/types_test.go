package types

import (
	"encoding/json"
	"testing"

	"github.com/paulmach/orb"
)

func TestCountValueUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{name: "string", input: `{"year":"2025","count":"1234"}`, want: 1234},
		{name: "number", input: `{"year":"2025","count":17}`, want: 17},
		{name: "null", input: `{"year":"2025","count":null}`, want: 0},
		{name: "garbage", input: `{"year":"2025","count":"many"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row YearCount
			err := json.Unmarshal([]byte(tt.input), &row)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error for %s", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := row.Row(); got.Count != tt.want || got.Bucket != "2025" {
				t.Errorf("Row() = %+v, want bucket 2025 count %d", got, tt.want)
			}
		})
	}
}

func TestEventDay(t *testing.T) {
	e := Event{CreatedAt: "2025-12-20T10:11:12Z"}
	if e.Day() != "2025-12-20" {
		t.Errorf("Day() = %q", e.Day())
	}
	if (Event{}).Day() != "" {
		t.Errorf("Day() of empty event should be empty")
	}
}

func TestEventsBound(t *testing.T) {
	events := []Event{
		{Lat: 1, Lon: 2},
		{Lat: -3, Lon: 5},
		{Lat: 4, Lon: -1},
	}

	b := EventsBound(events)
	want := orb.Bound{Min: orb.Point{-1, -3}, Max: orb.Point{5, 4}}
	if b != want {
		t.Errorf("EventsBound = %v, want %v", b, want)
	}
	if North(b) != 4 || South(b) != -3 || East(b) != 5 || West(b) != -1 {
		t.Errorf("edges do not match bound %v", b)
	}
}
