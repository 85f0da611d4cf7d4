package worker

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestProgress_Update(t *testing.T) {
	p := NewProgress(10, nil)

	p.Update(5, 10, 0)

	if p.completed != 5 {
		t.Errorf("Expected completed=5, got %d", p.completed)
	}
	if p.total != 10 {
		t.Errorf("Expected total=10, got %d", p.total)
	}
}

func TestProgress_Print(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(10, &buf)

	p.Update(5, 10, 1)
	output := buf.String()

	if !strings.Contains(output, "[###############...............]") {
		t.Errorf("Expected half-filled bar, got: %s", output)
	}
	if !strings.Contains(output, "5/10 views") {
		t.Errorf("Expected '5/10 views' in output, got: %s", output)
	}
	if !strings.Contains(output, "(1 failed)") {
		t.Errorf("Expected '(1 failed)' in output, got: %s", output)
	}
	if strings.Contains(output, "done in") {
		t.Errorf("Unexpected completion in output: %s", output)
	}
}

func TestProgress_Done(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(2, &buf)

	p.Update(2, 2, 0)
	p.Done()

	output := buf.String()
	if !strings.Contains(output, "done in") {
		t.Errorf("Expected completion in output, got: %s", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("Expected trailing newline, got: %q", output)
	}
}

func TestProgress_Disabled(t *testing.T) {
	p := NewProgress(2, nil)
	p.Update(1, 2, 0)
	p.Done()
}

func TestProgress_Summary(t *testing.T) {
	p := NewProgress(10, nil)
	p.startTime = time.Now().Add(-2 * time.Second)
	p.Update(10, 10, 2)

	summary := p.Summary()
	if !strings.HasPrefix(summary, "Rendered 8/10 views (2 failed) in ") {
		t.Errorf("Unexpected summary: %s", summary)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{1500 * time.Millisecond, "1.5s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m0s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}
