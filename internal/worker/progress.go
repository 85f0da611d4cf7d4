package worker

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Progress prints a one-line progress bar.
type Progress struct {
	startTime time.Time
	output    io.Writer
	total     int
	completed int
	failed    int
	mu        sync.Mutex
}

// NewProgress creates a tracker printing to w. A nil w disables printing.
func NewProgress(total int, w io.Writer) *Progress {
	return &Progress{
		total:     total,
		startTime: time.Now(),
		output:    w,
	}
}

// Update records progress and redraws the bar.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed = completed
	p.total = total
	p.failed = failed
	p.mu.Unlock()

	p.Print()
}

// Callback returns p.Update as a ProgressFunc.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Print redraws the bar.
func (p *Progress) Print() {
	if p.output == nil {
		return
	}
	fmt.Fprint(p.output, "\r"+p.line()+"    ")
}

func (p *Progress) line() string {
	p.mu.Lock()
	completed, total, failed := p.completed, p.total, p.failed
	p.mu.Unlock()

	const width = 30
	filled := 0
	if total > 0 {
		filled = completed * width / total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)

	line := fmt.Sprintf("[%s] %d/%d views", bar, completed, total)
	if failed > 0 {
		line += fmt.Sprintf(" (%d failed)", failed)
	}
	if completed == total {
		line += " - done in " + formatDuration(time.Since(p.startTime))
	}
	return line
}

// Done finishes the progress line.
func (p *Progress) Done() {
	if p.output == nil {
		return
	}
	p.Print()
	fmt.Fprintln(p.output)
}

// Summary describes the finished run.
func (p *Progress) Summary() string {
	p.mu.Lock()
	completed, total, failed := p.completed, p.total, p.failed
	p.mu.Unlock()

	return fmt.Sprintf("Rendered %d/%d views (%d failed) in %s",
		completed-failed, total, failed, formatDuration(time.Since(p.startTime)))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}
