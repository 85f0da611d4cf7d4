package timing

import (
	"context"
	"sync"
	"time"
)

// Latch is a readiness future. It is resolved at most once; callbacks
// registered with OnReady run exactly once, after resolution.
type Latch struct {
	done     chan struct{}
	pending  []func()
	resolved bool
	mu       sync.Mutex
}

// NewLatch creates an unresolved latch.
func NewLatch() *Latch {
	return &Latch{done: make(chan struct{})}
}

// Resolve marks the latch ready and runs the pending callbacks in
// registration order. Later calls do nothing.
func (l *Latch) Resolve() {
	l.mu.Lock()
	if l.resolved {
		l.mu.Unlock()
		return
	}
	l.resolved = true
	pending := l.pending
	l.pending = nil
	close(l.done)
	l.mu.Unlock()

	for _, fn := range pending {
		fn()
	}
}

// OnReady runs fn once the latch is resolved, immediately if it already is.
func (l *Latch) OnReady(fn func()) {
	l.mu.Lock()
	if !l.resolved {
		l.pending = append(l.pending, fn)
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	fn()
}

// Done is closed when the latch is resolved.
func (l *Latch) Done() <-chan struct{} {
	return l.done
}

// Resolved reports whether Resolve was called.
func (l *Latch) Resolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved
}

// WhenLoaded polls loaded every interval, with no retry limit, and calls fn
// once the first time it reports true. It returns when fn has run or ctx is
// done. fn never runs more than once, even if loaded keeps returning true.
func WhenLoaded(ctx context.Context, interval time.Duration, loaded func() bool, fn func()) error {
	if interval <= 0 {
		interval = DefaultDelay
	}

	var once sync.Once
	call := func() { once.Do(fn) }

	if loaded() {
		call()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if loaded() {
				call()
				return nil
			}
		}
	}
}
