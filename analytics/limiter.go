package analytics

import (
	"sync"
	"time"
)

// repeatFilter remembers which keys were seen within window so a reader
// refreshing a post is counted once.
type repeatFilter struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	done   chan struct{}
}

func newRepeatFilter(window time.Duration) *repeatFilter {
	f := &repeatFilter{
		seen:   make(map[string]time.Time),
		window: window,
		done:   make(chan struct{}),
	}
	go f.cleanup()
	return f
}

// first reports whether key has not been seen within the window, and marks it.
func (f *repeatFilter) first(key string) bool {
	now := time.Now()

	f.mu.Lock()
	defer f.mu.Unlock()

	if last, ok := f.seen[key]; ok && now.Sub(last) < f.window {
		return false
	}
	f.seen[key] = now
	return true
}

func (f *repeatFilter) cleanup() {
	ticker := time.NewTicker(f.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-f.window)
			f.mu.Lock()
			for key, t := range f.seen {
				if t.Before(cutoff) {
					delete(f.seen, key)
				}
			}
			f.mu.Unlock()
		case <-f.done:
			return
		}
	}
}

func (f *repeatFilter) stop() {
	close(f.done)
}
