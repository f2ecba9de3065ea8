package bridge

import (
	"sync"
	"time"
)

// Debouncer collapses repeated reads of the same badge on one reader within
// a fixed window into a single event.
type Debouncer struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	last map[string]time.Time
}

func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		now:    time.Now,
		last:   make(map[string]time.Time),
	}
}

// Allow reports whether a read of uid should be forwarded. A read is dropped
// when the same uid was accepted less than window ago; dropped reads do not
// extend the window.
func (d *Debouncer) Allow(uid string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.last[uid]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[uid] = now

	// Forget badges that can no longer suppress anything.
	for k, t := range d.last {
		if now.Sub(t) >= d.window {
			delete(d.last, k)
		}
	}
	return true
}
