// Package ratelimiter bounds the number of accepted requests within a
// trailing fixed-duration window by tracking individual timestamps.
package ratelimiter

import (
	"sync"
	"time"
)

// Defaults applied when a Window is constructed with non-positive settings.
const (
	DefaultMaxRequests    = 30
	DefaultWindowDuration = 60 * time.Second
)

// Window is a sliding-window counter for one rate-limited identity.
// Invariant: timestamps only holds entries within [now-duration, now],
// sorted ascending. Mutation is serialized by the internal mutex so that
// concurrent requests for the same identity cannot over-acquire.
type Window struct {
	mu          sync.Mutex
	maxRequests int
	duration    time.Duration
	timestamps  []time.Time
}

// NewWindow constructs a sliding window with the given bounds.
func NewWindow(maxRequests int, duration time.Duration) *Window {
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	if duration <= 0 {
		duration = DefaultWindowDuration
	}
	return &Window{maxRequests: maxRequests, duration: duration}
}

// purge drops timestamps older than now-duration. Caller holds mu.
func (w *Window) purge(now time.Time) {
	cutoff := now.Add(-w.duration)
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}

// TryAcquire purges expired entries, then either records now and returns true
// or returns false without mutation when the window is full. At most
// maxRequests acquisitions succeed in any duration-length trailing interval.
func (w *Window) TryAcquire(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(now)
	if len(w.timestamps) >= w.maxRequests {
		return false
	}
	w.timestamps = append(w.timestamps, now)
	return true
}

// Remaining reports how many acquisitions are still available at now.
func (w *Window) Remaining(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(now)
	if n := w.maxRequests - len(w.timestamps); n > 0 {
		return n
	}
	return 0
}

// TimeUntilReset returns how long until the oldest recorded request leaves
// the window, ceiled to whole seconds and never negative. Zero when no
// requests are recorded.
func (w *Window) TimeUntilReset(now time.Time) time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.purge(now)
	if len(w.timestamps) == 0 {
		return 0
	}
	remaining := w.duration - now.Sub(w.timestamps[0])
	if remaining <= 0 {
		return 0
	}
	// ceil to whole seconds so callers can surface it as a Retry-After value
	secs := (remaining + time.Second - 1) / time.Second
	return secs * time.Second
}

// Reset clears all recorded requests (administrative operation).
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timestamps = w.timestamps[:0]
}
