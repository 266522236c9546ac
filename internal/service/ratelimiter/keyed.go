package ratelimiter

import (
	"sync"
	"time"
)

// Keyed owns one sliding window per client identity. Windows are created at
// first use and live for the process lifetime; Reset is the only way to clear
// them. Safe for concurrent use.
type Keyed struct {
	mu          sync.Mutex
	maxRequests int
	duration    time.Duration
	windows     map[string]*Window
}

// NewKeyed constructs a per-identity limiter registry with shared bounds.
func NewKeyed(maxRequests int, duration time.Duration) *Keyed {
	return &Keyed{
		maxRequests: maxRequests,
		duration:    duration,
		windows:     make(map[string]*Window),
	}
}

func (k *Keyed) window(key string) *Window {
	k.mu.Lock()
	defer k.mu.Unlock()
	w, ok := k.windows[key]
	if !ok {
		w = NewWindow(k.maxRequests, k.duration)
		k.windows[key] = w
	}
	return w
}

// TryAcquire acquires a slot in the identity's window.
func (k *Keyed) TryAcquire(key string, now time.Time) bool {
	return k.window(key).TryAcquire(now)
}

// TimeUntilReset reports the identity's wait until a slot frees up.
func (k *Keyed) TimeUntilReset(key string, now time.Time) time.Duration {
	return k.window(key).TimeUntilReset(now)
}

// Remaining reports available acquisitions for the identity.
func (k *Keyed) Remaining(key string, now time.Time) int {
	return k.window(key).Remaining(now)
}

// ResetAll clears every tracked window (administrative operation).
func (k *Keyed) ResetAll() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for _, w := range k.windows {
		w.Reset()
	}
}
