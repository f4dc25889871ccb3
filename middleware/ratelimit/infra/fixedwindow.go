package infra

import (
	"sync"
	"time"

	"rest-gateway/middleware/ratelimit/domain"
)

// FixedWindow counts admissions in a fixed time window. The counter resets
// when a request arrives after the window has elapsed, so a burst straddling
// a boundary can briefly see up to twice the nominal rate.
type FixedWindow struct {
	mu          sync.Mutex
	window      time.Duration
	max         int
	windowStart time.Time
	count       int
}

func NewFixedWindow(window time.Duration, max int) *FixedWindow {
	if window <= 0 {
		window = domain.WindowDuration
	}
	return &FixedWindow{window: window, max: max}
}

func (f *FixedWindow) Max() int { return f.max }

// TryAdmit implements domain.Limiter. A denied request does not count, so
// count never exceeds max.
func (f *FixedWindow) TryAdmit(now time.Time) domain.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !now.Before(f.windowStart.Add(f.window)) {
		f.windowStart = now
		f.count = 0
	}

	if f.count < f.max {
		f.count++
		return domain.Decision{
			Allowed:   true,
			Limit:     f.max,
			Remaining: f.max - f.count,
		}
	}

	return domain.Decision{
		Allowed:    false,
		Limit:      f.max,
		RetryAfter: f.windowStart.Add(f.window).Sub(now),
	}
}
