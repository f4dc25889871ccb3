package infra

import (
	"sync"
	"time"

	"rest-gateway/middleware/ratelimit/domain"
)

// Registry owns one FixedWindow per route key for the life of the process.
// Entries are never evicted: keys are bounded by tiers x methods x truncated
// routes.
type Registry struct {
	mu       sync.Mutex
	limiters map[domain.RouteKey]*FixedWindow
}

func NewRegistry() *Registry {
	return &Registry{limiters: make(map[domain.RouteKey]*FixedWindow)}
}

// GetOrCreate implements domain.LimiterStore. Window and max only apply when
// the key is first seen; later calls return the existing limiter unchanged.
func (r *Registry) GetOrCreate(key domain.RouteKey, window time.Duration, max int) domain.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lim, ok := r.limiters[key]; ok {
		return lim
	}

	lim := NewFixedWindow(window, max)
	r.limiters[key] = lim
	return lim
}

// Len is the number of limiters created so far.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}
