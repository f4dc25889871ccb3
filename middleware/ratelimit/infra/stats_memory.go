package infra

import (
	"context"
	"sync"

	"rest-gateway/middleware/ratelimit/domain"
)

type Counters struct {
	Allowed int64 `json:"allowed"`
	Denied  int64 `json:"denied"`
}

func (c *Counters) add(allowed bool) {
	if allowed {
		c.Allowed++
		return
	}
	c.Denied++
}

func (c *Counters) addN(outcome string, n int64) {
	switch outcome {
	case "allowed":
		c.Allowed += n
	case "denied":
		c.Denied += n
	}
}

// MemoryStatsStore keeps admission counters in process memory, by tier and
// by route. It backs the /debug/ratelimit/stats endpoint and tests.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byTier  map[string]Counters
	byRoute map[string]Counters
	byKey   map[string]Counters

	trackKeys bool
}

type MemoryStatsOption func(*MemoryStatsStore)

// WithTrackKeys also counts per route key (tier|method|route).
func WithTrackKeys(track bool) MemoryStatsOption {
	return func(s *MemoryStatsStore) { s.trackKeys = track }
}

func NewMemoryStatsStore(opts ...MemoryStatsOption) *MemoryStatsStore {
	s := &MemoryStatsStore{
		byTier:  make(map[string]Counters),
		byRoute: make(map[string]Counters),
		byKey:   make(map[string]Counters),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	route := ev.Method + " " + ev.Path
	tier := ev.Tier.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Allowed)

	c := s.byTier[tier]
	c.add(ev.Allowed)
	s.byTier[tier] = c

	c = s.byRoute[route]
	c.add(ev.Allowed)
	s.byRoute[route] = c

	if s.trackKeys {
		c = s.byKey[string(ev.Key)]
		c.add(ev.Allowed)
		s.byKey[string(ev.Key)] = c
	}
	return nil
}

// Snapshot is a point-in-time copy of every counter.
type Snapshot struct {
	Total   Counters            `json:"total"`
	ByTier  map[string]Counters `json:"by_tier"`
	ByRoute map[string]Counters `json:"by_route"`
	ByKey   map[string]Counters `json:"by_key,omitempty"`
}

func (s *MemoryStatsStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Total:   s.total,
		ByTier:  copyCounters(s.byTier),
		ByRoute: copyCounters(s.byRoute),
		ByKey:   copyCounters(s.byKey),
	}
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func copyCounters(in map[string]Counters) map[string]Counters {
	out := make(map[string]Counters, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
