package domain

import "time"

// WindowDuration is the fixed window every route budget is counted over.
const WindowDuration = time.Minute

// Limiter decides whether one more request fits in its budget at now.
type Limiter interface {
	TryAdmit(now time.Time) Decision
}

// LimiterStore hands out exactly one Limiter per key. The implementation owns
// the limiters for the life of the process.
type LimiterStore interface {
	GetOrCreate(key RouteKey, window time.Duration, max int) Limiter
}

type Decision struct {
	Allowed bool

	Tier      Tier
	Key       RouteKey
	Limit     int
	Remaining int

	// RetryAfter is how long until the current window closes. Zero when allowed.
	RetryAfter time.Duration
}
