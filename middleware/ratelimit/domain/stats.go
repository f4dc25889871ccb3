package domain

import (
	"context"
	"time"
)

// StatsEvent is one admission decision.
//
// Path is the truncated route, not the raw request path, so sinks such as
// Redis or Prometheus keep a bounded cardinality.
type StatsEvent struct {
	Key     RouteKey
	Tier    Tier
	Allowed bool

	Method string
	Path   string

	At time.Time
}

// StatsStore persists admission statistics. Callers treat errors as
// best-effort and never fail a request because of them.
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
