package ratelimit

import (
	"context"

	"rest-gateway/middleware/ratelimit/domain"
)

type tierKey struct{}

// WithTier returns a copy of ctx carrying the caller's tier.
func WithTier(ctx context.Context, tier domain.Tier) context.Context {
	return context.WithValue(ctx, tierKey{}, tier)
}

// TierFromContext returns the tier resolved by Middleware. ok is false when
// the request did not pass through the gate.
func TierFromContext(ctx context.Context) (domain.Tier, bool) {
	tier, ok := ctx.Value(tierKey{}).(domain.Tier)
	return tier, ok
}
