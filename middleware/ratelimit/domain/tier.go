package domain

import "math"

// Tier is the authorization class of a request. It determines the request
// budget a caller gets on every route.
type Tier int

const (
	// TierAnonymous is the default and is never upgraded implicitly.
	TierAnonymous Tier = iota
	// TierPartner is granted by a pre-shared Basic credential.
	TierPartner
	// TierProUser is granted by a verified bearer token bound to a known account.
	TierProUser
)

// ElevatedMultiplier scales the base budget for Partner and ProUser callers.
const ElevatedMultiplier = 10

func (t Tier) String() string {
	switch t {
	case TierPartner:
		return "partner"
	case TierProUser:
		return "pro"
	default:
		return "anonymous"
	}
}

// Elevated reports whether the tier gets the elevated budget.
func (t Tier) Elevated() bool {
	return t == TierPartner || t == TierProUser
}

// Ceiling returns the per-window request ceiling for the tier given the
// process-wide base budget. The elevated ceiling saturates at math.MaxInt
// rather than wrapping.
func (t Tier) Ceiling(baseMax int) int {
	if !t.Elevated() {
		return baseMax
	}
	if baseMax > math.MaxInt/ElevatedMultiplier {
		return math.MaxInt
	}
	return ElevatedMultiplier * baseMax
}
