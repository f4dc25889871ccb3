package application

import (
	"context"
	"time"

	"rest-gateway/middleware/ratelimit/domain"

	"github.com/sirupsen/logrus"
)

// Request is the part of an inbound call the gate looks at.
type Request struct {
	Authorization string
	Method        string
	Path          string
}

// Gate is the admission use case: classify the caller, build the route key,
// resolve the limiter for that key and ask it for a decision.
//
// Classification always completes before the key is built, since the tier is
// part of the key. BaseMax == 0 disables limiting; the caller is still
// classified so downstream handlers learn the tier.
type Gate struct {
	Classifier TierClassifier
	Store      domain.LimiterStore
	BaseMax    int
	Window     time.Duration
	// TokenSchemes overrides domain.DefaultTokenSchemes.
	TokenSchemes []string
	Now          func() time.Time
	Logger       logrus.FieldLogger
}

// Admit classifies the caller and applies its route budget. It never fails:
// internal faults admit the request as anonymous.
func (g Gate) Admit(ctx context.Context, req Request) domain.Decision {
	if g.Window <= 0 {
		g.Window = domain.WindowDuration
	}
	if g.Now == nil {
		g.Now = time.Now
	}
	if g.Logger == nil {
		g.Logger = discardLogger
	}

	cred := domain.ParseAuthorization(req.Authorization, g.TokenSchemes...)
	tier := g.classify(ctx, cred)

	if g.BaseMax == 0 || g.Store == nil {
		return domain.Decision{Allowed: true, Tier: tier}
	}

	key := domain.BuildRouteKey(tier, req.Method, req.Path)
	dec, ok := g.tryAdmit(key, tier.Ceiling(g.BaseMax))
	if !ok {
		return domain.Decision{Allowed: true, Tier: domain.TierAnonymous, Key: key, Limit: g.BaseMax}
	}
	dec.Tier, dec.Key = tier, key
	return dec
}

func (g Gate) classify(ctx context.Context, cred domain.Credential) (tier domain.Tier) {
	if g.Classifier == nil {
		return domain.TierAnonymous
	}
	defer func() {
		if r := recover(); r != nil {
			g.Logger.WithField("panic", r).Error("classifier panicked; using anonymous tier")
			tier = domain.TierAnonymous
		}
	}()
	return g.Classifier.Classify(ctx, cred)
}

// tryAdmit reports ok=false if the limiter faulted. Admit then lets the
// request through as anonymous instead of failing it.
func (g Gate) tryAdmit(key domain.RouteKey, limit int) (dec domain.Decision, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			g.Logger.WithFields(logrus.Fields{"panic": r, "key": key}).Error("limiter panicked; admitting request")
			ok = false
		}
	}()

	lim := g.Store.GetOrCreate(key, g.Window, limit)
	return lim.TryAdmit(g.Now()), true
}
