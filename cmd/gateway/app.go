package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"rest-gateway/internal/accounts"
	"rest-gateway/internal/config"
	"rest-gateway/internal/logging"
	"rest-gateway/internal/token"
	"rest-gateway/internal/users"
	"rest-gateway/middleware/ratelimit"
	"rest-gateway/middleware/ratelimit/application"
	"rest-gateway/middleware/ratelimit/domain"
	"rest-gateway/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// TierHeader tells the upstream which tier the gateway admitted the call as.
const TierHeader = "X-Gateway-Tier"

type app struct {
	cfg      config.Config
	log      logrus.FieldLogger
	registry *infra.Registry
	pool     *infra.ChanPool
	memStats *infra.MemoryStatsStore
	cluster  *infra.RedisStatsStore
	stats    infra.MultiStats
	metrics  *prometheus.Registry
	accounts accounts.Store
	tokens   *token.Issuer
}

// newApp wires the admission stack. extra sinks (redis) are appended to the
// in-memory and prometheus stats.
func newApp(cfg config.Config, log logrus.FieldLogger, store accounts.Store, extra ...domain.StatsStore) (*app, error) {
	a := &app{
		cfg:      cfg,
		log:      log,
		registry: infra.NewRegistry(),
		memStats: infra.NewMemoryStatsStore(infra.WithTrackKeys(cfg.Stats.TrackKeys)),
		metrics:  prometheus.NewRegistry(),
		accounts: store,
	}

	if cfg.Auth.JWTSecret != "" {
		iss, err := token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
		if err != nil {
			return nil, fmt.Errorf("token issuer: %w", err)
		}
		a.tokens = iss
	}

	promOpts := []infra.PrometheusOption{infra.WithRegistrySize(a.registry)}
	if cfg.Concurrency.Max > 0 {
		a.pool = infra.NewChanPool(cfg.Concurrency.Max)
		promOpts = append(promOpts, infra.WithInFlight(a.pool))
	}
	a.metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.stats = infra.MultiStats{a.memStats, infra.NewPrometheusStats(a.metrics, promOpts...)}
	a.stats = append(a.stats, extra...)
	return a, nil
}

func (a *app) gate() application.Gate {
	ccfg := application.ClassifierConfig{
		PartnerSecrets: a.cfg.RateLimit.PartnerPasswords,
		LookupTimeout:  a.cfg.Accounts.LookupTimeout,
		Logger:         a.log,
	}
	if a.tokens != nil && a.accounts != nil {
		ccfg.Tokens = a.tokens
		ccfg.Accounts = accounts.Lookup{Store: a.accounts}
	}
	return application.Gate{
		Classifier:   application.NewClassifier(ccfg),
		Store:        a.registry,
		BaseMax:      a.cfg.RateLimit.MaxRequests,
		TokenSchemes: a.cfg.RateLimit.TokenSchemes,
		Logger:       a.log,
	}
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(a.metrics, promhttp.HandlerOpts{}))
	r.Get("/debug/ratelimit/stats", a.statsHandler)

	var slots domain.SlotPool
	if a.pool != nil {
		slots = a.pool
	}

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{
			Pool:           slots,
			RejectStatus:   http.StatusServiceUnavailable,
			AcquireTimeout: a.cfg.Concurrency.Timeout,
			Logger:         a.log,
		}))
		r.Use(ratelimit.Middleware(ratelimit.Options{
			Gate:                a.gate(),
			Stats:               a.stats,
			AddRateLimitHeaders: a.cfg.RateLimit.AddHeaders,
			TrustXForwardedFor:  a.cfg.RateLimit.TrustXFF,
			Logger:              a.log,
		}))
		r.Use(logging.RequestLogger(a.log, a.requestFields))

		if a.tokens != nil && a.accounts != nil {
			r.Mount("/v2/user", users.Handler{
				Store:        a.accounts,
				Tokens:       a.tokens,
				TokenSchemes: a.cfg.RateLimit.TokenSchemes,
				Logger:       a.log,
			}.Routes())
		}
		r.Handle("/*", a.proxy())
	})
	return r
}

func (a *app) requestFields(r *http.Request) logrus.Fields {
	f := logrus.Fields{"client_ip": ratelimit.ClientIP(r, a.cfg.RateLimit.TrustXFF)}
	if tier, ok := ratelimit.TierFromContext(r.Context()); ok {
		f["tier"] = tier.String()
	}
	return f
}

func (a *app) proxy() http.Handler {
	p := httputil.NewSingleHostReverseProxy(a.cfg.Upstream.URL)
	director := p.Director
	p.Director = func(r *http.Request) {
		director(r)
		r.Header.Del(TierHeader)
		if tier, ok := ratelimit.TierFromContext(r.Context()); ok {
			r.Header.Set(TierHeader, tier.String())
		}
	}
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		a.log.WithError(err).WithField("path", r.URL.Path).Warn("proxy error")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "bad gateway"})
	}
	return p
}

// statsResponse is this instance's counters, plus the cluster-wide ones
// from Redis when stats persistence is on.
type statsResponse struct {
	infra.Snapshot
	Limiters int             `json:"limiters"`
	InFlight int             `json:"in_flight"`
	Cluster  *infra.Snapshot `json:"cluster,omitempty"`
}

func (a *app) statsHandler(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{Snapshot: a.memStats.Snapshot(), Limiters: a.registry.Len()}
	if a.pool != nil {
		resp.InFlight = a.pool.InFlight()
	}
	if a.cluster != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		snap, err := a.cluster.Snapshot(ctx)
		cancel()
		if err != nil {
			a.log.WithError(err).Warn("reading cluster stats")
		} else {
			resp.Cluster = &snap
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
