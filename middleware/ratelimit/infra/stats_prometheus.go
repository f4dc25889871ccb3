package infra

import (
	"context"

	"rest-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusStats exports admission decisions as counters, plus gauges for
// the limiter registry size and in-flight upstream requests when given.
type PrometheusStats struct {
	decisions *prometheus.CounterVec
}

type PrometheusOption func(reg prometheus.Registerer)

// WithRegistrySize exports the number of live limiters.
func WithRegistrySize(r *Registry) PrometheusOption {
	return func(reg prometheus.Registerer) {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "ratelimit",
			Name:      "limiters",
			Help:      "Number of route limiters created since start.",
		}, func() float64 { return float64(r.Len()) }))
	}
}

// WithInFlight exports the occupied slots of the concurrency pool.
func WithInFlight(p *ChanPool) PrometheusOption {
	return func(reg prometheus.Registerer) {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gateway",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Requests currently holding a concurrency slot.",
		}, func() float64 { return float64(p.InFlight()) }))
	}
}

func NewPrometheusStats(reg prometheus.Registerer, opts ...PrometheusOption) *PrometheusStats {
	s := &PrometheusStats{
		decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "gateway",
				Subsystem: "ratelimit",
				Name:      "decisions_total",
				Help:      "Admission decisions by tier, method, route and outcome.",
			},
			[]string{"tier", "method", "route", "decision"},
		),
	}
	reg.MustRegister(s.decisions)
	for _, opt := range opts {
		opt(reg)
	}
	return s
}

func (s *PrometheusStats) Record(_ context.Context, ev domain.StatsEvent) error {
	decision := "denied"
	if ev.Allowed {
		decision = "allowed"
	}
	s.decisions.WithLabelValues(ev.Tier.String(), ev.Method, ev.Path, decision).Inc()
	return nil
}
