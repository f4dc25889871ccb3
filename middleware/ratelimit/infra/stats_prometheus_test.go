package infra

import (
	"context"
	"errors"
	"testing"
	"time"

	"rest-gateway/middleware/ratelimit/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusStats_CountsDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistry()
	s := NewPrometheusStats(reg, WithRegistrySize(r))

	r.GetOrCreate("a", time.Minute, 1)
	r.GetOrCreate("b", time.Minute, 1)

	ctx := context.Background()
	_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierAnonymous, Allowed: false, Method: "GET", Path: "/v2/block"})
	_ = s.Record(ctx, domain.StatsEvent{Tier: domain.TierAnonymous, Allowed: false, Method: "GET", Path: "/v2/block"})

	got := testutil.ToFloat64(s.decisions.WithLabelValues("anonymous", "GET", "/v2/block", "denied"))
	if got != 2 {
		t.Fatalf("expected 2 denied decisions, got %v", got)
	}

	n, err := testutil.GatherAndCount(reg, "gateway_ratelimit_limiters")
	if err != nil || n != 1 {
		t.Fatalf("expected limiters gauge to be registered, n=%d err=%v", n, err)
	}
}

type failingStats struct{ calls int }

func (f *failingStats) Record(context.Context, domain.StatsEvent) error {
	f.calls++
	return errors.New("boom")
}

func TestMultiStats_RecordsEverySinkAndJoinsErrors(t *testing.T) {
	bad := &failingStats{}
	mem := NewMemoryStatsStore()
	m := MultiStats{bad, nil, mem}

	err := m.Record(context.Background(), domain.StatsEvent{Allowed: true})
	if err == nil {
		t.Fatalf("expected joined error")
	}
	if bad.calls != 1 || mem.Total().Allowed != 1 {
		t.Fatalf("expected every sink to be called")
	}
}
