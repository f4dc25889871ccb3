package infra

import (
	"context"
	"testing"
	"time"

	"rest-gateway/middleware/ratelimit/domain"
)

type blockingStats struct{ release chan struct{} }

func (b blockingStats) Record(ctx context.Context, _ domain.StatsEvent) error {
	<-b.release
	return nil
}

func TestAsyncStats_DeliversAndDrains(t *testing.T) {
	mem := NewMemoryStatsStore()
	a := NewAsyncStats(mem, 16, time.Second, nil)
	a.Start()

	for i := 0; i < 10; i++ {
		_ = a.Record(context.Background(), domain.StatsEvent{Allowed: true})
	}
	a.Close()

	if got := mem.Total().Allowed; got != 10 {
		t.Fatalf("expected 10 events delivered, got %d", got)
	}
}

func TestAsyncStats_DropsWhenFull(t *testing.T) {
	b := blockingStats{release: make(chan struct{})}
	a := NewAsyncStats(b, 1, time.Second, nil)

	// no worker yet: the first event fills the queue
	_ = a.Record(context.Background(), domain.StatsEvent{})
	_ = a.Record(context.Background(), domain.StatsEvent{})
	_ = a.Record(context.Background(), domain.StatsEvent{})

	if got := a.Dropped(); got != 2 {
		t.Fatalf("expected 2 dropped events, got %d", got)
	}

	close(b.release)
	a.Start()
	a.Close()
}

func TestAsyncStats_RecordAfterCloseIsDropped(t *testing.T) {
	mem := NewMemoryStatsStore()
	a := NewAsyncStats(mem, 4, time.Second, nil)
	a.Start()
	a.Close()
	a.Close()

	if err := a.Record(context.Background(), domain.StatsEvent{Allowed: true}); err != nil {
		t.Fatalf("record after close: %v", err)
	}
	if a.Dropped() != 1 {
		t.Fatalf("expected 1 dropped event, got %d", a.Dropped())
	}
	if mem.Total().Allowed != 0 {
		t.Fatalf("nothing should reach the sink after close")
	}
}
