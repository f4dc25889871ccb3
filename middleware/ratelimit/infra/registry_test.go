package infra

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rest-gateway/middleware/ratelimit/domain"
)

func TestRegistry_GetSameKeyReturnsSameLimiter(t *testing.T) {
	r := NewRegistry()

	l1 := r.GetOrCreate(domain.RouteKey("k"), time.Minute, 10)
	l2 := r.GetOrCreate(domain.RouteKey("k"), time.Minute, 999)
	if l1 != l2 {
		t.Fatalf("expected same limiter for same key")
	}
	if got := l2.(*FixedWindow).Max(); got != 10 {
		t.Fatalf("expected max from first creation, got %d", got)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 limiter, got %d", r.Len())
	}
}

func TestRegistry_ConcurrentFirstAccessCreatesOne(t *testing.T) {
	r := NewRegistry()

	const workers = 64
	got := make([]domain.Limiter, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = r.GetOrCreate(domain.RouteKey("hot"), time.Minute, 5)
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a different limiter", i)
		}
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 limiter, got %d", r.Len())
	}
}

func TestRegistry_ConcurrentAdmitsExactlyMax(t *testing.T) {
	r := NewRegistry()
	now := time.Now()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lim := r.GetOrCreate(domain.RouteKey("k"), time.Minute, 50)
			if lim.TryAdmit(now).Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", allowed.Load())
	}
}
