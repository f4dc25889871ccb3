package ratelimit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rest-gateway/middleware/ratelimit/infra"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestConcurrencyMiddleware_NilPoolIsPassthrough(t *testing.T) {
	calls := 0
	h := ConcurrencyMiddleware(ConcurrencyOptions{})(okHandler(&calls))
	if w := get(h, "/", ""); w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected passthrough, got %d (calls=%d)", w.Code, calls)
	}
}

func TestConcurrencyMiddleware_RejectsWhenPoolFull(t *testing.T) {
	pool := infra.NewChanPool(1)
	log, hook := test.NewNullLogger()
	calls := 0
	h := ConcurrencyMiddleware(ConcurrencyOptions{
		Pool:           pool,
		AcquireTimeout: 10 * time.Millisecond,
		Logger:         log,
	})(okHandler(&calls))

	held, ok := pool.Acquire(context.Background())
	if !ok {
		t.Fatal("could not take the only slot")
	}

	w := get(h, "/v2/block", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while full, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", w.Header().Get("Retry-After"))
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body["error"] != BusyMessage {
		t.Fatalf("unexpected body %v (%v)", body, err)
	}
	if calls != 0 {
		t.Fatalf("next must not run when rejected")
	}
	if e := hook.LastEntry(); e == nil || e.Data["path"] != "/v2/block" {
		t.Fatalf("expected a rejection log entry, got %v", e)
	}

	held()
	if w := get(h, "/v2/block", ""); w.Code != http.StatusOK || calls != 1 {
		t.Fatalf("expected 200 after release, got %d", w.Code)
	}
	if pool.InFlight() != 0 {
		t.Fatalf("slot leaked: %d in flight", pool.InFlight())
	}
}

func TestConcurrencyMiddleware_ClientGoneWhileWaiting(t *testing.T) {
	pool := infra.NewChanPool(1)
	held, _ := pool.Acquire(context.Background())
	defer held()

	calls := 0
	h := ConcurrencyMiddleware(ConcurrencyOptions{Pool: pool})(okHandler(&calls))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v2/block", nil).WithContext(ctx))

	if calls != 0 {
		t.Fatalf("next must not run")
	}
	if w.Body.Len() != 0 {
		t.Fatalf("nothing should be written to a gone client, got %q", w.Body.String())
	}
}
