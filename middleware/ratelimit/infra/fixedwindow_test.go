package infra

import (
	"testing"
	"time"
)

func TestFixedWindow_AllowsUpToMaxThenDenies(t *testing.T) {
	f := NewFixedWindow(time.Minute, 3)
	now := time.Unix(1_700_000_000, 0)

	for i := 1; i <= 3; i++ {
		dec := f.TryAdmit(now.Add(time.Duration(i) * time.Second))
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
		if dec.Remaining != 3-i {
			t.Fatalf("request %d: expected remaining %d, got %d", i, 3-i, dec.Remaining)
		}
	}

	dec := f.TryAdmit(now.Add(10 * time.Second))
	if dec.Allowed {
		t.Fatalf("expected 4th request to be denied")
	}
	if dec.Limit != 3 {
		t.Fatalf("expected limit 3, got %d", dec.Limit)
	}
	// window opened at now+1s, so it closes at now+61s
	if dec.RetryAfter != 51*time.Second {
		t.Fatalf("expected RetryAfter=51s, got %s", dec.RetryAfter)
	}
	if f.count != 3 {
		t.Fatalf("denied requests must not count, got %d", f.count)
	}
}

func TestFixedWindow_ResetsAfterWindow(t *testing.T) {
	f := NewFixedWindow(time.Minute, 1)
	start := time.Unix(1_700_000_000, 0)

	if !f.TryAdmit(start).Allowed {
		t.Fatalf("expected first allowed")
	}
	if f.TryAdmit(start.Add(59 * time.Second)).Allowed {
		t.Fatalf("expected deny inside window")
	}

	dec := f.TryAdmit(start.Add(time.Minute))
	if !dec.Allowed {
		t.Fatalf("expected allowed once the window elapsed")
	}
	if f.count != 1 {
		t.Fatalf("expected fresh count of 1, got %d", f.count)
	}
	if !f.windowStart.Equal(start.Add(time.Minute)) {
		t.Fatalf("expected window to restart at request time")
	}
}

func TestFixedWindow_ZeroWindowUsesDefault(t *testing.T) {
	f := NewFixedWindow(0, 1)
	if f.window != time.Minute {
		t.Fatalf("expected default window of one minute, got %s", f.window)
	}
}
