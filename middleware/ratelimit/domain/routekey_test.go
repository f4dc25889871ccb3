package domain

import (
	"math"
	"testing"
)

func TestBuildRouteKey_TruncatesToDepth(t *testing.T) {
	a := BuildRouteKey(TierAnonymous, "get", "/v2/block/detailsByHeight/100/extra")
	b := BuildRouteKey(TierAnonymous, "GET", "/v2/block/detailsByHeight/100/other")
	if a != b {
		t.Fatalf("expected same key, got %q and %q", a, b)
	}
	if a != "anonymous|GET|/v2/block/detailsByHeight/100" {
		t.Fatalf("unexpected key %q", a)
	}
}

func TestBuildRouteKey_IgnoresEmptySegments(t *testing.T) {
	a := BuildRouteKey(TierPartner, "GET", "//block//detailsByHeight/100/")
	if a != "partner|GET|/block/detailsByHeight/100" {
		t.Fatalf("unexpected key %q", a)
	}
	if got := BuildRouteKey(TierPartner, "GET", ""); got != "partner|GET|/" {
		t.Fatalf("unexpected root key %q", got)
	}
}

func TestBuildRouteKey_SeparatesTierAndMethod(t *testing.T) {
	path := "/block/detailsByHeight/100"
	keys := map[RouteKey]bool{
		BuildRouteKey(TierAnonymous, "GET", path):  true,
		BuildRouteKey(TierPartner, "GET", path):    true,
		BuildRouteKey(TierProUser, "GET", path):    true,
		BuildRouteKey(TierAnonymous, "POST", path): true,
	}
	if len(keys) != 4 {
		t.Fatalf("expected 4 distinct keys, got %d", len(keys))
	}
}

func TestRouteKey_Route(t *testing.T) {
	k := BuildRouteKey(TierProUser, "GET", "/v2/slp/list/abc/def")
	if got := k.Route(); got != "/v2/slp/list/abc" {
		t.Fatalf("unexpected route %q", got)
	}
}

func TestTier_Ceiling(t *testing.T) {
	if got := TierAnonymous.Ceiling(60); got != 60 {
		t.Fatalf("anonymous ceiling = %d", got)
	}
	if got := TierPartner.Ceiling(60); got != 600 {
		t.Fatalf("partner ceiling = %d", got)
	}
	if got := TierProUser.Ceiling(60); got != 600 {
		t.Fatalf("pro ceiling = %d", got)
	}
}

func TestTier_CeilingSaturates(t *testing.T) {
	huge := math.MaxInt/ElevatedMultiplier + 1
	if got := TierPartner.Ceiling(huge); got != math.MaxInt {
		t.Fatalf("partner ceiling = %d, want MaxInt", got)
	}
	if got := TierProUser.Ceiling(huge); got < huge {
		t.Fatalf("pro ceiling %d below anonymous %d", got, huge)
	}
}
