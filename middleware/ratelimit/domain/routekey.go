package domain

import "strings"

// RouteKeyDepth is how many leading path segments take part in a route key.
// Deeper, parameterized segments collapse into the same budget.
const RouteKeyDepth = 4

// RouteKey identifies one budget: tier + method + truncated path.
type RouteKey string

// BuildRouteKey returns tier|METHOD|/seg1/.../segN for the first RouteKeyDepth
// non-empty path segments.
func BuildRouteKey(tier Tier, method, path string) RouteKey {
	segs := make([]string, 0, RouteKeyDepth)
	for _, s := range strings.Split(path, "/") {
		if s == "" {
			continue
		}
		segs = append(segs, s)
		if len(segs) == RouteKeyDepth {
			break
		}
	}
	return RouteKey(tier.String() + "|" + strings.ToUpper(method) + "|/" + strings.Join(segs, "/"))
}

// Route returns the truncated path part of the key.
func (k RouteKey) Route() string {
	s := string(k)
	for i := 0; i < 2; i++ {
		idx := strings.IndexByte(s, '|')
		if idx < 0 {
			return ""
		}
		s = s[idx+1:]
	}
	return s
}
