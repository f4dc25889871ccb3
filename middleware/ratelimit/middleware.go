package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"rest-gateway/middleware/ratelimit/application"
	"rest-gateway/middleware/ratelimit/domain"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Gate                application.Gate
	Stats               domain.StatsStore
	AddRateLimitHeaders bool
	TrustXForwardedFor  bool
	Logger              logrus.FieldLogger
}

// DeniedMessage is the 429 body text for a tier whose ceiling is limit.
func DeniedMessage(limit int) string {
	return fmt.Sprintf("Too many requests. Limits are %d requests per minute.", limit)
}

// Middleware is the admission gate for net/http. Denied requests get a 429
// and never reach next; allowed ones reach next with the tier on the context
// and the request otherwise untouched.
func Middleware(opts Options) func(next http.Handler) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			dec := opts.Gate.Admit(r.Context(), application.Request{
				Authorization: r.Header.Get("Authorization"),
				Method:        r.Method,
				Path:          r.URL.Path,
			})

			if opts.Stats != nil && dec.Key != "" {
				err := opts.Stats.Record(r.Context(), domain.StatsEvent{
					Key:     dec.Key,
					Tier:    dec.Tier,
					Allowed: dec.Allowed,
					Method:  r.Method,
					Path:    dec.Key.Route(),
					At:      time.Now(),
				})
				if err != nil {
					log.WithError(err).Debug("recording admission stats failed")
				}
			}

			if opts.AddRateLimitHeaders && dec.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(dec.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(dec.Remaining))
			}

			if !dec.Allowed {
				log.WithFields(logrus.Fields{
					"tier":      dec.Tier.String(),
					"key":       string(dec.Key),
					"client_ip": ClientIP(r, opts.TrustXForwardedFor),
				}).Info("rate limit exceeded")

				w.Header().Set("Retry-After", retryAfterSeconds(dec.RetryAfter))
				writeJSONError(w, http.StatusTooManyRequests, DeniedMessage(dec.Limit))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTier(r.Context(), dec.Tier)))
		})
	}
}
