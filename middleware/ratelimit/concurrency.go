package ratelimit

import (
	"errors"
	"net/http"
	"time"

	"rest-gateway/middleware/ratelimit/application"
	"rest-gateway/middleware/ratelimit/domain"

	"github.com/sirupsen/logrus"
)

// BusyMessage is the body text of a concurrency rejection.
const BusyMessage = "Server is busy. Please retry shortly."

type ConcurrencyOptions struct {
	// Pool is the in-flight cap. Nil disables the middleware.
	Pool domain.SlotPool
	// RejectStatus defaults to 503.
	RejectStatus int
	// AcquireTimeout <= 0 waits for a slot as long as the client does.
	AcquireTimeout time.Duration
	Logger         logrus.FieldLogger
}

// ConcurrencyMiddleware caps the requests in flight behind it. It runs before
// the admission gate, so a request waiting for a slot has not used any of
// its tier's budget yet.
func ConcurrencyMiddleware(opts ConcurrencyOptions) func(next http.Handler) http.Handler {
	if opts.Pool == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if opts.RejectStatus == 0 {
		opts.RejectStatus = http.StatusServiceUnavailable
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	svc := application.ConcurrencyService{
		Pool:           opts.Pool,
		AcquireTimeout: opts.AcquireTimeout,
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			release, err := svc.Acquire(r.Context())
			switch {
			case errors.Is(err, application.ErrNoSlot):
				log.WithFields(logrus.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Warn("concurrency limit reached")
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, opts.RejectStatus, BusyMessage)
				return
			case err != nil:
				// client went away while waiting
				return
			}
			defer release()

			next.ServeHTTP(w, r)
		})
	}
}
