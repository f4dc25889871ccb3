package application

import (
	"context"
	"errors"
	"time"

	"rest-gateway/middleware/ratelimit/domain"
)

// ErrNoSlot means the pool stayed full for the whole AcquireTimeout.
var ErrNoSlot = errors.New("no concurrency slot available")

// ConcurrencyService caps the requests in flight to the upstream node,
// without knowing anything about HTTP.
type ConcurrencyService struct {
	Pool           domain.SlotPool
	AcquireTimeout time.Duration
}

// Acquire waits for a slot.
//   - AcquireTimeout <= 0 waits until ctx is done.
//   - AcquireTimeout > 0 waits at most that long and then returns ErrNoSlot.
//
// When the caller's own ctx ends first, its error is returned instead, so the
// adapter can tell a full pool from a client that went away.
func (s ConcurrencyService) Acquire(ctx context.Context) (func(), error) {
	if s.Pool == nil {
		return func() {}, nil
	}

	acqCtx := ctx
	if s.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, s.AcquireTimeout)
		defer cancel()
	}

	release, ok := s.Pool.Acquire(acqCtx)
	if ok {
		return release, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoSlot
}
