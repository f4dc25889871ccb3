package infra

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rest-gateway/middleware/ratelimit/domain"
)

// AsyncStats moves a slow sink (Redis) off the request path. Events are
// queued and written by one worker; when the queue is full they are dropped
// and counted.
type AsyncStats struct {
	sink    domain.StatsStore
	queue   chan domain.StatsEvent
	timeout time.Duration
	onErr   func(error)

	dropped atomic.Int64
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewAsyncStats(sink domain.StatsStore, size int, timeout time.Duration, onErr func(error)) *AsyncStats {
	if size <= 0 {
		size = 1024
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	return &AsyncStats{
		sink:    sink,
		queue:   make(chan domain.StatsEvent, size),
		timeout: timeout,
		onErr:   onErr,
	}
}

// Start runs the worker until Close is called.
func (a *AsyncStats) Start() {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for ev := range a.queue {
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			err := a.sink.Record(ctx, ev)
			cancel()
			if err != nil && a.onErr != nil {
				a.onErr(err)
			}
		}
	}()
}

// Record enqueues ev without blocking. Events arriving after Close are
// counted as dropped.
func (a *AsyncStats) Record(_ context.Context, ev domain.StatsEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.dropped.Add(1)
		return nil
	}
	select {
	case a.queue <- ev:
	default:
		a.dropped.Add(1)
	}
	return nil
}

func (a *AsyncStats) Dropped() int64 { return a.dropped.Load() }

// Close stops accepting events and waits for the queue to drain. It is safe
// to call more than once.
func (a *AsyncStats) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()
	a.wg.Wait()
}
