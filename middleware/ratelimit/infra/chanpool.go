package infra

import (
	"context"
	"sync"
)

// ChanPool implements domain.SlotPool with a buffered channel.
type ChanPool struct {
	slots chan struct{}
}

// NewChanPool panics if size < 1; a disabled cap is a nil pool instead.
func NewChanPool(size int) *ChanPool {
	if size < 1 {
		panic("infra: ChanPool size must be >= 1")
	}
	return &ChanPool{slots: make(chan struct{}, size)}
}

func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.slots <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-p.slots }) }, true
	case <-ctx.Done():
		return nil, false
	}
}

func (p *ChanPool) InFlight() int { return len(p.slots) }

func (p *ChanPool) Size() int { return cap(p.slots) }
