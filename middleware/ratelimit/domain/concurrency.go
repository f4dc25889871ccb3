package domain

import "context"

// SlotPool bounds how many admitted requests may be talking to the upstream
// at once. Acquire waits for a free slot until ctx ends; ok is false when it
// gave up. release must be called exactly once after a successful Acquire.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
