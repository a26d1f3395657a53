// Package pool bounds the number of outbound calls issued at once.
package pool

import "context"

// MaxSize is the largest number of slots a Pool accepts.
const MaxSize = 128

// Pool is a counting semaphore over call slots.
type Pool struct {
	sem chan struct{}
}

// New creates a pool clamped to 1..MaxSize slots.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	if size > MaxSize {
		size = MaxSize
	}
	return &Pool{sem: make(chan struct{}, size)}
}

// Acquire takes a slot, blocking until one frees up.
// It returns ctx.Err() if the wait is abandoned.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	<-p.sem
}

// Size is the slot capacity.
func (p *Pool) Size() int { return cap(p.sem) }

// InUse is the number of slots currently held.
func (p *Pool) InUse() int { return len(p.sem) }
