package scanner

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// pool runs at most size tasks at once. One pool serves one phase and is
// finished with Wait.
type pool struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

func newPool(size int) *pool {
	if size <= 0 {
		size = 1
	}
	return &pool{sem: semaphore.NewWeighted(int64(size))}
}

// Go blocks until a slot is free, then runs fn in its own goroutine. It
// returns the context error, without running fn, once ctx is done.
func (p *pool) Go(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		fn()
	}()
	return nil
}

// Wait returns once every started task has finished.
func (p *pool) Wait() {
	p.wg.Wait()
}
