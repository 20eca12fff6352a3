package executor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dl-alexandre/gitdrive/internal/runlog"
	"github.com/dl-alexandre/gitdrive/internal/utils"
	"golang.org/x/sync/semaphore"
)

// ErrPoolClosed is returned when work is submitted after Wait began
var ErrPoolClosed = utils.Errorf(utils.ErrCodeInternalError, "operation submitted after the executor was drained")

// Pool runs operations with at most k in flight. Slots are taken in the
// submitting goroutine from a FIFO semaphore, so operations start in the
// order Go was called, and a slot is given back however the operation ends.
type Pool struct {
	sem *semaphore.Weighted
	log *runlog.Log

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	failed atomic.Int64
}

// NewPool creates a pool of k slots
func NewPool(k int, log *runlog.Log) (*Pool, error) {
	if k < 1 {
		return nil, utils.Errorf(utils.ErrCodeConfiguration, "concurrency must be at least 1, got %d", k)
	}
	if log == nil {
		log = runlog.New(nil)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(k)), log: log}, nil
}

// Go blocks until a slot is free, then runs fn in its own goroutine. An error
// or panic from fn is logged under desc and counted; it never stops the pool.
func (p *Pool) Go(ctx context.Context, desc string, fn func(ctx context.Context) error) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		p.wg.Done()
		return err
	}

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.fail(desc, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := fn(ctx); err != nil {
			p.fail(desc, err)
		}
	}()
	return nil
}

func (p *Pool) fail(desc string, err error) {
	p.failed.Add(1)
	p.log.Error("%s: %s", desc, utils.Describe(err))
}

// Wait closes the pool to new work and blocks until every started operation
// has settled. It returns the number of failed operations.
func (p *Pool) Wait() int {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	return int(p.failed.Load())
}

