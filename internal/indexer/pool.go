package indexer

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent returns the default worker bound: the number of
// CPUs, never below two.
func DefaultMaxConcurrent() int {
	n := runtime.NumCPU()
	if n < 2 {
		n = 2
	}
	return n
}

// Pool runs document jobs with bounded concurrency. Jobs are keyed by
// document id: submitting a key that is already queued or running cancels
// and replaces the earlier job.
type Pool struct {
	sem *semaphore.Weighted

	mu   sync.Mutex
	jobs map[string]*jobHandle
	wg   sync.WaitGroup
}

type jobHandle struct {
	cancel context.CancelFunc
}

// NewPool creates a pool with the given concurrency bound.
func NewPool(maxConcurrent int) *Pool {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent()
	}
	return &Pool{
		sem:  semaphore.NewWeighted(int64(maxConcurrent)),
		jobs: make(map[string]*jobHandle),
	}
}

// Submit schedules fn under key. Any in-flight job with the same key is
// cancelled first. fn runs once a concurrency slot frees up; its context
// is cancelled by a later Submit with the same key, Cancel, or CancelAll.
func (p *Pool) Submit(ctx context.Context, key string, fn func(ctx context.Context) error) {
	jobCtx, cancel := context.WithCancel(ctx)
	handle := &jobHandle{cancel: cancel}

	p.mu.Lock()
	if prev, ok := p.jobs[key]; ok {
		prev.cancel()
	}
	p.jobs[key] = handle
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			// Only clear the slot if it still belongs to this job.
			if p.jobs[key] == handle {
				delete(p.jobs, key)
			}
			p.mu.Unlock()
			cancel()
		}()

		if err := p.sem.Acquire(jobCtx, 1); err != nil {
			return
		}
		defer p.sem.Release(1)

		_ = fn(jobCtx)
	}()
}

// Cancel stops the job for key, if any.
func (p *Pool) Cancel(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if handle, ok := p.jobs[key]; ok {
		handle.cancel()
		delete(p.jobs, key)
	}
}

// CancelAll stops every job.
func (p *Pool) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for key, handle := range p.jobs {
		handle.cancel()
		delete(p.jobs, key)
	}
}

// Wait blocks until all submitted jobs have finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
