package pipeline

import "context"

// WorkerPool bounds the number of concurrent collaborator calls across all
// sessions so a burst of slow provider round trips cannot exhaust the
// process. Within one session calls stay strictly sequential; the pool only
// caps cross-session parallelism.
type WorkerPool struct {
	slots chan struct{}
}

func NewWorkerPool(size int) *WorkerPool {
	if size <= 0 {
		size = 16
	}
	return &WorkerPool{slots: make(chan struct{}, size)}
}

// Do runs fn after acquiring a slot, blocking until one frees up or ctx is
// done. fn runs on the calling goroutine.
func (p *WorkerPool) Do(ctx context.Context, fn func()) error {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-p.slots }()
	fn()
	return nil
}

func (p *WorkerPool) Size() int {
	return cap(p.slots)
}
