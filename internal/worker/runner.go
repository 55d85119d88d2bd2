package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// Runner owns background work that must not die with the request that
// started it, and must stop when the server does.
type Runner struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewRunner(parent context.Context) *Runner {
	ctx, cancel := context.WithCancel(parent)
	return &Runner{ctx: ctx, cancel: cancel}
}

// Context is cancelled when Shutdown starts.
func (r *Runner) Context() context.Context {
	return r.ctx
}

// Go runs fn on its own goroutine. It reports false, without running fn,
// once Shutdown has started. An accepted fn always runs, possibly with an
// already cancelled context.
func (r *Runner) Go(name string, fn func(ctx context.Context)) bool {
	if !r.accept(name) {
		return false
	}
	go func() {
		defer r.wg.Done()
		r.run(name, fn)
	}()
	return true
}

// Run runs fn on the calling goroutine, tracked like Go.
func (r *Runner) Run(name string, fn func(ctx context.Context)) bool {
	if !r.accept(name) {
		return false
	}
	defer r.wg.Done()
	r.run(name, fn)
	return true
}

func (r *Runner) accept(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		log.Printf("⚠️ [Worker] %s refused, shutting down", name)
		return false
	}
	r.wg.Add(1)
	return true
}

func (r *Runner) run(name string, fn func(ctx context.Context)) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ [Worker] %s panicked: %v", name, rec)
		}
	}()
	start := time.Now()
	fn(r.ctx)
	log.Printf("[Worker] %s finished in %s", name, time.Since(start).Round(time.Millisecond))
}

// Shutdown cancels running work and waits for it, or for ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
