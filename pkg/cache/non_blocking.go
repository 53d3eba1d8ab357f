package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// MaxConcurrentRefreshes bounds the number of prefetch tasks that may be
// queued or running at once across every supplier sharing the strategy.
const MaxConcurrentRefreshes = 100

// nonBlockingExecutor is the process-wide background worker shared by all
// NonBlockingPrefetchStrategy instances. A single goroutine drains a bounded
// task queue; a semaphore caps the number of outstanding tasks.
type nonBlockingExecutor struct {
	tasks  chan func()
	leases chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

var (
	executorMu sync.Mutex
	executor   *nonBlockingExecutor
)

func newNonBlockingExecutor() *nonBlockingExecutor {
	e := &nonBlockingExecutor{
		tasks:  make(chan func(), MaxConcurrentRefreshes),
		leases: make(chan struct{}, MaxConcurrentRefreshes),
		done:   make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

func (e *nonBlockingExecutor) run() {
	defer e.wg.Done()
	for {
		select {
		case task := <-e.tasks:
			task()
		case <-e.done:
			// Drain tasks already queued before shutting down.
			for {
				select {
				case task := <-e.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// acquireLease reserves a refresh slot without blocking.
func (e *nonBlockingExecutor) acquireLease() bool {
	select {
	case e.leases <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *nonBlockingExecutor) releaseLease() {
	<-e.leases
}

// submit enqueues a task. The lease guarantees queue capacity.
func (e *nonBlockingExecutor) submit(task func()) {
	e.tasks <- task
}

func (e *nonBlockingExecutor) shutdown() {
	close(e.done)
	e.wg.Wait()
}

// defaultExecutor lazily starts the process-wide worker.
func defaultExecutor() *nonBlockingExecutor {
	executorMu.Lock()
	defer executorMu.Unlock()
	if executor == nil {
		executor = newNonBlockingExecutor()
	}
	return executor
}

// ShutdownNonBlockingExecutor stops the process-wide prefetch worker after
// draining queued tasks. The next prefetch submission starts a fresh worker;
// tests use this to reset global state.
func ShutdownNonBlockingExecutor() {
	executorMu.Lock()
	e := executor
	executor = nil
	executorMu.Unlock()
	if e != nil {
		e.shutdown()
	}
}

// NonBlockingPrefetchStrategy dispatches refreshes to the process-wide
// background worker so the calling goroutine never waits. Duplicate
// submissions while a refresh is in flight for the same supplier are
// rejected.
type NonBlockingPrefetchStrategy struct {
	currentlyPrefetching atomic.Bool
	logger               *slog.Logger
}

// NewNonBlockingPrefetchStrategy creates a new strategy instance.
func NewNonBlockingPrefetchStrategy() *NonBlockingPrefetchStrategy {
	return &NonBlockingPrefetchStrategy{logger: slog.Default()}
}

// Prefetch enqueues the updater on the background worker. The caller's
// context is not propagated; a queued refresh must not be cancelled by the
// request that happened to trigger it.
func (s *NonBlockingPrefetchStrategy) Prefetch(_ context.Context, updater func(context.Context)) {
	e := defaultExecutor()

	if !e.acquireLease() {
		s.logger.Warn("prefetch rejected", "reason", "lease limit reached",
			"max_concurrent_refreshes", MaxConcurrentRefreshes)
		return
	}

	if !s.currentlyPrefetching.CompareAndSwap(false, true) {
		e.releaseLease()
		return
	}

	e.submit(func() {
		defer func() {
			s.currentlyPrefetching.Store(false)
			e.releaseLease()
		}()
		updater(context.Background())
	})
}

// Close clears the prefetching flag.
func (s *NonBlockingPrefetchStrategy) Close() {
	s.currentlyPrefetching.Store(false)
}
