package cache

import (
	"context"
	"sync/atomic"
)

// OneCallerBlocksPrefetchStrategy is the simplest prefetch strategy: at most
// one caller runs the refresh at a time, on its own stack. Other concurrent
// callers skip the refresh and return the still-fresh cached value.
type OneCallerBlocksPrefetchStrategy struct {
	currentlyRefreshing atomic.Bool
}

// NewOneCallerBlocksPrefetchStrategy creates a new strategy instance.
func NewOneCallerBlocksPrefetchStrategy() *OneCallerBlocksPrefetchStrategy {
	return &OneCallerBlocksPrefetchStrategy{}
}

// Prefetch runs the updater synchronously if no other caller is refreshing.
func (s *OneCallerBlocksPrefetchStrategy) Prefetch(ctx context.Context, updater func(context.Context)) {
	if !s.currentlyRefreshing.CompareAndSwap(false, true) {
		return
	}
	defer s.currentlyRefreshing.Store(false)
	updater(ctx)
}

// Close clears the refresh flag.
func (s *OneCallerBlocksPrefetchStrategy) Close() {
	s.currentlyRefreshing.Store(false)
}
