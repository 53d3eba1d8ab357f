package cache

import "context"

// PrefetchStrategy defines the behavior when a read lands inside the
// prefetch window. Implementations must be safe for concurrent use and must
// not block the calling goroutine beyond the refresh itself.
type PrefetchStrategy interface {
	// Prefetch is invoked by the supplier when a caller reads a value whose
	// prefetch time has passed but whose stale time has not. The updater
	// performs the refresh and never returns an error to the caller; refresh
	// failures in the prefetch path are swallowed because the current value
	// is still fresh.
	Prefetch(ctx context.Context, updater func(context.Context))

	// Close releases any per-strategy state.
	Close()
}

// Prefetch strategy names accepted by configuration surfaces.
const (
	PrefetchStrategyOneCallerBlocks = "one-caller-blocks"
	PrefetchStrategyNonBlocking     = "non-blocking"
)
