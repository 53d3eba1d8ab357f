package cache

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"
)

const (
	// BlockingRefreshMaxWait bounds how long a caller on the stale path waits
	// for the refresh lock before giving up.
	BlockingRefreshMaxWait = 5 * time.Second

	// jitterStart is the minimum offset added to the timing points after a
	// successful refresh.
	jitterStart = 5 * time.Minute

	// jitterRange is the width of the uniform random jitter added on top of
	// jitterStart.
	jitterRange = 5 * time.Minute
)

// ValueSupplier produces a fresh RefreshResult. It is invoked under the
// supplier's single-flight refresh lock, so at most one invocation is in
// flight per supplier.
type ValueSupplier[T any] func(ctx context.Context) (RefreshResult[T], error)

// Option configures a CachedResultSupplier.
type Option[T any] func(*CachedResultSupplier[T])

// WithPrefetchStrategy sets the prefetch strategy. The default is
// OneCallerBlocksPrefetchStrategy.
func WithPrefetchStrategy[T any](s PrefetchStrategy) Option[T] {
	return func(c *CachedResultSupplier[T]) { c.strategy = s }
}

// WithStaleValueBehavior sets the behavior applied when a refresh fails while
// a previous value is held. The default is StaleValueAllow.
func WithStaleValueBehavior[T any](b StaleValueBehavior) Option[T] {
	return func(c *CachedResultSupplier[T]) { c.behavior = b }
}

// WithClock sets the wall-clock source, pluggable for testing.
func WithClock[T any](clock func() time.Time) Option[T] {
	return func(c *CachedResultSupplier[T]) { c.clock = clock }
}

// WithLogger sets the logger used for swallowed refresh failures.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *CachedResultSupplier[T]) { c.logger = logger }
}

// CachedResultSupplier holds one RefreshResult and coordinates concurrent
// refreshes of it. It is safe for use from any number of goroutines.
type CachedResultSupplier[T any] struct {
	valueSupplier ValueSupplier[T]
	strategy      PrefetchStrategy
	behavior      StaleValueBehavior
	clock         func() time.Time
	logger        *slog.Logger

	cached      atomic.Pointer[RefreshResult[T]]
	refreshGate chan struct{}

	// maxWait bounds the wait for the refresh lock; tests shorten it.
	maxWait time.Duration
}

// NewCachedResultSupplier creates a supplier around the given value supplier.
func NewCachedResultSupplier[T any](valueSupplier ValueSupplier[T], opts ...Option[T]) *CachedResultSupplier[T] {
	c := &CachedResultSupplier[T]{
		valueSupplier: valueSupplier,
		strategy:      NewOneCallerBlocksPrefetchStrategy(),
		behavior:      StaleValueAllow,
		clock:         func() time.Time { return time.Now().UTC() },
		logger:        slog.Default(),
		refreshGate:   make(chan struct{}, 1),
		maxWait:       BlockingRefreshMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached value, refreshing it first when stale and kicking
// off a prefetch when the prefetch window has been entered.
//
// Get blocks only to acquire the refresh lock (bounded by
// BlockingRefreshMaxWait) and, on the stale path, inside the value supplier
// itself. The prefetch path never blocks beyond the strategy's own policy.
func (c *CachedResultSupplier[T]) Get(ctx context.Context) (T, error) {
	var zero T

	entry := c.cached.Load()
	if c.cacheIsStale(entry) {
		refreshed, err := c.blockingRefresh(ctx, entry)
		if err != nil {
			return zero, err
		}
		entry = refreshed
	} else if c.shouldInitiatePrefetch(entry) {
		observed := entry
		c.strategy.Prefetch(ctx, func(ctx context.Context) {
			if _, err := c.blockingRefresh(ctx, observed); err != nil {
				c.logger.Warn("prefetch refresh failed, current value is still fresh", "error", err)
			}
		})
	}

	if entry == nil {
		return zero, &ConcurrentOperationError{}
	}

	return entry.Value(), nil
}

// Close releases the prefetch strategy's resources.
func (c *CachedResultSupplier[T]) Close() {
	c.strategy.Close()
}

func (c *CachedResultSupplier[T]) cacheIsStale(entry *RefreshResult[T]) bool {
	if entry == nil {
		return true
	}
	stale := entry.StaleTime()
	return !stale.IsZero() && !c.clock().Before(stale)
}

func (c *CachedResultSupplier[T]) shouldInitiatePrefetch(entry *RefreshResult[T]) bool {
	if entry == nil {
		return false
	}
	prefetch := entry.PrefetchTime()
	return !prefetch.IsZero() && !c.clock().Before(prefetch)
}

// blockingRefresh acquires the single-flight refresh lock and refreshes the
// cache unless another caller has already replaced the observed entry. It
// returns the entry to serve, which may be the previous one when the stale
// value behavior allows it.
func (c *CachedResultSupplier[T]) blockingRefresh(ctx context.Context, observed *RefreshResult[T]) (*RefreshResult[T], error) {
	// The timeout is computed on the monotonic clock; the pluggable wall
	// clock only drives expiry comparisons.
	timer := time.NewTimer(c.maxWait)
	defer timer.Stop()

	select {
	case c.refreshGate <- struct{}{}:
	case <-timer.C:
		if entry := c.cached.Load(); entry != nil && c.usableAfterLockTimeout(entry) {
			return entry, nil
		}
		return nil, &ConcurrentOperationError{}
	}
	defer func() { <-c.refreshGate }()

	// Double-checked: another caller may have refreshed while this one
	// waited on the lock.
	if entry := c.cached.Load(); entry != nil && entry != observed {
		return entry, nil
	}

	refreshed, err := c.valueSupplier(ctx)
	if err != nil {
		return c.handleFetchFailure(err)
	}

	jittered := c.applyJitter(refreshed)
	c.cached.Store(&jittered)
	return &jittered, nil
}

// usableAfterLockTimeout reports whether an existing entry may be served to a
// caller that timed out waiting for the refresh lock.
func (c *CachedResultSupplier[T]) usableAfterLockTimeout(entry *RefreshResult[T]) bool {
	return !c.cacheIsStale(entry) || c.behavior == StaleValueAllow
}

func (c *CachedResultSupplier[T]) handleFetchFailure(err error) (*RefreshResult[T], error) {
	prior := c.cached.Load()
	if prior != nil && c.behavior == StaleValueAllow {
		c.logger.Warn("failed to refresh cache, using the old value", "error", err)
		return prior, nil
	}
	return nil, &CacheError{ErrorCode: CodeCacheRefreshFailed, Err: err}
}

// applyJitter adds an independent uniform random offset in
// [jitterStart, jitterStart+jitterRange) to both timing points, then clips so
// that prefetch <= stale <= NotAfter. Storing the jittered entry is the only
// mutation point; readers observe either the old or the new entry.
func (c *CachedResultSupplier[T]) applyJitter(r RefreshResult[T]) RefreshResult[T] {
	stale := r.StaleTime()
	prefetch := r.PrefetchTime()

	if !stale.IsZero() {
		stale = jitterTime(stale)
	}
	if !prefetch.IsZero() {
		prefetch = jitterTime(prefetch)
	}

	if notAfter := r.NotAfter(); !notAfter.IsZero() && stale.After(notAfter) {
		stale = notAfter
	}
	if !stale.IsZero() && prefetch.After(stale) {
		prefetch = stale
	}

	return RefreshResult[T]{
		value:        r.value,
		staleTime:    stale,
		prefetchTime: prefetch,
		notAfter:     r.notAfter,
	}
}

// jitterTime offsets t by a uniform random duration in
// [jitterStart, jitterStart+jitterRange).
func jitterTime(t time.Time) time.Time {
	return t.Add(jitterStart + time.Duration(rand.Float64()*float64(jitterRange)))
}
