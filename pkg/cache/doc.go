// Package cache provides a generic, time-triggered cached result supplier.
//
// A CachedResultSupplier holds a single value together with two timing points:
// a prefetch time, after which reads trigger a refresh while still returning
// the current value, and a stale time, after which reads block until a refresh
// completes. Randomized jitter is applied to both points after every successful
// refresh so that peer processes started together do not synchronize their
// refreshes against the same upstream.
//
// Two prefetch strategies are provided. OneCallerBlocksPrefetchStrategy runs
// the refresh on the stack of the caller that first enters the prefetch
// window; concurrent callers return the still-fresh value immediately.
// NonBlockingPrefetchStrategy hands the refresh to a single process-wide
// background worker so that no caller ever waits.
//
// Example:
//
//	supplier := cache.NewCachedResultSupplier(
//	    func(ctx context.Context) (cache.RefreshResult[string], error) {
//	        v, expiry, err := fetch(ctx)
//	        if err != nil {
//	            return cache.RefreshResult[string]{}, err
//	        }
//	        return cache.NewRefreshResultBuilder(v).
//	            StaleTime(expiry.Add(-10 * time.Minute)).
//	            PrefetchTime(expiry.Add(-20 * time.Minute)).
//	            NotAfter(expiry).
//	            Build()
//	    },
//	    cache.WithPrefetchStrategy[string](cache.NewNonBlockingPrefetchStrategy()),
//	    cache.WithStaleValueBehavior[string](cache.StaleValueAllow),
//	)
//
//	value, err := supplier.Get(ctx)
package cache
