// Package pool implements a bounded, rate-limited pool of reusable handles.
//
// # Architecture
//
// A Pool[T] owns two disjoint sets: idle handles kept on a LIFO stack and
// checked-out handles kept in a map. Their sizes always add up to the total
// population, which stays between a configured minimum and maximum.
// Construction, classification and destruction of handles are delegated to
// the caller through Lifecycle[T].
//
// # Acquisition
//
// Acquire never waits. It hands out the most recently released idle handle,
// or builds a new one while the pool is below its maximum. An exhausted pool
// or a closed rate gate is reported immediately:
//
//	h, err := p.Acquire()
//	switch {
//	case pool.IsRateLimited(err):
//		// too soon after the previous acquisition
//	case pool.IsUnavailable(err):
//		// every handle is checked out
//	case err != nil:
//		// the factory failed
//	}
//
// # Rate Gate
//
// WithDelay (or SetDelay) enforces a minimum spacing between successful
// acquisitions. Time comes from an injected clock.Clock so tests can drive it
// with clock.NewMock().
//
// # Release
//
// Release puts reusable handles back on the stack. Handles rejected by
// Lifecycle.Reusable are disposed and the pool is topped back up to its
// minimum. If the disposer fails, Release returns the error and the handle
// stays checked out.
//
// # Resizing
//
// SetMinimumCount grows the idle set immediately but never shrinks it.
// SetMaximumCount disposes idle handles, oldest first, and refuses to go
// below the number of checked-out handles.
//
// # Metrics
//
// An Observer attached with WithObserver sees every acquisition, release,
// disposal and population change. The metrics package provides a Prometheus
// implementation.
package pool
