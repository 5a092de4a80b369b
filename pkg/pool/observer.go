package pool

// AcquireResult classifies the outcome of an Acquire call
type AcquireResult string

const (
	// AcquireReused means an idle handle was handed out
	AcquireReused AcquireResult = "reused"
	// AcquireCreated means a new handle was built and handed out
	AcquireCreated AcquireResult = "created"
	// AcquireExhausted means every handle was checked out at the maximum
	AcquireExhausted AcquireResult = "exhausted"
	// AcquireRateLimited means the call came inside the delay window
	AcquireRateLimited AcquireResult = "rate_limited"
	// AcquireFailed means the factory returned an error
	AcquireFailed AcquireResult = "error"
)

// ReleaseResult classifies the outcome of a Release call
type ReleaseResult string

const (
	// ReleaseRecycled means the handle went back on the free stack
	ReleaseRecycled ReleaseResult = "recycled"
	// ReleaseDiscarded means the handle was disposed
	ReleaseDiscarded ReleaseResult = "discarded"
	// ReleaseNotOwned means the handle was not checked out
	ReleaseNotOwned ReleaseResult = "not_owned"
	// ReleaseFailed means the disposer failed and the handle stays checked out
	ReleaseFailed ReleaseResult = "error"
)

// Observer receives pool events. Calls are made while the pool lock is held,
// so implementations must be fast and must not call back into the pool.
type Observer interface {
	ObserveAcquire(result AcquireResult)
	ObserveRelease(result ReleaseResult)
	ObserveDispose(err error)
	ObserveFactoryError(err error)
	ObserveCounts(total, inUse, free int)
}

// nopObserver is the default Observer
type nopObserver struct{}

func (nopObserver) ObserveAcquire(AcquireResult) {}

func (nopObserver) ObserveRelease(ReleaseResult) {}

func (nopObserver) ObserveDispose(error) {}

func (nopObserver) ObserveFactoryError(error) {}

func (nopObserver) ObserveCounts(_, _, _ int) {}
