package pool

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ajitpratap0/handlepool/pkg/errors"
)

// Pool manages a bounded set of handles of type T. Handles are tracked by
// identity, so T is normally a pointer type. All methods are safe for
// concurrent use; none of them block waiting for capacity.
//
// The population always satisfies total == free + in use, and a handle is
// never both free and in use.
type Pool[T comparable] struct {
	mu sync.Mutex

	name      string
	lifecycle Lifecycle[T]
	min       int
	max       int
	delay     time.Duration
	clock     clock.Clock
	logger    *zap.Logger
	observer  Observer
	validate  bool

	// free is a stack; the most recently released handle is on top
	free      []T
	freeIndex map[T]struct{}
	inUse     map[T]struct{}

	lastAcquire time.Time
	acquired    bool
	closed      bool

	stats counters
}

type counters struct {
	created     int64
	disposed    int64
	reused      int64
	exhausted   int64
	rateLimited int64
}

// New creates a pool and fills it with the configured minimum number of
// handles. It fails with an ErrorTypeInvalidBounds error when min < 0,
// max < 1 or min > max, and with an ErrorTypeFactory error when a handle
// cannot be built; in both cases no pool is returned.
func New[T comparable](lifecycle Lifecycle[T], opts ...Option) (*Pool[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if lifecycle.Create == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "lifecycle.Create is required")
	}
	if err := validateBounds(o.min, o.max); err != nil {
		return nil, err
	}

	p := &Pool[T]{
		name:      o.name,
		lifecycle: lifecycle,
		min:       o.min,
		max:       o.max,
		delay:     o.delay,
		clock:     o.clock,
		logger:    o.logger.With(zap.String("pool", o.name)),
		observer:  o.observer,
		validate:  o.validateOnAcquire,
		free:      make([]T, 0, o.max),
		freeIndex: make(map[T]struct{}, o.max),
		inUse:     make(map[T]struct{}, o.max),
	}

	if err := p.grow(p.min); err != nil {
		return nil, err
	}
	p.reportCounts()

	p.logger.Debug("pool created",
		zap.Int("min", p.min),
		zap.Int("max", p.max),
		zap.Duration("delay", p.delay))

	return p, nil
}

func validateBounds(min, max int) error {
	switch {
	case min < 0:
		return errors.Newf(errors.ErrorTypeInvalidBounds, "minimum count %d is negative", min).
			WithDetail("min", min)
	case max < 1:
		return errors.Newf(errors.ErrorTypeInvalidBounds, "maximum count %d is less than 1", max).
			WithDetail("max", max)
	case min > max:
		return errors.Newf(errors.ErrorTypeInvalidBounds, "minimum count %d exceeds maximum count %d", min, max).
			WithDetail("min", min).
			WithDetail("max", max)
	}
	return nil
}

// Acquire checks out a handle. It reuses the most recently released idle
// handle when there is one, otherwise it creates a new handle if the pool is
// below its maximum. When the rate gate is closed or the pool is exhausted it
// returns an error for which IsUnavailable is true and changes nothing.
func (p *Pool[T]) Acquire() (T, error) {
	var zero T

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return zero, errClosed()
	}

	now := p.clock.Now()
	if p.delay > 0 && p.acquired {
		if elapsed := now.Sub(p.lastAcquire); elapsed < p.delay {
			p.stats.rateLimited++
			p.observer.ObserveAcquire(AcquireRateLimited)
			return zero, errors.New(errors.ErrorTypeRateLimit, "acquisition rate limited").
				WithDetail("pool", p.name).
				WithDetail("retry_after", p.delay-elapsed)
		}
	}

	h, ok, stale := p.popFree()
	if ok {
		p.disposeStale(stale)
		p.checkOut(h, now)
		p.stats.reused++
		p.observer.ObserveAcquire(AcquireReused)
		if p.validate {
			p.replenish()
		}
		p.reportCounts()
		return h, nil
	}

	if p.total() >= p.max {
		p.restoreFree(stale)
		p.stats.exhausted++
		p.observer.ObserveAcquire(AcquireExhausted)
		return zero, errors.New(errors.ErrorTypeUnavailable, "pool exhausted").
			WithDetail("pool", p.name).
			WithDetail("max", p.max)
	}

	h, err := p.create()
	if err != nil {
		p.restoreFree(stale)
		p.observer.ObserveAcquire(AcquireFailed)
		p.reportCounts()
		return zero, err
	}
	p.disposeStale(stale)
	p.checkOut(h, now)
	p.observer.ObserveAcquire(AcquireCreated)
	if p.validate {
		p.replenish()
	}
	p.reportCounts()
	return h, nil
}

// popFree takes idle handles off the top of the stack. With validation on,
// handles the lifecycle no longer considers reusable are set aside in pop
// order; the caller either disposes them or puts them back.
func (p *Pool[T]) popFree() (T, bool, []T) {
	var stale []T
	for len(p.free) > 0 {
		last := len(p.free) - 1
		h := p.free[last]
		var zero T
		p.free[last] = zero
		p.free = p.free[:last]
		delete(p.freeIndex, h)

		if p.validate && !p.reusable(h) {
			stale = append(stale, h)
			continue
		}
		return h, true, stale
	}
	var zero T
	return zero, false, stale
}

func (p *Pool[T]) disposeStale(stale []T) {
	for _, h := range stale {
		p.logger.Debug("discarding stale idle handle")
		p.dispose(h)
	}
}

// restoreFree undoes popFree for handles set aside as stale
func (p *Pool[T]) restoreFree(stale []T) {
	for i := len(stale) - 1; i >= 0; i-- {
		p.pushFree(stale[i])
	}
}

func (p *Pool[T]) checkOut(h T, now time.Time) {
	p.inUse[h] = struct{}{}
	p.lastAcquire = now
	p.acquired = true
}

// Release returns a checked-out handle. A reusable handle goes back on the
// free stack; a dead one is disposed and the total drops by one. When that
// leaves the total below the minimum, a fresh idle handle is built right
// away, so with a minimum above zero a dead release can leave the total
// unchanged while the free count grows. Releasing a handle that is not
// checked out returns an ErrorTypeNotOwned error and changes nothing. When
// the disposer fails the ErrorTypeDispose error is returned and the handle
// stays checked out, so the release can be retried.
func (p *Pool[T]) Release(h T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errClosed()
	}

	if _, ok := p.inUse[h]; !ok {
		p.observer.ObserveRelease(ReleaseNotOwned)
		return errors.New(errors.ErrorTypeNotOwned, "handle is not checked out").
			WithDetail("pool", p.name)
	}
	delete(p.inUse, h)

	if p.reusable(h) && p.total() < p.max {
		p.pushFree(h)
		p.observer.ObserveRelease(ReleaseRecycled)
		p.reportCounts()
		return nil
	}

	if err := p.dispose(h); err != nil {
		p.inUse[h] = struct{}{}
		p.observer.ObserveRelease(ReleaseFailed)
		return err
	}
	p.observer.ObserveRelease(ReleaseDiscarded)
	p.replenish()
	p.reportCounts()
	return nil
}

func (p *Pool[T]) reusable(h T) bool {
	if p.lifecycle.Reusable == nil {
		return true
	}
	return p.lifecycle.Reusable(h)
}

func (p *Pool[T]) pushFree(h T) {
	p.free = append(p.free, h)
	p.freeIndex[h] = struct{}{}
}

// replenish restores the minimum after a disposal. Factory failures are
// logged; the next Release or SetMinimumCount tries again.
func (p *Pool[T]) replenish() {
	if p.total() >= p.min {
		return
	}
	if err := p.grow(p.min); err != nil {
		p.logger.Warn("failed to replenish pool to minimum",
			zap.Int("min", p.min),
			zap.Int("total", p.total()),
			zap.Error(err))
	}
}

// Contains reports whether h is managed by the pool, free or in use
func (p *Pool[T]) Contains(h T) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.inUse[h]; ok {
		return true
	}
	_, ok := p.freeIndex[h]
	return ok
}

// Total returns the number of handles currently constructed
func (p *Pool[T]) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total()
}

// InUseCount returns the number of checked-out handles
func (p *Pool[T]) InUseCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.inUse)
}

// FreeCount returns the number of idle handles
func (p *Pool[T]) FreeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// IsEmpty reports whether the pool holds no handles at all
func (p *Pool[T]) IsEmpty() bool {
	return p.Total() == 0
}

// MinimumCount returns the configured floor
func (p *Pool[T]) MinimumCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.min
}

// MaximumCount returns the configured ceiling
func (p *Pool[T]) MaximumCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.max
}

// Delay returns the minimum spacing between successful acquisitions
func (p *Pool[T]) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delay
}

func (p *Pool[T]) total() int {
	return len(p.free) + len(p.inUse)
}

// SetMinimumCount changes the floor. Raising it above the current total
// builds the missing handles as idle ones; lowering it never destroys
// anything. It fails with ErrorTypeInvalidBounds when n is negative or above
// the maximum, and with ErrorTypeFactory when the missing handles cannot all
// be built; either way the pool is left as it was.
func (p *Pool[T]) SetMinimumCount(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errClosed()
	}
	if n < 0 || n > p.max {
		return errors.Newf(errors.ErrorTypeInvalidBounds,
			"minimum count %d must be between 0 and maximum count %d", n, p.max).
			WithDetail("pool", p.name)
	}

	if err := p.grow(n); err != nil {
		return err
	}
	p.min = n
	p.reportCounts()
	return nil
}

// SetMaximumCount changes the ceiling. Lowering it below the current total
// disposes idle handles, oldest first, until the total fits. Checked-out
// handles are never reclaimed: if there are not enough idle handles the call
// fails with ErrorTypeInternal and nothing changes. A ceiling below the
// minimum or below 1 fails with ErrorTypeInvalidBounds. Disposer failures
// during a shrink are returned combined; the new ceiling is still applied.
func (p *Pool[T]) SetMaximumCount(n int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errClosed()
	}
	if n < 1 || n < p.min {
		return errors.Newf(errors.ErrorTypeInvalidBounds,
			"maximum count %d must be at least 1 and not below minimum count %d", n, p.min).
			WithDetail("pool", p.name)
	}

	excess := p.total() - n
	if excess > len(p.free) {
		return errors.Newf(errors.ErrorTypeInternal,
			"cannot shrink to %d: %d handles in use, %d idle", n, len(p.inUse), len(p.free)).
			WithDetail("pool", p.name)
	}

	var err error
	if excess > 0 {
		victims := p.free[:excess]
		for _, h := range victims {
			delete(p.freeIndex, h)
			err = multierr.Append(err, p.dispose(h))
		}
		remaining := make([]T, len(p.free)-excess, n)
		copy(remaining, p.free[excess:])
		p.free = remaining

		p.logger.Debug("pool shrunk",
			zap.Int("disposed", excess),
			zap.Int("max", n))
	}

	p.max = n
	p.reportCounts()
	return err
}

// SetDelay changes the minimum spacing between successful acquisitions.
// It applies from the next Acquire; zero or negative disables the gate.
func (p *Pool[T]) SetDelay(d time.Duration) {
	if d < 0 {
		d = 0
	}
	p.mu.Lock()
	p.delay = d
	p.mu.Unlock()
}

// Close disposes every handle, free or in use, and marks the pool closed.
// Disposer failures are returned combined. Calling Close again is a no-op;
// every other mutating method returns an ErrorTypeClosed error afterwards.
func (p *Pool[T]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	var err error
	for _, h := range p.free {
		err = multierr.Append(err, p.dispose(h))
	}
	for h := range p.inUse {
		err = multierr.Append(err, p.dispose(h))
	}

	released := p.total()
	p.free = nil
	p.freeIndex = make(map[T]struct{})
	p.inUse = make(map[T]struct{})
	p.reportCounts()

	p.logger.Debug("pool closed", zap.Int("disposed", released))
	return err
}

// grow builds idle handles until the total reaches target. It is all or
// nothing: on a factory failure the handles built by this call are disposed
// and the error is returned.
func (p *Pool[T]) grow(target int) error {
	need := target - p.total()
	if need <= 0 {
		return nil
	}

	built := make([]T, 0, need)
	for i := 0; i < need; i++ {
		h, err := p.create()
		if err != nil {
			for _, b := range built {
				p.dispose(b)
			}
			return err
		}
		built = append(built, h)
	}

	for _, h := range built {
		p.pushFree(h)
	}

	p.logger.Debug("pool grown",
		zap.Int("created", need),
		zap.Int("total", p.total()))
	return nil
}

func (p *Pool[T]) create() (T, error) {
	h, err := p.lifecycle.Create()
	if err != nil {
		p.observer.ObserveFactoryError(err)
		var zero T
		return zero, errors.Wrap(err, errors.ErrorTypeFactory, "failed to create handle").
			WithDetail("pool", p.name)
	}
	p.stats.created++
	return h, nil
}

// dispose destroys h. The caller has already removed it from both sets.
func (p *Pool[T]) dispose(h T) error {
	if p.lifecycle.Dispose == nil {
		p.stats.disposed++
		p.observer.ObserveDispose(nil)
		return nil
	}

	err := p.lifecycle.Dispose(h)
	p.observer.ObserveDispose(err)
	if err == nil {
		p.stats.disposed++
	} else {
		p.logger.Warn("failed to dispose handle", zap.Error(err))
		return errors.Wrap(err, errors.ErrorTypeDispose, "failed to dispose handle").
			WithDetail("pool", p.name)
	}
	return nil
}

func (p *Pool[T]) reportCounts() {
	p.observer.ObserveCounts(p.total(), len(p.inUse), len(p.free))
}

func errClosed() error {
	return errors.New(errors.ErrorTypeClosed, "pool is closed")
}

// IsUnavailable reports whether err means the pool could not hand out a
// handle right now, because it is exhausted or rate limited. Such errors are
// worth retrying later.
func IsUnavailable(err error) bool {
	return errors.IsType(err, errors.ErrorTypeUnavailable) ||
		errors.IsType(err, errors.ErrorTypeRateLimit)
}

// IsRateLimited reports whether err came from the acquisition rate gate
func IsRateLimited(err error) bool {
	return errors.IsType(err, errors.ErrorTypeRateLimit)
}

// IsInvalidBounds reports whether err is a rejected min/max combination
func IsInvalidBounds(err error) bool {
	return errors.IsType(err, errors.ErrorTypeInvalidBounds)
}

// IsNotOwned reports whether err is a release of a handle not checked out
func IsNotOwned(err error) bool {
	return errors.IsType(err, errors.ErrorTypeNotOwned)
}

// IsClosed reports whether err is an operation on a closed pool
func IsClosed(err error) bool {
	return errors.IsType(err, errors.ErrorTypeClosed)
}
