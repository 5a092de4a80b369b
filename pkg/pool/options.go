package pool

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	// DefaultMinimumCount is the floor used when no bounds are given
	DefaultMinimumCount = 0
	// DefaultMaximumCount is the ceiling used when no bounds are given
	DefaultMaximumCount = 10
)

// Lifecycle holds the caller-supplied functions that build, classify and
// destroy handles. Create is required; the others are optional.
type Lifecycle[T comparable] struct {
	// Create constructs a new handle. An error aborts the operation that
	// needed the handle and leaves the pool unchanged.
	Create func() (T, error)

	// Reusable reports whether a returned handle may be recycled. A nil
	// Reusable treats every handle as reusable.
	Reusable func(T) bool

	// Dispose destroys a handle the pool is discarding. Failures are logged
	// and reported to the observer; Close returns them aggregated.
	Dispose func(T) error
}

type options struct {
	name              string
	min               int
	max               int
	delay             time.Duration
	clock             clock.Clock
	logger            *zap.Logger
	observer          Observer
	validateOnAcquire bool
}

func defaultOptions() options {
	return options{
		name:     "default",
		min:      DefaultMinimumCount,
		max:      DefaultMaximumCount,
		clock:    clock.New(),
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
}

// Option configures a Pool at construction time
type Option func(*options)

// WithBounds sets the minimum and maximum population. Bounds are validated
// by New.
func WithBounds(min, max int) Option {
	return func(o *options) {
		o.min = min
		o.max = max
	}
}

// WithDelay sets the minimum spacing between successful acquisitions.
// Zero disables the rate gate.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d < 0 {
			d = 0
		}
		o.delay = d
	}
}

// WithClock injects the time source used by the rate gate
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger used for lifecycle events
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithName labels the pool in logs and metrics
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithObserver attaches an Observer notified of every state transition
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithValidateOnAcquire makes Acquire run idle handles through
// Lifecycle.Reusable before handing them out. Stale handles are disposed only
// when the Acquire succeeds; an exhausted or failed Acquire puts them back on
// the stack untouched.
func WithValidateOnAcquire(enabled bool) Option {
	return func(o *options) {
		o.validateOnAcquire = enabled
	}
}
