// Package simulate drives a pool with concurrent workers to observe how its
// bounds and rate gate behave under load.
//
// # Overview
//
// A Simulator builds a pool.Pool[*Conn] from a config.PoolConfig and runs
// Workers goroutines for the configured Duration. Each worker repeatedly:
//   - acquires a connection (backing off when the pool is unavailable)
//   - holds it for HoldTime
//   - marks it dead with probability DeadRatio
//   - releases it
//
// Conn construction fails with probability FactoryFailureRate. The run
// ends with a Report summarising outcomes and the final pool state.
//
// # Basic Usage
//
//	cfg := config.NewPoolConfig("sim")
//	cfg.Simulation.Workers = 8
//
//	sim, err := simulate.New(cfg, simulate.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	report, err := sim.Run(ctx)
package simulate

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/handlepool/pkg/config"
	"github.com/ajitpratap0/handlepool/pkg/errors"
	"github.com/ajitpratap0/handlepool/pkg/logger"
	"github.com/ajitpratap0/handlepool/pkg/metrics"
	"github.com/ajitpratap0/handlepool/pkg/observability"
	"github.com/ajitpratap0/handlepool/pkg/pool"
)

// Conn is the simulated handle. Dead connections are rejected by the reuse
// predicate and disposed on release.
type Conn struct {
	ID   int64
	Dead bool
}

// Option configures a Simulator
type Option func(*Simulator)

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRegisterer registers pool metrics on reg. Without it the run is not
// exported to Prometheus.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Simulator) { s.registerer = reg }
}

// WithClock sets the time source used by the pool and the workers
func WithClock(c clock.Clock) Option {
	return func(s *Simulator) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithSeed makes the dead and factory-failure draws reproducible
func WithSeed(seed uint64) Option {
	return func(s *Simulator) { s.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// Simulator runs one load run against a fresh pool
type Simulator struct {
	cfg        *config.PoolConfig
	logger     *zap.Logger
	registerer prometheus.Registerer
	clock      clock.Clock

	rngMu sync.Mutex
	rng   *rand.Rand

	nextID    atomic.Int64
	collector *metrics.PoolCollector
	latency   *metrics.LatencyTracker
	acquired  metric.Int64Counter

	counters counters
}

type counters struct {
	attempts      atomic.Int64
	acquired      atomic.Int64
	exhausted     atomic.Int64
	rateLimited   atomic.Int64
	factoryErrors atomic.Int64
	recycled      atomic.Int64
	discarded     atomic.Int64
}

// New validates cfg and prepares a Simulator
func New(cfg *config.PoolConfig, opts ...Option) (*Simulator, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		cfg:     cfg,
		logger:  logger.Get(),
		clock:   clock.New(),
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		latency: metrics.NewLatencyTracker(10000),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String(string(logger.PoolKey), cfg.Name))

	counter, err := observability.Meter().Int64Counter("handlepool.simulate.acquisitions",
		metric.WithDescription("Handles successfully acquired by simulator workers"))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create acquisition counter")
	}
	s.acquired = counter

	return s, nil
}

// chance reports true with probability ratio
func (s *Simulator) chance(ratio float64) bool {
	if ratio <= 0 {
		return false
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() < ratio
}

func (s *Simulator) lifecycle() pool.Lifecycle[*Conn] {
	return pool.Lifecycle[*Conn]{
		Create: func() (*Conn, error) {
			if s.chance(s.cfg.Simulation.FactoryFailureRate) {
				return nil, errors.New(errors.ErrorTypeFactory, "simulated connect failure")
			}
			return &Conn{ID: s.nextID.Add(1)}, nil
		},
		Reusable: func(c *Conn) bool { return !c.Dead },
	}
}

func (s *Simulator) newPool() (*pool.Pool[*Conn], error) {
	opts := []pool.Option{
		pool.WithName(s.cfg.Name),
		pool.WithBounds(s.cfg.Pool.Min, s.cfg.Pool.Max),
		pool.WithDelay(s.cfg.Pool.Delay),
		pool.WithClock(s.clock),
		pool.WithLogger(s.logger),
		pool.WithValidateOnAcquire(s.cfg.Pool.ValidateOnAcquire),
	}
	if s.registerer != nil {
		s.collector = metrics.NewPoolCollector(s.registerer, s.cfg.Name)
		opts = append(opts, pool.WithObserver(s.collector))
	}
	return pool.New(s.lifecycle(), opts...)
}

// Run executes the simulation until the configured duration elapses or ctx
// is cancelled. Workers stop on the first unexpected pool error.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	sim := s.cfg.Simulation

	p, err := s.newPool()
	if err != nil {
		return nil, err
	}

	ctx, span := observability.NewSpan(ctx, "simulate.run")
	defer span.End()
	span.SetAttribute("pool.name", s.cfg.Name)
	span.SetAttribute("simulate.workers", sim.Workers)

	ctx, cancel := context.WithTimeout(ctx, sim.Duration)
	defer cancel()

	s.logger.Info("starting simulation",
		zap.Int("workers", sim.Workers),
		zap.Duration("duration", sim.Duration),
		zap.Int("min", s.cfg.Pool.Min),
		zap.Int("max", s.cfg.Pool.Max),
		zap.Duration("delay", s.cfg.Pool.Delay))

	throughput := metrics.NewThroughputTracker()
	timer := metrics.NewTimer()

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < sim.Workers; i++ {
		id := i
		g.Go(func() error {
			return s.worker(gctx, id, p, throughput)
		})
	}
	runErr := g.Wait()
	elapsed := timer.Stop()

	stats := p.Stats()
	closeErr := p.Close()
	if closeErr != nil {
		s.logger.Warn("pool close reported dispose failures", zap.Error(closeErr))
	}

	report := s.report(stats, elapsed, throughput.GetAndReset())
	span.SetAttribute("simulate.acquired", report.Acquired)
	span.SetAttribute("simulate.exhausted", report.Exhausted)
	span.SetAttribute("simulate.rate_limited", report.RateLimited)

	if runErr != nil {
		span.RecordError(runErr)
		s.logger.Error("simulation failed", zap.Error(runErr))
		return report, runErr
	}

	s.logger.Info("simulation completed",
		zap.Int64("attempts", report.Attempts),
		zap.Int64("acquired", report.Acquired),
		zap.Float64("reuse_rate", report.ReuseRate),
		zap.Duration("elapsed", elapsed))
	return report, nil
}

func (s *Simulator) worker(ctx context.Context, id int, p *pool.Pool[*Conn], throughput *metrics.ThroughputTracker) error {
	sim := s.cfg.Simulation
	log := observability.LoggerWithTrace(ctx, s.logger).With(zap.Int(string(logger.WorkerKey), id))
	log.Debug("worker started")
	defer log.Debug("worker stopped")

	workerAttr := metric.WithAttributes(attribute.Int("worker", id))

	for ctx.Err() == nil {
		s.counters.attempts.Add(1)
		start := s.clock.Now()
		conn, err := observability.TraceAcquire(ctx, p)
		s.latency.Record(s.clock.Since(start))

		switch {
		case err == nil:
		case pool.IsRateLimited(err):
			s.counters.rateLimited.Add(1)
			s.sleep(ctx, sim.RetryBackoff)
			continue
		case pool.IsUnavailable(err):
			s.counters.exhausted.Add(1)
			s.sleep(ctx, sim.RetryBackoff)
			continue
		case errors.IsType(err, errors.ErrorTypeFactory):
			s.counters.factoryErrors.Add(1)
			log.Debug("factory failed", zap.Error(err))
			s.sleep(ctx, sim.RetryBackoff)
			continue
		default:
			return errors.Wrap(err, errors.ErrorTypeInternal, "acquire failed").
				WithDetail("worker", id)
		}

		s.counters.acquired.Add(1)
		s.acquired.Add(ctx, 1, workerAttr)
		throughput.Increment(1)

		held := s.clock.Now()
		s.sleep(ctx, sim.HoldTime)
		if s.chance(sim.DeadRatio) {
			conn.Dead = true
		}
		dead := conn.Dead

		if err := observability.TraceRelease(ctx, p, conn); err != nil {
			return errors.Wrap(err, errors.ErrorTypeInternal, "release failed").
				WithDetail("worker", id).
				WithDetail("conn", conn.ID)
		}
		if s.collector != nil {
			s.collector.ObserveHold(s.clock.Since(held))
		}
		if dead {
			s.counters.discarded.Add(1)
		} else {
			s.counters.recycled.Add(1)
		}
	}
	return nil
}

// sleep waits for d or until ctx is done
func (s *Simulator) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := s.clock.Timer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
