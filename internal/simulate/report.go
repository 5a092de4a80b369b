package simulate

import (
	"time"

	"github.com/ajitpratap0/handlepool/pkg/pool"
)

// Report summarises a simulation run
type Report struct {
	Attempts      int64 `json:"attempts"`
	Acquired      int64 `json:"acquired"`
	Exhausted     int64 `json:"exhausted"`
	RateLimited   int64 `json:"rate_limited"`
	FactoryErrors int64 `json:"factory_errors"`
	Recycled      int64 `json:"recycled"`
	Discarded     int64 `json:"discarded"`

	// ReuseRate is the share of acquisitions served from idle handles
	ReuseRate float64 `json:"reuse_rate"`
	// Throughput is successful acquisitions per second
	Throughput float64 `json:"throughput"`

	AcquireP50 time.Duration `json:"acquire_p50"`
	AcquireP99 time.Duration `json:"acquire_p99"`
	Elapsed    time.Duration `json:"elapsed"`

	Pool pool.Stats `json:"pool"`
}

// Released returns the number of successful releases
func (r *Report) Released() int64 {
	return r.Recycled + r.Discarded
}

func (s *Simulator) report(stats pool.Stats, elapsed time.Duration, throughput float64) *Report {
	return &Report{
		Attempts:      s.counters.attempts.Load(),
		Acquired:      s.counters.acquired.Load(),
		Exhausted:     s.counters.exhausted.Load(),
		RateLimited:   s.counters.rateLimited.Load(),
		FactoryErrors: s.counters.factoryErrors.Load(),
		Recycled:      s.counters.recycled.Load(),
		Discarded:     s.counters.discarded.Load(),
		ReuseRate:     stats.ReuseRate(),
		Throughput:    throughput,
		AcquireP50:    s.latency.GetPercentile(50),
		AcquireP99:    s.latency.GetPercentile(99),
		Elapsed:       elapsed,
		Pool:          stats,
	}
}
