package pool

import "time"

// Stats is a point-in-time snapshot of a pool
type Stats struct {
	Name        string        `json:"name"`
	Minimum     int           `json:"minimum"`
	Maximum     int           `json:"maximum"`
	Delay       time.Duration `json:"delay"`
	Total       int           `json:"total"`
	InUse       int           `json:"in_use"`
	Free        int           `json:"free"`
	Created     int64         `json:"created"`
	Disposed    int64         `json:"disposed"`
	Reused      int64         `json:"reused"`
	Exhausted   int64         `json:"exhausted"`
	RateLimited int64         `json:"rate_limited"`
	Closed      bool          `json:"closed"`
}

// ReuseRate returns the share of successful acquisitions served by an idle
// handle rather than a freshly created one.
func (s Stats) ReuseRate() float64 {
	served := s.Reused + s.Created
	if served == 0 {
		return 0
	}
	return float64(s.Reused) / float64(served)
}

// Stats returns a consistent snapshot of the pool's bounds, population and
// lifetime counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Name:        p.name,
		Minimum:     p.min,
		Maximum:     p.max,
		Delay:       p.delay,
		Total:       p.total(),
		InUse:       len(p.inUse),
		Free:        len(p.free),
		Created:     p.stats.created,
		Disposed:    p.stats.disposed,
		Reused:      p.stats.reused,
		Exhausted:   p.stats.exhausted,
		RateLimited: p.stats.rateLimited,
		Closed:      p.closed,
	}
}
