package pool_test

import (
	"time"

	"github.com/ajitpratap0/handlepool/pkg/pool"
)

const gateDelay = 100 * time.Millisecond

func (s *PoolTestSuite) TestRateLimiting() {
	p := s.newPool(s.lifecycle(), pool.WithBounds(0, 3))
	p.SetDelay(gateDelay)
	s.Equal(gateDelay, p.Delay())

	for round := 0; round < 3; round++ {
		_, err := p.Acquire()
		s.Require().NoError(err, "round %d", round)

		_, err = p.Acquire()
		s.True(pool.IsRateLimited(err), "round %d", round)
		s.True(pool.IsUnavailable(err))

		s.Clock.Add(gateDelay)
	}

	// the gate is open again but the pool is exhausted
	_, err := p.Acquire()
	s.True(pool.IsUnavailable(err))
	s.False(pool.IsRateLimited(err))
	s.Equal(3, p.Total())
}

func (s *PoolTestSuite) TestRateLimitingManyRounds() {
	const rounds = 25
	p := s.newPool(s.lifecycle(), pool.WithBounds(0, rounds), pool.WithDelay(gateDelay))

	for i := 0; i < rounds; i++ {
		_, err := p.Acquire()
		s.Require().NoError(err, "round %d", i)

		s.Clock.Add(gateDelay / 2)
		_, err = p.Acquire()
		s.True(pool.IsRateLimited(err), "round %d", i)

		s.Clock.Add(gateDelay / 2)
	}
	s.Equal(rounds, p.InUseCount())
	s.EqualValues(rounds, p.Stats().RateLimited)
}

func (s *PoolTestSuite) TestFirstAcquisitionIsNeverGated() {
	p := s.newPool(s.lifecycle(), pool.WithDelay(time.Hour))

	_, err := p.Acquire()
	s.NoError(err)
}

func (s *PoolTestSuite) TestRejectedAcquisitionsDoNotResetGate() {
	p := s.newPool(s.lifecycle(), pool.WithBounds(0, 1), pool.WithDelay(gateDelay))

	h, err := p.Acquire()
	s.Require().NoError(err)

	s.Clock.Add(gateDelay)
	_, err = p.Acquire()
	s.True(pool.IsUnavailable(err))
	s.False(pool.IsRateLimited(err))

	// the exhausted attempt did not count as an acquisition
	s.Require().NoError(p.Release(h))
	got, err := p.Acquire()
	s.Require().NoError(err)
	s.Same(h, got)
}

func (s *PoolTestSuite) TestRateLimitedAttemptHasNoSideEffects() {
	p := s.newPool(s.lifecycle(), pool.WithBounds(2, 4), pool.WithDelay(gateDelay))

	_, err := p.Acquire()
	s.Require().NoError(err)
	before := p.Stats()

	_, err = p.Acquire()
	s.True(pool.IsRateLimited(err))
	after := p.Stats()
	s.Equal(before.Total, after.Total)
	s.Equal(before.InUse, after.InUse)
	s.Equal(before.Free, after.Free)

	s.Clock.Add(gateDelay - time.Millisecond)
	_, err = p.Acquire()
	s.True(pool.IsRateLimited(err))

	s.Clock.Add(time.Millisecond)
	_, err = p.Acquire()
	s.NoError(err)
}

func (s *PoolTestSuite) TestSetDelayTakesEffectImmediately() {
	p := s.newPool(s.lifecycle(), pool.WithDelay(gateDelay))

	_, err := p.Acquire()
	s.Require().NoError(err)
	_, err = p.Acquire()
	s.True(pool.IsRateLimited(err))

	p.SetDelay(0)
	_, err = p.Acquire()
	s.NoError(err)

	p.SetDelay(-time.Second)
	s.Zero(p.Delay())
}
