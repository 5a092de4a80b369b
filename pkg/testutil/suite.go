package testutil

import (
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// PoolSuite provides a fresh mock clock, handle factory and logger to every
// test in a suite.
type PoolSuite struct {
	suite.Suite
	Clock   *clock.Mock
	Factory *HandleFactory
	Logger  *zap.Logger
}

// SetupTest runs before each test in the suite
func (s *PoolSuite) SetupTest() {
	s.Clock = clock.NewMock()
	s.Factory = NewHandleFactory()
	s.Logger = TestLogger(s.T())
}
