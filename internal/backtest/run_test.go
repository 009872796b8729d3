package backtest

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/internal/config"
)

type BoundsTestSuite struct {
	suite.Suite
}

func TestBoundsSuite(t *testing.T) {
	suite.Run(t, new(BoundsTestSuite))
}

func (s *BoundsTestSuite) TestWarmupSubtractsHTFDaysFromStart() {
	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)

	cfg := config.Default()
	cfg.StartDate = optional.Some(start)
	cfg.EndDate = optional.Some(end)
	cfg.HTFWarmupDays = 40

	warmup, scoredStart, scoredEnd := resolveBounds(cfg)

	s.Require().True(warmup.IsSome())
	s.Equal(start.AddDate(0, 0, -40), warmup.Unwrap())
	s.Require().True(scoredStart.IsSome())
	s.Equal(start, scoredStart.Unwrap())
	s.Require().True(scoredEnd.IsSome())
	s.Equal(end, scoredEnd.Unwrap())
}

func (s *BoundsTestSuite) TestUnboundedStartLeavesWarmupUnbounded() {
	cfg := config.Default()

	warmup, scoredStart, _ := resolveBounds(cfg)

	s.True(warmup.IsNone())
	s.True(scoredStart.IsNone())
}

func (s *BoundsTestSuite) TestResolveDataRootPrefersConfiguredPaths() {
	cfg := config.Default()
	cfg.DataPaths = []string{"/tmp/custom-data"}

	s.Equal("/tmp/custom-data", resolveDataRoot(cfg, "/repo"))
}

func (s *BoundsTestSuite) TestResolveDataRootFallsBackToRepoRoot() {
	cfg := config.Default()

	root := resolveDataRoot(cfg, "/repo")
	s.Contains(root, "/repo")
	s.Contains(root, "1m")
}
