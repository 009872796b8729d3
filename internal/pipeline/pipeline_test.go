package pipeline

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/internal/metrics"
	"github.com/argoquant/dexterio/internal/types"
)

type PipelineTestSuite struct {
	suite.Suite
	led *metrics.Ledger
	log *logger.Logger
	pl  *Pipeline
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineTestSuite))
}

func (s *PipelineTestSuite) SetupTest() {
	log, err := logger.NewLogger()
	s.Require().NoError(err)
	s.log = log

	led, err := metrics.New(log)
	s.Require().NoError(err)
	s.led = led

	cfg := config.Default()
	cfg.Symbols = []string{"SPY"}
	cfg.StartDate = optional.Some(time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))

	s.pl = New(cfg, nil, led, log, nil)
}

func (s *PipelineTestSuite) TearDownTest() {
	s.led.Close()
}

func mkBar(ts time.Time, o, h, l, c float64) bar.Bar {
	return bar.Bar{Timestamp: ts, Symbol: "SPY", Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

func (s *PipelineTestSuite) TestWarmupBarsDoNotAdvanceBarCount() {
	ts := time.Date(2025, 3, 3, 13, 30, 0, 0, time.UTC)

	s.pl.IngestWarmup(mkBar(ts, 100, 100.5, 99.5, 100.2))
	s.pl.IngestWarmup(mkBar(ts.Add(time.Minute), 100.2, 100.6, 99.9, 100.3))

	s.Equal(0, s.pl.BarsProcessed())
}

func (s *PipelineTestSuite) TestProcessBarAdvancesCountAndRiskState() {
	ts := time.Date(2025, 3, 3, 13, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		b := mkBar(ts.Add(time.Duration(i)*time.Minute), 100, 100.5, 99.5, 100.2)
		s.Require().NoError(s.pl.ProcessBar(b))
	}

	s.Equal(5, s.pl.BarsProcessed())
	s.Require().NotNil(s.pl.RiskState())
}

func (s *PipelineTestSuite) TestProcessBarRejectsInvalidBar() {
	bad := bar.Bar{Timestamp: time.Now(), Symbol: "SPY", Open: 100, High: 90, Low: 99, Close: 100}
	err := s.pl.ProcessBar(bad)
	s.Error(err)
}

func (s *PipelineTestSuite) TestForceCloseAllIsNoOpWithoutOpenPositions() {
	ts := time.Date(2025, 3, 3, 13, 30, 0, 0, time.UTC)
	b := mkBar(ts, 100, 100.5, 99.5, 100.2)

	s.Require().NoError(s.pl.ProcessBar(b))

	s.pl.ForceCloseAll(map[string]bar.Bar{"SPY": b}, types.ExitReasonSessionClose)

	trades, err := s.led.Trades()
	s.Require().NoError(err)
	s.Empty(trades)
}
