package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

type AggregatorTestSuite struct {
	suite.Suite
	agg *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorTestSuite))
}

func (s *AggregatorTestSuite) SetupTest() {
	s.agg = New(DefaultConfig())
}

func mkBar(ts time.Time, c float64) bar.Bar {
	return bar.Bar{Timestamp: ts, Symbol: "SPY", Open: c, High: c + 0.1, Low: c - 0.1, Close: c, Volume: 100}
}

func (s *AggregatorTestSuite) TestFourHourClosesOnlyAtTheThreeAlignedHours() {
	base := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	for hour := 0; hour < 24; hour++ {
		closed := s.agg.Ingest(mkBar(base.Add(time.Duration(hour)*time.Hour).Add(59*time.Minute), 100))

		wantClose := hour == 11 || hour == 15 || hour == 19

		gotClose := false
		for _, tf := range closed {
			if tf == types.TF4h {
				gotClose = true
			}
		}

		s.Equal(wantClose, gotClose, "hour %d", hour)
	}
}

func (s *AggregatorTestSuite) TestFourHourDoesNotCloseAtLegacySixHourSet() {
	base := time.Date(2025, 3, 3, 1, 59, 0, 0, time.UTC)

	closed := s.agg.Ingest(mkBar(base, 100))

	for _, tf := range closed {
		s.NotEqual(types.TF4h, tf, "01:00 UTC must not close a 4h bucket")
	}
}

func (s *AggregatorTestSuite) TestDailyClosesAt1959UTC() {
	ts := time.Date(2025, 3, 3, 19, 59, 0, 0, time.UTC)

	closed := s.agg.Ingest(mkBar(ts, 100))

	found := false
	for _, tf := range closed {
		if tf == types.TF1d {
			found = true
		}
	}

	s.True(found)
}

func (s *AggregatorTestSuite) TestDailyDoesNotCloseAtLegacy2000UTC() {
	ts := time.Date(2025, 3, 3, 20, 59, 0, 0, time.UTC)

	closed := s.agg.Ingest(mkBar(ts, 100))

	for _, tf := range closed {
		s.NotEqual(types.TF1d, tf)
	}
}

func (s *AggregatorTestSuite) TestFiveMinuteWindowAccumulates() {
	base := time.Date(2025, 3, 3, 13, 30, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		s.agg.Ingest(mkBar(base.Add(time.Duration(i)*time.Minute), 100+float64(i)))
	}

	window := s.agg.Window("SPY", types.TF5m)
	s.Require().Len(window, 1)
	s.Equal(100.0, window[0].Open)
	s.Equal(104.0, window[0].Close)
}
