package bar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type BarTestSuite struct {
	suite.Suite
}

func TestBarSuite(t *testing.T) {
	suite.Run(t, new(BarTestSuite))
}

func (s *BarTestSuite) TestValidateOK() {
	b := Bar{Timestamp: time.Now(), Symbol: "SPY", Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1000}
	s.NoError(b.Validate())
}

func (s *BarTestSuite) TestValidateRejectsLowAboveBody() {
	b := Bar{Timestamp: time.Now(), Symbol: "SPY", Open: 100, High: 101, Low: 100.2, Close: 100.5, Volume: 1000}
	s.Error(b.Validate())
}

func (s *BarTestSuite) TestValidateRejectsHighBelowBody() {
	b := Bar{Timestamp: time.Now(), Symbol: "SPY", Open: 100, High: 100.3, Low: 99, Close: 100.5, Volume: 1000}
	s.Error(b.Validate())
}

func (s *BarTestSuite) TestValidateRejectsMissingSymbol() {
	b := Bar{Timestamp: time.Now(), Open: 100, High: 101, Low: 99, Close: 100.5}
	s.Error(b.Validate())
}

func (s *BarTestSuite) TestBullishBearish() {
	up := Bar{Open: 100, Close: 101}
	down := Bar{Open: 101, Close: 100}
	s.True(up.Bullish())
	s.False(up.Bearish())
	s.True(down.Bearish())
	s.False(down.Bullish())
}

func (s *BarTestSuite) TestBodyRange() {
	b := Bar{Open: 100, Close: 101, High: 102, Low: 99}
	body, rng := b.BodyRange()
	s.InDelta(1.0, body, 1e-9)
	s.InDelta(3.0, rng, 1e-9)
}
