package execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/execution/slippage"
	"github.com/argoquant/dexterio/internal/types"
)

func baseCfg() Config {
	return Config{
		CommissionModel: types.CommissionNone,
		Slippage:        slippage.Config{Model: types.SlippageNone},
		SpreadModel:     types.SpreadNone,
		InitialCapital:  50000,
		BaseRiskPct:     0.02,
	}
}

func mkBar(ts time.Time, o, h, l, c float64) bar.Bar {
	return bar.Bar{Timestamp: ts, Symbol: "SPY", Open: o, High: h, Low: l, Close: c, Volume: 1000}
}

func TestLongClosesAtStop(t *testing.T) {
	s := New(baseCfg())
	ts := time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC)

	setup := types.Setup{ID: "1", Symbol: "SPY", Direction: types.DirectionBullish, Entry: 100, Stop: 99, TP1: 101.5, TP2: 103}
	pos := s.Open(setup, 100, types.RiskTierBase, 100, ts)

	require.True(t, s.HasOpenPosition("SPY", types.DirectionBullish))

	b := mkBar(ts.Add(time.Minute), 100, 100.2, 98.9, 99.0)
	result := s.ProcessBar(pos, b, types.SessionNYAM)

	require.NotNil(t, result)
	assert.Equal(t, types.ExitReasonStop, result.ExitReason)
	assert.False(t, s.HasOpenPosition("SPY", types.DirectionBullish))
}

func TestLongPartialAtTP1ThenTP2(t *testing.T) {
	s := New(baseCfg())
	ts := time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC)

	setup := types.Setup{ID: "1", Symbol: "SPY", Direction: types.DirectionBullish, Entry: 100, Stop: 99, TP1: 101, TP2: 103}
	pos := s.Open(setup, 100, types.RiskTierBase, 100, ts)

	b1 := mkBar(ts.Add(time.Minute), 100, 101.2, 99.8, 101.1)
	result := s.ProcessBar(pos, b1, types.SessionNYAM)
	assert.Nil(t, result)
	assert.True(t, pos.TP1Filled)
	assert.Equal(t, pos.EntryPrice, pos.Stop)
	assert.True(t, pos.IsOpen())

	b2 := mkBar(ts.Add(2*time.Minute), 101.1, 103.2, 101.0, 103.1)
	result = s.ProcessBar(pos, b2, types.SessionNYAM)
	require.NotNil(t, result)
	assert.Equal(t, types.ExitReasonTP2, result.ExitReason)
}

func TestTp2PriorityOverTp1SameBar(t *testing.T) {
	s := New(baseCfg())
	ts := time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC)

	setup := types.Setup{ID: "1", Symbol: "SPY", Direction: types.DirectionBullish, Entry: 100, Stop: 99, TP1: 101, TP2: 103}
	pos := s.Open(setup, 100, types.RiskTierBase, 100, ts)

	b := mkBar(ts.Add(time.Minute), 100, 103.5, 99.8, 103.2)
	result := s.ProcessBar(pos, b, types.SessionNYAM)

	require.NotNil(t, result)
	assert.Equal(t, types.ExitReasonTP2, result.ExitReason)
	assert.False(t, pos.TP1Filled)
}

func TestTimeStopClosesScalp(t *testing.T) {
	s := New(baseCfg())
	ts := time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC)

	setup := types.Setup{ID: "1", Symbol: "SPY", TradeType: types.TradeTypeScalp, Direction: types.DirectionBullish, Entry: 100, Stop: 99, TP1: 110, TP2: 120}
	pos := s.Open(setup, 100, types.RiskTierBase, 100, ts)

	b := mkBar(ts.Add(31*time.Minute), 100, 100.3, 99.8, 100.1)
	result := s.ProcessBar(pos, b, types.SessionNYAM)

	require.NotNil(t, result)
	assert.Equal(t, types.ExitReasonTimeStop, result.ExitReason)
}

func TestSessionCloseExitsPosition(t *testing.T) {
	s := New(baseCfg())
	ts := time.Date(2025, 8, 1, 19, 59, 0, 0, time.UTC)

	setup := types.Setup{ID: "1", Symbol: "SPY", TradeType: types.TradeTypeDaily, Direction: types.DirectionBullish, Entry: 100, Stop: 95, TP1: 120, TP2: 130}
	pos := s.Open(setup, 100, types.RiskTierBase, 100, ts)

	b := mkBar(ts.Add(time.Minute), 100, 100.4, 99.9, 100.2)
	result := s.ProcessBar(pos, b, types.SessionOff)

	require.NotNil(t, result)
	assert.Equal(t, types.ExitReasonSessionClose, result.ExitReason)
}

func TestNetPnLEqualsGrossMinusCosts(t *testing.T) {
	cfg := baseCfg()
	cfg.CommissionModel = types.CommissionIBKRFixed
	s := New(cfg)
	ts := time.Date(2025, 8, 1, 13, 30, 0, 0, time.UTC)

	setup := types.Setup{ID: "1", Symbol: "SPY", Direction: types.DirectionBullish, Entry: 100, Stop: 99, TP1: 105, TP2: 110}
	pos := s.Open(setup, 100, types.RiskTierBase, 100, ts)

	b := mkBar(ts.Add(time.Minute), 100, 100.5, 98.9, 99.0)
	result := s.ProcessBar(pos, b, types.SessionNYAM)

	require.NotNil(t, result)
	assert.InDelta(t, result.PnLGrossDollars-result.TotalCosts, result.PnLNetDollars, 0.001)
	assert.Equal(t, types.OutcomeFromPnL(result.PnLNetDollars), result.Outcome)
}
