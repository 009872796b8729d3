package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argoquant/dexterio/internal/types"
)

func TestTwoTierSequenceMatchesLockedFractions(t *testing.T) {
	cfg := DefaultConfig(types.ModeAggressive, 50000)
	e := New(cfg)
	state := e.InitState(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	outcomes := []types.Outcome{
		types.OutcomeWin, types.OutcomeLoss, types.OutcomeWin,
		types.OutcomeLoss, types.OutcomeLoss, types.OutcomeWin, types.OutcomeWin,
	}
	wantPct := []float64{0.02, 0.01, 0.02, 0.01, 0.01, 0.02, 0.02}

	ts := time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)

	for i, outcome := range outcomes {
		e.OnTradeClosed(state, types.TradeResult{PlaybookName: "p", Outcome: outcome, RMultiple: signedR(outcome)}, ts.Add(time.Duration(i)*time.Hour))
		assert.Equalf(t, wantPct[i], state.CurrentRiskPct, "step %d", i)
	}
}

func signedR(o types.Outcome) float64 {
	switch o {
	case types.OutcomeWin:
		return 1.5
	case types.OutcomeLoss:
		return -1.0
	default:
		return 0
	}
}

func TestConsecutiveLossCooldownDisablesTrading(t *testing.T) {
	cfg := DefaultConfig(types.ModeSafe, 10000)
	e := New(cfg)
	state := e.InitState(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	ts := time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e.OnTradeClosed(state, types.TradeResult{PlaybookName: "p", Outcome: types.OutcomeLoss, RMultiple: -1}, ts.Add(time.Duration(i)*time.Minute))
	}

	require.NotNil(t, state.ConsecLossCooldownUntil)

	_, _, _, reason, ok := e.Admit(state, types.Setup{PlaybookName: "p", Entry: 100, Stop: 99}, ts.Add(time.Minute), false, 0)
	assert.False(t, ok)
	assert.Equal(t, types.RiskRejectCooldownLossActive, reason)
}

func TestDailyLossCircuitBreaker(t *testing.T) {
	cfg := DefaultConfig(types.ModeSafe, 10000)
	e := New(cfg)
	state := e.InitState(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	ts := time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)
	e.OnTradeClosed(state, types.TradeResult{PlaybookName: "p", Outcome: types.OutcomeLoss, RMultiple: -4.5}, ts)

	assert.False(t, state.TradingAllowed)

	_, _, _, reason, ok := e.Admit(state, types.Setup{PlaybookName: "p", Entry: 100, Stop: 99}, ts.Add(time.Minute), false, 0)
	assert.False(t, ok)
	assert.Equal(t, types.RiskRejectCircuitStopDay, reason)

	e.DailyReset(state, ts.Add(24*time.Hour))
	assert.True(t, state.TradingAllowed)
}

func TestKillSwitchHardStop(t *testing.T) {
	cfg := DefaultConfig(types.ModeAggressive, 50000)
	// Widen both circuit breakers so a single -30R loss leaves only the
	// kill switch to reject the next admission.
	cfg.StopDayR = -100
	cfg.StopRunR = 100
	e := New(cfg)
	state := e.InitState(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	ts := time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)
	e.OnTradeClosed(state, types.TradeResult{PlaybookName: "News_Fade", Outcome: types.OutcomeLoss, RMultiple: -30}, ts)

	assert.True(t, state.KillSwitchedPlaybooks["News_Fade"])

	_, _, _, reason, ok := e.Admit(state, types.Setup{PlaybookName: "News_Fade", Entry: 100, Stop: 99}, ts.Add(time.Minute), false, 0)
	assert.False(t, ok)
	assert.Equal(t, types.RiskRejectKillSwitched, reason)
}

func TestSizingRespectsCapitalFactor(t *testing.T) {
	cfg := DefaultConfig(types.ModeAggressive, 1000)
	e := New(cfg)
	state := e.InitState(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	setup := types.Setup{PlaybookName: "News_Fade", Entry: 100, Stop: 99.9, Quality: types.GradeB}
	shares, riskDollars, tier, _, ok := e.Admit(state, setup, time.Now().UTC(), false, 0)
	require.True(t, ok)
	assert.Equal(t, types.RiskTierBase, tier)
	assert.Greater(t, riskDollars, 0.0)
	assert.LessOrEqual(t, shares*setup.Entry, state.AccountBalance*AggressiveCapitalFactor[types.GradeB])
}

func TestModeNotInAllowlistRejection(t *testing.T) {
	cfg := DefaultConfig(types.ModeSafe, 10000)
	e := New(cfg)
	state := e.InitState(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))

	setup := types.Setup{PlaybookName: "Not_On_Safe_List", Entry: 100, Stop: 99}
	_, _, _, reason, ok := e.Admit(state, setup, time.Now().UTC(), false, 0)
	assert.False(t, ok)
	assert.Equal(t, types.RiskRejectModeNotInAllowlist, reason)
}
