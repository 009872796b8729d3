package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/argoquant/dexterio/internal/types"
)

type FormulasTestSuite struct {
	suite.Suite
}

func TestFormulasSuite(t *testing.T) {
	suite.Run(t, new(FormulasTestSuite))
}

func trade(outcome types.Outcome, rMultiple, pnlGrossR, pnlRAccount float64) types.TradeResult {
	return types.TradeResult{
		Outcome:     outcome,
		RMultiple:   rMultiple,
		PnLGrossR:   pnlGrossR,
		PnLRAccount: pnlRAccount,
		ExitTs:      time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC),
	}
}

// TestTotalRIsSourcedFromPnLRAccountNotRMultiple locks in the fixed-base
// aggregate spec.md §8 scenario 3 names: total_R is the sum of each
// trade's pnl_R_account, a distinct figure from the sum of r_multiple
// (the legacy path the scenario explicitly says must be ignored).
func (s *FormulasTestSuite) TestTotalRIsSourcedFromPnLRAccountNotRMultiple() {
	trades := []types.TradeResult{
		trade(types.OutcomeWin, 2.0, 2.0, 1.0),
		trade(types.OutcomeWin, 3.0, 3.0, 1.5),
		trade(types.OutcomeLoss, -1.0, -1.0, -0.5),
		trade(types.OutcomeLoss, -1.0, -1.0, -0.5),
		trade(types.OutcomeWin, 4.106, 4.106, 4.106),
	}

	summary := Compute(trades)

	s.InDelta(5.606, summary.TotalR, 1e-9)
	s.NotEqual(summary.TotalR, sumRMultiple(trades))
}

func sumRMultiple(trades []types.TradeResult) float64 {
	var sum float64
	for _, t := range trades {
		sum += t.RMultiple
	}

	return sum
}

func (s *FormulasTestSuite) TestProfitFactorNetExcludesBreakeven() {
	trades := []types.TradeResult{
		trade(types.OutcomeWin, 2.0, 2.0, 1.0),
		trade(types.OutcomeLoss, -1.0, -1.0, -0.5),
		trade(types.OutcomeBreakeven, 0, 0, 0),
	}

	s.InDelta(2.0, ProfitFactor(trades, true), 1e-9)
}

func (s *FormulasTestSuite) TestWinrateExcludesBreakevenFromDenominator() {
	trades := []types.TradeResult{
		trade(types.OutcomeWin, 1, 1, 1),
		trade(types.OutcomeLoss, -1, -1, -1),
		trade(types.OutcomeBreakeven, 0, 0, 0),
	}

	s.InDelta(0.5, Winrate(trades), 1e-9)
}

func (s *FormulasTestSuite) TestMaxDrawdownRWalksLedgerOrder() {
	trades := []types.TradeResult{
		trade(types.OutcomeWin, 3, 3, 3),
		trade(types.OutcomeLoss, -2, -2, -2),
		trade(types.OutcomeWin, 1, 1, 1),
	}

	s.InDelta(2.0, MaxDrawdownR(trades, true), 1e-9)
}

func (s *FormulasTestSuite) TestComputeCountsOutcomes() {
	trades := []types.TradeResult{
		trade(types.OutcomeWin, 1, 1, 1),
		trade(types.OutcomeWin, 1, 1, 1),
		trade(types.OutcomeLoss, -1, -1, -1),
		trade(types.OutcomeBreakeven, 0, 0, 0),
	}

	summary := Compute(trades)
	s.Equal(4, summary.Trades)
	s.Equal(2, summary.Wins)
	s.Equal(1, summary.Losses)
	s.Equal(1, summary.Breakevens)
}
