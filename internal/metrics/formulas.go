// Package metrics implements the locked performance formulas of
// spec.md §4.8 and the ledger that persists closed trades and equity
// points, grounded on the teacher's internal/trading/engine/engine_v1/writers
// DuckDB-backed writer pattern.
package metrics

import (
	"math"

	"github.com/argoquant/dexterio/internal/types"
)

// ProfitFactor implements spec.md's locked formula over trades, excluding
// breakeven trades, using net or gross R per the net flag.
func ProfitFactor(trades []types.TradeResult, net bool) float64 {
	var grossProfit, grossLoss float64

	for _, t := range trades {
		if t.Outcome == types.OutcomeBreakeven {
			continue
		}

		r := rValue(t, net)

		switch {
		case r > 0:
			grossProfit += r
		case r < 0:
			grossLoss += r
		}
	}

	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}

		return math.NaN()
	}

	return grossProfit / absf(grossLoss)
}

// ExpectancyR is the mean r_multiple over all trades, breakeven included.
func ExpectancyR(trades []types.TradeResult, net bool) float64 {
	if len(trades) == 0 {
		return 0
	}

	var sum float64
	for _, t := range trades {
		sum += rValue(t, net)
	}

	return sum / float64(len(trades))
}

// Winrate is wins / (wins + losses), breakeven excluded from the
// denominator.
func Winrate(trades []types.TradeResult) float64 {
	wins, losses := 0, 0

	for _, t := range trades {
		switch t.Outcome {
		case types.OutcomeWin:
			wins++
		case types.OutcomeLoss:
			losses++
		case types.OutcomeBreakeven:
		}
	}

	if wins+losses == 0 {
		return 0
	}

	return float64(wins) / float64(wins+losses)
}

// MaxDrawdownR walks trades in ledger order accumulating R and returns the
// largest peak-to-trough drawdown, matching spec.md's "equity points
// emitted at least on each trade close" cadence.
func MaxDrawdownR(trades []types.TradeResult, net bool) float64 {
	var peak, cum, maxDD float64

	for _, t := range trades {
		cum += rValue(t, net)
		if cum > peak {
			peak = cum
		}

		if dd := peak - cum; dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}

func rValue(t types.TradeResult, net bool) float64 {
	if net {
		return t.RMultiple
	}

	return t.PnLGrossR
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// Summary is the net-and-gross dual-reported aggregate over one slice of
// trades, per spec.md §4.8 ("every aggregate is computed once on net and
// once on gross; both are emitted. Default reporting surface is net.").
type Summary struct {
	Trades    int     `yaml:"trades" json:"trades"`
	Wins      int     `yaml:"wins" json:"wins"`
	Losses    int     `yaml:"losses" json:"losses"`
	Breakevens int    `yaml:"breakevens" json:"breakevens"`
	Winrate   float64 `yaml:"winrate" json:"winrate"`

	ProfitFactorNet   float64 `yaml:"profit_factor_net" json:"profit_factor_net"`
	ProfitFactorGross float64 `yaml:"profit_factor_gross" json:"profit_factor_gross"`
	ExpectancyRNet    float64 `yaml:"expectancy_r_net" json:"expectancy_r_net"`
	ExpectancyRGross  float64 `yaml:"expectancy_r_gross" json:"expectancy_r_gross"`
	MaxDrawdownRNet   float64 `yaml:"max_drawdown_r_net" json:"max_drawdown_r_net"`
	MaxDrawdownRGross float64 `yaml:"max_drawdown_r_gross" json:"max_drawdown_r_gross"`

	// TotalR is the trades-ledger total_R aggregate, summed from each
	// trade's pnl_R_account (net PnL divided by the fixed
	// initial_capital*base_risk_pct denominator). This is the only total-R
	// path this implementation computes; the legacy sum-of-r_multiple
	// aggregate the spec calls out as a distinct, ignored value is not
	// reproduced here.
	TotalR     float64 `yaml:"total_r" json:"total_r"`
	TotalCosts float64 `yaml:"total_costs" json:"total_costs"`
}

// Compute builds a Summary over trades, preserving ledger (chronological)
// order for the drawdown walk.
func Compute(trades []types.TradeResult) Summary {
	s := Summary{Trades: len(trades)}

	for _, t := range trades {
		switch t.Outcome {
		case types.OutcomeWin:
			s.Wins++
		case types.OutcomeLoss:
			s.Losses++
		case types.OutcomeBreakeven:
			s.Breakevens++
		}

		s.TotalR += t.PnLRAccount
		s.TotalCosts += t.TotalCosts
	}

	s.Winrate = Winrate(trades)
	s.ProfitFactorNet = ProfitFactor(trades, true)
	s.ProfitFactorGross = ProfitFactor(trades, false)
	s.ExpectancyRNet = ExpectancyR(trades, true)
	s.ExpectancyRGross = ExpectancyR(trades, false)
	s.MaxDrawdownRNet = MaxDrawdownR(trades, true)
	s.MaxDrawdownRGross = MaxDrawdownR(trades, false)

	return s
}

// ByPlaybook groups trades by PlaybookName and computes a Summary per
// group, preserving each group's relative chronological order.
func ByPlaybook(trades []types.TradeResult) map[string]Summary {
	return groupBy(trades, func(t types.TradeResult) string { return t.PlaybookName })
}

// ByDay groups trades by their ExitTs calendar day (UTC) and computes a
// Summary per group.
func ByDay(trades []types.TradeResult) map[string]Summary {
	return groupBy(trades, func(t types.TradeResult) string { return t.ExitTs.Format("2006-01-02") })
}

func groupBy(trades []types.TradeResult, keyFn func(types.TradeResult) string) map[string]Summary {
	buckets := map[string][]types.TradeResult{}

	for _, t := range trades {
		key := keyFn(t)
		buckets[key] = append(buckets[key], t)
	}

	out := make(map[string]Summary, len(buckets))
	for key, ts := range buckets {
		out[key] = Compute(ts)
	}

	return out
}
