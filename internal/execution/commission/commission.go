// Package commission implements the broker commission schedules of
// spec.md §4.7's cost model, grounded on the teacher's
// internal/backtest/engine/engine_v1/commission_fee package shape
// (interface + model-keyed factory).
package commission

import "github.com/argoquant/dexterio/internal/types"

// Model computes the commission for one fill leg.
type Model interface {
	// Calculate returns the commission in dollars for shares traded at
	// price, rounded to cents and capped at 1% of notional per
	// original_source/backend/backtest/costs.py.
	Calculate(shares, price float64) float64
}

// Get resolves a commission Model by its closed-set identifier.
func Get(model types.CommissionModel) Model {
	switch model {
	case types.CommissionIBKRFixed:
		return fixed{perShare: 0.005, minimum: 1.0}
	case types.CommissionIBKRTiered:
		return fixed{perShare: 0.0035, minimum: 1.0}
	default:
		return none{}
	}
}

type fixed struct {
	perShare float64
	minimum  float64
}

func (f fixed) Calculate(shares, price float64) float64 {
	fee := shares * f.perShare
	if fee < f.minimum {
		fee = f.minimum
	}

	notionalCap := shares * price * 0.01
	if fee > notionalCap {
		fee = notionalCap
	}

	return roundCents(fee)
}

type none struct{}

func (none) Calculate(float64, float64) float64 { return 0 }

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
