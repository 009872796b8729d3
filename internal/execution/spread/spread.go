// Package spread implements the half-spread-per-leg cost model of
// spec.md §4.7.
package spread

import "github.com/argoquant/dexterio/internal/types"

// Model computes the dollar spread cost for one fill leg.
type Model interface {
	Calculate(price, shares float64) float64
}

// Get resolves a spread Model by its closed-set identifier and bps.
func Get(model types.SpreadModel, bps float64) Model {
	if model == types.SpreadFixedBps {
		return fixedBps{bps: bps}
	}

	return none{}
}

type fixedBps struct{ bps float64 }

func (f fixedBps) Calculate(price, shares float64) float64 {
	notional := price * shares

	return roundCents(notional * f.bps * 1e-4 * 0.5)
}

type none struct{}

func (none) Calculate(float64, float64) float64 { return 0 }

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
