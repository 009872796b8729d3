// Package slippage implements the fill-price slippage schedules of
// spec.md §4.7.
package slippage

import "github.com/argoquant/dexterio/internal/types"

// Model computes the dollar slippage cost for one fill leg, signed
// adverse to the trade direction by the caller.
type Model interface {
	Calculate(price, shares float64) float64
}

// Config carries the model-specific parameters a run configures.
type Config struct {
	Model    types.SlippageModel
	Pct      float64 // default 0.0005
	TickSize float64
	NTicks   float64
}

// Get resolves a slippage Model from Config.
func Get(cfg Config) Model {
	switch cfg.Model {
	case types.SlippagePct:
		pct := cfg.Pct
		if pct == 0 {
			pct = 0.0005
		}

		return pctModel{pct: pct}
	case types.SlippageTicks:
		return ticksModel{tickSize: cfg.TickSize, nTicks: cfg.NTicks}
	default:
		return noneModel{}
	}
}

type pctModel struct{ pct float64 }

func (m pctModel) Calculate(price, shares float64) float64 {
	return roundCents(price * m.pct * shares)
}

type ticksModel struct {
	tickSize float64
	nTicks   float64
}

func (m ticksModel) Calculate(_ float64, shares float64) float64 {
	return roundCents(shares * m.tickSize * m.nTicks)
}

type noneModel struct{}

func (noneModel) Calculate(float64, float64) float64 { return 0 }

func roundCents(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
