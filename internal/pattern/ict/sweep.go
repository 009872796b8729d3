package ict

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// sweepTickThreshold is the default minimum pierce distance, grounded on
// original_source's LIQUIDITY_SWEEP_TICK_THRESHOLD (same constant the
// marketstate package uses for ApplySweep).
const sweepTickThreshold = 0.02

// detectSweep implements spec.md's "wick beyond a tracked liquidity level
// by >= tick threshold with close back inside". Returns the strongest
// (largest relative pierce) sweep across all untouched levels.
func (e *Engine) detectSweep(last bar.Bar, levels []types.LiquidityLevel) (types.PatternDetection, bool) {
	var (
		best      types.PatternDetection
		bestScore float64
		found     bool
	)

	for i, lvl := range levels {
		if lvl.Swept {
			continue
		}

		switch lvl.Kind {
		case types.LiquidityPDH, types.LiquidityAsiaHigh, types.LiquidityLondonHigh, types.LiquidityEqualHighs:
			pierce := last.High - lvl.Price
			if pierce >= sweepTickThreshold && last.Close < lvl.Price {
				score := pierce
				if !found || score > bestScore {
					best = types.NewICTDetection(types.ICTKindSweep, types.DirectionBearish, clamp01(pierce/sweepTickThreshold/5), e.tf, last.Timestamp, []int{i})
					bestScore, found = score, true
				}
			}
		case types.LiquidityPDL, types.LiquidityAsiaLow, types.LiquidityLondonLow, types.LiquidityEqualLows:
			pierce := lvl.Price - last.Low
			if pierce >= sweepTickThreshold && last.Close > lvl.Price {
				score := pierce
				if !found || score > bestScore {
					best = types.NewICTDetection(types.ICTKindSweep, types.DirectionBullish, clamp01(pierce/sweepTickThreshold/5), e.tf, last.Timestamp, []int{i})
					bestScore, found = score, true
				}
			}
		}
	}

	return best, found
}
