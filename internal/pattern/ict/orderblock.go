package ict

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// displacementMultiplier is how many average ranges a candle's range must
// exceed to count as a "strong displacement move", grounded on
// original_source's ORDER_BLOCK_DISPLACEMENT_ATR.
const displacementMultiplier = 1.5

// orderBlockLookback bounds how far back detectOrderBlock searches for the
// last opposite-direction candle preceding the displacement candle.
const orderBlockLookback = 10

// detectOrderBlock implements spec.md's "last opposite-direction candle
// before a strong displacement move": the most recent candle is tested as
// the displacement; if its range exceeds displacementMultiplier times the
// average range of the preceding window, the nearest prior candle whose
// direction is opposite to the displacement is the order block.
func (e *Engine) detectOrderBlock(candles []bar.Bar) (types.PatternDetection, bool) {
	n := len(candles)
	if n < orderBlockLookback+2 {
		return types.PatternDetection{}, false
	}

	displacement := candles[n-1]
	avgRange := averageRange(candles[n-orderBlockLookback-1 : n-1])

	if avgRange <= 0 || (displacement.High-displacement.Low) < avgRange*displacementMultiplier {
		return types.PatternDetection{}, false
	}

	dispBullish := displacement.Bullish()

	for i := n - 2; i >= n-1-orderBlockLookback && i >= 0; i-- {
		ob := candles[i]
		if ob.Bullish() != dispBullish {
			dir := types.DirectionBullish
			if !dispBullish {
				dir = types.DirectionBearish
			}

			strength := clamp01((displacement.High - displacement.Low) / (avgRange * displacementMultiplier * 2))

			return types.NewICTDetection(types.ICTKindOrderBlock, dir, strength, e.tf, displacement.Timestamp, []int{i}), true
		}
	}

	return types.PatternDetection{}, false
}

func averageRange(candles []bar.Bar) float64 {
	if len(candles) == 0 {
		return 0
	}

	var sum float64

	for _, c := range candles {
		sum += c.High - c.Low
	}

	return sum / float64(len(candles))
}
