package ict

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// detectFVG implements spec.md's 3-candle fair value gap test on the most
// recent window [i, i+2]: bullish if high[i] < low[i+2], bearish if
// low[i] > high[i+2], with strength scaled by gap size relative to the
// middle candle's own range.
func (e *Engine) detectFVG(candles []bar.Bar) []types.PatternDetection {
	n := len(candles)
	if n < 3 {
		return nil
	}

	a, mid, c := candles[n-3], candles[n-2], candles[n-1]

	var out []types.PatternDetection

	if a.High < c.Low {
		gap := c.Low - a.High
		out = append(out, types.NewICTDetection(types.ICTKindFVG, types.DirectionBullish, fvgStrength(gap, mid), e.tf, c.Timestamp, nil))
	}

	if a.Low > c.High {
		gap := a.Low - c.High
		out = append(out, types.NewICTDetection(types.ICTKindFVG, types.DirectionBearish, fvgStrength(gap, mid), e.tf, c.Timestamp, nil))
	}

	return out
}

func fvgStrength(gap float64, mid bar.Bar) float64 {
	rng := mid.High - mid.Low
	if rng <= 0 {
		return clamp01(gap)
	}

	return clamp01(gap / rng)
}

// FVGBounds returns the top/bottom/mid price of the most recent FVG on
// candles in the given direction, used by the Setup Engine to anchor entry
// inside the gap per spec.md §4.5. ok is false if no such gap exists in the
// last 3 candles.
func FVGBounds(candles []bar.Bar, dir types.Direction) (top, bottom, mid float64, ok bool) {
	n := len(candles)
	if n < 3 {
		return 0, 0, 0, false
	}

	a, _, c := candles[n-3], candles[n-2], candles[n-1]

	if dir == types.DirectionBullish && a.High < c.Low {
		top, bottom = c.Low, a.High
		return top, bottom, (top + bottom) / 2, true
	}

	if dir == types.DirectionBearish && a.Low > c.High {
		top, bottom = a.Low, c.High
		return top, bottom, (top + bottom) / 2, true
	}

	return 0, 0, 0, false
}
