// Package indicator holds the small set of derived numeric indicators the
// simulation pipeline needs outside the pattern/market-state engines
// (currently just ATR, feeding the Playbook Evaluator's volatility floor),
// grounded on the teacher's internal/indicator ATR (true range + EMA
// smoothing) but computed directly over a bar window instead of through
// the teacher's DataSource/IndicatorRegistry plumbing.
package indicator

import (
	"math"

	"github.com/argoquant/dexterio/internal/bar"
)

const defaultATRPeriod = 14

// ATR computes Wilder's Average True Range over the trailing period bars
// of candles (most recent last). Returns 0 if fewer than two bars are
// available.
func ATR(candles []bar.Bar, period int) float64 {
	if period <= 0 {
		period = defaultATRPeriod
	}

	if len(candles) < 2 {
		return 0
	}

	trueRanges := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		trueRanges = append(trueRanges, trueRange(candles[i], candles[i-1]))
	}

	n := len(trueRanges)
	if n > period {
		trueRanges = trueRanges[n-period:]
	}

	atr := trueRanges[0]
	alpha := 1.0 / float64(min(period, len(trueRanges)))

	for _, tr := range trueRanges[1:] {
		atr = atr + alpha*(tr-atr)
	}

	return atr
}

func trueRange(curr, prev bar.Bar) float64 {
	return math.Max(curr.High-curr.Low, math.Max(math.Abs(curr.High-prev.Close), math.Abs(curr.Low-prev.Close)))
}
