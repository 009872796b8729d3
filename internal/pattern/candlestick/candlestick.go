// Package candlestick detects the fixed family of candlestick patterns
// listed in spec.md §4.3.2, purely geometric on the last 1-3 candles of a
// timeframe. Detection style (small pure functions over body/range ratios
// returning a strength in [0,1]) follows the teacher's
// internal/indicator package.
package candlestick

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// afterSweepLookback is "the last K bars" spec.md's after_sweep flag scans
// for a preceding sweep detection.
const afterSweepLookback = 5

// levelTolerance is how close the last close must be to a tracked level's
// price, in price units, to set at_level.
const levelTolerance = 0.05

// Engine detects candlestick patterns on a single timeframe's window.
type Engine struct {
	tf types.Timeframe
}

// New creates a candlestick Engine bound to the given timeframe.
func New(tf types.Timeframe) *Engine {
	return &Engine{tf: tf}
}

// Detect evaluates every pattern family against candles (oldest-first) and
// tags each detection's at_level/after_sweep flags from levels and
// recentPatterns (earlier ICT detections; a sweep stamped within the last
// afterSweepLookback bars of candles sets after_sweep), per spec.md §4.3.2.
func (e *Engine) Detect(candles []bar.Bar, levels []types.LiquidityLevel, recentPatterns []types.PatternDetection) []types.PatternDetection {
	if len(candles) == 0 {
		return nil
	}

	var out []types.PatternDetection

	detectors := []func([]bar.Bar) (types.PatternDetection, bool){
		e.detectMarubozu,
		e.detectDoji,
		e.detectHammerShootingStar,
		e.detectBeltHold,
		e.detectEngulfing,
		e.detectHarami,
		e.detectPiercingDarkCloud,
		e.detectTweezer,
		e.detectKicker,
		e.detectStars,
		e.detectThreeSoldiersCrows,
		e.detectAbandonedBaby,
	}
	for _, d := range detectors {
		det, ok := d(candles)
		out = appendIf(out, det, ok)
	}

	last := candles[len(candles)-1]
	afterSweep := hasSweepWithin(candles, recentPatterns, afterSweepLookback)
	atLevel := isAtLevel(last, levels)

	for i := range out {
		out[i].AfterSweep = afterSweep
		out[i].AtLevel = atLevel
	}

	return out
}

func appendIf(out []types.PatternDetection, d types.PatternDetection, ok bool) []types.PatternDetection {
	if ok {
		return append(out, d)
	}

	return out
}

func hasSweepWithin(candles []bar.Bar, recentPatterns []types.PatternDetection, k int) bool {
	start := 0
	if len(candles) > k {
		start = len(candles) - k
	}

	cutoff := candles[start].Timestamp

	for _, p := range recentPatterns {
		if p.IsICT() && p.ICTKind == types.ICTKindSweep && !p.Ts.Before(cutoff) {
			return true
		}
	}

	return false
}

func isAtLevel(b bar.Bar, levels []types.LiquidityLevel) bool {
	for _, lvl := range levels {
		if absf(b.Close-lvl.Price) <= levelTolerance {
			return true
		}
	}

	return false
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}

	if v > 1 {
		return 1
	}

	return v
}

func newDetection(family types.CandlestickFamily, name string, dir types.Direction, strength, bodyRatio float64, confirmation bool, tf types.Timeframe, b bar.Bar) types.PatternDetection {
	return types.NewCandlestickDetection(family, name, dir, clamp01(strength), clamp01(bodyRatio), confirmation, false, false, tf, b.Timestamp)
}
