// Package ict detects Break of Structure, Change of Character, Fair Value
// Gap, liquidity sweep and order block patterns, per spec.md §4.3.1.
// Grounded on original_source/backend/engines/ict_pattern_engine.py for the
// exact geometric tests; the strength/scoring scale follows the teacher's
// indicator package convention of returning a float in [0,1].
package ict

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// Engine detects ICT patterns on a single timeframe's candle window.
type Engine struct {
	tf types.Timeframe
}

// New creates an ICT Engine bound to the given timeframe.
func New(tf types.Timeframe) *Engine {
	return &Engine{tf: tf}
}

// Detect evaluates the full set of ICT patterns against candles (the
// timeframe window, oldest-first) and the tracked liquidity levels,
// returning every detection present as of the last candle.
func (e *Engine) Detect(candles []bar.Bar, levels []types.LiquidityLevel) []types.PatternDetection {
	if len(candles) < 3 {
		return nil
	}

	var out []types.PatternDetection

	last := candles[len(candles)-1]

	if d, ok := e.detectBOS(candles); ok {
		out = append(out, d)

		if choch, ok := e.detectCHoCH(candles, d); ok {
			out = append(out, choch)
		}
	}

	out = append(out, e.detectFVG(candles)...)

	if d, ok := e.detectSweep(last, levels); ok {
		out = append(out, d)
	}

	if d, ok := e.detectOrderBlock(candles); ok {
		out = append(out, d)
	}

	return out
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
