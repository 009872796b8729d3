package marketstate

import (
	"time"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// defaultEqualLevelToleranceTicks and defaultTickSize follow spec.md's "configurable
// tick threshold" language; defaults grounded on original_source's
// LIQUIDITY_SWEEP_TICK_THRESHOLD (2 ticks on a $0.01 tick instrument).
const (
	defaultTickSize              = 0.01
	defaultSweepTickThreshold    = 2
	defaultEqualLevelToleranceTicks = 3
)

// buildLiquidityLevels recomputes a symbol's tracked LiquidityLevel set at the
// start of each session, per spec.md §4.2 ("recomputed at start of each
// session"). Previously-swept levels are dropped on recompute since a
// fresh session invalidates stale sweep context; levels created within the
// current session persist across intra-session recompute calls via the
// caller-held carry-forward in Engine.
func buildLiquidityLevels(symbol string, ts time.Time, daily []bar.Bar, oneMin []bar.Bar) []types.LiquidityLevel {
	var levels []types.LiquidityLevel

	if len(daily) >= 1 {
		prevDay := daily[len(daily)-1]
		levels = append(levels,
			types.LiquidityLevel{Price: prevDay.High, Kind: types.LiquidityPDH, CreatedTs: ts},
			types.LiquidityLevel{Price: prevDay.Low, Kind: types.LiquidityPDL, CreatedTs: ts},
		)
	}

	if hi, lo, ok := sessionExtremes(oneMin, ts, types.SessionAsia); ok {
		levels = append(levels,
			types.LiquidityLevel{Price: hi, Kind: types.LiquidityAsiaHigh, CreatedTs: ts},
			types.LiquidityLevel{Price: lo, Kind: types.LiquidityAsiaLow, CreatedTs: ts},
		)
	}

	if hi, lo, ok := sessionExtremes(oneMin, ts, types.SessionLondon); ok {
		levels = append(levels,
			types.LiquidityLevel{Price: hi, Kind: types.LiquidityLondonHigh, CreatedTs: ts},
			types.LiquidityLevel{Price: lo, Kind: types.LiquidityLondonLow, CreatedTs: ts},
		)
	}

	levels = append(levels, equalLevels(oneMin, ts)...)
	levels = append(levels, trendlineLevel(oneMin, ts)...)

	return levels
}

// sessionExtremes scans the 1m window for the most recent contiguous run
// of bars in the given session (today's occurrence, or the last completed
// one if today's hasn't happened yet) and returns its high/low.
func sessionExtremes(oneMin []bar.Bar, ts time.Time, session types.Session) (hi, lo float64, ok bool) {
	today := CalendarDayET(ts)

	var inRun bool

	for i := len(oneMin) - 1; i >= 0; i-- {
		b := oneMin[i]
		if CalendarDayET(b.Timestamp).Before(today.AddDate(0, 0, -1)) {
			break
		}

		if SessionAt(b.Timestamp) == session {
			if !inRun {
				hi, lo = b.High, b.Low
				inRun = true
				ok = true
			} else {
				hi = max(hi, b.High)
				lo = min(lo, b.Low)
			}
		} else if inRun {
			break
		}
	}

	return hi, lo, ok
}

// equalLevels detects approximately-equal recent swing highs/lows within a
// tick tolerance, a simplified grounding of the spec's equal_highs /
// equal_lows liquidity kind (original_source's fuller implementation also
// weighs how many touches share the level; here two touches are enough).
func equalLevels(oneMin []bar.Bar, ts time.Time) []types.LiquidityLevel {
	highs := swingHighs(oneMin)
	lows := swingLows(oneMin)
	tol := defaultTickSize * defaultEqualLevelToleranceTicks

	var out []types.LiquidityLevel

	if lvl, ok := nearDuplicate(highs, tol); ok {
		out = append(out, types.LiquidityLevel{Price: lvl, Kind: types.LiquidityEqualHighs, CreatedTs: ts})
	}

	if lvl, ok := nearDuplicate(lows, tol); ok {
		out = append(out, types.LiquidityLevel{Price: lvl, Kind: types.LiquidityEqualLows, CreatedTs: ts})
	}

	return out
}

func nearDuplicate(vals []float64, tol float64) (float64, bool) {
	for i := len(vals) - 1; i > 0; i-- {
		for j := i - 1; j >= 0 && j >= i-4; j-- {
			if absf(vals[i]-vals[j]) <= tol {
				return (vals[i] + vals[j]) / 2, true
			}
		}
	}

	return 0, false
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// trendlineLevel projects the line between the two most recent swing lows
// (an ascending trendline) forward to the current bar; a simplified
// grounding of the spec's trendline liquidity kind, limited to the
// dominant ascending case since a full two-sided trendline tracker is
// beyond the detector granularity the rest of this engine uses.
func trendlineLevel(oneMin []bar.Bar, ts time.Time) []types.LiquidityLevel {
	lowIdx := swingLowIndices(oneMin)
	if len(lowIdx) < 2 {
		return nil
	}

	i1, i2 := lowIdx[len(lowIdx)-2], lowIdx[len(lowIdx)-1]
	p1, p2 := oneMin[i1].Low, oneMin[i2].Low

	if i2 == i1 {
		return nil
	}

	slope := (p2 - p1) / float64(i2-i1)
	projected := p2 + slope*float64(len(oneMin)-1-i2)

	return []types.LiquidityLevel{{Price: projected, Kind: types.LiquidityTrendline, CreatedTs: ts}}
}

func swingLowIndices(candles []bar.Bar) []int {
	var out []int

	for i := pivotLookback; i < len(candles)-pivotLookback; i++ {
		isPivot := true

		for j := 1; j <= pivotLookback; j++ {
			if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
				isPivot = false
				break
			}
		}

		if isPivot {
			out = append(out, i)
		}
	}

	return out
}

// ApplySweep mutates levels in place, setting Swept=true on every unswept
// level this bar's wick pierces by at least the tick threshold, per spec.md §4.2
// / §4.3.1's sweep definition (long-side: high pierces above; short-side:
// low pierces below).
func ApplySweep(levels []types.LiquidityLevel, b bar.Bar, tickThreshold float64) {
	for i := range levels {
		lvl := &levels[i]
		if lvl.Swept {
			continue
		}

		switch lvl.Kind {
		case types.LiquidityPDH, types.LiquidityAsiaHigh, types.LiquidityLondonHigh, types.LiquidityEqualHighs:
			if b.High >= lvl.Price+tickThreshold {
				lvl.Sweep(b.Timestamp)
			}
		case types.LiquidityPDL, types.LiquidityAsiaLow, types.LiquidityLondonLow, types.LiquidityEqualLows:
			if b.Low <= lvl.Price-tickThreshold {
				lvl.Sweep(b.Timestamp)
			}
		case types.LiquidityTrendline:
			if b.Low <= lvl.Price-tickThreshold || b.High >= lvl.Price+tickThreshold {
				lvl.Sweep(b.Timestamp)
			}
		}
	}
}
