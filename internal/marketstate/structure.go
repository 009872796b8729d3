package marketstate

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// pivotLookback is the number of bars on each side a candle must beat to
// count as a swing pivot, grounded on
// original_source/backend/engines/market_state_engine.py's swing detector.
const pivotLookback = 2

// minCandlesForStructure is the floor below which structure is undefined,
// per spec.md §4.2 ("undefined if fewer than 20 candles").
const minCandlesForStructure = 20

// structureScoreThreshold is the fraction of consecutive higher-high/
// higher-low (or lower-high/lower-low) pivot pairs required to declare a
// trend rather than a range.
const structureScoreThreshold = 0.6

// maxPivotsConsidered bounds how many of the most recent pivots feed the
// trend score, keeping the function's cost bounded on large windows.
const maxPivotsConsidered = 6

// detectStructure implements spec.md §4.2's detect_structure(candles):
// undefined below 20 candles; otherwise pivot highs/lows are compared for
// dominance of higher-highs+higher-lows (uptrend) or lower-highs+lower-lows
// (downtrend); otherwise range. Deterministic on the candle sequence.
func detectStructure(candles []bar.Bar) types.Structure {
	if len(candles) < minCandlesForStructure {
		return types.StructureUnknown
	}

	pivotHighs := swingHighs(candles)
	pivotLows := swingLows(candles)

	if len(pivotHighs) < 2 || len(pivotLows) < 2 {
		return types.StructureRange
	}

	pivotHighs = lastN(pivotHighs, maxPivotsConsidered)
	pivotLows = lastN(pivotLows, maxPivotsConsidered)

	highsUpScore := monotonicScore(pivotHighs, true)
	lowsUpScore := monotonicScore(pivotLows, true)
	highsDownScore := monotonicScore(pivotHighs, false)
	lowsDownScore := monotonicScore(pivotLows, false)

	switch {
	case highsUpScore >= structureScoreThreshold && lowsUpScore >= structureScoreThreshold:
		return types.StructureUptrend
	case highsDownScore >= structureScoreThreshold && lowsDownScore >= structureScoreThreshold:
		return types.StructureDowntrend
	default:
		return types.StructureRange
	}
}

func swingHighs(candles []bar.Bar) []float64 {
	var out []float64

	for i := pivotLookback; i < len(candles)-pivotLookback; i++ {
		isPivot := true

		for j := 1; j <= pivotLookback; j++ {
			if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
				isPivot = false
				break
			}
		}

		if isPivot {
			out = append(out, candles[i].High)
		}
	}

	return out
}

func swingLows(candles []bar.Bar) []float64 {
	var out []float64

	for i := pivotLookback; i < len(candles)-pivotLookback; i++ {
		isPivot := true

		for j := 1; j <= pivotLookback; j++ {
			if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
				isPivot = false
				break
			}
		}

		if isPivot {
			out = append(out, candles[i].Low)
		}
	}

	return out
}

func lastN(vals []float64, n int) []float64 {
	if len(vals) <= n {
		return vals
	}

	return vals[len(vals)-n:]
}

// monotonicScore returns the fraction of consecutive pairs that rise
// (ascending=true) or fall (ascending=false).
func monotonicScore(vals []float64, ascending bool) float64 {
	if len(vals) < 2 {
		return 0
	}

	hits := 0

	for i := 1; i < len(vals); i++ {
		if ascending && vals[i] > vals[i-1] {
			hits++
		} else if !ascending && vals[i] < vals[i-1] {
			hits++
		}
	}

	return float64(hits) / float64(len(vals)-1)
}
