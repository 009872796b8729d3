package ict

import "github.com/argoquant/dexterio/internal/bar"

// pivotLookback mirrors marketstate's swing-pivot window so BOS/CHoCH use
// the same notion of a "confirmed pivot" as structure detection does.
const pivotLookback = 2

func lastPivotHighIndex(candles []bar.Bar) (idx int, value float64, ok bool) {
	for i := len(candles) - 1 - pivotLookback; i >= pivotLookback; i-- {
		if isPivotHigh(candles, i) {
			return i, candles[i].High, true
		}
	}

	return 0, 0, false
}

func lastPivotLowIndex(candles []bar.Bar) (idx int, value float64, ok bool) {
	for i := len(candles) - 1 - pivotLookback; i >= pivotLookback; i-- {
		if isPivotLow(candles, i) {
			return i, candles[i].Low, true
		}
	}

	return 0, 0, false
}

// lastConfirmedPivotHigh/Low are aliases kept separate from
// lastPivotHighIndex/lastPivotLowIndex for readability at call sites that
// care about "confirmed" (i.e. both neighbors present) pivots specifically.
func lastConfirmedPivotHigh(candles []bar.Bar) (idx int, value float64, ok bool) {
	return lastPivotHighIndex(candles)
}

func lastConfirmedPivotLow(candles []bar.Bar) (idx int, value float64, ok bool) {
	return lastPivotLowIndex(candles)
}

func isPivotHigh(candles []bar.Bar, i int) bool {
	for j := 1; j <= pivotLookback; j++ {
		if i-j < 0 || i+j >= len(candles) {
			return false
		}

		if candles[i].High <= candles[i-j].High || candles[i].High <= candles[i+j].High {
			return false
		}
	}

	return true
}

func isPivotLow(candles []bar.Bar, i int) bool {
	for j := 1; j <= pivotLookback; j++ {
		if i-j < 0 || i+j >= len(candles) {
			return false
		}

		if candles[i].Low >= candles[i-j].Low || candles[i].Low >= candles[i+j].Low {
			return false
		}
	}

	return true
}
