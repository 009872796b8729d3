package ict

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// detectBOS implements spec.md's "close beyond the last confirmed pivot".
func (e *Engine) detectBOS(candles []bar.Bar) (types.PatternDetection, bool) {
	pivotHighIdx, pivotHigh, hasHigh := lastConfirmedPivotHigh(candles)
	pivotLowIdx, pivotLow, hasLow := lastConfirmedPivotLow(candles)

	last := candles[len(candles)-1]

	if hasHigh && pivotHighIdx < len(candles)-1 && last.Close > pivotHigh {
		return types.NewICTDetection(types.ICTKindBOS, types.DirectionBullish, bosStrength(last, pivotHigh), e.tf, last.Timestamp, nil), true
	}

	if hasLow && pivotLowIdx < len(candles)-1 && last.Close < pivotLow {
		return types.NewICTDetection(types.ICTKindBOS, types.DirectionBearish, bosStrength(last, pivotLow), e.tf, last.Timestamp, nil), true
	}

	return types.PatternDetection{}, false
}

func bosStrength(last bar.Bar, pivot float64) float64 {
	rng := last.High - last.Low
	if rng <= 0 {
		return 0.5
	}

	dist := last.Close - pivot
	if dist < 0 {
		dist = -dist
	}

	return clamp01(0.5 + (dist/rng)*0.5)
}

// detectCHoCH implements spec.md's "BOS in direction opposite to the prior
// dominant swing": the current BOS direction must disagree with the
// structure implied by the prior (pre-BOS) pivot sequence.
func (e *Engine) detectCHoCH(candles []bar.Bar, bos types.PatternDetection) (types.PatternDetection, bool) {
	priorStructure := priorDominantDirection(candles[:len(candles)-1])
	if priorStructure == "" || priorStructure == bos.Direction {
		return types.PatternDetection{}, false
	}

	return types.NewICTDetection(types.ICTKindCHoCH, bos.Direction, bos.Strength, e.tf, bos.Ts, nil), true
}

func priorDominantDirection(candles []bar.Bar) types.Direction {
	hiIdx, _, hiOK := lastPivotHighIndex(candles)
	loIdx, _, loOK := lastPivotLowIndex(candles)

	if !hiOK && !loOK {
		return ""
	}

	if hiOK && (!loOK || hiIdx > loIdx) {
		return types.DirectionBearish
	}

	return types.DirectionBullish
}
