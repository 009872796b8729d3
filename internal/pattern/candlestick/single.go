package candlestick

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// marubozuWickFraction is the maximum combined wick-to-range fraction for
// a candle to count as a marubozu (near-zero wicks).
const marubozuWickFraction = 0.05

func (e *Engine) detectMarubozu(candles []bar.Bar) (types.PatternDetection, bool) {
	b := candles[len(candles)-1]
	body, rng := b.BodyRange()

	if rng <= 0 || body/rng < 1-marubozuWickFraction {
		return types.PatternDetection{}, false
	}

	dir := types.DirectionBullish
	if b.Bearish() {
		dir = types.DirectionBearish
	}

	return newDetection(types.CandlestickMarubozu, "marubozu", dir, body/rng, body/rng, true, e.tf, b), true
}

// dojiBodyFraction is the maximum body-to-range ratio for a doji.
const dojiBodyFraction = 0.1

func (e *Engine) detectDoji(candles []bar.Bar) (types.PatternDetection, bool) {
	b := candles[len(candles)-1]
	body, rng := b.BodyRange()

	if rng <= 0 || body/rng > dojiBodyFraction {
		return types.PatternDetection{}, false
	}

	dir := types.DirectionBullish
	if b.Close < b.Open {
		dir = types.DirectionBearish
	}

	return newDetection(types.CandlestickDoji, "doji", dir, 1-body/rng, body/rng, false, e.tf, b), true
}

// hammerBodyFraction/wickRatio follow the classic hammer geometry: a small
// body in the upper third of the range with a lower wick at least twice
// the body.
const (
	hammerBodyFraction = 0.35
	hammerWickRatio    = 2.0
)

func (e *Engine) detectHammerShootingStar(candles []bar.Bar) (types.PatternDetection, bool) {
	b := candles[len(candles)-1]
	body, rng := b.BodyRange()

	if rng <= 0 || body/rng > hammerBodyFraction || body == 0 {
		return types.PatternDetection{}, false
	}

	bodyTop := max(b.Open, b.Close)
	bodyBottom := min(b.Open, b.Close)
	lowerWick := bodyBottom - b.Low
	upperWick := b.High - bodyTop

	if lowerWick >= body*hammerWickRatio && upperWick < body {
		return newDetection(types.CandlestickHammer, "hammer", types.DirectionBullish, lowerWick/rng, body/rng, true, e.tf, b), true
	}

	if upperWick >= body*hammerWickRatio && lowerWick < body {
		return newDetection(types.CandlestickShootingStar, "shooting_star", types.DirectionBearish, upperWick/rng, body/rng, true, e.tf, b), true
	}

	return types.PatternDetection{}, false
}

// beltHoldBodyFraction is the minimum body-to-range ratio and
// beltHoldOppositeWickFraction bounds the wick on the "held" side.
const (
	beltHoldBodyFraction         = 0.7
	beltHoldOppositeWickFraction = 0.05
)

func (e *Engine) detectBeltHold(candles []bar.Bar) (types.PatternDetection, bool) {
	b := candles[len(candles)-1]
	body, rng := b.BodyRange()

	if rng <= 0 || body/rng < beltHoldBodyFraction {
		return types.PatternDetection{}, false
	}

	if b.Bullish() && (b.Open-b.Low)/rng <= beltHoldOppositeWickFraction {
		return newDetection(types.CandlestickBeltHold, "belt_hold_bullish", types.DirectionBullish, body/rng, body/rng, true, e.tf, b), true
	}

	if b.Bearish() && (b.High-b.Open)/rng <= beltHoldOppositeWickFraction {
		return newDetection(types.CandlestickBeltHold, "belt_hold_bearish", types.DirectionBearish, body/rng, body/rng, true, e.tf, b), true
	}

	return types.PatternDetection{}, false
}
