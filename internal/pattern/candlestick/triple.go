package candlestick

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// starSmallBodyFraction bounds the middle candle's body for it to count as
// the "star" of a morning/evening star.
const starSmallBodyFraction = 0.3

func (e *Engine) detectStars(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 3 {
		return types.PatternDetection{}, false
	}

	a, star, c := candles[len(candles)-3], candles[len(candles)-2], candles[len(candles)-1]
	aBody, _ := a.BodyRange()
	starBody, starRng := star.BodyRange()
	cBody, _ := c.BodyRange()

	if starRng <= 0 || starBody/starRng > starSmallBodyFraction {
		return types.PatternDetection{}, false
	}

	gappedDown := max(star.Open, star.Close) < min(a.Open, a.Close)
	gappedUp := min(star.Open, star.Close) > max(a.Open, a.Close)

	if a.Bearish() && gappedDown && c.Bullish() && cBody > aBody*0.5 {
		return newDetection(types.CandlestickStar, "morning_star", types.DirectionBullish, cBody/(aBody+1e-9), starBody/starRng, true, e.tf, c), true
	}

	if a.Bullish() && gappedUp && c.Bearish() && cBody > aBody*0.5 {
		return newDetection(types.CandlestickStar, "evening_star", types.DirectionBearish, cBody/(aBody+1e-9), starBody/starRng, true, e.tf, c), true
	}

	return types.PatternDetection{}, false
}

// threeMinBodyFraction is the minimum body-to-range ratio each of the
// three candles must have to count as soldiers/crows (not dojis).
const threeMinBodyFraction = 0.4

func (e *Engine) detectThreeSoldiersCrows(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 3 {
		return types.PatternDetection{}, false
	}

	c1, c2, c3 := candles[len(candles)-3], candles[len(candles)-2], candles[len(candles)-1]

	allBullish := c1.Bullish() && c2.Bullish() && c3.Bullish()
	allBearish := c1.Bearish() && c2.Bearish() && c3.Bearish()

	if !allBullish && !allBearish {
		return types.PatternDetection{}, false
	}

	for _, c := range []bar.Bar{c1, c2, c3} {
		body, rng := c.BodyRange()
		if rng <= 0 || body/rng < threeMinBodyFraction {
			return types.PatternDetection{}, false
		}
	}

	if allBullish && c2.Close > c1.Close && c3.Close > c2.Close && c2.Open > c1.Open && c3.Open > c2.Open {
		return newDetection(types.CandlestickThreeSoldiers, "three_white_soldiers", types.DirectionBullish, 1, 0, true, e.tf, c3), true
	}

	if allBearish && c2.Close < c1.Close && c3.Close < c2.Close && c2.Open < c1.Open && c3.Open < c2.Open {
		return newDetection(types.CandlestickThreeCrows, "three_black_crows", types.DirectionBearish, 1, 0, true, e.tf, c3), true
	}

	return types.PatternDetection{}, false
}

func (e *Engine) detectAbandonedBaby(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 3 {
		return types.PatternDetection{}, false
	}

	a, star, c := candles[len(candles)-3], candles[len(candles)-2], candles[len(candles)-1]
	starBody, starRng := star.BodyRange()

	if starRng <= 0 || starBody/starRng > starSmallBodyFraction {
		return types.PatternDetection{}, false
	}

	gappedDownIsolated := star.High < min(a.Open, a.Close) && star.High < min(c.Open, c.Close)
	gappedUpIsolated := star.Low > max(a.Open, a.Close) && star.Low > max(c.Open, c.Close)

	if a.Bearish() && gappedDownIsolated && c.Bullish() {
		return newDetection(types.CandlestickAbandonedBaby, "bullish_abandoned_baby", types.DirectionBullish, 1, starBody/starRng, true, e.tf, c), true
	}

	if a.Bullish() && gappedUpIsolated && c.Bearish() {
		return newDetection(types.CandlestickAbandonedBaby, "bearish_abandoned_baby", types.DirectionBearish, 1, starBody/starRng, true, e.tf, c), true
	}

	return types.PatternDetection{}, false
}
