package candlestick

import (
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

func (e *Engine) detectEngulfing(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 2 {
		return types.PatternDetection{}, false
	}

	prev, cur := candles[len(candles)-2], candles[len(candles)-1]
	prevBody, _ := prev.BodyRange()
	curBody, curRng := cur.BodyRange()

	if curBody <= prevBody || curRng <= 0 {
		return types.PatternDetection{}, false
	}

	if cur.Bullish() && prev.Bearish() && cur.Open <= prev.Close && cur.Close >= prev.Open {
		return newDetection(types.CandlestickEngulfing, "bullish_engulfing", types.DirectionBullish, curBody/curRng, curBody/curRng, true, e.tf, cur), true
	}

	if cur.Bearish() && prev.Bullish() && cur.Open >= prev.Close && cur.Close <= prev.Open {
		return newDetection(types.CandlestickEngulfing, "bearish_engulfing", types.DirectionBearish, curBody/curRng, curBody/curRng, true, e.tf, cur), true
	}

	return types.PatternDetection{}, false
}

// haramiContainmentFraction is how much smaller the second candle's body
// must be relative to the first's to count as "contained".
const haramiContainmentFraction = 0.6

func (e *Engine) detectHarami(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 2 {
		return types.PatternDetection{}, false
	}

	prev, cur := candles[len(candles)-2], candles[len(candles)-1]
	prevBody, _ := prev.BodyRange()
	curBody, curRng := cur.BodyRange()

	if prevBody <= 0 || curBody/prevBody > haramiContainmentFraction {
		return types.PatternDetection{}, false
	}

	prevTop, prevBottom := max(prev.Open, prev.Close), min(prev.Open, prev.Close)
	curTop, curBottom := max(cur.Open, cur.Close), min(cur.Open, cur.Close)

	if curTop > prevTop || curBottom < prevBottom {
		return types.PatternDetection{}, false
	}

	dir := types.DirectionBullish
	if prev.Bullish() {
		dir = types.DirectionBearish
	}

	strength := 0.0
	if curRng > 0 {
		strength = 1 - curBody/prevBody
	}

	return newDetection(types.CandlestickHarami, "harami", dir, strength, curBody/prevBody, false, e.tf, cur), true
}

// pierceFraction is the minimum retracement into the prior candle's body
// required to count as piercing/dark cloud (classically >50%).
const pierceFraction = 0.5

func (e *Engine) detectPiercingDarkCloud(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 2 {
		return types.PatternDetection{}, false
	}

	prev, cur := candles[len(candles)-2], candles[len(candles)-1]
	prevBody, _ := prev.BodyRange()

	if prevBody <= 0 {
		return types.PatternDetection{}, false
	}

	prevMid := (prev.Open + prev.Close) / 2

	if prev.Bearish() && cur.Bullish() && cur.Open < prev.Close && cur.Close > prevMid && cur.Close < prev.Open {
		retrace := (cur.Close - prev.Close) / prevBody
		return newDetection(types.CandlestickPiercing, "piercing_line", types.DirectionBullish, retrace, retrace, true, e.tf, cur), true
	}

	if prev.Bullish() && cur.Bearish() && cur.Open > prev.Close && cur.Close < prevMid && cur.Close > prev.Open {
		retrace := (prev.Close - cur.Close) / prevBody
		return newDetection(types.CandlestickDarkCloud, "dark_cloud_cover", types.DirectionBearish, retrace, retrace, true, e.tf, cur), true
	}

	return types.PatternDetection{}, false
}

// tweezerTolerance bounds how close two extremes must be to count as a
// tweezer top/bottom.
const tweezerTolerance = 0.03

func (e *Engine) detectTweezer(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 2 {
		return types.PatternDetection{}, false
	}

	prev, cur := candles[len(candles)-2], candles[len(candles)-1]
	_, curRng := cur.BodyRange()

	if curRng <= 0 {
		return types.PatternDetection{}, false
	}

	if absf(prev.High-cur.High)/curRng <= tweezerTolerance && prev.Bullish() && cur.Bearish() {
		return newDetection(types.CandlestickTweezer, "tweezer_top", types.DirectionBearish, 1-absf(prev.High-cur.High)/curRng, 0, true, e.tf, cur), true
	}

	if absf(prev.Low-cur.Low)/curRng <= tweezerTolerance && prev.Bearish() && cur.Bullish() {
		return newDetection(types.CandlestickTweezer, "tweezer_bottom", types.DirectionBullish, 1-absf(prev.Low-cur.Low)/curRng, 0, true, e.tf, cur), true
	}

	return types.PatternDetection{}, false
}

func (e *Engine) detectKicker(candles []bar.Bar) (types.PatternDetection, bool) {
	if len(candles) < 2 {
		return types.PatternDetection{}, false
	}

	prev, cur := candles[len(candles)-2], candles[len(candles)-1]
	prevBody, _ := prev.BodyRange()
	curBody, _ := cur.BodyRange()

	if prevBody <= 0 || curBody <= 0 {
		return types.PatternDetection{}, false
	}

	if prev.Bearish() && cur.Bullish() && cur.Open > prev.Open && cur.Low >= prev.Open {
		return newDetection(types.CandlestickKicker, "bullish_kicker", types.DirectionBullish, 1, curBody, true, e.tf, cur), true
	}

	if prev.Bullish() && cur.Bearish() && cur.Open < prev.Open && cur.High <= prev.Open {
		return newDetection(types.CandlestickKicker, "bearish_kicker", types.DirectionBearish, 1, curBody, true, e.tf, cur), true
	}

	return types.PatternDetection{}, false
}
