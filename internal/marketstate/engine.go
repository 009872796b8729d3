// Package marketstate derives the per-symbol, per-bar MarketState snapshot
// from the Timeframe Aggregator's current HTF windows, per spec.md §4.2.
package marketstate

import (
	"time"

	"github.com/argoquant/dexterio/internal/aggregator"
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

type symbolCache struct {
	fingerprint types.Fingerprint
	state       types.MarketState
	valid       bool

	liquidityLevels []types.LiquidityLevel
	lastSession     types.Session
}

// Engine computes and caches MarketState snapshots. Not safe for
// concurrent use across symbols; the simulation pipeline is single
// threaded per spec.md §5, so this is not a constraint in practice.
type Engine struct {
	agg           *aggregator.Aggregator
	sweepTickSize float64
	cache         map[string]*symbolCache
}

// New creates a Engine bound to the given aggregator.
func New(agg *aggregator.Aggregator, sweepTickSize float64) *Engine {
	if sweepTickSize <= 0 {
		sweepTickSize = defaultTickSize * defaultSweepTickThreshold
	}

	return &Engine{agg: agg, sweepTickSize: sweepTickSize, cache: make(map[string]*symbolCache)}
}

func (e *Engine) cacheFor(symbol string) *symbolCache {
	c, ok := e.cache[symbol]
	if !ok {
		c = &symbolCache{}
		e.cache[symbol] = c
	}

	return c
}

func (e *Engine) fingerprint(symbol string) types.Fingerprint {
	fp := types.Fingerprint{Symbol: symbol}
	fp.LastTs5m, _ = e.agg.LastTs(symbol, types.TF5m)
	fp.LastTs15m, _ = e.agg.LastTs(symbol, types.TF15m)
	fp.LastTs1h, _ = e.agg.LastTs(symbol, types.TF1h)
	fp.LastTs4h, _ = e.agg.LastTs(symbol, types.TF4h)
	fp.LastTs1d, _ = e.agg.LastTs(symbol, types.TF1d)

	return fp
}

// Compute derives (or returns the cached) MarketState for symbol at ts.
// todaysPatterns must be the ICT detections produced so far today (for
// day_type's sweep/BOS derivation); patterns are owned by the bar that
// produced them per spec.md §3, so the caller accumulates and slices them.
func (e *Engine) Compute(symbol string, ts time.Time, todaysPatterns []types.PatternDetection) types.MarketState {
	c := e.cacheFor(symbol)

	daily := e.agg.Window(symbol, types.TF1d)
	oneMin := e.agg.Window(symbol, types.TF1m)
	session := SessionAt(ts)

	// Liquidity levels and their sweep state are refreshed/applied on
	// every bar regardless of the structure cache, since a 1m bar can
	// sweep a level without closing any HTF bucket.
	e.refreshLiquidity(c, symbol, ts, session, daily, oneMin)
	if len(oneMin) > 0 {
		ApplySweep(c.liquidityLevels, oneMin[len(oneMin)-1], e.sweepTickSize)
	}

	fp := e.fingerprint(symbol)
	if !c.valid || c.fingerprint != fp {
		h4 := e.agg.Window(symbol, types.TF4h)
		h1 := e.agg.Window(symbol, types.TF1h)

		dailyStructure := detectStructure(daily)
		h4Structure := detectStructure(h4)

		c.state = types.MarketState{
			Symbol:         symbol,
			DailyStructure: dailyStructure,
			H4Structure:    h4Structure,
			H1Structure:    detectStructure(h1),
			Bias:           deriveBias(dailyStructure, h4Structure),
		}
		c.fingerprint = fp
		c.valid = true
	}

	out := c.state
	out.Ts = ts
	out.Session = session
	out.DayType = deriveDayType(out.DailyStructure, ts, todaysPatterns)
	out.LiquidityLevels = c.liquidityLevels

	return out
}

// refreshLiquidity recomputes c's tracked levels whenever the session has
// just changed, per spec.md §4.2 ("recomputed at start of each session");
// within a session the previously computed levels (and their sweep state)
// carry forward unchanged.
func (e *Engine) refreshLiquidity(c *symbolCache, symbol string, ts time.Time, session types.Session, daily, oneMin []bar.Bar) {
	if c.lastSession == session && c.liquidityLevels != nil {
		return
	}

	c.lastSession = session
	c.liquidityLevels = buildLiquidityLevels(symbol, ts, daily, oneMin)
}

func deriveBias(daily, h4 types.Structure) types.Bias {
	switch {
	case daily == types.StructureUptrend && h4 == types.StructureUptrend:
		return types.BiasBullish
	case daily == types.StructureDowntrend && h4 == types.StructureDowntrend:
		return types.BiasBearish
	default:
		return types.BiasNeutral
	}
}

// deriveDayType implements spec.md §4.2: range if daily_structure is
// range; manipulation_reversal if today saw a sweep followed by a BOS in
// the opposite direction; trend if daily_structure is directional and
// today saw >=2 BOS in that direction; else unknown.
func deriveDayType(daily types.Structure, ts time.Time, todaysPatterns []types.PatternDetection) types.DayType {
	if daily == types.StructureRange {
		return types.DayTypeRange
	}

	if hasManipulationReversal(todaysPatterns) {
		return types.DayTypeManipulationReversal
	}

	if daily == types.StructureUptrend || daily == types.StructureDowntrend {
		want := types.DirectionBullish
		if daily == types.StructureDowntrend {
			want = types.DirectionBearish
		}

		if countBOS(todaysPatterns, want) >= 2 {
			return types.DayTypeTrend
		}
	}

	return types.DayTypeUnknown
}

func hasManipulationReversal(patterns []types.PatternDetection) bool {
	for i, p := range patterns {
		if !p.IsICT() || p.ICTKind != types.ICTKindSweep {
			continue
		}

		opposite := p.Direction.Opposite()

		for _, later := range patterns[i+1:] {
			if later.IsICT() && later.ICTKind == types.ICTKindBOS && later.Direction == opposite {
				return true
			}
		}
	}

	return false
}

func countBOS(patterns []types.PatternDetection, dir types.Direction) int {
	count := 0

	for _, p := range patterns {
		if p.IsICT() && p.ICTKind == types.ICTKindBOS && p.Direction == dir {
			count++
		}
	}

	return count
}
