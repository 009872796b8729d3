// Package setup synthesizes matched playbooks into concrete Setup
// objects, per spec.md §4.5.
package setup

import (
	"time"

	"github.com/google/uuid"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/pattern/ict"
	"github.com/argoquant/dexterio/internal/playbook"
	"github.com/argoquant/dexterio/internal/types"
)

// tickBuffer is added beyond the triggering pattern's invalidation price
// when placing the stop, grounded on original_source's STOP_BUFFER_TICKS.
const tickBuffer = 0.02

// defaultMinRR is spec.md §4.5's per-trade-type minimum reward:risk.
var defaultMinRR = map[types.TradeType]float64{
	types.TradeTypeScalp: 1.5,
	types.TradeTypeDaily: 2.0,
}

// OpenPositionChecker reports whether an open position already exists for
// (symbol, direction), backing spec.md's duplicate-suppression rule.
type OpenPositionChecker func(symbol string, direction types.Direction) bool

// Engine synthesizes Setup objects from PlaybookMatch lists.
type Engine struct {
	categoryOf map[string]types.PlaybookCategory
	hasOpen    OpenPositionChecker
}

// New creates a setup Engine. catalog is used to resolve each playbook's
// category for the SCALP-before-DAYTRADE tie-break and for TradeType.
func New(catalog []types.Playbook, hasOpen OpenPositionChecker) *Engine {
	categoryOf := make(map[string]types.PlaybookCategory, len(catalog))
	for _, pb := range catalog {
		categoryOf[pb.Name] = pb.Category
	}

	return &Engine{categoryOf: categoryOf, hasOpen: hasOpen}
}

// Input bundles the per-bar context the Setup Engine needs beyond the
// matches themselves.
type Input struct {
	Symbol         string
	Ts             time.Time
	Bar            bar.Bar
	Candles1m      []bar.Bar
	State          types.MarketState
	ICTPatterns    []types.PatternDetection
	CandlePatterns []types.PatternDetection
	Matches        []types.PlaybookMatch
}

// Synthesize implements spec.md §4.5: selects the single highest-graded
// match (spec's tie-break order), builds the Setup, and returns nil if
// there is no match or an open position already exists for this
// (symbol, direction).
func (e *Engine) Synthesize(in Input) *types.Setup {
	matched := matchesOnly(in.Matches)
	if len(matched) == 0 {
		return nil
	}

	playbook.SortMatches(matched, e.categoryOf)
	best := matched[0]

	if e.hasOpen != nil && e.hasOpen(in.Symbol, best.Direction) {
		return nil
	}

	tradeType := e.categoryOf[best.PlaybookName].TradeType()

	entry, anchor := e.entryPrice(best.Direction, in)
	stop := e.stopPrice(best.Direction, entry, in)
	tp1, tp2, rr := e.targets(best.Direction, entry, stop, tradeType, in.State)

	if rr < defaultMinRR[tradeType] {
		return nil
	}

	confluences := buildConfluences(in.ICTPatterns, in.CandlePatterns, in.State)

	return &types.Setup{
		ID:               uuid.New().String(),
		Ts:               in.Ts,
		Symbol:           in.Symbol,
		Direction:        best.Direction,
		Quality:          best.Grade,
		FinalScore:       best.Score,
		TradeType:        tradeType,
		Entry:            entry,
		AnchorPrice:       anchor,
		Stop:             stop,
		TP1:              tp1,
		TP2:              tp2,
		RiskReward:       rr,
		MarketBias:       in.State.Bias,
		Session:          in.State.Session,
		DayType:          in.State.DayType,
		DailyStructure:   in.State.DailyStructure,
		ConfluencesCount: countTrue(confluences),
		Confluences:      confluences,
		PlaybookMatches:  matched,
		ICTPatterns:      in.ICTPatterns,
		PlaybookName:     best.PlaybookName,
	}
}

func matchesOnly(matches []types.PlaybookMatch) []types.PlaybookMatch {
	out := make([]types.PlaybookMatch, 0, len(matches))

	for _, m := range matches {
		if m.Matched() {
			out = append(out, m)
		}
	}

	return out
}

// entryPrice is the current bar's close, or the FVG mid anchor when the
// triggering pattern set includes a same-direction FVG, per spec.md §4.5
// ("the configured anchor price inside an FVG mid").
func (e *Engine) entryPrice(dir types.Direction, in Input) (entry, anchor float64) {
	entry = in.Bar.Close

	for _, p := range in.ICTPatterns {
		if p.IsICT() && p.ICTKind == types.ICTKindFVG && p.Direction == dir {
			if _, _, mid, ok := ict.FVGBounds(in.Candles1m, dir); ok {
				return mid, mid
			}
		}
	}

	return entry, entry
}

func (e *Engine) stopPrice(dir types.Direction, entry float64, in Input) float64 {
	invalidation := e.invalidationPrice(dir, in)
	if invalidation == 0 {
		if dir == types.DirectionBullish {
			return entry - tickBuffer*10
		}

		return entry + tickBuffer*10
	}

	if dir == types.DirectionBullish {
		return invalidation - tickBuffer
	}

	return invalidation + tickBuffer
}

// invalidationPrice returns the price of the first swept liquidity level on
// the side against the setup's direction (a swept low for a bullish setup,
// a swept high for a bearish one), or 0 when no such level is swept.
// Unswept levels and BOS/FVG/order-block detections are not consulted; on 0,
// stopPrice places the stop tickBuffer*10 from entry.
func (e *Engine) invalidationPrice(dir types.Direction, in Input) float64 {
	for _, lvl := range in.State.LiquidityLevels {
		if !lvl.Swept {
			continue
		}

		if dir == types.DirectionBullish && isLowKind(lvl.Kind) {
			return lvl.Price
		}

		if dir == types.DirectionBearish && isHighKind(lvl.Kind) {
			return lvl.Price
		}
	}

	return 0
}

func isHighKind(k types.LiquidityKind) bool {
	switch k {
	case types.LiquidityPDH, types.LiquidityAsiaHigh, types.LiquidityLondonHigh, types.LiquidityEqualHighs:
		return true
	default:
		return false
	}
}

func isLowKind(k types.LiquidityKind) bool {
	switch k {
	case types.LiquidityPDL, types.LiquidityAsiaLow, types.LiquidityLondonLow, types.LiquidityEqualLows:
		return true
	default:
		return false
	}
}

// targets picks tp1 as the nearest opposite-side untouched liquidity
// level that respects the trade type's minimum R:R, and tp2 as the next
// farther one (or a 2x extension of tp1's distance if none exists), per
// spec.md §4.5.
func (e *Engine) targets(dir types.Direction, entry, stop float64, tradeType types.TradeType, state types.MarketState) (tp1, tp2, rr float64) {
	risk := absf(entry - stop)
	if risk <= 0 {
		return 0, 0, 0
	}

	candidates := oppositeLevels(dir, entry, state.LiquidityLevels)

	minRR := defaultMinRR[tradeType]
	minDistance := risk * minRR

	tp1 = extendFrom(entry, dir, minDistance)
	for _, lvl := range candidates {
		if dir == types.DirectionBullish && lvl > entry && lvl-entry >= minDistance {
			tp1 = lvl
			break
		}

		if dir == types.DirectionBearish && lvl < entry && entry-lvl >= minDistance {
			tp1 = lvl
			break
		}
	}

	tp2 = extendFrom(entry, dir, absf(tp1-entry)*2)
	for _, lvl := range candidates {
		if dir == types.DirectionBullish && lvl > tp1 {
			tp2 = lvl
			break
		}

		if dir == types.DirectionBearish && lvl < tp1 {
			tp2 = lvl
			break
		}
	}

	rr = absf(tp1-entry) / risk

	return tp1, tp2, rr
}

func extendFrom(entry float64, dir types.Direction, distance float64) float64 {
	if dir == types.DirectionBullish {
		return entry + distance
	}

	return entry - distance
}

func oppositeLevels(dir types.Direction, entry float64, levels []types.LiquidityLevel) []float64 {
	var out []float64

	for _, lvl := range levels {
		if lvl.Swept {
			continue
		}

		if dir == types.DirectionBullish && isHighKind(lvl.Kind) && lvl.Price > entry {
			out = append(out, lvl.Price)
		}

		if dir == types.DirectionBearish && isLowKind(lvl.Kind) && lvl.Price < entry {
			out = append(out, lvl.Price)
		}
	}

	sortAscending(out)

	if dir == types.DirectionBearish {
		reverse(out)
	}

	return out
}

func sortAscending(vals []float64) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && vals[j-1] > vals[j]; j-- {
			vals[j-1], vals[j] = vals[j], vals[j-1]
		}
	}
}

func reverse(vals []float64) {
	for i, j := 0, len(vals)-1; i < j; i, j = i+1, j-1 {
		vals[i], vals[j] = vals[j], vals[i]
	}
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// buildConfluences instruments which corroborating signals backed this
// setup, grounded on original_source's paper_trading.py confluences dict
// (SPEC_FULL §3).
func buildConfluences(ictPatterns, candlePatterns []types.PatternDetection, state types.MarketState) map[string]bool {
	out := map[string]bool{
		"sweep":          false,
		"bos":            false,
		"fvg":            false,
		"pattern":        len(candlePatterns) > 0,
		"htf_alignment":  state.Bias != types.BiasNeutral,
	}

	for _, p := range ictPatterns {
		switch p.ICTKind {
		case types.ICTKindSweep:
			out["sweep"] = true
		case types.ICTKindBOS:
			out["bos"] = true
		case types.ICTKindFVG:
			out["fvg"] = true
		}
	}

	return out
}

func countTrue(m map[string]bool) int {
	n := 0

	for _, v := range m {
		if v {
			n++
		}
	}

	return n
}
