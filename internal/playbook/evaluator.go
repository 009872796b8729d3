package playbook

import (
	"sort"
	"time"

	"github.com/argoquant/dexterio/internal/marketstate"
	"github.com/argoquant/dexterio/internal/types"
)

// NewsGate is the optional external collaborator for spec.md §4.4's
// "News/calendar gate (if wired; otherwise a pass-through with a recorded
// reason)". SPEC_FULL §2.2 wires this as an optional WASM-hosted
// predicate; nil means the documented pass-through.
type NewsGate func(pb types.Playbook, state types.MarketState, ts time.Time) (pass bool, reason types.GateRejectReason)

// Input bundles the per-bar context an Evaluator needs to score one
// playbook against, so Evaluate's signature stays stable as new context
// fields are added.
type Input struct {
	Symbol             string
	Ts                 time.Time
	State              types.MarketState
	ICTPatterns        []types.PatternDetection
	CandlePatterns     []types.PatternDetection
	ATR                float64
	Mode               types.TradingMode
	DefaultTimeWindows []types.TimeWindow
	NewsGate           NewsGate
}

// Evaluator matches playbooks against market state + patterns, per
// spec.md §4.4.
type Evaluator struct {
	catalog        []types.Playbook
	minATRFloor    float64
	bypasses       map[types.GateRejectReason]bool
}

// New creates an Evaluator over the given loaded catalog.
func New(catalog []types.Playbook, minATRFloor float64) *Evaluator {
	return &Evaluator{catalog: catalog, minATRFloor: minATRFloor, bypasses: AggressiveBypasses}
}

// Catalog returns the loaded playbooks, in catalog order.
func (e *Evaluator) Catalog() []types.Playbook {
	return e.catalog
}

// EvaluateAll evaluates every playbook in the catalog against in, per bar,
// producing exactly one PlaybookMatch (match or single-reason rejection)
// per playbook, per spec.md invariant 6.
func (e *Evaluator) EvaluateAll(in Input) []types.PlaybookMatch {
	out := make([]types.PlaybookMatch, 0, len(e.catalog))

	for _, pb := range e.catalog {
		out = append(out, e.Evaluate(pb, in))
	}

	return out
}

// Evaluate runs gating then scoring for one playbook.
func (e *Evaluator) Evaluate(pb types.Playbook, in Input) types.PlaybookMatch {
	bypassed := map[types.GateRejectReason]bool{}
	bypass := func(reason types.GateRejectReason) bool {
		if in.Mode == types.ModeAggressive && e.bypasses[reason] {
			bypassed[reason] = true
			return true
		}

		return false
	}

	if reason, ok := e.gateReject(pb, in); ok && !bypass(reason) {
		return types.PlaybookMatch{
			PlaybookName:   pb.Name,
			Symbol:         in.Symbol,
			Ts:             in.Ts,
			RejectedReason: reason,
			Components:     types.MatchComponents{Bypassed: bypassed},
		}
	}

	direction, ictScore, patternScore := e.patternScores(pb, in)
	contextScore := contextScore(pb, in.State)

	score := pb.ScoringWeights.ICT*ictScore + pb.ScoringWeights.Pattern*patternScore + pb.ScoringWeights.Context*contextScore

	if score < scoreMinimum && !bypass(types.GateRejectScoreBelowMin) {
		return types.PlaybookMatch{
			PlaybookName:   pb.Name,
			Symbol:         in.Symbol,
			Ts:             in.Ts,
			RejectedReason: types.GateRejectScoreBelowMin,
			Components:     types.MatchComponents{ICTScore: ictScore, PatternScore: patternScore, ContextScore: contextScore, Bypassed: bypassed},
		}
	}

	return types.PlaybookMatch{
		PlaybookName: pb.Name,
		Symbol:       in.Symbol,
		Ts:           in.Ts,
		Direction:    direction,
		Score:        score,
		Grade:        types.GradeFromScore(score),
		Components:   types.MatchComponents{ICTScore: ictScore, PatternScore: patternScore, ContextScore: contextScore, Bypassed: bypassed},
	}
}

// scoreMinimum is the floor below which an evaluation is rejected with
// score_below_min rather than returned as a Grade C match. spec.md names
// score_below_min in the rejection taxonomy but does not give it a
// numeric value distinct from the Grade table's own B floor (0.55); if it
// were set equal to 0.55, Grade C (score.md's "else C" bucket) would be
// unreachable, which contradicts Grade C's presence in the Grade enum.
// This implementation resolves that by setting score_below_min below
// Grade C's range, so C remains a reachable "matched but low quality"
// outcome and score_below_min only fires on playbooks with essentially no
// confluence at all.
const scoreMinimum = 0.40

// gateReject runs every hard gate in spec.md §4.4's order, returning the
// first failing reason.
func (e *Evaluator) gateReject(pb types.Playbook, in Input) (types.GateRejectReason, bool) {
	if !containsSession(pb.SessionAllowed, in.State.Session) {
		return types.GateRejectSessionOutside, true
	}

	windows := pb.TimeWindows
	if len(windows) == 0 {
		windows = in.DefaultTimeWindows
	}

	if len(windows) > 0 && !anyWindowContains(windows, marketstate.MinuteOfDayET(in.Ts)) {
		return types.GateRejectTimefilterOutsideWindow, true
	}

	if len(pb.StructureHTF) > 0 && in.State.DailyStructure != types.StructureUnknown && !containsStructure(pb.StructureHTF, in.State.DailyStructure) {
		return types.GateRejectStructureHTFMismatch, true
	}

	if len(pb.DayTypeAllowed) > 0 && !containsDayType(pb.DayTypeAllowed, in.State.DayType) {
		return types.GateRejectDayTypeMismatch, true
	}

	if !ictFamiliesPresent(pb.RequiredICTFamilies, in.ICTPatterns) {
		return types.GateRejectICTMissing, true
	}

	if !candleFamiliesPresent(pb.RequiredCandlestickFamilies, in.CandlePatterns) {
		return types.GateRejectCandlestickMissing, true
	}

	if pb.MinATR > 0 && in.ATR < pb.MinATR {
		return types.GateRejectVolatilityInsufficient, true
	}

	if in.ATR < e.minATRFloor {
		return types.GateRejectVolatilityInsufficient, true
	}

	if in.NewsGate != nil {
		if pass, reason := in.NewsGate(pb, in.State, in.Ts); !pass {
			return reason, true
		}
	}

	return "", false
}

func containsSession(set []types.Session, s types.Session) bool {
	if len(set) == 0 {
		return true
	}

	for _, v := range set {
		if v == s {
			return true
		}
	}

	return false
}

func anyWindowContains(windows []types.TimeWindow, minuteOfDay int) bool {
	for _, w := range windows {
		if w.Contains(minuteOfDay) {
			return true
		}
	}

	return false
}

func containsStructure(set []types.Structure, s types.Structure) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}

	return false
}

func containsDayType(set []types.DayType, d types.DayType) bool {
	for _, v := range set {
		if v == d {
			return true
		}
	}

	return false
}

func ictFamiliesPresent(required []types.ICTKind, present []types.PatternDetection) bool {
	for _, want := range required {
		found := false

		for _, p := range present {
			if p.IsICT() && p.ICTKind == want {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

func candleFamiliesPresent(required []types.CandlestickFamily, present []types.PatternDetection) bool {
	for _, want := range required {
		found := false

		for _, p := range present {
			if p.IsCandlestick() && p.Family == want {
				found = true
				break
			}
		}

		if !found {
			return false
		}
	}

	return true
}

// patternScores derives a direction (the dominant direction across this
// bar's ICT + candlestick detections) and the ICT/pattern score
// components, averaging detection strength.
func (e *Evaluator) patternScores(pb types.Playbook, in Input) (types.Direction, float64, float64) {
	ictScore, ictDir := averageStrength(in.ICTPatterns)
	patternScore, patDir := averageStrength(in.CandlePatterns)

	direction := ictDir
	if direction == "" {
		direction = patDir
	}

	if direction == "" {
		direction = types.DirectionBullish
	}

	return direction, ictScore, patternScore
}

func averageStrength(patterns []types.PatternDetection) (float64, types.Direction) {
	if len(patterns) == 0 {
		return 0, ""
	}

	var sum float64

	counts := map[types.Direction]int{}

	for _, p := range patterns {
		sum += p.Strength
		counts[p.Direction]++
	}

	dominant := types.DirectionBullish
	if counts[types.DirectionBearish] > counts[types.DirectionBullish] {
		dominant = types.DirectionBearish
	}

	return sum / float64(len(patterns)), dominant
}

// contextScore is a configurable proxy combining bias agreement and
// kill-zone session timing, grounded on original_source's
// "context confluence" scoring inputs (bias_aligned, session_weight).
func contextScore(pb types.Playbook, state types.MarketState) float64 {
	score := 0.5

	if state.Bias != types.BiasNeutral {
		score += 0.25
	}

	if state.Session.IsKillZone() {
		score += 0.25
	}

	if score > 1 {
		score = 1
	}

	return score
}

// SortMatches orders matches by descending score with spec.md §4.4's
// tie-break: alphabetic playbook name, then SCALP before DAYTRADE. The
// catalog passed alongside resolves a match's category for the
// SCALP-before-DAYTRADE leg of the tie-break.
func SortMatches(matches []types.PlaybookMatch, categoryOf map[string]types.PlaybookCategory) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}

		if a.PlaybookName != b.PlaybookName {
			return a.PlaybookName < b.PlaybookName
		}

		ac, bc := categoryOf[a.PlaybookName], categoryOf[b.PlaybookName]

		return ac == types.PlaybookCategoryScalp && bc != types.PlaybookCategoryScalp
	})
}
