package types

import "time"

// TimeWindow is a minute-of-day-in-ET range used for playbook time filters.
// Minutes are [0, 1440) in Eastern local time, inclusive of both ends.
type TimeWindow struct {
	StartMinute int `yaml:"start_minute" json:"start_minute" validate:"gte=0,lt=1440"`
	EndMinute   int `yaml:"end_minute" json:"end_minute" validate:"gte=0,lt=1440"`
}

// Contains reports whether minuteOfDay falls within [StartMinute, EndMinute].
func (w TimeWindow) Contains(minuteOfDay int) bool {
	if w.StartMinute <= w.EndMinute {
		return minuteOfDay >= w.StartMinute && minuteOfDay <= w.EndMinute
	}
	// Window wraps past midnight (e.g. asia session style window).
	return minuteOfDay >= w.StartMinute || minuteOfDay <= w.EndMinute
}

// ScoringWeights are a playbook's score component weights; must sum to 1.
type ScoringWeights struct {
	ICT     float64 `yaml:"ict" json:"ict" validate:"gte=0,lte=1"`
	Pattern float64 `yaml:"pattern" json:"pattern" validate:"gte=0,lte=1"`
	Context float64 `yaml:"context" json:"context" validate:"gte=0,lte=1"`
}

// Playbook is a declarative catalog record, loaded once per run from the
// playbook catalog file and never mutated, per spec.md §3/§4.4.
type Playbook struct {
	Name                         string              `yaml:"name" json:"name" validate:"required"`
	Category                     PlaybookCategory     `yaml:"category" json:"category" validate:"required,oneof=DAYTRADE SCALP"`
	StructureHTF                 []Structure          `yaml:"structure_htf" json:"structure_htf"`
	SessionAllowed               []Session            `yaml:"session_allowed" json:"session_allowed"`
	DayTypeAllowed               []DayType            `yaml:"day_type_allowed" json:"day_type_allowed"`
	RequiredICTFamilies          []ICTKind            `yaml:"required_ict_families" json:"required_ict_families"`
	RequiredCandlestickFamilies  []CandlestickFamily  `yaml:"required_candlestick_families" json:"required_candlestick_families"`
	TimeWindows                  []TimeWindow         `yaml:"time_windows" json:"time_windows"`
	MinRR                        float64              `yaml:"min_rr" json:"min_rr" validate:"gt=0"`
	ScoringWeights                ScoringWeights      `yaml:"scoring_weights" json:"scoring_weights"`
	MinATR                       float64              `yaml:"min_atr,omitempty" json:"min_atr,omitempty"`
}

// MatchComponents is the breakdown of a PlaybookMatch's score.
type MatchComponents struct {
	ICTScore     float64 `yaml:"ict_score" json:"ict_score"`
	PatternScore float64 `yaml:"pattern_score" json:"pattern_score"`
	ContextScore float64 `yaml:"context_score" json:"context_score"`
	// Bypassed records which gate checks were bypassed under AGGRESSIVE
	// relaxation, keyed by GateRejectReason, so every bypass stays
	// auditable per spec.md §4.4.
	Bypassed map[GateRejectReason]bool `yaml:"bypassed,omitempty" json:"bypassed,omitempty"`
}

// PlaybookMatch is the per-bar, per-playbook evaluation outcome. Exactly
// one of (a match, i.e. Score/Grade populated) or a single RejectedReason
// is meaningful, per spec.md invariant 6.
type PlaybookMatch struct {
	PlaybookName   string          `yaml:"playbook_name" json:"playbook_name"`
	Symbol         string          `yaml:"symbol" json:"symbol"`
	Ts             time.Time       `yaml:"ts" json:"ts"`
	Direction      Direction       `yaml:"direction" json:"direction"`
	Score          float64         `yaml:"score" json:"score"`
	Grade          Grade           `yaml:"grade" json:"grade"`
	Components     MatchComponents `yaml:"components" json:"components"`
	RejectedReason GateRejectReason `yaml:"rejected_reason,omitempty" json:"rejected_reason,omitempty"`
}

// Matched reports whether this evaluation produced a match rather than a
// rejection.
func (m PlaybookMatch) Matched() bool {
	return m.RejectedReason == ""
}
