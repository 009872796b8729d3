package types

import "time"

// PatternKind discriminates the two PatternDetection variants. Go has no
// native sum type, so the teacher's flat-struct-with-tag convention
// (internal/types.Signal) is generalized into an explicit Kind field, read
// through the IsICT/IsCandlestick predicates, without resorting to
// interface{} or a shared base struct with optional fields.
type PatternKind string

const (
	PatternKindICT         PatternKind = "ict"
	PatternKindCandlestick PatternKind = "candlestick"
)

// PatternDetection is the tagged union of an ICT detection and a
// candlestick detection, per spec.md §3. Exactly one of the ICT* / Candle*
// field groups is populated, selected by Kind.
type PatternDetection struct {
	Kind PatternKind `yaml:"kind" json:"kind"`
	Ts   time.Time   `yaml:"ts" json:"ts"`

	// ICT variant fields (Kind == PatternKindICT).
	ICTKind      ICTKind   `yaml:"ict_kind,omitempty" json:"ict_kind,omitempty"`
	Direction    Direction `yaml:"direction" json:"direction"`
	Strength     float64   `yaml:"strength" json:"strength"`
	Timeframe    Timeframe `yaml:"timeframe" json:"timeframe"`
	LevelRefs    []int     `yaml:"level_refs,omitempty" json:"level_refs,omitempty"`

	// Candlestick variant fields (Kind == PatternKindCandlestick).
	Family        CandlestickFamily `yaml:"family,omitempty" json:"family,omitempty"`
	Name          string            `yaml:"name,omitempty" json:"name,omitempty"`
	BodyRatio     float64           `yaml:"body_ratio,omitempty" json:"body_ratio,omitempty"`
	Confirmation  bool              `yaml:"confirmation,omitempty" json:"confirmation,omitempty"`
	AtLevel       bool              `yaml:"at_level,omitempty" json:"at_level,omitempty"`
	AfterSweep    bool              `yaml:"after_sweep,omitempty" json:"after_sweep,omitempty"`
}

// NewICTDetection builds the ICT variant.
func NewICTDetection(kind ICTKind, dir Direction, strength float64, tf Timeframe, ts time.Time, levelRefs []int) PatternDetection {
	return PatternDetection{
		Kind:      PatternKindICT,
		Ts:        ts,
		ICTKind:   kind,
		Direction: dir,
		Strength:  strength,
		Timeframe: tf,
		LevelRefs: levelRefs,
	}
}

// NewCandlestickDetection builds the candlestick variant.
func NewCandlestickDetection(family CandlestickFamily, name string, dir Direction, strength, bodyRatio float64, confirmation, atLevel, afterSweep bool, tf Timeframe, ts time.Time) PatternDetection {
	return PatternDetection{
		Kind:         PatternKindCandlestick,
		Ts:           ts,
		Direction:    dir,
		Strength:     strength,
		Timeframe:    tf,
		Family:       family,
		Name:         name,
		BodyRatio:    bodyRatio,
		Confirmation: confirmation,
		AtLevel:      atLevel,
		AfterSweep:   afterSweep,
	}
}

// IsICT reports whether this detection is the ICT variant.
func (p PatternDetection) IsICT() bool {
	return p.Kind == PatternKindICT
}

// IsCandlestick reports whether this detection is the candlestick variant.
func (p PatternDetection) IsCandlestick() bool {
	return p.Kind == PatternKindCandlestick
}
