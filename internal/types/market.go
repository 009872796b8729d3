package types

import "time"

// LiquidityLevel is a tracked price level whose sweep state is mutated at
// most once, per spec.md §3. Created by the Market State Engine, read by
// pattern engines (sweep detection) and the Setup Engine (target selection).
type LiquidityLevel struct {
	Price     float64       `yaml:"price" json:"price"`
	Kind      LiquidityKind `yaml:"kind" json:"kind"`
	CreatedTs time.Time     `yaml:"created_ts" json:"created_ts"`
	Swept     bool          `yaml:"swept" json:"swept"`
	SweptTs   *time.Time    `yaml:"swept_ts,omitempty" json:"swept_ts,omitempty"`
}

// Sweep marks the level swept exactly once; subsequent calls are no-ops so
// a level is never revived per spec.md's lifecycle invariant.
func (l *LiquidityLevel) Sweep(at time.Time) {
	if l.Swept {
		return
	}

	l.Swept = true
	ts := at
	l.SweptTs = &ts
}

// MarketState is the per-symbol, per-bar-boundary snapshot derived from the
// Timeframe Aggregator's current HTF windows. Treated as immutable once
// produced; consumed by the pattern engines, the playbook evaluator and the
// setup engine for the bar it was derived on.
type MarketState struct {
	Symbol          string           `yaml:"symbol" json:"symbol"`
	Ts              time.Time        `yaml:"ts" json:"ts"`
	DailyStructure  Structure        `yaml:"daily_structure" json:"daily_structure"`
	H4Structure     Structure        `yaml:"h4_structure" json:"h4_structure"`
	H1Structure     Structure        `yaml:"h1_structure" json:"h1_structure"`
	Bias            Bias             `yaml:"bias" json:"bias"`
	Session         Session          `yaml:"session" json:"session"`
	DayType         DayType          `yaml:"day_type" json:"day_type"`
	LiquidityLevels []LiquidityLevel `yaml:"liquidity_levels" json:"liquidity_levels"`
}

// Fingerprint is the cache key the Market State Engine uses to avoid
// recomputing a MarketState that would be identical: the last bar ts of
// every HTF window, per spec.md §4.2 "Caching".
type Fingerprint struct {
	Symbol   string
	LastTs5m time.Time
	LastTs15m time.Time
	LastTs1h time.Time
	LastTs4h time.Time
	LastTs1d time.Time
}
