package types

import "time"

// EquityPoint is one sample of the equity ledger, emitted at least on each
// trade close per spec.md §3/§4.8.
type EquityPoint struct {
	Ts            time.Time `yaml:"ts" json:"ts"`
	EquityDollars float64   `yaml:"equity_dollars" json:"equity_dollars"`
	CumulativeR   float64   `yaml:"cumulative_r" json:"cumulative_r"`
	DrawdownR     float64   `yaml:"drawdown_r" json:"drawdown_r"`
}
