package types

import "time"

// Fill is a single execution leg of an Order/Position (entry, partial
// exit, or final exit), carrying enough detail to reconstruct the cost
// model's contribution to that leg.
type Fill struct {
	Ts         time.Time  `yaml:"ts" json:"ts"`
	Price      float64    `yaml:"price" json:"price"`
	Shares     float64    `yaml:"shares" json:"shares"`
	IsEntry    bool       `yaml:"is_entry" json:"is_entry"`
	ExitReason ExitReason `yaml:"exit_reason,omitempty" json:"exit_reason,omitempty"`
	Commission float64    `yaml:"commission" json:"commission"`
	RegFees    float64    `yaml:"reg_fees" json:"reg_fees"`
	Slippage   float64    `yaml:"slippage" json:"slippage"`
	SpreadCost float64    `yaml:"spread_cost" json:"spread_cost"`
}

// Position is an open or closed simulated trade owned exclusively by the
// Execution Simulator, per spec.md §3/§5.
type Position struct {
	SetupID        string        `yaml:"setup_id" json:"setup_id"`
	PlaybookName   string        `yaml:"playbook_name" json:"playbook_name"`
	Symbol         string        `yaml:"symbol" json:"symbol"`
	Direction      Direction     `yaml:"direction" json:"direction"`
	TradeType      TradeType     `yaml:"trade_type" json:"trade_type"`
	RiskTier       RiskTier      `yaml:"risk_tier" json:"risk_tier"`
	Shares         float64       `yaml:"shares" json:"shares"`
	EntryPrice     float64       `yaml:"entry_price" json:"entry_price"`
	Stop           float64       `yaml:"stop" json:"stop"`
	OriginalStop   float64       `yaml:"original_stop" json:"original_stop"`
	TP1            float64       `yaml:"tp1" json:"tp1"`
	TP2            float64       `yaml:"tp2" json:"tp2"`
	RiskDollars    float64       `yaml:"risk_dollars" json:"risk_dollars"`
	RemainingShares float64      `yaml:"remaining_shares" json:"remaining_shares"`
	BreakevenMoved bool          `yaml:"breakeven_moved" json:"breakeven_moved"`
	TP1Filled      bool          `yaml:"tp1_filled" json:"tp1_filled"`
	State          PositionState `yaml:"state" json:"state"`
	Fills          []Fill        `yaml:"fills" json:"fills"`
	OpenedTs       time.Time     `yaml:"opened_ts" json:"opened_ts"`
	ClosedTs       *time.Time    `yaml:"closed_ts,omitempty" json:"closed_ts,omitempty"`
	MaxDuration    time.Duration `yaml:"max_duration" json:"max_duration"`
	Setup          Setup         `yaml:"-" json:"-"`
}

// IsOpen reports whether the position still has shares at risk.
func (p *Position) IsOpen() bool {
	return p.State == PositionStateOpen || p.State == PositionStateWorking
}
