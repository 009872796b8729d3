package types

import "time"

// TradeResult is the closed, cost-adjusted accounting record for one fully
// exited position, per spec.md §3. Invariant: PnLNetDollars ==
// PnLGrossDollars - TotalCosts (enforced by execution.Simulator, verified
// by the execution package's simulator tests).
type TradeResult struct {
	SetupID      string    `yaml:"setup_id" json:"setup_id"`
	PlaybookName string    `yaml:"playbook_name" json:"playbook_name"`
	Symbol       string    `yaml:"symbol" json:"symbol"`
	Direction    Direction `yaml:"direction" json:"direction"`
	TradeType    TradeType `yaml:"trade_type" json:"trade_type"`

	Shares     float64 `yaml:"shares" json:"shares"`
	EntryPrice float64 `yaml:"entry_price" json:"entry_price"`
	ExitPrice  float64 `yaml:"exit_price" json:"exit_price"`
	Stop       float64 `yaml:"stop" json:"stop"`

	EntryTs time.Time `yaml:"entry_ts" json:"entry_ts"`
	ExitTs  time.Time `yaml:"exit_ts" json:"exit_ts"`

	EntryCommission float64 `yaml:"entry_commission" json:"entry_commission"`
	EntryRegFees    float64 `yaml:"entry_reg_fees" json:"entry_reg_fees"`
	EntrySlippage   float64 `yaml:"entry_slippage" json:"entry_slippage"`
	EntrySpreadCost float64 `yaml:"entry_spread_cost" json:"entry_spread_cost"`

	ExitCommission float64 `yaml:"exit_commission" json:"exit_commission"`
	ExitRegFees    float64 `yaml:"exit_reg_fees" json:"exit_reg_fees"`
	ExitSlippage   float64 `yaml:"exit_slippage" json:"exit_slippage"`
	ExitSpreadCost float64 `yaml:"exit_spread_cost" json:"exit_spread_cost"`

	TotalCosts float64 `yaml:"total_costs" json:"total_costs"`

	PnLGrossDollars float64 `yaml:"pnl_gross_dollars" json:"pnl_gross_dollars"`
	PnLNetDollars   float64 `yaml:"pnl_net_dollars" json:"pnl_net_dollars"`
	PnLGrossR       float64 `yaml:"pnl_gross_r" json:"pnl_gross_r"`
	PnLNetR         float64 `yaml:"pnl_net_r" json:"pnl_net_r"`
	RMultiple       float64 `yaml:"r_multiple" json:"r_multiple"`
	PnLRAccount     float64 `yaml:"pnl_r_account" json:"pnl_r_account"`

	RiskTier   RiskTier   `yaml:"risk_tier" json:"risk_tier"`
	Outcome    Outcome    `yaml:"outcome" json:"outcome"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason"`
}
