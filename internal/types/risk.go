package types

import (
	"math"
	"time"
)

// PlaybookStats is the per-playbook rolling performance record backing the
// kill-switch check, grounded on original_source's
// backend/models/risk.py:PlaybookStats per SPEC_FULL §3.
type PlaybookStats struct {
	Trades        int     `yaml:"trades" json:"trades"`
	Wins          int     `yaml:"wins" json:"wins"`
	Losses        int     `yaml:"losses" json:"losses"`
	TotalR        float64 `yaml:"total_r" json:"total_r"`
	GrossProfitR  float64 `yaml:"gross_profit_r" json:"gross_profit_r"`
	GrossLossR    float64 `yaml:"gross_loss_r" json:"gross_loss_r"`
	Disabled      bool    `yaml:"disabled" json:"disabled"`
	DisableReason string  `yaml:"disable_reason,omitempty" json:"disable_reason,omitempty"`
}

// ProfitFactor returns the rolling profit factor for this playbook, using
// the same convention as metrics.ProfitFactor: inf when there are profits
// and no losses, NaN when there are neither.
func (s PlaybookStats) ProfitFactor() float64 {
	if s.GrossLossR == 0 {
		if s.GrossProfitR > 0 {
			return math.Inf(1)
		}

		return math.NaN()
	}

	return s.GrossProfitR / absf(s.GrossLossR)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}

// RecordTrade folds one closed trade's R-multiple into the cumulative
// stats. It keeps no trailing window; the kill-switch's last-30-trades
// window is kept separately in RiskState.RecentRByPlaybook.
func (s *PlaybookStats) RecordTrade(rMultiple float64) {
	s.Trades++
	s.TotalR += rMultiple

	switch {
	case rMultiple > 0:
		s.Wins++
		s.GrossProfitR += rMultiple
	case rMultiple < 0:
		s.Losses++
		s.GrossLossR += rMultiple
	}
}

// RiskState is the simulation-task-owned mutable record of trading
// permissions, guardrail counters and the two-tier dynamic risk state,
// per spec.md §3. Mutated by the Risk Engine's OnTradeClosed,
// RecordAdmission and DailyReset methods.
type RiskState struct {
	Mode                   TradingMode              `yaml:"mode" json:"mode"`
	AccountBalance         float64                  `yaml:"account_balance" json:"account_balance"`
	PeakBalance            float64                  `yaml:"peak_balance" json:"peak_balance"`
	CurrentRiskPct         float64                  `yaml:"current_risk_pct" json:"current_risk_pct"`
	CurrentTier            RiskTier                 `yaml:"current_tier" json:"current_tier"`
	DailyPnLR              float64                  `yaml:"daily_pnl_r" json:"daily_pnl_r"`
	DailyPnLDollars        float64                  `yaml:"daily_pnl_dollars" json:"daily_pnl_dollars"`
	PeakEquityR            float64                  `yaml:"peak_equity_r" json:"peak_equity_r"`
	CurrentEquityR         float64                  `yaml:"current_equity_r" json:"current_equity_r"`
	DailyTradesByMode      map[TradeType]int        `yaml:"daily_trades_by_mode" json:"daily_trades_by_mode"`
	DailyTradesBySymbol    map[string]int           `yaml:"daily_trades_by_symbol" json:"daily_trades_by_symbol"`
	DailyAplusDailyCount   int                      `yaml:"daily_aplus_daily_count" json:"daily_aplus_daily_count"`
	DailyAplusScalpCount   int                      `yaml:"daily_aplus_scalp_count" json:"daily_aplus_scalp_count"`
	ConsecutiveLosses      int                      `yaml:"consecutive_losses" json:"consecutive_losses"`
	ConsecutiveLossesToday int                      `yaml:"consecutive_losses_today" json:"consecutive_losses_today"`
	CurrentWinStreak       int                      `yaml:"current_win_streak" json:"current_win_streak"`
	CurrentLossStreak      int                      `yaml:"current_loss_streak" json:"current_loss_streak"`
	TradingAllowed         bool                     `yaml:"trading_allowed" json:"trading_allowed"`
	FreezeReason           string                   `yaml:"freeze_reason,omitempty" json:"freeze_reason,omitempty"`
	ConsecLossCooldownUntil *time.Time              `yaml:"consec_loss_cooldown_until,omitempty" json:"consec_loss_cooldown_until,omitempty"`
	KillSwitchedPlaybooks  map[string]bool          `yaml:"kill_switched_playbooks" json:"kill_switched_playbooks"`
	PlaybookStats          map[string]PlaybookStats `yaml:"playbook_stats" json:"playbook_stats"`
	TwoTierState           TwoTierState             `yaml:"two_tier_state" json:"two_tier_state"`
	LastTradeTime          map[string]time.Time     `yaml:"last_trade_time" json:"last_trade_time"`
	TradesPerSession       map[string]int           `yaml:"trades_per_session" json:"trades_per_session"`
	CurrentDay             time.Time                `yaml:"current_day" json:"current_day"`
	RunDrawdownStopped     bool                     `yaml:"run_drawdown_stopped" json:"run_drawdown_stopped"`
	// RecentRByPlaybook holds, per playbook, the trailing window of closed
	// trades' r_multiple values (capped at risk.KillSwitchMinTrades) that
	// backs the "last 30 closed trades" kill-switch check; PlaybookStats
	// alone only carries cumulative all-time aggregates.
	RecentRByPlaybook map[string][]float64 `yaml:"recent_r_by_playbook,omitempty" json:"recent_r_by_playbook,omitempty"`
}
