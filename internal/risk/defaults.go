// Package risk gatekeeps and sizes trades: mode/allow-deny enforcement,
// guardrail circuit breakers, per-playbook kill-switch and the two-tier
// dynamic risk state machine.
package risk

import "github.com/argoquant/dexterio/internal/types"

// Kill-switch constants recovered from original_source's risk_engine.py.
// spec.md names the 30-trade window and the 0.85 floor; the original adds
// a hard stop that can fire before a playbook has accrued 30 trades.
const (
	KillSwitchMinTrades = 30
	KillSwitchMaxLossR  = -10.0
	KillSwitchMinPF     = 0.85
	KillSwitchHardStopR = -25.0
)

// Anti-spam cooldown constants, folded into the RiskRejectCooldownActive /
// RiskRejectSessionCapReached rejection reasons already in spec.md's
// closed taxonomy.
const (
	CooldownMinutes             = 15
	MaxTradesPerSessionPlaybook = 1
)

// Daily trade caps by mode, per spec.md §4.6 ("SAFE mode 4 (≤2 DAYTRADE +
// ≤2 SCALP), AGGRESSIVE 5 total").
const (
	SafeDailyCapTotal       = 4
	SafeDailyCapPerTradeType = 2
	AggressiveDailyCapTotal = 5
)

// A+ daily quota: at most one A+ DAILY and one A+ SCALP admitted per
// calendar day, recovered from the original's can_take_setup.
const (
	AplusDailyQuotaDaily = 1
	AplusDailyQuotaScalp = 1
)

// Capital-factor ceiling on position sizing, recovered from the
// original's _get_max_capital_factor.
const SafeCapitalFactor = 0.95

// AggressiveCapitalFactor maps a match's grade onto the fraction of
// account_balance a sized position's required capital may not exceed in
// AGGRESSIVE mode.
var AggressiveCapitalFactor = map[types.Grade]float64{
	types.GradeB:    1.0,
	types.GradeA:    1.5,
	types.GradeAPlus: 2.0,
}

// Default allow/deny lists populated when a run's config does not
// override them, locked verbatim from
// original_source/backend/engines/risk_engine.py.
var (
	AggressiveAllowlist = []string{
		"News_Fade",
		"Session_Open_Scalp",
		"SCALP_Aplus_1_Mini_FVG_Retest_NY_Open",
		"NY_Open_Reversal",
		"Trend_Continuation_FVG_Retest",
		"Morning_Trap_Reversal",
		"Liquidity_Sweep_Scalp",
		"FVG_Fill_Scalp",
	}

	AggressiveDenylist = []string{
		"London_Sweep_NY_Continuation",
		"BOS_Momentum_Scalp",
		"Power_Hour_Expansion",
		"DAY_Aplus_1_Liquidity_Sweep_OB_Retest",
		"Lunch_Range_Scalp",
	}

	SafeAllowlist = []string{
		"SCALP_Aplus_1_Mini_FVG_Retest_NY_Open",
	}
)
