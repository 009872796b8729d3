package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/argoquant/dexterio/internal/types"
)

// Config is the subset of run configuration the Risk Engine needs, per
// spec.md §4.6/§6.
type Config struct {
	Mode                  types.TradingMode
	InitialCapital        float64
	BaseRiskPct           float64
	ReducedRiskPct        float64
	Allowlist             []string
	Denylist              []string
	StopDayR              float64
	StopRunR              float64
	ConsecLossCooldownMin int
	// MaxSpreadBps, if > 0, rejects setups whose bar-derived spread proxy
	// (high-low range relative to close, in bps) exceeds it with reason
	// spread_too_wide. 0 disables the check; there is no real bid/ask feed
	// in a bar-only backtest, so this is a volatility-as-spread-proxy gate,
	// not a literal quoted-spread check.
	MaxSpreadBps float64
}

// DefaultConfig fills in spec.md §4.6's default constants for a given mode.
func DefaultConfig(mode types.TradingMode, initialCapital float64) Config {
	cfg := Config{
		Mode:                  mode,
		InitialCapital:        initialCapital,
		BaseRiskPct:           0.02,
		ReducedRiskPct:        0.01,
		StopDayR:              -4.0,
		StopRunR:              20.0,
		ConsecLossCooldownMin: 15,
	}

	if mode == types.ModeAggressive {
		cfg.Allowlist = AggressiveAllowlist
		cfg.Denylist = AggressiveDenylist
	} else {
		cfg.Allowlist = SafeAllowlist
	}

	return cfg
}

// Engine gatekeeps and sizes trades against one RiskState. Stateless
// itself; all mutable state lives in the types.RiskState the caller owns.
type Engine struct {
	cfg   Config
	allow map[string]bool
	deny  map[string]bool
}

// New creates a risk Engine over cfg.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, allow: toSet(cfg.Allowlist), deny: toSet(cfg.Denylist)}
}

func toSet(names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}

	return out
}

// InitState builds the initial RiskState for a run, per spec.md §3
// ("initialized at run start from config").
func (e *Engine) InitState(day time.Time) *types.RiskState {
	return &types.RiskState{
		Mode:                  e.cfg.Mode,
		AccountBalance:        e.cfg.InitialCapital,
		PeakBalance:           e.cfg.InitialCapital,
		CurrentRiskPct:        e.cfg.BaseRiskPct,
		CurrentTier:           types.RiskTierBase,
		DailyTradesByMode:     map[types.TradeType]int{},
		DailyTradesBySymbol:   map[string]int{},
		KillSwitchedPlaybooks: map[string]bool{},
		PlaybookStats:         map[string]types.PlaybookStats{},
		RecentRByPlaybook:     map[string][]float64{},
		TwoTierState:          types.TwoTierT1Pending,
		LastTradeTime:         map[string]time.Time{},
		TradesPerSession:      map[string]int{},
		CurrentDay:            day,
		TradingAllowed:        true,
	}
}

// DailyReset zeroes daily counters at the first bar of a new ET calendar
// day, per spec.md §4.6.
func (e *Engine) DailyReset(state *types.RiskState, day time.Time) {
	if sameDay(state.CurrentDay, day) {
		return
	}

	state.CurrentDay = day
	state.DailyPnLR = 0
	state.DailyPnLDollars = 0
	state.DailyTradesByMode = map[types.TradeType]int{}
	state.DailyTradesBySymbol = map[string]int{}
	state.DailyAplusDailyCount = 0
	state.DailyAplusScalpCount = 0
	state.ConsecutiveLossesToday = 0
	state.TradesPerSession = map[string]int{}

	if state.ConsecLossCooldownUntil != nil && !day.Before(*state.ConsecLossCooldownUntil) {
		state.ConsecLossCooldownUntil = nil
	}

	if !state.RunDrawdownStopped {
		state.TradingAllowed = true
		state.FreezeReason = ""

		if state.TwoTierState == types.TwoTierCooldownDay {
			state.TwoTierState = types.TwoTierT1Pending
		}
	}
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Admit runs the open-admission pipeline for one setup against state, per
// spec.md §4.6's closed rejection taxonomy, and on success returns the
// sized position's shares, tier and risk dollars. estimatedSpreadBps is
// the caller-supplied spread proxy (see Config.MaxSpreadBps).
func (e *Engine) Admit(state *types.RiskState, setup types.Setup, now time.Time, hasOpenPositionSameSymbol bool, estimatedSpreadBps float64) (shares, riskDollars float64, tier types.RiskTier, reason types.RiskRejectReason, ok bool) {
	if !state.TradingAllowed {
		if state.RunDrawdownStopped {
			return 0, 0, "", types.RiskRejectCircuitStopRun, false
		}

		return 0, 0, "", types.RiskRejectCircuitStopDay, false
	}

	if state.ConsecLossCooldownUntil != nil && now.Before(*state.ConsecLossCooldownUntil) {
		return 0, 0, "", types.RiskRejectCooldownLossActive, false
	}

	if state.KillSwitchedPlaybooks[setup.PlaybookName] {
		return 0, 0, "", types.RiskRejectKillSwitched, false
	}

	if e.deny[setup.PlaybookName] || (len(e.allow) > 0 && !e.allow[setup.PlaybookName]) {
		return 0, 0, "", types.RiskRejectModeNotInAllowlist, false
	}

	if hasOpenPositionSameSymbol {
		return 0, 0, "", types.RiskRejectConcurrentPositionSame, false
	}

	if e.dailyCapReached(state, setup.TradeType) {
		return 0, 0, "", types.RiskRejectDailyCapReached, false
	}

	sessionKey := sessionCapKey(setup.Symbol, setup.PlaybookName, setup.Session)
	if state.TradesPerSession[sessionKey] >= MaxTradesPerSessionPlaybook {
		return 0, 0, "", types.RiskRejectSessionCapReached, false
	}

	cooldownKey := cooldownKey(setup.Symbol, setup.PlaybookName)
	if last, seen := state.LastTradeTime[cooldownKey]; seen && now.Sub(last) < time.Duration(CooldownMinutes)*time.Minute {
		return 0, 0, "", types.RiskRejectCooldownActive, false
	}

	if setup.Quality == types.GradeAPlus {
		if setup.TradeType == types.TradeTypeDaily && state.DailyAplusDailyCount >= AplusDailyQuotaDaily {
			return 0, 0, "", types.RiskRejectAplusQuotaReached, false
		}

		if setup.TradeType == types.TradeTypeScalp && state.DailyAplusScalpCount >= AplusDailyQuotaScalp {
			return 0, 0, "", types.RiskRejectAplusQuotaReached, false
		}
	}

	if e.cfg.MaxSpreadBps > 0 && estimatedSpreadBps > e.cfg.MaxSpreadBps {
		return 0, 0, "", types.RiskRejectSpreadTooWide, false
	}

	shares, riskDollars = e.size(state, setup)
	if shares <= 0 {
		return 0, 0, "", types.RiskRejectSizeZero, false
	}

	return shares, riskDollars, state.CurrentTier, "", true
}

func (e *Engine) dailyCapReached(state *types.RiskState, tradeType types.TradeType) bool {
	total := 0
	for _, n := range state.DailyTradesByMode {
		total += n
	}

	if e.cfg.Mode == types.ModeSafe {
		if total >= SafeDailyCapTotal {
			return true
		}

		return state.DailyTradesByMode[tradeType] >= SafeDailyCapPerTradeType
	}

	return total >= AggressiveDailyCapTotal
}

// size implements spec.md §4.6's sizing formula with the capital-factor
// ceiling recovered from original_source's _get_max_capital_factor.
func (e *Engine) size(state *types.RiskState, setup types.Setup) (shares, riskDollars float64) {
	riskPerShare := absf(setup.Entry - setup.Stop)
	if riskPerShare <= 0 {
		return 0, 0
	}

	riskDollars = state.AccountBalance * state.CurrentRiskPct
	shares = math.Floor(riskDollars / riskPerShare)

	capFactor := SafeCapitalFactor
	if e.cfg.Mode == types.ModeAggressive {
		if f, ok := AggressiveCapitalFactor[setup.Quality]; ok {
			capFactor = f
		} else {
			capFactor = SafeCapitalFactor
		}
	}

	maxCapital := state.AccountBalance * capFactor
	if shares*setup.Entry > maxCapital && setup.Entry > 0 {
		shares = math.Floor(maxCapital / setup.Entry)
	}

	if shares < 0 {
		shares = 0
	}

	return shares, riskDollars
}

// RecordAdmission updates the counters an admitted (not yet closed) setup
// consumes, called once the Execution Simulator actually opens the
// position.
func (e *Engine) RecordAdmission(state *types.RiskState, setup types.Setup, now time.Time) {
	state.DailyTradesByMode[setup.TradeType]++
	state.DailyTradesBySymbol[setup.Symbol]++
	state.TradesPerSession[sessionCapKey(setup.Symbol, setup.PlaybookName, setup.Session)]++
	state.LastTradeTime[cooldownKey(setup.Symbol, setup.PlaybookName)] = now

	if setup.Quality == types.GradeAPlus {
		if setup.TradeType == types.TradeTypeDaily {
			state.DailyAplusDailyCount++
		} else {
			state.DailyAplusScalpCount++
		}
	}
}

// OnTradeClosed applies a closed trade's result to state: balance/equity
// tracking, the daily loss and run drawdown circuit breakers, the
// consecutive-loss cooldown, the two-tier risk state machine and the
// per-playbook kill-switch, per spec.md §4.6.
func (e *Engine) OnTradeClosed(state *types.RiskState, result types.TradeResult, now time.Time) {
	state.AccountBalance += result.PnLNetDollars
	if state.AccountBalance > state.PeakBalance {
		state.PeakBalance = state.AccountBalance
	}

	state.DailyPnLR += result.RMultiple
	state.DailyPnLDollars += result.PnLNetDollars
	state.CurrentEquityR += result.RMultiple
	if state.CurrentEquityR > state.PeakEquityR {
		state.PeakEquityR = state.CurrentEquityR
	}

	e.applyConsecutiveLosses(state, result.Outcome, now)
	e.applyTwoTier(state, result.Outcome)
	e.applyKillSwitch(state, result)

	if state.DailyPnLR <= e.cfg.StopDayR {
		state.TradingAllowed = false
		state.FreezeReason = "circuit_stop_day"
		state.TwoTierState = types.TwoTierCooldownDay
	}

	if state.PeakEquityR-state.CurrentEquityR >= e.cfg.StopRunR {
		state.TradingAllowed = false
		state.RunDrawdownStopped = true
		state.FreezeReason = "circuit_stop_run"
	}
}

func (e *Engine) applyConsecutiveLosses(state *types.RiskState, outcome types.Outcome, now time.Time) {
	switch outcome {
	case types.OutcomeLoss:
		state.ConsecutiveLosses++
		state.ConsecutiveLossesToday++
		state.CurrentLossStreak++
		state.CurrentWinStreak = 0
	case types.OutcomeWin:
		state.ConsecutiveLosses = 0
		state.ConsecutiveLossesToday = 0
		state.CurrentWinStreak++
		state.CurrentLossStreak = 0
	case types.OutcomeBreakeven:
		// Breakeven does not change streak counters, per spec invariant 7.
	}

	if state.ConsecutiveLosses >= 3 {
		until := now.Add(time.Duration(e.cfg.ConsecLossCooldownMin) * time.Minute)
		state.ConsecLossCooldownUntil = &until
		state.ConsecutiveLosses = 0
	}
}

// applyTwoTier implements spec.md §4.6's per-trade state machine exactly.
func (e *Engine) applyTwoTier(state *types.RiskState, outcome types.Outcome) {
	if outcome == types.OutcomeBreakeven {
		return
	}

	win := outcome == types.OutcomeWin

	switch state.TwoTierState {
	case types.TwoTierT1Pending:
		if win {
			state.TwoTierState = types.TwoTierT1WinSeekingT2
		} else {
			state.TwoTierState = types.TwoTierCooldownLoss
		}
	case types.TwoTierT1WinSeekingT2:
		if win {
			state.TwoTierState = types.TwoTierT1Pending
		} else {
			state.TwoTierState = types.TwoTierCooldownLoss
		}
	case types.TwoTierCooldownLoss:
		if win {
			state.TwoTierState = types.TwoTierT1Pending
		}
	case types.TwoTierCooldownDay:
		// Daily circuit breaker owns this state; per-trade transitions
		// resume only after DailyReset clears it.
	}

	if !win {
		state.CurrentTier = types.RiskTierReduced
		state.CurrentRiskPct = e.cfg.ReducedRiskPct
	} else if state.TwoTierState != types.TwoTierCooldownLoss && state.TwoTierState != types.TwoTierCooldownDay {
		state.CurrentTier = types.RiskTierBase
		state.CurrentRiskPct = e.cfg.BaseRiskPct
	}
}

// applyKillSwitch maintains the trailing KillSwitchMinTrades window of
// r_multiple per playbook and disables a playbook whose rolling profit
// factor or total R crosses the locked thresholds, per spec.md §4.6 and
// the original's hard-stop supplement.
func (e *Engine) applyKillSwitch(state *types.RiskState, result types.TradeResult) {
	stats := state.PlaybookStats[result.PlaybookName]
	stats.RecordTrade(result.RMultiple)
	state.PlaybookStats[result.PlaybookName] = stats

	window := append(state.RecentRByPlaybook[result.PlaybookName], result.RMultiple)
	if len(window) > KillSwitchMinTrades {
		window = window[len(window)-KillSwitchMinTrades:]
	}

	state.RecentRByPlaybook[result.PlaybookName] = window

	total, grossProfit, grossLoss := windowSums(window)

	if total <= KillSwitchHardStopR {
		e.disable(state, result.PlaybookName, "hard_stop")
		return
	}

	if len(window) < KillSwitchMinTrades {
		return
	}

	if total <= KillSwitchMaxLossR {
		e.disable(state, result.PlaybookName, "max_loss_r")
		return
	}

	pf := profitFactor(grossProfit, grossLoss)
	if !math.IsNaN(pf) && pf < KillSwitchMinPF {
		e.disable(state, result.PlaybookName, "min_pf")
	}
}

func (e *Engine) disable(state *types.RiskState, playbook, reason string) {
	state.KillSwitchedPlaybooks[playbook] = true

	stats := state.PlaybookStats[playbook]
	stats.Disabled = true
	stats.DisableReason = reason
	state.PlaybookStats[playbook] = stats
}

func windowSums(window []float64) (total, grossProfit, grossLoss float64) {
	for _, r := range window {
		total += r

		switch {
		case r > 0:
			grossProfit += r
		case r < 0:
			grossLoss += r
		}
	}

	return total, grossProfit, grossLoss
}

func profitFactor(grossProfit, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossProfit > 0 {
			return math.Inf(1)
		}

		return math.NaN()
	}

	return grossProfit / absf(grossLoss)
}

func sessionCapKey(symbol, playbook string, session types.Session) string {
	return fmt.Sprintf("%s|%s|%s", symbol, playbook, session)
}

func cooldownKey(symbol, playbook string) string {
	return fmt.Sprintf("%s|%s", symbol, playbook)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
