// Package pipeline wires the per-module engines into the single-threaded,
// strictly-ordered per-bar walk the teacher's BacktestEngineV1.Run
// performs over its datasource, generalized from one strategy callback
// into the full aggregator -> market state -> pattern -> playbook ->
// setup -> risk -> execution chain, per spec.md §2/§5.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/argoquant/dexterio/internal/aggregator"
	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/internal/execution"
	"github.com/argoquant/dexterio/internal/execution/slippage"
	"github.com/argoquant/dexterio/internal/indicator"
	"github.com/argoquant/dexterio/internal/log"
	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/internal/marker"
	"github.com/argoquant/dexterio/internal/marketstate"
	"github.com/argoquant/dexterio/internal/metrics"
	"github.com/argoquant/dexterio/internal/pattern/candlestick"
	"github.com/argoquant/dexterio/internal/pattern/ict"
	"github.com/argoquant/dexterio/internal/playbook"
	"github.com/argoquant/dexterio/internal/risk"
	"github.com/argoquant/dexterio/internal/setup"
	"github.com/argoquant/dexterio/internal/types"
)

// detectionTF is the single timeframe the ICT and candlestick engines
// evaluate every bar on. Neither types.Playbook nor the spec's pattern
// wording pins an exact timeframe ("the relevant TF windows" /
// "the specified timeframe"); 5m is chosen here as the geometry scale FVG
// gaps, order blocks and sweep/engulfing candles are described at, with
// 1m reserved for entry-price resolution.
const detectionTF = types.TF5m

// atrPeriod is the trailing bar count the volatility-floor ATR is computed
// over, on the same detectionTF window pattern detection runs against.
const atrPeriod = 14

// fullDayWindow is the global default time-of-day filter a playbook falls
// back to when it declares no time_windows of its own, per spec.md §4.4.
var fullDayWindow = []types.TimeWindow{{StartMinute: 0, EndMinute: 1439}}

// Pipeline owns every per-run engine and the mutable state that must
// survive across bars (risk posture, per-symbol pattern history), and
// processes one merged bar stream to completion.
type Pipeline struct {
	cfg config.RunConfig

	agg          *aggregator.Aggregator
	marketState  *marketstate.Engine
	ictEngine    *ict.Engine
	candleEngine *candlestick.Engine
	evaluator    *playbook.Evaluator
	setupEngine  *setup.Engine
	riskEngine   *risk.Engine
	sim          *execution.Simulator

	newsGate playbook.NewsGate

	riskState *types.RiskState
	ledger    *metrics.Ledger
	mark      marker.Marker
	narrate   log.Log
	log       *logger.Logger

	todaysPatterns   map[string][]types.PatternDetection
	todaysPatternDay map[string]time.Time

	barsProcessed int
}

// New wires every engine from cfg and the loaded playbook catalog.
// newsGate is nil unless an optional news/calendar hook was configured for
// this run, in which case playbook evaluation consults it per bar.
func New(cfg config.RunConfig, catalog []types.Playbook, led *metrics.Ledger, lg *logger.Logger, newsGate playbook.NewsGate) *Pipeline {
	agg := aggregator.New(aggregator.DefaultConfig())
	ms := marketstate.New(agg, 0)
	sim := execution.New(execution.Config{
		CommissionModel: cfg.CommissionModel,
		EnableRegFees:   cfg.EnableRegFees,
		Slippage: slippage.Config{
			Model: cfg.SlippageModel,
			Pct:   cfg.SlippagePct,
			Ticks: cfg.SlippageTicks,
		},
		SpreadModel:        cfg.SpreadModel,
		SpreadBps:          cfg.SpreadBps,
		ImmediateFill:      true,
		Tp1PartialFraction: 0.5,
		InitialCapital:     cfg.InitialCapital,
		BaseRiskPct:        cfg.BaseRiskPct,
	})

	riskCfg := risk.Config{
		Mode:                  cfg.TradingMode,
		InitialCapital:        cfg.InitialCapital,
		BaseRiskPct:           cfg.BaseRiskPct,
		ReducedRiskPct:        cfg.ReducedRiskPct,
		Allowlist:             cfg.Allowlist,
		Denylist:              cfg.Denylist,
		StopDayR:              cfg.StopDayR,
		StopRunR:              cfg.StopRunR,
		ConsecLossCooldownMin: cfg.ConsecLossCooldownMin,
	}
	riskEngine := risk.New(riskCfg)

	p := &Pipeline{
		cfg:              cfg,
		agg:              agg,
		marketState:      ms,
		ictEngine:        ict.New(detectionTF),
		candleEngine:     candlestick.New(detectionTF),
		evaluator:        playbook.New(catalog, cfg.MinATRFloor),
		riskEngine:       riskEngine,
		sim:              sim,
		newsGate:         newsGate,
		ledger:           led,
		mark:             marker.New(),
		narrate:          log.NewMemoryLog(),
		log:              lg,
		todaysPatterns:   map[string][]types.PatternDetection{},
		todaysPatternDay: map[string]time.Time{},
	}

	p.setupEngine = setup.New(catalog, p.sim.HasOpenPosition)

	return p
}

// IngestWarmup feeds a single pre-start-date bar into the Timeframe
// Aggregator only, per spec.md §4.1's HTF warmup contract: no setups are
// emitted and no state is advanced on warmup bars.
func (p *Pipeline) IngestWarmup(b bar.Bar) {
	p.agg.Ingest(b)
}

// ProcessBar runs one scored bar through the full chain: aggregation,
// market state refresh, pattern detection, playbook evaluation, setup
// synthesis, risk admission, and exit processing for already-open
// positions on this symbol, in the order fixed by spec.md §5.
func (p *Pipeline) ProcessBar(b bar.Bar) error {
	if err := b.Validate(); err != nil {
		return err
	}

	ts := b.Timestamp
	symbol := b.Symbol

	p.agg.Ingest(b)

	day := marketstate.CalendarDayET(ts)
	p.ensureRiskState(day)
	p.riskEngine.DailyReset(p.riskState, day)
	p.resetPatternsIfNewDay(symbol, day)

	state := p.marketState.Compute(symbol, ts, p.todaysPatterns[symbol])

	if p.cfg.ExportMarketState {
		if err := p.ledger.AddMarketState(state); err != nil && p.log != nil {
			p.log.Error("failed to append market state", zap.Error(err))
		}
	}

	detectionWindow := p.agg.Window(symbol, detectionTF)
	ictPatterns := p.ictEngine.Detect(detectionWindow, state.LiquidityLevels)
	candlePatterns := p.candleEngine.Detect(detectionWindow, state.LiquidityLevels, p.todaysPatterns[symbol])

	p.todaysPatterns[symbol] = append(p.todaysPatterns[symbol], ictPatterns...)

	oneMinWindow := p.agg.Window(symbol, types.TF1m)
	atr := indicator.ATR(detectionWindow, atrPeriod)

	matches := p.evaluator.EvaluateAll(playbook.Input{
		Symbol:             symbol,
		Ts:                 ts,
		State:              state,
		ICTPatterns:        ictPatterns,
		CandlePatterns:     candlePatterns,
		ATR:                atr,
		Mode:               p.cfg.TradingMode,
		DefaultTimeWindows: fullDayWindow,
		NewsGate:           p.newsGate,
	})

	for _, m := range matches {
		if m.Matched() {
			p.mark.Mark(ts, symbol, "gate_match", m.PlaybookName)
			continue
		}

		p.mark.Mark(ts, symbol, "gate_reject", string(m.RejectedReason))
	}

	candidate := p.setupEngine.Synthesize(setup.Input{
		Symbol:         symbol,
		Ts:             ts,
		Bar:            b,
		Candles1m:      oneMinWindow,
		State:          state,
		ICTPatterns:    ictPatterns,
		CandlePatterns: candlePatterns,
		Matches:        matches,
	})

	if candidate != nil {
		p.admit(*candidate, b)
	}

	p.applyExits(symbol, b, state, ts)

	p.barsProcessed++

	return nil
}

func (p *Pipeline) ensureRiskState(day time.Time) {
	if p.riskState == nil {
		p.riskState = p.riskEngine.InitState(day)
	}
}

func (p *Pipeline) resetPatternsIfNewDay(symbol string, day time.Time) {
	if last, ok := p.todaysPatternDay[symbol]; ok && last.Equal(day) {
		return
	}

	p.todaysPatternDay[symbol] = day
	p.todaysPatterns[symbol] = nil
}

// admit runs the accepted setup through the Risk Engine's open-admission
// pipeline and, on success, opens the position in the Execution Simulator.
func (p *Pipeline) admit(s types.Setup, b bar.Bar) {
	hasOpenSameSymbol := p.hasOpenPositionAnyDirection(s.Symbol, s.Direction)
	spreadProxyBps := estimatedSpreadBps(b)

	shares, _, tier, reason, ok := p.riskEngine.Admit(p.riskState, s, s.Ts, hasOpenSameSymbol, spreadProxyBps)
	if !ok {
		p.mark.Mark(s.Ts, s.Symbol, "risk_reject", string(reason))
		_ = p.narrate.Log(log.Entry{
			Timestamp: s.Ts, Symbol: s.Symbol, Level: log.LevelDebug,
			Message: "setup rejected", Fields: map[string]string{"playbook": s.PlaybookName, "reason": string(reason)},
		})

		return
	}

	fillPrice := p.sim.EntryFillPrice(b.Close, b.Close)
	p.sim.Open(s, shares, tier, fillPrice, s.Ts)
	p.riskEngine.RecordAdmission(p.riskState, s, s.Ts)
	p.mark.Mark(s.Ts, s.Symbol, "setup", "admitted")
	_ = p.narrate.Log(log.Entry{
		Timestamp: s.Ts, Symbol: s.Symbol, Level: log.LevelInfo,
		Message: "setup admitted", Fields: map[string]string{"playbook": s.PlaybookName, "direction": string(s.Direction), "grade": string(s.Quality)},
	})

	if p.log != nil {
		p.log.Debug("setup admitted",
			zap.String("symbol", s.Symbol), zap.String("playbook", s.PlaybookName), zap.Float64("shares", shares))
	}
}

// applyExits walks every open position on symbol through the Execution
// Simulator for this bar, skipping a position opened on this same bar
// (its entry fill already consumed this bar's close under the
// immediate-fill convention).
func (p *Pipeline) applyExits(symbol string, b bar.Bar, state types.MarketState, ts time.Time) {
	for _, pos := range p.sim.OpenPositions() {
		if pos.Symbol != symbol || pos.OpenedTs.Equal(ts) {
			continue
		}

		result := p.sim.ProcessBar(pos, b, state.Session)
		if result == nil {
			continue
		}

		p.riskEngine.OnTradeClosed(p.riskState, *result, ts)

		if err := p.ledger.AddTrade(*result); err != nil && p.log != nil {
			p.log.Error("failed to append trade", zap.Error(err))
		}

		p.recordEquityPoint(ts)
		p.mark.Mark(ts, symbol, "trade_closed", string(result.ExitReason))
		_ = p.narrate.Log(log.Entry{
			Timestamp: ts, Symbol: symbol, Level: log.LevelInfo,
			Message: "trade closed",
			Fields: map[string]string{
				"playbook": result.PlaybookName, "outcome": string(result.Outcome), "exit_reason": string(result.ExitReason),
			},
		})
	}
}

// recordEquityPoint appends one EquityPoint at the current RiskState's
// account balance, per spec.md §4.8 ("emitted at least on each trade
// close").
func (p *Pipeline) recordEquityPoint(ts time.Time) {
	drawdown := p.riskState.PeakEquityR - p.riskState.CurrentEquityR

	point := types.EquityPoint{
		Ts:            ts,
		EquityDollars: p.riskState.AccountBalance,
		CumulativeR:   p.riskState.CurrentEquityR,
		DrawdownR:     drawdown,
	}

	if err := p.ledger.AddEquityPoint(point); err != nil && p.log != nil {
		p.log.Error("failed to append equity point", zap.Error(err))
	}
}

func (p *Pipeline) hasOpenPositionAnyDirection(symbol string, _ types.Direction) bool {
	for _, pos := range p.sim.OpenPositions() {
		if pos.Symbol == symbol {
			return true
		}
	}

	return false
}

func estimatedSpreadBps(b bar.Bar) float64 {
	if b.Close <= 0 {
		return 0
	}

	return (b.High - b.Low) / b.Close * 1e4
}

// Marker exposes the run's instrumentation counters for job artifact export.
func (p *Pipeline) Marker() marker.Marker { return p.mark }

// Narration exposes the run's human-readable log buffer for job.log export.
func (p *Pipeline) Narration() log.Log { return p.narrate }

// BarsProcessed reports how many bars ProcessBar has consumed so far.
func (p *Pipeline) BarsProcessed() int { return p.barsProcessed }

// RiskState exposes the live portfolio risk posture, mainly for tests and
// for the job control surface's live-progress snapshot.
func (p *Pipeline) RiskState() *types.RiskState { return p.riskState }

// ForceCloseAll closes every remaining open position at the last known bar
// for its symbol, used by the run orchestrator at the end of a backtest so
// no position is left dangling out of the trades ledger. lastBars must
// carry the most recent bar observed for each open position's symbol.
func (p *Pipeline) ForceCloseAll(lastBars map[string]bar.Bar, reason types.ExitReason) {
	for _, pos := range p.sim.OpenPositions() {
		b, ok := lastBars[pos.Symbol]
		if !ok {
			continue
		}

		flatBar := bar.Bar{
			Timestamp: b.Timestamp, Symbol: b.Symbol,
			Open: b.Close, High: b.Close, Low: b.Close, Close: b.Close, Volume: 0,
		}

		result := p.sim.ProcessBar(pos, flatBar, types.SessionOff)
		if result == nil {
			continue
		}

		result.ExitReason = reason
		p.riskEngine.OnTradeClosed(p.riskState, *result, b.Timestamp)

		if err := p.ledger.AddTrade(*result); err != nil && p.log != nil {
			p.log.Error("failed to append trade", zap.Error(err))
		}

		p.recordEquityPoint(b.Timestamp)
	}
}
