// Package execution owns open positions end-to-end: fills entries, walks
// stop/target/time/session exits bar by bar, and produces cost-adjusted
// TradeResult records, per spec.md §4.7.
package execution

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/execution/commission"
	"github.com/argoquant/dexterio/internal/execution/regfees"
	"github.com/argoquant/dexterio/internal/execution/slippage"
	"github.com/argoquant/dexterio/internal/execution/spread"
	"github.com/argoquant/dexterio/internal/types"
)

// Config bundles the cost-model selection and behavior knobs a run
// configures for the Execution Simulator.
type Config struct {
	CommissionModel    types.CommissionModel
	EnableRegFees      bool
	Slippage           slippage.Config
	SpreadModel        types.SpreadModel
	SpreadBps          float64
	ImmediateFill      bool // true = fill at current bar close, false = next bar open
	ScalpMaxDuration   time.Duration
	Tp1PartialFraction float64
	InitialCapital     float64
	BaseRiskPct        float64
}

// Simulator owns the open-position table for one run.
type Simulator struct {
	cfg         Config
	commission  commission.Model
	slip        slippage.Model
	spreadModel spread.Model
	open        map[string]*types.Position
}

// New creates a Simulator from cfg.
func New(cfg Config) *Simulator {
	return &Simulator{
		cfg:         cfg,
		commission:  commission.Get(cfg.CommissionModel),
		slip:        slippage.Get(cfg.Slippage),
		spreadModel: spread.Get(cfg.SpreadModel, cfg.SpreadBps),
		open:        map[string]*types.Position{},
	}
}

// HasOpenPosition backs the Setup Engine's duplicate-suppression rule.
func (s *Simulator) HasOpenPosition(symbol string, direction types.Direction) bool {
	_, ok := s.open[openKey(symbol, direction)]
	return ok
}

// OpenPositions returns every currently open position, for time-stop and
// session-close sweeps over the whole book.
func (s *Simulator) OpenPositions() []*types.Position {
	out := make([]*types.Position, 0, len(s.open))
	for _, p := range s.open {
		out = append(out, p)
	}

	return out
}

// EntryFillPrice resolves the configured entry-fill convention, per
// spec.md §4.7 ("next bar's open, or current bar's close if the config
// selects immediate fill").
func (s *Simulator) EntryFillPrice(currentClose, nextOpen float64) float64 {
	if s.cfg.ImmediateFill {
		return currentClose
	}

	return nextOpen
}

// Open admits a sized setup into the book, applying entry-leg costs at
// fill, per spec.md §4.7.
func (s *Simulator) Open(setup types.Setup, shares float64, tier types.RiskTier, fillPrice float64, ts time.Time) *types.Position {
	entryFill := s.fillCost(setup.Direction, fillPrice, shares, true)
	entryFill.Ts = ts

	pos := &types.Position{
		SetupID:         setup.ID,
		PlaybookName:    setup.PlaybookName,
		Symbol:          setup.Symbol,
		Direction:       setup.Direction,
		TradeType:       setup.TradeType,
		RiskTier:        tier,
		Shares:          shares,
		EntryPrice:      fillPrice,
		Stop:            setup.Stop,
		OriginalStop:    setup.Stop,
		TP1:             setup.TP1,
		TP2:             setup.TP2,
		RiskDollars:     shares * absf(fillPrice-setup.Stop),
		RemainingShares: shares,
		State:           types.PositionStateOpen,
		Fills:           []types.Fill{entryFill},
		OpenedTs:        ts,
		MaxDuration:     s.maxDuration(setup.TradeType),
		Setup:           setup,
	}

	s.open[openKey(setup.Symbol, setup.Direction)] = pos

	return pos
}

// ProcessBar advances one open position by one bar, applying exits per
// spec.md §4.7's tie-break convention, and returns the closed TradeResult
// if the position fully exits this bar.
func (s *Simulator) ProcessBar(pos *types.Position, b bar.Bar, session types.Session) *types.TradeResult {
	if !pos.IsOpen() {
		return nil
	}

	s.checkBreakevenTrigger(pos, b)

	primary, secondary := s.checkStop, s.checkTargets
	if !s.adverseFirst(pos.Direction, b) {
		primary, secondary = s.checkTargets, s.checkStop
	}

	handled := primary(pos, b)
	if !handled {
		handled = secondary(pos, b)
	}

	if !handled && pos.IsOpen() {
		s.checkTimeStop(pos, b)
		handled = !pos.IsOpen()
	}

	if !handled && pos.IsOpen() && session == types.SessionOff {
		s.closeAll(pos, b.Close, b.Timestamp, types.ExitReasonSessionClose)
	}

	if pos.State == types.PositionStateClosed {
		return s.buildTradeResult(pos)
	}

	return nil
}

func (s *Simulator) checkStop(pos *types.Position, b bar.Bar) bool {
	hit := b.Low <= pos.Stop
	if pos.Direction == types.DirectionBearish {
		hit = b.High >= pos.Stop
	}

	if !hit {
		return false
	}

	s.closeAll(pos, pos.Stop, b.Timestamp, types.ExitReasonStop)

	return true
}

func (s *Simulator) checkTargets(pos *types.Position, b bar.Bar) bool {
	if targetHit(pos.Direction, b, pos.TP2) {
		s.closeAll(pos, pos.TP2, b.Timestamp, types.ExitReasonTP2)
		return true
	}

	if targetHit(pos.Direction, b, pos.TP1) && !pos.TP1Filled {
		s.partialExit(pos, pos.TP1, b.Timestamp)
		return true
	}

	return false
}

func (s *Simulator) checkTimeStop(pos *types.Position, b bar.Bar) {
	if pos.MaxDuration <= 0 {
		return
	}

	if b.Timestamp.Sub(pos.OpenedTs) >= pos.MaxDuration {
		s.closeAll(pos, b.Close, b.Timestamp, types.ExitReasonTimeStop)
	}
}

// checkBreakevenTrigger implements the breakeven-stop-move supplement:
// once unrealized favorable excursion reaches +0.5R the stop moves to
// breakeven exactly once, independent of the tp1 partial-exit policy.
func (s *Simulator) checkBreakevenTrigger(pos *types.Position, b bar.Bar) {
	if pos.BreakevenMoved {
		return
	}

	riskPerShare := absf(pos.EntryPrice - pos.OriginalStop)
	if riskPerShare <= 0 {
		return
	}

	var favorable float64
	if pos.Direction == types.DirectionBullish {
		favorable = b.High - pos.EntryPrice
	} else {
		favorable = pos.EntryPrice - b.Low
	}

	if favorable >= 0.5*riskPerShare {
		pos.Stop = pos.EntryPrice
		pos.BreakevenMoved = true
	}
}

func (s *Simulator) partialExit(pos *types.Position, price float64, ts time.Time) {
	shares := math.Floor(pos.Shares * s.tp1Fraction())
	if shares <= 0 || shares > pos.RemainingShares {
		shares = pos.RemainingShares
	}

	fill := s.fillCost(pos.Direction, price, shares, false)
	fill.Ts = ts
	fill.ExitReason = types.ExitReasonTP1
	pos.Fills = append(pos.Fills, fill)
	pos.RemainingShares -= shares
	pos.TP1Filled = true

	if !pos.BreakevenMoved {
		pos.Stop = pos.EntryPrice
		pos.BreakevenMoved = true
	}

	if pos.RemainingShares <= 0 {
		s.finalizeClose(pos, ts)
	}
}

func (s *Simulator) closeAll(pos *types.Position, price float64, ts time.Time, reason types.ExitReason) {
	shares := pos.RemainingShares
	fill := s.fillCost(pos.Direction, price, shares, false)
	fill.Ts = ts
	fill.ExitReason = reason
	pos.Fills = append(pos.Fills, fill)
	pos.RemainingShares = 0
	s.finalizeClose(pos, ts)
}

func (s *Simulator) finalizeClose(pos *types.Position, ts time.Time) {
	pos.State = types.PositionStateClosed
	closed := ts
	pos.ClosedTs = &closed
	delete(s.open, openKey(pos.Symbol, pos.Direction))
}

// fillCost applies the commission, regulatory-fee, slippage and spread
// models to one leg, per spec.md §4.7. Regulatory fees apply only on
// sells: closing a long or opening a short.
func (s *Simulator) fillCost(direction types.Direction, price, shares float64, isEntry bool) types.Fill {
	isSell := (direction == types.DirectionBullish && !isEntry) || (direction == types.DirectionBearish && isEntry)

	var reg float64
	if s.cfg.EnableRegFees {
		reg = regfees.Calculate(shares, price, isSell)
	}

	return types.Fill{
		Price:      price,
		Shares:     shares,
		IsEntry:    isEntry,
		Commission: s.commission.Calculate(shares, price),
		RegFees:    reg,
		Slippage:   s.slip.Calculate(price, shares),
		SpreadCost: s.spreadModel.Calculate(price, shares),
	}
}

// buildTradeResult aggregates a fully closed position's fills into a
// TradeResult, accumulating money amounts in decimal to avoid float drift
// across legs before converting back to float64 for the public record.
func (s *Simulator) buildTradeResult(pos *types.Position) *types.TradeResult {
	var entryNotional, exitNotional, totalCosts decimal.Decimal
	var entryCommission, entryReg, entrySlip, entrySpread decimal.Decimal
	var exitCommission, exitReg, exitSlip, exitSpread decimal.Decimal

	var lastExitPrice float64
	var lastExitReason types.ExitReason
	var lastExitTs time.Time

	for _, f := range pos.Fills {
		legCost := decimal.NewFromFloat(f.Commission + f.RegFees + f.Slippage + f.SpreadCost)
		totalCosts = totalCosts.Add(legCost)
		notional := decimal.NewFromFloat(f.Price * f.Shares)

		if f.IsEntry {
			entryNotional = entryNotional.Add(notional)
			entryCommission = entryCommission.Add(decimal.NewFromFloat(f.Commission))
			entryReg = entryReg.Add(decimal.NewFromFloat(f.RegFees))
			entrySlip = entrySlip.Add(decimal.NewFromFloat(f.Slippage))
			entrySpread = entrySpread.Add(decimal.NewFromFloat(f.SpreadCost))

			continue
		}

		exitNotional = exitNotional.Add(notional)
		exitCommission = exitCommission.Add(decimal.NewFromFloat(f.Commission))
		exitReg = exitReg.Add(decimal.NewFromFloat(f.RegFees))
		exitSlip = exitSlip.Add(decimal.NewFromFloat(f.Slippage))
		exitSpread = exitSpread.Add(decimal.NewFromFloat(f.SpreadCost))
		lastExitPrice = f.Price
		lastExitReason = f.ExitReason
		lastExitTs = f.Ts
	}

	grossProfit := exitNotional.Sub(entryNotional)
	if pos.Direction == types.DirectionBearish {
		grossProfit = entryNotional.Sub(exitNotional)
	}

	netProfit := grossProfit.Sub(totalCosts)
	pnlGross, _ := grossProfit.Float64()
	pnlNet, _ := netProfit.Float64()

	var rMultiple, grossR, rAccount float64

	if pos.RiskDollars > 0 {
		rMultiple = pnlNet / pos.RiskDollars
		grossR = pnlGross / pos.RiskDollars
	}

	if base := s.cfg.InitialCapital * s.cfg.BaseRiskPct; base > 0 {
		rAccount = pnlNet / base
	}

	return &types.TradeResult{
		SetupID:      pos.SetupID,
		PlaybookName: pos.PlaybookName,
		Symbol:       pos.Symbol,
		Direction:    pos.Direction,
		TradeType:    pos.TradeType,

		Shares:     pos.Shares,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  lastExitPrice,
		Stop:       pos.OriginalStop,

		EntryTs: pos.OpenedTs,
		ExitTs:  lastExitTs,

		EntryCommission: toFloat(entryCommission),
		EntryRegFees:    toFloat(entryReg),
		EntrySlippage:   toFloat(entrySlip),
		EntrySpreadCost: toFloat(entrySpread),

		ExitCommission: toFloat(exitCommission),
		ExitRegFees:    toFloat(exitReg),
		ExitSlippage:   toFloat(exitSlip),
		ExitSpreadCost: toFloat(exitSpread),

		TotalCosts: toFloat(totalCosts),

		PnLGrossDollars: pnlGross,
		PnLNetDollars:   pnlNet,
		PnLGrossR:       grossR,
		PnLNetR:         rMultiple,
		RMultiple:       rMultiple,
		PnLRAccount:     rAccount,

		RiskTier:   pos.RiskTier,
		Outcome:    types.OutcomeFromPnL(pnlNet),
		ExitReason: lastExitReason,
	}
}

func (s *Simulator) maxDuration(t types.TradeType) time.Duration {
	if t == types.TradeTypeScalp {
		if s.cfg.ScalpMaxDuration > 0 {
			return s.cfg.ScalpMaxDuration
		}

		return 30 * time.Minute
	}

	return 0
}

func (s *Simulator) tp1Fraction() float64 {
	if s.cfg.Tp1PartialFraction > 0 {
		return s.cfg.Tp1PartialFraction
	}

	return 0.5
}

// adverseFirst implements spec.md §4.7's tie-break convention: for longs,
// adverse-first (stop before target) if the bar closed below its open,
// target-first otherwise, with adverse-first as the open==close fallback;
// symmetric for shorts.
func (s *Simulator) adverseFirst(direction types.Direction, b bar.Bar) bool {
	if direction == types.DirectionBullish {
		if b.Close > b.Open {
			return false
		}

		return true
	}

	if b.Close < b.Open {
		return false
	}

	return true
}

func targetHit(direction types.Direction, b bar.Bar, target float64) bool {
	if target <= 0 {
		return false
	}

	if direction == types.DirectionBullish {
		return b.High >= target
	}

	return b.Low <= target
}

func openKey(symbol string, direction types.Direction) string {
	return fmt.Sprintf("%s|%s", symbol, direction)
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
