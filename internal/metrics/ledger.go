package metrics

import (
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/internal/types"
	"github.com/argoquant/dexterio/pkg/errors"
)

// Ledger is the append-only, in-process-DuckDB-backed store of closed
// trades and equity points for one run, grounded on the teacher's
// internal/trading/engine/engine_v1/writers.TradesWriter (in-memory
// DuckDB table, flushed to parquet via COPY).
type Ledger struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

// New opens an in-memory DuckDB-backed Ledger and creates its tables.
func New(log *logger.Logger) (*Ledger, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open ledger duckdb", err)
	}

	l := &Ledger{db: db, sq: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar), log: log}
	if err := l.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return l, nil
}

func (l *Ledger) createTables() error {
	if _, err := l.db.Exec(`
		CREATE TABLE trades (
			setup_id TEXT, playbook_name TEXT, symbol TEXT, direction TEXT, trade_type TEXT,
			shares DOUBLE, entry_price DOUBLE, exit_price DOUBLE, stop DOUBLE,
			entry_ts TIMESTAMP, exit_ts TIMESTAMP,
			entry_commission DOUBLE, entry_reg_fees DOUBLE, entry_slippage DOUBLE, entry_spread_cost DOUBLE,
			exit_commission DOUBLE, exit_reg_fees DOUBLE, exit_slippage DOUBLE, exit_spread_cost DOUBLE,
			total_costs DOUBLE,
			pnl_gross_dollars DOUBLE, pnl_net_dollars DOUBLE, pnl_gross_r DOUBLE, pnl_net_r DOUBLE,
			r_multiple DOUBLE, pnl_r_account DOUBLE,
			risk_tier TEXT, outcome TEXT, exit_reason TEXT
		)
	`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create trades table", err)
	}

	if _, err := l.db.Exec(`
		CREATE TABLE equity (
			ts TIMESTAMP, equity_dollars DOUBLE, cumulative_r DOUBLE, drawdown_r DOUBLE
		)
	`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create equity table", err)
	}

	if _, err := l.db.Exec(`
		CREATE TABLE market_states (
			symbol TEXT, ts TIMESTAMP, daily_structure TEXT, h4_structure TEXT, h1_structure TEXT,
			bias TEXT, session TEXT, day_type TEXT
		)
	`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create market_states table", err)
	}

	return nil
}

// AddMarketState appends one MarketState snapshot, used only when a run's
// export_market_state flag is set. Liquidity levels are not persisted here
// since they are a per-bar working set, not a reporting artifact.
func (l *Ledger) AddMarketState(s types.MarketState) error {
	query, args, err := l.sq.Insert("market_states").
		Columns("symbol", "ts", "daily_structure", "h4_structure", "h1_structure", "bias", "session", "day_type").
		Values(s.Symbol, s.Ts, string(s.DailyStructure), string(s.H4Structure), string(s.H1Structure),
			string(s.Bias), string(s.Session), string(s.DayType)).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build market state insert", err)
	}

	if _, err := l.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert market state", err)
	}

	return nil
}

// AddTrade appends one closed trade to the ledger.
func (l *Ledger) AddTrade(t types.TradeResult) error {
	query, args, err := l.sq.Insert("trades").Columns(
		"setup_id", "playbook_name", "symbol", "direction", "trade_type",
		"shares", "entry_price", "exit_price", "stop",
		"entry_ts", "exit_ts",
		"entry_commission", "entry_reg_fees", "entry_slippage", "entry_spread_cost",
		"exit_commission", "exit_reg_fees", "exit_slippage", "exit_spread_cost",
		"total_costs",
		"pnl_gross_dollars", "pnl_net_dollars", "pnl_gross_r", "pnl_net_r",
		"r_multiple", "pnl_r_account",
		"risk_tier", "outcome", "exit_reason",
	).Values(
		t.SetupID, t.PlaybookName, t.Symbol, string(t.Direction), string(t.TradeType),
		t.Shares, t.EntryPrice, t.ExitPrice, t.Stop,
		t.EntryTs, t.ExitTs,
		t.EntryCommission, t.EntryRegFees, t.EntrySlippage, t.EntrySpreadCost,
		t.ExitCommission, t.ExitRegFees, t.ExitSlippage, t.ExitSpreadCost,
		t.TotalCosts,
		t.PnLGrossDollars, t.PnLNetDollars, t.PnLGrossR, t.PnLNetR,
		t.RMultiple, t.PnLRAccount,
		string(t.RiskTier), string(t.Outcome), string(t.ExitReason),
	).ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build trade insert", err)
	}

	if _, err := l.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert trade", err)
	}

	return nil
}

// AddEquityPoint appends one equity sample to the ledger.
func (l *Ledger) AddEquityPoint(p types.EquityPoint) error {
	query, args, err := l.sq.Insert("equity").
		Columns("ts", "equity_dollars", "cumulative_r", "drawdown_r").
		Values(p.Ts, p.EquityDollars, p.CumulativeR, p.DrawdownR).
		ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build equity insert", err)
	}

	if _, err := l.db.Exec(query, args...); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert equity point", err)
	}

	return nil
}

// Trades returns every closed trade ordered by exit timestamp, oldest first.
func (l *Ledger) Trades() ([]types.TradeResult, error) {
	rows, err := l.db.Query(`
		SELECT setup_id, playbook_name, symbol, direction, trade_type,
			shares, entry_price, exit_price, stop, entry_ts, exit_ts,
			entry_commission, entry_reg_fees, entry_slippage, entry_spread_cost,
			exit_commission, exit_reg_fees, exit_slippage, exit_spread_cost,
			total_costs, pnl_gross_dollars, pnl_net_dollars, pnl_gross_r, pnl_net_r,
			r_multiple, pnl_r_account, risk_tier, outcome, exit_reason
		FROM trades ORDER BY exit_ts ASC
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var out []types.TradeResult

	for rows.Next() {
		var t types.TradeResult
		var direction, tradeType, riskTier, outcome, exitReason string

		if err := rows.Scan(
			&t.SetupID, &t.PlaybookName, &t.Symbol, &direction, &tradeType,
			&t.Shares, &t.EntryPrice, &t.ExitPrice, &t.Stop, &t.EntryTs, &t.ExitTs,
			&t.EntryCommission, &t.EntryRegFees, &t.EntrySlippage, &t.EntrySpreadCost,
			&t.ExitCommission, &t.ExitRegFees, &t.ExitSlippage, &t.ExitSpreadCost,
			&t.TotalCosts, &t.PnLGrossDollars, &t.PnLNetDollars, &t.PnLGrossR, &t.PnLNetR,
			&t.RMultiple, &t.PnLRAccount, &riskTier, &outcome, &exitReason,
		); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		t.Direction = types.Direction(direction)
		t.TradeType = types.TradeType(tradeType)
		t.RiskTier = types.RiskTier(riskTier)
		t.Outcome = types.Outcome(outcome)
		t.ExitReason = types.ExitReason(exitReason)
		out = append(out, t)
	}

	return out, rows.Err()
}

// EquityPoints returns every recorded equity sample in ts order.
func (l *Ledger) EquityPoints() ([]types.EquityPoint, error) {
	rows, err := l.db.Query(`SELECT ts, equity_dollars, cumulative_r, drawdown_r FROM equity ORDER BY ts ASC`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query equity", err)
	}
	defer rows.Close()

	var out []types.EquityPoint

	for rows.Next() {
		var p types.EquityPoint
		if err := rows.Scan(&p.Ts, &p.EquityDollars, &p.CumulativeR, &p.DrawdownR); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan equity point", err)
		}

		out = append(out, p)
	}

	return out, rows.Err()
}

// ExportParquet flushes both tables to the given paths via DuckDB's COPY
// TO ... (FORMAT PARQUET), matching the teacher's writer pattern.
func (l *Ledger) ExportParquet(tradesPath, equityPath string) error {
	if _, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM trades ORDER BY exit_ts ASC) TO '%s' (FORMAT PARQUET)`, tradesPath)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export trades parquet", err)
	}

	if _, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM equity ORDER BY ts ASC) TO '%s' (FORMAT PARQUET)`, equityPath)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export equity parquet", err)
	}

	return nil
}

// ExportMarketStateParquet flushes the market_states table, used only when
// export_market_state is enabled for the run.
func (l *Ledger) ExportMarketStateParquet(path string) error {
	if _, err := l.db.Exec(fmt.Sprintf(`COPY (SELECT * FROM market_states ORDER BY ts ASC) TO '%s' (FORMAT PARQUET)`, path)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to export market state parquet", err)
	}

	return nil
}

// Close releases the underlying DuckDB connection.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}

	return l.db.Close()
}
