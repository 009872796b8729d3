package bar

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBSource reads bars for one or more symbols out of per-symbol
// parquet files, exposing them as a single timestamp-merged stream.
type DuckDBSource struct {
	db      *sql.DB
	log     *logger.Logger
	sq      squirrel.StatementBuilderType
	symbols []string
}

// NewDuckDBSource creates a DuckDB-backed bar source. The returned source
// must still be Initialize()d with the data root and symbol set.
func NewDuckDBSource(log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements Source. It discovers each symbol's parquet file and
// registers a view over it so ReadAll can query a uniform `bars` relation.
func (d *DuckDBSource) Initialize(dataRoot string, symbols []string) error {
	files, err := DiscoverAll(dataRoot, symbols)
	if err != nil {
		return err
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS bars;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	unions := make([]string, 0, len(files))
	for sym, path := range files {
		unions = append(unions, fmt.Sprintf(
			`SELECT datetime AS ts, '%s' AS symbol, open, high, low, close, volume FROM read_parquet('%s')`,
			sym, path))
	}

	sort.Strings(unions)

	query := "CREATE VIEW bars AS " + strings.Join(unions, " UNION ALL ")
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to create bars view", err)
	}

	d.symbols = symbols
	d.log.Debug("bar source initialized", zap.Strings("symbols", symbols))

	return nil
}

// ReadAll implements Source.
func (d *DuckDBSource) ReadAll(start, end optional.Option[time.Time]) func(yield func(Bar, error) bool) {
	return func(yield func(Bar, error) bool) {
		query, params := d.selectQuery(start, end)

		rows, err := d.db.Query(query, params...)
		if err != nil {
			yield(Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "bar query failed", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var b Bar
			if err := rows.Scan(&b.Timestamp, &b.Symbol, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
				if !yield(Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "bar scan failed", err)) {
					return
				}

				continue
			}

			if !yield(b, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "bar iteration failed", err))
		}
	}
}

// Count implements Source.
func (d *DuckDBSource) Count(start, end optional.Option[time.Time]) (int, error) {
	query, params := d.countQuery(start, end)

	var count int
	if err := d.db.QueryRow(query, params...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "bar count failed", err)
	}

	return count, nil
}

func (d *DuckDBSource) selectQuery(start, end optional.Option[time.Time]) (string, []interface{}) {
	query := "SELECT ts, symbol, open, high, low, close, volume FROM bars"
	where, params := timeRangeClause(start, end)
	query += where + " ORDER BY ts ASC, symbol ASC"

	return query, params
}

func (d *DuckDBSource) countQuery(start, end optional.Option[time.Time]) (string, []interface{}) {
	query := "SELECT COUNT(*) FROM bars"
	where, params := timeRangeClause(start, end)

	return query + where, params
}

func timeRangeClause(start, end optional.Option[time.Time]) (string, []interface{}) {
	var conditions []string

	var params []interface{}

	idx := 0

	if start.IsSome() {
		idx++
		conditions = append(conditions, fmt.Sprintf("ts >= $%d", idx))
		params = append(params, start.Unwrap())
	}

	if end.IsSome() {
		idx++
		conditions = append(conditions, fmt.Sprintf("ts <= $%d", idx))
		params = append(params, end.Unwrap())
	}

	if len(conditions) == 0 {
		return "", params
	}

	return " WHERE " + strings.Join(conditions, " AND "), params
}

// Close implements Source.
func (d *DuckDBSource) Close() error {
	if d.db == nil {
		return nil
	}

	return d.db.Close()
}
