// Package backtest orchestrates one end-to-end run: resolving the bar
// source, warming up the pipeline's HTF windows, walking the scored bar
// range, and computing the final metrics summary, adapted from the
// teacher's BacktestEngineV1.Run loop (open a datasource per symbol, feed
// every bar to the strategy in order, tear down at the end) generalized
// to the merged multi-symbol stream the Timeframe Aggregator expects.
package backtest

import (
	"context"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/config"
	"github.com/argoquant/dexterio/internal/logger"
	"github.com/argoquant/dexterio/internal/metrics"
	"github.com/argoquant/dexterio/internal/pipeline"
	"github.com/argoquant/dexterio/internal/playbook"
	"github.com/argoquant/dexterio/internal/reporoot"
	"github.com/argoquant/dexterio/internal/types"
	"github.com/argoquant/dexterio/pkg/errors"
)

// Progress reports the run's advancement through the scored bar range,
// for a job's live progress field or a CLI progress bar.
type Progress struct {
	BarsProcessed int
	TotalBars     int
}

// ProgressFunc receives a Progress update after every scored bar.
type ProgressFunc func(Progress)

// DebugCounts is the coarse per-run instrumentation snapshot spec.md §4.10
// requires every run to emit (debug_counts.json), sourced from the
// pipeline's Marker.
type DebugCounts map[string]int

// Result is everything one backtest run produces, ready for a job's
// artifact writers to serialize. Parquet artifacts are written directly to
// artifactDir by Run; ArtifactPaths reports their absolute paths.
type Result struct {
	Summary       metrics.Summary
	ByPlaybook    map[string]metrics.Summary
	ByDay         map[string]metrics.Summary
	DebugCounts   DebugCounts
	BarsProcessed int
	ArtifactPaths map[string]string
}

// Run executes one backtest for cfg, rooted at repoRoot, writing
// trades.parquet/equity.parquet (and market_state_stream.parquet when
// cfg.ExportMarketState is set) under artifactDir, reporting progress
// through progress if non-nil. ctx cancellation stops the walk after the
// in-flight bar finishes (a bar can never be preempted mid-processing, per
// spec.md §5).
func Run(ctx context.Context, cfg config.RunConfig, repoRoot, artifactDir string, log *logger.Logger, newsGate playbook.NewsGate, progress ProgressFunc) (*Result, error) {
	catalogPath := cfg.PlaybookCatalogPath
	if catalogPath == "" {
		catalogPath = filepath.Join(repoRoot, "config", "playbooks.yaml")
	}

	catalog, err := playbook.LoadCatalog(catalogPath)
	if err != nil {
		return nil, err
	}

	dataRoot := resolveDataRoot(cfg, repoRoot)

	src, err := bar.NewDuckDBSource(log)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	if err := src.Initialize(dataRoot, cfg.Symbols); err != nil {
		return nil, err
	}

	led, err := metrics.New(log)
	if err != nil {
		return nil, err
	}
	defer led.Close()

	pl := pipeline.New(cfg, catalog, led, log, newsGate)

	warmupStart, scoredStart, scoredEnd := resolveBounds(cfg)

	totalBars, err := src.Count(warmupStart, scoredEnd)
	if err != nil {
		return nil, err
	}

	lastBars := make(map[string]bar.Bar, len(cfg.Symbols))
	processed := 0

	var walkErr error

	for b, streamErr := range src.ReadAll(warmupStart, scoredEnd) {
		if streamErr != nil {
			walkErr = streamErr
			break
		}

		if err := ctx.Err(); err != nil {
			walkErr = err
			break
		}

		lastBars[b.Symbol] = b

		if scoredStart.IsSome() && b.Timestamp.Before(scoredStart.Unwrap()) {
			pl.IngestWarmup(b)
			continue
		}

		if err := pl.ProcessBar(b); err != nil {
			walkErr = err
			break
		}

		processed++

		if progress != nil {
			progress(Progress{BarsProcessed: processed, TotalBars: totalBars})
		}
	}

	if walkErr != nil {
		return nil, errors.Wrap(errors.ErrCodeAggregationFailed, "backtest run failed mid-stream", walkErr)
	}

	pl.ForceCloseAll(lastBars, types.ExitReasonSessionClose)

	trades, err := led.Trades()
	if err != nil {
		return nil, err
	}

	artifacts := map[string]string{
		"trades.parquet": filepath.Join(artifactDir, "trades.parquet"),
		"equity.parquet": filepath.Join(artifactDir, "equity.parquet"),
	}

	if err := led.ExportParquet(artifacts["trades.parquet"], artifacts["equity.parquet"]); err != nil {
		return nil, err
	}

	if cfg.ExportMarketState {
		path := filepath.Join(artifactDir, "market_state_stream.parquet")
		if err := led.ExportMarketStateParquet(path); err != nil {
			return nil, err
		}

		artifacts["market_state_stream.parquet"] = path
	}

	log.Info("backtest run complete",
		zap.String("run_name", cfg.RunName), zap.Int("bars_processed", pl.BarsProcessed()), zap.Int("trades", len(trades)))

	return &Result{
		Summary:       metrics.Compute(trades),
		ByPlaybook:    metrics.ByPlaybook(trades),
		ByDay:         metrics.ByDay(trades),
		DebugCounts:   pl.Marker().Counts(),
		BarsProcessed: pl.BarsProcessed(),
		ArtifactPaths: artifacts,
	}, nil
}

func resolveDataRoot(cfg config.RunConfig, repoRoot string) string {
	if len(cfg.DataPaths) > 0 {
		return cfg.DataPaths[0]
	}

	return reporoot.HistoricalDataPath(repoRoot, "1m")
}

// resolveBounds derives the warmup-adjusted query lower bound
// (start_date - htf_warmup_days, or unbounded if start_date is unset), the
// scored-range start (start_date, unbounded if unset), and the scored-range
// end (end_date, unbounded if unset), per spec.md §4.1.
func resolveBounds(cfg config.RunConfig) (warmupStart, scoredStart, scoredEnd optional.Option[time.Time]) {
	scoredStart = cfg.StartDate
	scoredEnd = cfg.EndDate

	if cfg.StartDate.IsNone() {
		warmupStart = optional.None[time.Time]()
		return
	}

	warmupFrom := cfg.StartDate.Unwrap().AddDate(0, 0, -cfg.HTFWarmupDays)
	warmupStart = optional.Some(warmupFrom)

	return
}
