// Package aggregator folds a 1-minute bar stream into bounded rolling
// windows at 5m/15m/1h/4h/1d, per spec.md §4.1. Grounded on the teacher's
// sliding-window cache
// (internal/backtest/engine/engine_v1/datasource/sliding_window_cache.go)
// generalized from a single cap to one cap per timeframe, and on
// original_source/backend/engines/timeframe_aggregator.py for the exact
// bucket-boundary tests.
package aggregator

import (
	"time"

	"github.com/argoquant/dexterio/internal/bar"
	"github.com/argoquant/dexterio/internal/types"
)

// DefaultFourHourCloseHoursUTC are the UTC hours (minute==59) at which a
// 4h bucket closes: the three aligned 4h buckets that overlap the US
// equity trading day, grounded on original_source's timeframe_aggregator
// bucket table (11:00/15:00/19:00 UTC closes).
var DefaultFourHourCloseHoursUTC = map[int]bool{11: true, 15: true, 19: true}

// Config parameterizes the boundary tests that are instrument/market
// specific rather than universal.
type Config struct {
	// FourHourCloseHoursUTC is the set of UTC hours at which a 4h bucket
	// is considered closed (checked together with minute==59).
	FourHourCloseHoursUTC map[int]bool
	// DailyCloseHourUTC is the UTC hour of the configured market-close,
	// checked together with minute==59 to close the 1d bucket.
	DailyCloseHourUTC int
}

// DefaultConfig returns the US equities default: 1d bucket closes at the
// 19:00 UTC bar (16:00 ET during daylight saving), matching original_source's
// timeframe_aggregator daily close hour.
func DefaultConfig() Config {
	return Config{
		FourHourCloseHoursUTC: DefaultFourHourCloseHoursUTC,
		DailyCloseHourUTC:     19,
	}
}

type bucket struct {
	open    float64
	high    float64
	low     float64
	close   float64
	volume  float64
	started bool
}

func (b *bucket) add(bar bar.Bar) {
	if !b.started {
		b.open = bar.Open
		b.high = bar.High
		b.low = bar.Low
		b.started = true
	} else {
		b.high = max(b.high, bar.High)
		b.low = min(b.low, bar.Low)
	}

	b.close = bar.Close
	b.volume += bar.Volume
}

func (b *bucket) fold(symbol string, ts time.Time) bar.Bar {
	return bar.Bar{
		Timestamp: ts,
		Symbol:    symbol,
		Open:      b.open,
		High:      b.high,
		Low:       b.low,
		Close:     b.close,
		Volume:    b.volume,
	}
}

func (b *bucket) reset() {
	*b = bucket{}
}

type symbolState struct {
	windows  map[types.Timeframe][]bar.Bar
	buckets  map[types.Timeframe]*bucket
}

func newSymbolState() *symbolState {
	s := &symbolState{
		windows: make(map[types.Timeframe][]bar.Bar),
		buckets: make(map[types.Timeframe]*bucket),
	}

	for _, tf := range higherTimeframes {
		s.buckets[tf] = &bucket{}
	}

	return s
}

var higherTimeframes = []types.Timeframe{types.TF5m, types.TF15m, types.TF1h, types.TF4h, types.TF1d}

// Aggregator maintains per-symbol rolling windows at 1m/5m/15m/1h/4h/1d.
type Aggregator struct {
	cfg     Config
	symbols map[string]*symbolState
}

// New creates an Aggregator with the given boundary configuration.
func New(cfg Config) *Aggregator {
	return &Aggregator{cfg: cfg, symbols: make(map[string]*symbolState)}
}

func (a *Aggregator) state(symbol string) *symbolState {
	s, ok := a.symbols[symbol]
	if !ok {
		s = newSymbolState()
		a.symbols[symbol] = s
	}

	return s
}

// Ingest updates the 1m window unconditionally, then for every higher
// timeframe whose bucket this bar closes, folds and appends the
// aggregated bar to that window. Returns the set of timeframes closed by
// this bar (always including 1m). No bar is ever re-delivered; windows are
// append-only except for cap eviction, per spec.md §4.1.
func (a *Aggregator) Ingest(b bar.Bar) []types.Timeframe {
	s := a.state(b.Symbol)

	closed := []types.Timeframe{types.TF1m}
	appendCapped(s.windows, types.TF1m, b)

	for _, tf := range higherTimeframes {
		bkt := s.buckets[tf]
		bkt.add(b)

		if a.boundaryClosed(tf, b.Timestamp) {
			folded := bkt.fold(b.Symbol, b.Timestamp)
			appendCapped(s.windows, tf, folded)
			bkt.reset()
			closed = append(closed, tf)
		}
	}

	return closed
}

func appendCapped(windows map[types.Timeframe][]bar.Bar, tf types.Timeframe, b bar.Bar) {
	w := append(windows[tf], b)

	cap := types.WindowCap[tf]
	if len(w) > cap {
		w = w[len(w)-cap:]
	}

	windows[tf] = w
}

// boundaryClosed implements the per-timeframe boundary tests of spec.md
// §4.1, evaluated on the 1m bar's UTC timestamp.
func (a *Aggregator) boundaryClosed(tf types.Timeframe, ts time.Time) bool {
	minute := ts.Minute()
	hour := ts.Hour()

	switch tf {
	case types.TF5m:
		return minute%5 == 4
	case types.TF15m:
		return minute == 14 || minute == 29 || minute == 44 || minute == 59
	case types.TF1h:
		return minute == 59
	case types.TF4h:
		return minute == 59 && a.cfg.FourHourCloseHoursUTC[hour]
	case types.TF1d:
		return minute == 59 && hour == a.cfg.DailyCloseHourUTC
	default:
		return false
	}
}

// Window returns the current rolling window for one symbol/timeframe. The
// returned slice is the aggregator's own backing array and must be treated
// as read-only by the caller (sorted strictly ascending by ts; the last
// entry is the most recently closed bar; no partial bars are ever
// exposed).
func (a *Aggregator) Window(symbol string, tf types.Timeframe) []bar.Bar {
	s, ok := a.symbols[symbol]
	if !ok {
		return nil
	}

	return s.windows[tf]
}

// LastTs returns the timestamp of the most recently closed bar in a
// window, used by marketstate.Engine to build its cache fingerprint.
func (a *Aggregator) LastTs(symbol string, tf types.Timeframe) (time.Time, bool) {
	w := a.Window(symbol, tf)
	if len(w) == 0 {
		return time.Time{}, false
	}

	return w[len(w)-1].Timestamp, true
}

// Reset discards all accumulated state, used to exercise the
// re-feed-is-idempotent law (spec.md §8) in tests.
func (a *Aggregator) Reset() {
	a.symbols = make(map[string]*symbolState)
}
