package bar

import (
	"time"

	"github.com/moznion/go-optional"
)

// Source is an ordered, finite stream of minute bars, one logical stream
// per symbol. Implementations never re-deliver a bar once yielded.
type Source interface {
	// Initialize opens the underlying storage for the given symbols rooted
	// at dataRoot, resolving each symbol's file per the discovery rules.
	Initialize(dataRoot string, symbols []string) error
	// ReadAll streams bars across every configured symbol merged by
	// timestamp, ties broken by symbol name, optionally bounded by
	// [start, end] (inclusive). Warmup bars before start are included when
	// start is set to the warmup-adjusted lower bound by the caller.
	ReadAll(start, end optional.Option[time.Time]) func(yield func(Bar, error) bool)
	// Count returns the number of bars that ReadAll would yield for the
	// given bounds, without materializing them.
	Count(start, end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the source.
	Close() error
}
