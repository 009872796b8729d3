package bar

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/argoquant/dexterio/pkg/errors"
)

// DiscoverSymbolFile resolves the on-disk parquet file for one symbol under
// dataRoot, in priority order: `SYM.parquet`, `sym.parquet`, then a legacy
// glob `sym_1m_*.parquet` (most recent match by name). Returns
// ErrCodeDataNotFound if nothing matches.
func DiscoverSymbolFile(dataRoot, symbol string) (string, error) {
	upper := filepath.Join(dataRoot, symbol+".parquet")
	if fileExists(upper) {
		return upper, nil
	}

	lower := filepath.Join(dataRoot, strings.ToLower(symbol)+".parquet")
	if fileExists(lower) {
		return lower, nil
	}

	pattern := filepath.Join(dataRoot, strings.ToLower(symbol)+"_1m_*.parquet")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeDataNotFound, err, "glob failed for symbol %s", symbol)
	}

	if len(matches) > 0 {
		return matches[len(matches)-1], nil
	}

	return "", errors.Newf(errors.ErrCodeDataNotFound,
		"data_file_not_found: no bar file for symbol %s under %s", symbol, dataRoot)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DiscoverAll resolves files for every symbol, failing the run on the first
// missing symbol per the spec's fail-fast discovery contract.
func DiscoverAll(dataRoot string, symbols []string) (map[string]string, error) {
	out := make(map[string]string, len(symbols))

	for _, sym := range symbols {
		path, err := DiscoverSymbolFile(dataRoot, sym)
		if err != nil {
			return nil, fmt.Errorf("data_file_not_found: %w", err)
		}

		out[sym] = path
	}

	return out, nil
}
