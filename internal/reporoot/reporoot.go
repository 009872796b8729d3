// Package reporoot resolves the repository root deterministically across
// OSes, grounded 1:1 on the original implementation's
// utils/path_resolver.get_repo_root: env override, container marker,
// resolver-file-relative fallback, then cwd.
package reporoot

import (
	"os"
	"path/filepath"
	"runtime"
)

const envOverride = "DEXTERIO_REPO_ROOT"

// Resolve returns the repository root using the priority order: explicit
// env override, Docker container marker, resolver-source-relative
// fallback, current working directory. The container-marker branch is
// skipped on Windows, matching the locked behavior.
func Resolve() string {
	if override := os.Getenv(envOverride); override != "" {
		if abs, err := filepath.Abs(override); err == nil {
			if dirExists(abs) {
				return abs
			}
		}
	}

	if runtime.GOOS != "windows" {
		if _, err := os.Stat("/.dockerenv"); err == nil {
			if dirExists("/app/backend") {
				return "/app"
			}
		}
	}

	if _, file, _, ok := runtime.Caller(0); ok {
		candidate := filepath.Dir(filepath.Dir(file))
		if dirExists(filepath.Join(candidate, "backend")) {
			return candidate
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		return cwd
	}

	return "."
}

func dirExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.IsDir()
}

// DataPath joins the repo root with "data" and the given parts.
func DataPath(root string, parts ...string) string {
	return filepath.Join(append([]string{root, "data"}, parts...)...)
}

// HistoricalDataPath joins the repo root with data/historical/<timeframe>
// and the given parts.
func HistoricalDataPath(root, timeframe string, parts ...string) string {
	return filepath.Join(append([]string{root, "data", "historical", timeframe}, parts...)...)
}

// ResultsPath joins the repo root with "results" and the given parts.
func ResultsPath(root string, parts ...string) string {
	return filepath.Join(append([]string{root, "results"}, parts...)...)
}

