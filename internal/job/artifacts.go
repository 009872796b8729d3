package job

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/argoquant/dexterio/internal/backtest"
	"github.com/argoquant/dexterio/pkg/errors"
)

// summaryDocument is the shape written to summary.json: overall metrics
// plus the by-playbook and by-day breakdowns, per spec.md §4.10.
type summaryDocument struct {
	Overall    interface{} `json:"overall"`
	ByPlaybook interface{} `json:"by_playbook"`
	ByDay      interface{} `json:"by_day"`
}

// writeSummaryArtifacts writes summary.json and debug_counts.json into
// jobDir from a completed Result.
func writeSummaryArtifacts(jobDir string, result *backtest.Result) error {
	doc := summaryDocument{
		Overall:    result.Summary,
		ByPlaybook: result.ByPlaybook,
		ByDay:      result.ByDay,
	}

	if err := writeJSON(filepath.Join(jobDir, "summary.json"), doc); err != nil {
		return err
	}

	return writeJSON(filepath.Join(jobDir, "debug_counts.json"), result.DebugCounts)
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(errors.ErrCodeJobArtifactWrite, err, "failed to marshal %s", filepath.Base(path))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeJobArtifactWrite, err, "failed to write %s", filepath.Base(path))
	}

	return nil
}
