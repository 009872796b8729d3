// Package playbook loads the declarative playbook catalog and evaluates
// it against current market state + patterns, per spec.md §4.4. The
// catalog itself is treated as configuration data, not invented logic,
// per spec.md §1.
package playbook

import (
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/argoquant/dexterio/internal/types"
	"github.com/argoquant/dexterio/pkg/errors"
)

// catalogFile is the on-disk shape of the playbook catalog, grounded on
// the teacher's yaml-config-struct convention
// (BacktestEngineV1Config-style top-level wrapper).
type catalogFile struct {
	Playbooks []types.Playbook `yaml:"playbooks"`
}

// LoadCatalog reads and validates the playbook catalog file at path. Any
// parse error fails the run with ErrCodeInvalidPlaybookSpec, per spec.md
// §6 ("any parse error fails the run with reason playbook_config_invalid").
func LoadCatalog(path string) ([]types.Playbook, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidPlaybookSpec, err, "playbook_config_invalid: failed to read %s", path)
	}

	var file catalogFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidPlaybookSpec, err, "playbook_config_invalid: failed to parse %s", path)
	}

	validate := validator.New()

	for i := range file.Playbooks {
		pb := &file.Playbooks[i]
		if err := validate.Struct(pb); err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidPlaybookSpec, err, "playbook_config_invalid: playbook %q", pb.Name)
		}

		if sum := pb.ScoringWeights.ICT + pb.ScoringWeights.Pattern + pb.ScoringWeights.Context; absf(sum-1.0) > 1e-6 {
			return nil, errors.Newf(errors.ErrCodeInvalidPlaybookSpec,
				"playbook_config_invalid: playbook %q scoring_weights sum to %.4f, want 1.0", pb.Name, sum)
		}
	}

	return file.Playbooks, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}

	return v
}
