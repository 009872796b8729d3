// Package config loads and validates the run configuration a backtest job
// is submitted with, mirroring the teacher's BacktestEngineV1Config
// (yaml unmarshal, go-playground/validator tags, invopop/jsonschema
// generation, moznion/go-optional for nullable dates).
package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"

	"github.com/argoquant/dexterio/internal/types"
	"github.com/argoquant/dexterio/pkg/errors"
)

// RunConfig is the full set of parameters a backtest run is submitted
// with. Field set matches the run configuration record.
type RunConfig struct {
	RunName   string   `yaml:"run_name" json:"run_name" jsonschema:"title=Run Name" validate:"required"`
	Symbols   []string `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols" validate:"required,min=1,dive,required"`
	DataPaths []string `yaml:"data_paths" json:"data_paths" jsonschema:"title=Data Paths"`

	// PlaybookCatalogPath overrides where the Playbook Evaluator loads its
	// catalog yaml from. Empty means the repo-root default catalog.
	PlaybookCatalogPath string `yaml:"playbook_catalog_path" json:"playbook_catalog_path"`

	StartDate optional.Option[time.Time] `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date"`
	EndDate   optional.Option[time.Time] `yaml:"end_date" json:"end_date" jsonschema:"title=End Date"`

	HTFWarmupDays int `yaml:"htf_warmup_days" json:"htf_warmup_days" jsonschema:"title=HTF Warmup Days" validate:"gte=0"`

	TradingMode types.TradingMode `yaml:"trading_mode" json:"trading_mode" validate:"required,oneof=SAFE AGGRESSIVE"`
	TradeTypes  []types.TradeType `yaml:"trade_types" json:"trade_types" validate:"required,min=1,dive,oneof=DAILY SCALP"`

	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"gt=0"`
	BaseRiskPct    float64 `yaml:"base_risk_pct" json:"base_risk_pct" validate:"gt=0,lt=1"`
	ReducedRiskPct float64 `yaml:"reduced_risk_pct" json:"reduced_risk_pct" validate:"gt=0,lt=1"`

	CommissionModel types.CommissionModel `yaml:"commission_model" json:"commission_model" validate:"required,oneof=ibkr_fixed ibkr_tiered none"`
	EnableRegFees   bool                  `yaml:"enable_reg_fees" json:"enable_reg_fees"`

	SlippageModel types.SlippageModel `yaml:"slippage_model" json:"slippage_model" validate:"required,oneof=pct ticks none"`
	SlippagePct   float64             `yaml:"slippage_pct" json:"slippage_pct" validate:"gte=0"`
	SlippageTicks float64             `yaml:"slippage_ticks" json:"slippage_ticks" validate:"gte=0"`

	SpreadModel types.SpreadModel `yaml:"spread_model" json:"spread_model" validate:"required,oneof=fixed_bps none"`
	SpreadBps   float64           `yaml:"spread_bps" json:"spread_bps" validate:"gte=0"`

	ExportMarketState bool `yaml:"export_market_state" json:"export_market_state"`

	Allowlist []string `yaml:"allowlist" json:"allowlist"`
	Denylist  []string `yaml:"denylist" json:"denylist"`

	StopDayR              float64 `yaml:"stop_day_r" json:"stop_day_r" validate:"lte=0"`
	StopRunR              float64 `yaml:"stop_run_r" json:"stop_run_r" validate:"gte=0"`
	ConsecLossCooldownMin int     `yaml:"consec_loss_cooldown_min" json:"consec_loss_cooldown_min" validate:"gte=0"`

	// MinATRFloor is the configurable volatility-floor proxy the Playbook
	// Evaluator's gate checks against (ATR of the detection timeframe
	// below this rejects with volatility_insufficient).
	MinATRFloor float64 `yaml:"min_atr_floor" json:"min_atr_floor" validate:"gte=0"`
}

// yamlShadow mirrors RunConfig with plain *time.Time fields so yaml.v3 can
// unmarshal start_date/end_date before they are lifted into go-optional,
// exactly as the teacher's BacktestEngineV1Config.UnmarshalYAML does for
// StartTime/EndTime.
type yamlShadow struct {
	RunName             string   `yaml:"run_name"`
	Symbols             []string `yaml:"symbols"`
	DataPaths           []string `yaml:"data_paths"`
	PlaybookCatalogPath string   `yaml:"playbook_catalog_path"`

	StartDate *time.Time `yaml:"start_date"`
	EndDate   *time.Time `yaml:"end_date"`

	HTFWarmupDays int `yaml:"htf_warmup_days"`

	TradingMode types.TradingMode `yaml:"trading_mode"`
	TradeTypes  []types.TradeType `yaml:"trade_types"`

	InitialCapital float64 `yaml:"initial_capital"`
	BaseRiskPct    float64 `yaml:"base_risk_pct"`
	ReducedRiskPct float64 `yaml:"reduced_risk_pct"`

	CommissionModel types.CommissionModel `yaml:"commission_model"`
	EnableRegFees   bool                  `yaml:"enable_reg_fees"`

	SlippageModel types.SlippageModel `yaml:"slippage_model"`
	SlippagePct   float64             `yaml:"slippage_pct"`
	SlippageTicks float64             `yaml:"slippage_ticks"`

	SpreadModel types.SpreadModel `yaml:"spread_model"`
	SpreadBps   float64           `yaml:"spread_bps"`

	ExportMarketState bool `yaml:"export_market_state"`

	Allowlist []string `yaml:"allowlist"`
	Denylist  []string `yaml:"denylist"`

	StopDayR              float64 `yaml:"stop_day_r"`
	StopRunR              float64 `yaml:"stop_run_r"`
	ConsecLossCooldownMin int     `yaml:"consec_loss_cooldown_min"`
	MinATRFloor           float64 `yaml:"min_atr_floor"`
}

// UnmarshalYAML lifts the shadow struct's nullable date fields into
// optional.Option before assigning the rest verbatim.
func (c *RunConfig) UnmarshalYAML(value *yaml.Node) error {
	var shadow yamlShadow
	if err := value.Decode(&shadow); err != nil {
		return err
	}

	*c = RunConfig{
		RunName:               shadow.RunName,
		Symbols:               shadow.Symbols,
		DataPaths:             shadow.DataPaths,
		PlaybookCatalogPath:   shadow.PlaybookCatalogPath,
		HTFWarmupDays:         shadow.HTFWarmupDays,
		TradingMode:           shadow.TradingMode,
		TradeTypes:            shadow.TradeTypes,
		InitialCapital:        shadow.InitialCapital,
		BaseRiskPct:           shadow.BaseRiskPct,
		ReducedRiskPct:        shadow.ReducedRiskPct,
		CommissionModel:       shadow.CommissionModel,
		EnableRegFees:         shadow.EnableRegFees,
		SlippageModel:         shadow.SlippageModel,
		SlippagePct:           shadow.SlippagePct,
		SlippageTicks:         shadow.SlippageTicks,
		SpreadModel:           shadow.SpreadModel,
		SpreadBps:             shadow.SpreadBps,
		ExportMarketState:     shadow.ExportMarketState,
		Allowlist:             shadow.Allowlist,
		Denylist:              shadow.Denylist,
		StopDayR:              shadow.StopDayR,
		StopRunR:              shadow.StopRunR,
		ConsecLossCooldownMin: shadow.ConsecLossCooldownMin,
		MinATRFloor:           shadow.MinATRFloor,
	}

	if shadow.StartDate != nil {
		c.StartDate = optional.Some(*shadow.StartDate)
	} else {
		c.StartDate = optional.None[time.Time]()
	}

	if shadow.EndDate != nil {
		c.EndDate = optional.Some(*shadow.EndDate)
	} else {
		c.EndDate = optional.None[time.Time]()
	}

	return nil
}

// Default returns a RunConfig with the locked cost-model and risk
// defaults, requiring only run identity and symbol/date fields to be set
// by the caller.
func Default() RunConfig {
	return RunConfig{
		HTFWarmupDays:         40,
		TradingMode:           types.ModeSafe,
		TradeTypes:            []types.TradeType{types.TradeTypeDaily, types.TradeTypeScalp},
		InitialCapital:        50000,
		BaseRiskPct:           0.02,
		ReducedRiskPct:        0.01,
		CommissionModel:       types.CommissionIBKRFixed,
		EnableRegFees:         true,
		SlippageModel:         types.SlippagePct,
		SlippagePct:           0.0005,
		SlippageTicks:         1,
		SpreadModel:           types.SpreadFixedBps,
		SpreadBps:             2.0,
		StopDayR:              -4,
		StopRunR:              20,
		ConsecLossCooldownMin: 30,
		MinATRFloor:           0.05,
		StartDate:             optional.None[time.Time](),
		EndDate:               optional.None[time.Time](),
	}
}

// Load parses and validates a RunConfig from YAML bytes.
func Load(data []byte) (RunConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RunConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse run config yaml", err)
	}

	if err := cfg.Validate(); err != nil {
		return RunConfig{}, err
	}

	return cfg, nil
}

// Validate runs struct-tag validation and the cross-field checks the tags
// cannot express (reduced risk not above base risk, end date not before
// start date).
func (c *RunConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid run config", err)
	}

	if c.ReducedRiskPct > c.BaseRiskPct {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "reduced_risk_pct %.4f must not exceed base_risk_pct %.4f", c.ReducedRiskPct, c.BaseRiskPct)
	}

	if c.StartDate.IsSome() && c.EndDate.IsSome() {
		start := c.StartDate.Unwrap()
		end := c.EndDate.Unwrap()

		if end.Before(start) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "end_date %s precedes start_date %s", end, start)
		}
	}

	return nil
}

// GenerateSchema reflects a JSON Schema for RunConfig, mapping the
// go-optional date fields to a plain date-time string the way the teacher
// maps optional.Option[time.Time] for BacktestEngineV1Config.
func GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{Type: "string", Format: "date-time"}
			}

			if strings.HasPrefix(t.String(), "types.") {
				return nil
			}

			return nil
		},
	}

	schema := reflector.Reflect(&RunConfig{})
	schema.Title = "dexterio-run-config"
	schema.Description = "Configuration schema for an intraday backtest run"

	return schema, nil
}

// GenerateSchemaJSON renders GenerateSchema's result as indented JSON.
func GenerateSchemaJSON() (string, error) {
	schema, err := GenerateSchema()
	if err != nil {
		return "", err
	}

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal run config schema", err)
	}

	return string(out), nil
}

// ConfigSummary is the compact record list(limit) reports per job, per the
// job control surface's config_summary field.
type ConfigSummary struct {
	RunName     string            `json:"run_name"`
	Symbols     []string          `json:"symbols"`
	TradingMode types.TradingMode `json:"trading_mode"`
	TradeTypes  []types.TradeType `json:"trade_types"`
}

// Summarize extracts the fields list(limit) surfaces for one job.
func (c RunConfig) Summarize() ConfigSummary {
	return ConfigSummary{
		RunName:     c.RunName,
		Symbols:     c.Symbols,
		TradingMode: c.TradingMode,
		TradeTypes:  c.TradeTypes,
	}
}

// String renders a compact one-line description of the config, used in
// job logs.
func (c RunConfig) String() string {
	return fmt.Sprintf("run=%s symbols=%v mode=%s types=%v capital=%.2f", c.RunName, c.Symbols, c.TradingMode, c.TradeTypes, c.InitialCapital)
}

// ServerConfig governs the job runner's own process, distinct from any one
// run's RunConfig: how many jobs may be active at once and where the
// optional news/calendar gate plugin lives.
type ServerConfig struct {
	MaxConcurrentJobs int    `yaml:"max_concurrent_jobs" json:"max_concurrent_jobs"`
	NewsGateWasmPath  string `yaml:"news_gate_wasm_path" json:"news_gate_wasm_path"`
}

// DefaultServerConfig returns the locked single-worker default
// (max_concurrent_jobs=1), matching the original's single-slot admission
// gate in front of its two-worker pool.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{MaxConcurrentJobs: 1}
}
