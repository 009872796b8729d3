package types

import "time"

// Setup is the concrete trade candidate synthesized by the Setup Engine
// from the highest-graded PlaybookMatch on a bar, per spec.md §3/§4.5.
// Immutable once produced.
type Setup struct {
	ID                string            `yaml:"id" json:"id"`
	Ts                time.Time         `yaml:"ts" json:"ts"`
	Symbol            string            `yaml:"symbol" json:"symbol"`
	Direction         Direction         `yaml:"direction" json:"direction"`
	Quality           Grade             `yaml:"quality" json:"quality"`
	FinalScore        float64           `yaml:"final_score" json:"final_score"`
	TradeType         TradeType         `yaml:"trade_type" json:"trade_type"`
	Entry             float64           `yaml:"entry" json:"entry"`
	AnchorPrice       float64           `yaml:"anchor_price" json:"anchor_price"`
	Stop              float64           `yaml:"stop" json:"stop"`
	TP1               float64           `yaml:"tp1" json:"tp1"`
	TP2               float64           `yaml:"tp2" json:"tp2"`
	RiskReward        float64           `yaml:"risk_reward" json:"risk_reward"`
	MarketBias        Bias              `yaml:"market_bias" json:"market_bias"`
	Session           Session           `yaml:"session" json:"session"`
	DayType           DayType           `yaml:"day_type" json:"day_type"`
	DailyStructure    Structure         `yaml:"daily_structure" json:"daily_structure"`
	ConfluencesCount  int               `yaml:"confluences_count" json:"confluences_count"`
	Confluences       map[string]bool   `yaml:"confluences" json:"confluences"`
	PlaybookMatches   []PlaybookMatch   `yaml:"playbook_matches" json:"playbook_matches"`
	ICTPatterns       []PatternDetection `yaml:"ict_patterns" json:"ict_patterns"`
	Notes             string            `yaml:"notes,omitempty" json:"notes,omitempty"`
	PlaybookName      string            `yaml:"playbook_name" json:"playbook_name"`
}
