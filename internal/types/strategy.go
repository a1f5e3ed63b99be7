package types

// MAType identifies a moving average computation.
type MAType string

const (
	MATypeSMA  MAType = "SMA"
	MATypeEMA  MAType = "EMA"
	MATypeWMA  MAType = "WMA"
	MATypeDEMA MAType = "DEMA"
	MATypeTEMA MAType = "TEMA"
	MATypeHMA  MAType = "HMA"
	MATypeVWAP MAType = "VWAP"
)

// AllMATypes returns the supported MA types in their canonical iteration
// order. The optimizer relies on this order for deterministic tie-breaking.
func AllMATypes() []MAType {
	return []MAType{
		MATypeSMA,
		MATypeEMA,
		MATypeWMA,
		MATypeDEMA,
		MATypeTEMA,
		MATypeHMA,
		MATypeVWAP,
	}
}

// Valid reports whether the MA type is a known member of the closed set.
func (m MAType) Valid() bool {
	switch m {
	case MATypeSMA, MATypeEMA, MATypeWMA, MATypeDEMA, MATypeTEMA, MATypeHMA, MATypeVWAP:
		return true
	default:
		return false
	}
}

const (
	// MinMALength is the shortest MA length the optimizer considers.
	MinMALength = 5
	// MaxMALength is the longest MA length the optimizer considers.
	MaxMALength = 30
)

// MAConfig is a single moving average candidate configuration.
type MAConfig struct {
	Type   MAType `json:"type" yaml:"type"`
	Length int    `json:"length" yaml:"length" validate:"gte=5,lte=30"`
}

// StrategyPerformance holds the simulated crossover-trading metrics for one
// MA configuration.
type StrategyPerformance struct {
	// WinRate is the fraction of simulated trades that closed with a profit
	WinRate float64 `json:"win_rate" yaml:"win_rate"`
	// ProfitFactor is gross win divided by gross loss (gross win if no losses)
	ProfitFactor float64 `json:"profit_factor" yaml:"profit_factor"`
	// MaxDrawdown is the largest peak-to-trough drop of the cumulative trade P&L
	MaxDrawdown float64 `json:"max_drawdown" yaml:"max_drawdown"`
	// TotalTrades is the number of simulated round trips
	TotalTrades int `json:"total_trades" yaml:"total_trades"`
	// SharpeRatio is a Sharpe-like ratio of per-bar returns
	SharpeRatio float64 `json:"sharpe_ratio" yaml:"sharpe_ratio"`
}

// CandidateScore is the scoring breakdown for a single tested configuration.
type CandidateScore struct {
	Config         MAConfig            `json:"config" yaml:"config"`
	CompositeScore float64             `json:"composite_score" yaml:"composite_score"`
	CrossoverScore float64             `json:"crossover_score" yaml:"crossover_score"`
	RSquared       float64             `json:"r_squared" yaml:"r_squared"`
	Performance    StrategyPerformance `json:"performance" yaml:"performance"`
}

// StrategyResult is the outcome of one optimization pass. It is created once
// per pass and never mutated; re-optimization produces a fresh result.
type StrategyResult struct {
	// Config is the winning configuration
	Config MAConfig `json:"config" yaml:"config"`
	// CompositeScore is the winning configuration's blended score
	CompositeScore float64 `json:"composite_score" yaml:"composite_score"`
	// CrossoverScore is the winning configuration's crossover capture score
	CrossoverScore float64 `json:"crossover_score" yaml:"crossover_score"`
	// RSquared is the winning configuration's fit quality
	RSquared float64 `json:"r_squared" yaml:"r_squared"`
	// Performance holds the winning configuration's simulated trade metrics
	Performance StrategyPerformance `json:"performance" yaml:"performance"`
	// Candidates holds every scored configuration in iteration order
	Candidates []CandidateScore `json:"candidates" yaml:"candidates"`
	// SkippedCombinations counts configurations that could not be scored
	SkippedCombinations int `json:"skipped_combinations" yaml:"skipped_combinations"`
}
