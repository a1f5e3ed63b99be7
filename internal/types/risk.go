package types

// FeeTier is one row of the broker's volume-tiered fee schedule.
type FeeTier struct {
	// VolumeThreshold is the minimum 30-day traded volume for this tier
	VolumeThreshold float64 `json:"volume_threshold" yaml:"volume_threshold"`
	// MakerRate is the maker fee rate as a fraction
	MakerRate float64 `json:"maker_rate" yaml:"maker_rate"`
	// TakerRate is the taker fee rate as a fraction
	TakerRate float64 `json:"taker_rate" yaml:"taker_rate"`
}

// RiskParameters are the process-wide risk engine constants. Immutable after
// construction.
type RiskParameters struct {
	// ATRMultiplier scales ATR into the raw stop distance
	ATRMultiplier float64 `json:"atr_multiplier" yaml:"atr_multiplier" validate:"gt=0"`
	// RiskRewardBase is the base take-profit to stop-loss ratio
	RiskRewardBase float64 `json:"risk_reward_base" yaml:"risk_reward_base" validate:"gt=0"`
	// MinStopLossPct is the stop-loss floor as a fraction of price
	MinStopLossPct float64 `json:"min_stop_loss_pct" yaml:"min_stop_loss_pct" validate:"gt=0"`
	// MaxStopLossPct is the stop-loss cap as a fraction of price
	MaxStopLossPct float64 `json:"max_stop_loss_pct" yaml:"max_stop_loss_pct" validate:"gt=0"`
	// MinTakeProfitPct is the take-profit floor as a fraction of price
	MinTakeProfitPct float64 `json:"min_take_profit_pct" yaml:"min_take_profit_pct" validate:"gt=0"`
	// MaxTakeProfitPct is the take-profit cap as a fraction of price
	MaxTakeProfitPct float64 `json:"max_take_profit_pct" yaml:"max_take_profit_pct" validate:"gt=0"`
	// MaxPositionPct caps the position notional as a fraction of buying power
	MaxPositionPct float64 `json:"max_position_pct" yaml:"max_position_pct" validate:"gt=0,lte=1"`
	// MaxEquityPct caps the position notional as a fraction of equity
	MaxEquityPct float64 `json:"max_equity_pct" yaml:"max_equity_pct" validate:"gt=0,lte=1"`
	// MinPositionSize is the smallest tradable quantity
	MinPositionSize float64 `json:"min_position_size" yaml:"min_position_size" validate:"gte=0"`
	// FeeTiers is the volume-tiered fee schedule, ordered ascending by threshold
	FeeTiers []FeeTier `json:"fee_tiers" yaml:"fee_tiers" validate:"min=1"`
}

// DefaultRiskParameters returns the stock risk configuration. The fee tiers
// follow the common crypto spot maker/taker schedule keyed by 30-day volume.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		ATRMultiplier:    2.0,
		RiskRewardBase:   2.0,
		MinStopLossPct:   0.005,
		MaxStopLossPct:   0.03,
		MinTakeProfitPct: 0.01,
		MaxTakeProfitPct: 0.08,
		MaxPositionPct:   0.5,
		MaxEquityPct:     0.15,
		MinPositionSize:  0.0001,
		FeeTiers: []FeeTier{
			{VolumeThreshold: 0, MakerRate: 0.0010, TakerRate: 0.0010},
			{VolumeThreshold: 1_000_000, MakerRate: 0.0009, TakerRate: 0.0010},
			{VolumeThreshold: 5_000_000, MakerRate: 0.0008, TakerRate: 0.0009},
			{VolumeThreshold: 10_000_000, MakerRate: 0.0007, TakerRate: 0.0008},
			{VolumeThreshold: 50_000_000, MakerRate: 0.0005, TakerRate: 0.0006},
		},
	}
}
