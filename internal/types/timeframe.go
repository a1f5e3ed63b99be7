package types

import "time"

// Timeframe is the candlestick interval the bot trades on.
type Timeframe string

const (
	Timeframe1Min  Timeframe = "1m"
	Timeframe5Min  Timeframe = "5m"
	Timeframe15Min Timeframe = "15m"
)

// AllTimeframes lists the supported timeframes.
func AllTimeframes() []Timeframe {
	return []Timeframe{Timeframe1Min, Timeframe5Min, Timeframe15Min}
}

// Valid reports whether the timeframe is one of the supported intervals.
func (t Timeframe) Valid() bool {
	switch t {
	case Timeframe1Min, Timeframe5Min, Timeframe15Min:
		return true
	default:
		return false
	}
}

// Duration is the wall-clock length of one bar.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1Min:
		return time.Minute
	case Timeframe5Min:
		return 5 * time.Minute
	case Timeframe15Min:
		return 15 * time.Minute
	default:
		return 0
	}
}

// ScoreMultiplier scales the optimizer composite score per timeframe.
// Shorter timeframes are noisier and get penalized slightly.
func (t Timeframe) ScoreMultiplier() float64 {
	switch t {
	case Timeframe1Min:
		return 0.9
	case Timeframe5Min:
		return 1.0
	case Timeframe15Min:
		return 0.95
	default:
		return 1.0
	}
}

// TakeProfitMultiplier widens the take-profit target on faster timeframes.
func (t Timeframe) TakeProfitMultiplier() float64 {
	switch t {
	case Timeframe1Min:
		return 1.3
	case Timeframe5Min:
		return 1.1
	case Timeframe15Min:
		return 1.0
	default:
		return 1.0
	}
}

// StopLossMultiplier widens the stop-loss on the 1m timeframe only.
func (t Timeframe) StopLossMultiplier() float64 {
	if t == Timeframe1Min {
		return 1.2
	}

	return 1.0
}

// SizeMultiplier scales the per-trade risk budget per timeframe.
func (t Timeframe) SizeMultiplier() float64 {
	switch t {
	case Timeframe1Min:
		return 1.5
	case Timeframe5Min:
		return 1.0
	case Timeframe15Min:
		return 0.7
	default:
		return 1.0
	}
}

// VolatilityCeiling is the trailing-volatility level above which new entries
// are suppressed for this timeframe.
func (t Timeframe) VolatilityCeiling() float64 {
	switch t {
	case Timeframe1Min:
		return 0.05
	case Timeframe5Min:
		return 0.03
	case Timeframe15Min:
		return 0.02
	default:
		return 0.03
	}
}
