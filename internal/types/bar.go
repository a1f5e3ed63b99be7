package types

import "time"

// Bar represents a single OHLCV candlestick.
// Bars are immutable once fetched and ordered ascending by time.
type Bar struct {
	// Time is the open time of the bar
	Time time.Time `json:"time" yaml:"time"`
	// Open is the opening price
	Open float64 `json:"open" yaml:"open"`
	// High is the highest price
	High float64 `json:"high" yaml:"high"`
	// Low is the lowest price
	Low float64 `json:"low" yaml:"low"`
	// Close is the closing price
	Close float64 `json:"close" yaml:"close"`
	// Volume is the traded volume
	Volume float64 `json:"volume" yaml:"volume"`
}

// Valid reports whether the bar satisfies the basic price invariants:
// a positive close and a high that is not below the low.
func (b Bar) Valid() bool {
	return b.Close > 0 && b.High >= b.Low
}

// Closes extracts the close prices from a bar sequence, preserving order.
func Closes(bars []Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	return closes
}
