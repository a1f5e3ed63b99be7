package types

import "time"

// ClosedTrade is one completed round trip, recorded to the trade journal when
// a position is closed.
type ClosedTrade struct {
	Symbol     string    `json:"symbol" yaml:"symbol"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price"`
	EntryTime  time.Time `json:"entry_time" yaml:"entry_time"`
	ExitPrice  float64   `json:"exit_price" yaml:"exit_price"`
	ExitTime   time.Time `json:"exit_time" yaml:"exit_time"`
	Quantity   float64   `json:"quantity" yaml:"quantity"`
	// PnL is the realized profit or loss in quote currency, before fees
	PnL float64 `json:"pnl" yaml:"pnl"`
	// PnLPercent is the realized profit or loss as a percentage of entry
	PnLPercent float64 `json:"pnl_percent" yaml:"pnl_percent"`
	// Reason is why the position was closed (take_profit, stop_loss, shutdown)
	Reason string `json:"reason" yaml:"reason"`
}

// NewClosedTrade builds a ClosedTrade from an open position and its exit.
func NewClosedTrade(pos Position, exitPrice float64, exitTime time.Time, reason string) ClosedTrade {
	pnl := (exitPrice - pos.EntryPrice) * pos.Quantity

	pnlPct := 0.0
	if pos.EntryPrice > 0 {
		pnlPct = (exitPrice - pos.EntryPrice) / pos.EntryPrice * 100
	}

	return ClosedTrade{
		Symbol:     pos.Symbol,
		EntryPrice: pos.EntryPrice,
		EntryTime:  pos.EntryTime,
		ExitPrice:  exitPrice,
		ExitTime:   exitTime,
		Quantity:   pos.Quantity,
		PnL:        pnl,
		PnLPercent: pnlPct,
		Reason:     reason,
	}
}
