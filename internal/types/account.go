package types

import "time"

// AccountInfo represents the current account state as reported by the broker.
type AccountInfo struct {
	// Equity is the total account value (cash + open position value)
	Equity float64 `json:"equity" yaml:"equity"`
	// Cash is the free cash balance in the quote currency
	Cash float64 `json:"cash" yaml:"cash"`
	// BuyingPower is the amount available for new purchases
	BuyingPower float64 `json:"buying_power" yaml:"buying_power"`
	// PortfolioValue is the value of open positions at current prices
	PortfolioValue float64 `json:"portfolio_value" yaml:"portfolio_value"`
}

// Position is a single open long position. The controller holds at most one
// at a time; while a Position exists no new buy may be issued.
type Position struct {
	Symbol     string    `json:"symbol" yaml:"symbol"`
	EntryPrice float64   `json:"entry_price" yaml:"entry_price"`
	Quantity   float64   `json:"quantity" yaml:"quantity"`
	EntryTime  time.Time `json:"entry_time" yaml:"entry_time"`
	// StopLoss is the price at which the controller exits at a loss
	StopLoss float64 `json:"stop_loss" yaml:"stop_loss"`
	// TakeProfit is the price at which the controller exits at a profit
	TakeProfit float64 `json:"take_profit" yaml:"take_profit"`
	// OrderID is the broker order id of the entry fill
	OrderID string `json:"order_id" yaml:"order_id"`
}
