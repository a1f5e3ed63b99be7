package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestNewClosedTradeProfit() {
	entryTime := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	exitTime := entryTime.Add(10 * time.Minute)

	pos := Position{
		Symbol:     "BTCUSDT",
		EntryPrice: 100,
		Quantity:   2,
		EntryTime:  entryTime,
		StopLoss:   98,
		TakeProfit: 103,
		OrderID:    "42",
	}

	trade := NewClosedTrade(pos, 103, exitTime, OrderReasonTakeProfit)

	suite.Equal("BTCUSDT", trade.Symbol)
	suite.Equal(float64(100), trade.EntryPrice)
	suite.Equal(float64(103), trade.ExitPrice)
	suite.Equal(exitTime, trade.ExitTime)
	suite.InDelta(6.0, trade.PnL, 1e-9)
	suite.InDelta(3.0, trade.PnLPercent, 1e-9)
	suite.Equal(OrderReasonTakeProfit, trade.Reason)
}

func (suite *TradeTestSuite) TestNewClosedTradeLoss() {
	pos := Position{
		Symbol:     "BTCUSDT",
		EntryPrice: 100,
		Quantity:   1,
	}

	trade := NewClosedTrade(pos, 98, time.Now(), OrderReasonStopLoss)

	suite.InDelta(-2.0, trade.PnL, 1e-9)
	suite.InDelta(-2.0, trade.PnLPercent, 1e-9)
}

func (suite *TradeTestSuite) TestNewClosedTradeZeroEntryPrice() {
	// A zero entry price must not divide by zero
	pos := Position{Symbol: "BTCUSDT", EntryPrice: 0, Quantity: 1}

	trade := NewClosedTrade(pos, 100, time.Now(), OrderReasonShutdown)

	suite.Equal(float64(0), trade.PnLPercent)
	suite.InDelta(100.0, trade.PnL, 1e-9)
}
