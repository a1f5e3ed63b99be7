package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"

	"github.com/atlasquant/matrader/pkg/errors"
)

type PurchaseType string

type OrderStatus string

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusFailed    OrderStatus = "FAILED"
)

const (
	OrderReasonCrossoverEntry string = "crossover_entry"
	OrderReasonTakeProfit     string = "take_profit"
	OrderReasonStopLoss       string = "stop_loss"
	OrderReasonStartupSafety  string = "startup_safety"
	OrderReasonShutdown       string = "shutdown"
)

// BracketLevels carries the controller-monitored exit levels attached to an
// entry order. The exits are bracket-style: monitored by the controller, not
// delegated to the exchange.
type BracketLevels struct {
	TakeProfit float64 `yaml:"take_profit" json:"take_profit" validate:"gt=0"`
	StopLoss   float64 `yaml:"stop_loss" json:"stop_loss" validate:"gt=0"`
}

// ExecuteOrder is an order intent handed to the order execution port.
type ExecuteOrder struct {
	ID       string       `yaml:"id" json:"id" validate:"required,uuid"`
	Symbol   string       `yaml:"symbol" json:"symbol" validate:"required"`
	Side     PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity float64      `yaml:"quantity" json:"quantity" validate:"required,gt=0"`
	// Reason records why the order was issued (crossover entry, take profit, ...)
	Reason string `yaml:"reason" json:"reason" validate:"required"`
	// Bracket is set on entry orders that carry controller-monitored exits
	Bracket optional.Option[BracketLevels] `yaml:"bracket" json:"bracket"`
}

// OrderResult is the terminal outcome of a submitted order. Orders resolve to
// a fill or a failure within a bounded monitoring window; "still pending" is
// reported as a failure, never as a state to keep polling.
type OrderResult struct {
	// Success is true when the order reached a filled state
	Success bool `yaml:"success" json:"success"`
	// OrderID is the broker-assigned order id
	OrderID string `yaml:"order_id" json:"order_id"`
	// FilledQuantity is the executed quantity
	FilledQuantity float64 `yaml:"filled_quantity" json:"filled_quantity"`
	// AvgPrice is the average fill price, zero when unknown
	AvgPrice float64 `yaml:"avg_price" json:"avg_price"`
	// Status is the terminal order status
	Status OrderStatus `yaml:"status" json:"status"`
	// SubmittedAt is when the order was submitted
	SubmittedAt time.Time `yaml:"submitted_at" json:"submitted_at"`
	// Error holds the broker failure reason when Success is false
	Error string `yaml:"error" json:"error"`
}

// Validate validates the ExecuteOrder struct.
func (eo *ExecuteOrder) Validate() error {
	validate := validator.New()

	if err := validate.Struct(eo); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid execute order", err)
	}

	if eo.Bracket.IsSome() {
		bracket := eo.Bracket.Unwrap()
		if err := validate.Struct(bracket); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid bracket levels", err)
		}
	}

	return nil
}
