package tradingprovider

import (
	"context"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

const (
	// BinanceDecimalPrecision is a default quantity precision used as a fallback.
	// 8 decimals allows for satoshi-level precision (0.00000001 BTC) for BTC-like assets.
	// Production systems should use symbol-specific precision from Binance exchange info (e.g. LOT_SIZE).
	BinanceDecimalPrecision = 8

	// dustQuantity is the balance below which a holding is not a position.
	dustQuantity = 1e-8

	defaultFillTimeout      = 10 * time.Second
	defaultFillPollInterval = 500 * time.Millisecond
)

// Service interfaces for faking the Binance API in tests

// CreateOrderService interface for creating orders.
type CreateOrderService interface {
	Symbol(symbol string) CreateOrderService
	Side(side binance.SideType) CreateOrderService
	Type(orderType binance.OrderType) CreateOrderService
	Quantity(quantity string) CreateOrderService
	NewClientOrderID(id string) CreateOrderService
	Do(ctx context.Context) (*binance.CreateOrderResponse, error)
}

// GetOrderService interface for querying a single order.
type GetOrderService interface {
	Symbol(symbol string) GetOrderService
	OrderID(orderID int64) GetOrderService
	Do(ctx context.Context) (*binance.Order, error)
}

// CancelOrderService interface for canceling orders.
type CancelOrderService interface {
	Symbol(symbol string) CancelOrderService
	OrderID(orderID int64) CancelOrderService
	Do(ctx context.Context) (*binance.CancelOrderResponse, error)
}

// GetAccountService interface for getting account info.
type GetAccountService interface {
	Do(ctx context.Context) (*binance.Account, error)
}

// BinanceClient interface abstracts the Binance client for testing.
type BinanceClient interface {
	NewCreateOrderService() CreateOrderService
	NewGetOrderService() GetOrderService
	NewCancelOrderService() CancelOrderService
	NewGetAccountService() GetAccountService
}

// realBinanceClient wraps the actual binance.Client.
type realBinanceClient struct {
	client *binance.Client
}

func (r *realBinanceClient) NewCreateOrderService() CreateOrderService {
	return &realCreateOrderService{service: r.client.NewCreateOrderService()}
}

func (r *realBinanceClient) NewGetOrderService() GetOrderService {
	return &realGetOrderService{service: r.client.NewGetOrderService()}
}

func (r *realBinanceClient) NewCancelOrderService() CancelOrderService {
	return &realCancelOrderService{service: r.client.NewCancelOrderService()}
}

func (r *realBinanceClient) NewGetAccountService() GetAccountService {
	return &realGetAccountService{service: r.client.NewGetAccountService()}
}

type realCreateOrderService struct {
	service *binance.CreateOrderService
}

func (s *realCreateOrderService) Symbol(symbol string) CreateOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCreateOrderService) Side(side binance.SideType) CreateOrderService {
	s.service = s.service.Side(side)

	return s
}

func (s *realCreateOrderService) Type(orderType binance.OrderType) CreateOrderService {
	s.service = s.service.Type(orderType)

	return s
}

func (s *realCreateOrderService) Quantity(quantity string) CreateOrderService {
	s.service = s.service.Quantity(quantity)

	return s
}

func (s *realCreateOrderService) NewClientOrderID(id string) CreateOrderService {
	s.service = s.service.NewClientOrderID(id)

	return s
}

func (s *realCreateOrderService) Do(ctx context.Context) (*binance.CreateOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetOrderService struct {
	service *binance.GetOrderService
}

func (s *realGetOrderService) Symbol(symbol string) GetOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realGetOrderService) OrderID(orderID int64) GetOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realGetOrderService) Do(ctx context.Context) (*binance.Order, error) {
	return s.service.Do(ctx)
}

type realCancelOrderService struct {
	service *binance.CancelOrderService
}

func (s *realCancelOrderService) Symbol(symbol string) CancelOrderService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *realCancelOrderService) OrderID(orderID int64) CancelOrderService {
	s.service = s.service.OrderID(orderID)

	return s
}

func (s *realCancelOrderService) Do(ctx context.Context) (*binance.CancelOrderResponse, error) {
	return s.service.Do(ctx)
}

type realGetAccountService struct {
	service *binance.GetAccountService
}

func (s *realGetAccountService) Do(ctx context.Context) (*binance.Account, error) {
	return s.service.Do(ctx)
}

// BinanceExecutionProvider implements OrderExecutionPort against the Binance
// spot API. It is stateless; all state is fetched from the API.
type BinanceExecutionProvider struct {
	client           BinanceClient
	config           BinanceProviderConfig
	decimalPrecision int
	fillTimeout      time.Duration
	fillPollInterval time.Duration
	log              *logger.Logger
}

// NewBinanceExecutionProvider creates a Binance execution provider.
// If useTestnet is true, connects to the Binance testnet. An explicit
// config.BaseURL takes precedence over useTestnet.
func NewBinanceExecutionProvider(config BinanceProviderConfig, useTestnet bool, log *logger.Logger) (*BinanceExecutionProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if useTestnet {
		binance.UseTestnet = true
	}

	client := binance.NewClient(config.ApiKey, config.SecretKey)
	if config.BaseURL != "" {
		client.BaseURL = config.BaseURL
	}

	return &BinanceExecutionProvider{
		client:           &realBinanceClient{client: client},
		config:           config,
		decimalPrecision: BinanceDecimalPrecision,
		fillTimeout:      defaultFillTimeout,
		fillPollInterval: defaultFillPollInterval,
		log:              log,
	}, nil
}

// newBinanceExecutionProviderWithClient creates a provider backed by a fake
// client, used in tests.
func newBinanceExecutionProviderWithClient(client BinanceClient, config BinanceProviderConfig, log *logger.Logger) *BinanceExecutionProvider {
	return &BinanceExecutionProvider{
		client:           client,
		config:           config,
		decimalPrecision: BinanceDecimalPrecision,
		fillTimeout:      50 * time.Millisecond,
		fillPollInterval: time.Millisecond,
		log:              log,
	}
}

// GetAccountInfo reports quote-asset balances. Valuing the base asset at a
// current price is left to the caller, which owns the price feed.
func (b *BinanceExecutionProvider) GetAccountInfo(ctx context.Context) (types.AccountInfo, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return types.AccountInfo{}, classifyBinanceError(err, errors.ErrCodeDataFetchFailed, "failed to get account info from Binance")
	}

	var free, locked float64

	for _, balance := range account.Balances {
		if balance.Asset != b.config.QuoteAsset {
			continue
		}

		free, _ = strconv.ParseFloat(balance.Free, 64)
		locked, _ = strconv.ParseFloat(balance.Locked, 64)

		break
	}

	return types.AccountInfo{
		Equity:         free + locked,
		Cash:           free,
		BuyingPower:    free,
		PortfolioValue: locked,
	}, nil
}

// GetOpenPositions derives the held position from the base asset balance.
// Entry details are unknown to the exchange; only symbol and quantity are set.
func (b *BinanceExecutionProvider) GetOpenPositions(ctx context.Context) ([]types.Position, error) {
	account, err := b.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, classifyBinanceError(err, errors.ErrCodeDataFetchFailed, "failed to get account info from Binance")
	}

	positions := make([]types.Position, 0, 1)

	for _, balance := range account.Balances {
		if balance.Asset != b.config.BaseAsset {
			continue
		}

		free, _ := strconv.ParseFloat(balance.Free, 64)
		locked, _ := strconv.ParseFloat(balance.Locked, 64)

		if total := free + locked; total > dustQuantity {
			positions = append(positions, types.Position{
				Symbol:   b.config.BaseAsset + b.config.QuoteAsset,
				Quantity: total,
			})
		}

		break
	}

	return positions, nil
}

// SubmitOrder validates the intent and submits it to the exchange as a market
// order, waiting for the fill. The intent's id becomes the client order id,
// so retried submissions are idempotent on the exchange side.
func (b *BinanceExecutionProvider) SubmitOrder(ctx context.Context, order types.ExecuteOrder) (types.OrderResult, error) {
	if err := order.Validate(); err != nil {
		return types.OrderResult{}, err
	}

	side := binance.SideTypeBuy
	if order.Side == types.PurchaseTypeSell {
		side = binance.SideTypeSell
	}

	rounded := decimal.NewFromFloat(order.Quantity).RoundDown(int32(b.decimalPrecision))
	if !rounded.IsPositive() {
		return types.OrderResult{}, errors.Newf(errors.ErrCodeInvalidOrder,
			"order quantity %.8f is too small after rounding to %d decimal places",
			order.Quantity, b.decimalPrecision)
	}

	submittedAt := time.Now()

	res, err := b.client.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(side).
		Type(binance.OrderTypeMarket).
		Quantity(rounded.String()).
		NewClientOrderID(order.ID).
		Do(ctx)
	if err != nil {
		return types.OrderResult{}, classifyBinanceError(err, errors.ErrCodeOrderRejected, "failed to place order on Binance")
	}

	orderID := strconv.FormatInt(res.OrderID, 10)

	if b.log != nil {
		b.log.Info("order submitted",
			zap.String("symbol", order.Symbol),
			zap.String("side", string(side)),
			zap.String("reason", order.Reason),
			zap.String("quantity", rounded.String()),
			zap.String("order_id", orderID),
			zap.String("status", string(res.Status)),
		)
	}

	switch res.Status {
	case binance.OrderStatusTypeFilled:
		executed, _ := strconv.ParseFloat(res.ExecutedQuantity, 64)
		quoteSpent, _ := strconv.ParseFloat(res.CummulativeQuoteQuantity, 64)

		return fillResult(orderID, executed, quoteSpent, submittedAt), nil
	case binance.OrderStatusTypeRejected:
		return rejectedResult(orderID, submittedAt), errors.Newf(errors.ErrCodeOrderRejected,
			"order %s rejected by Binance", orderID)
	default:
		return b.monitorFill(ctx, order.Symbol, res.OrderID, submittedAt)
	}
}

// monitorFill polls the order status until it fills or the window closes.
// An order still pending past the window is cancelled and reported as a
// timeout.
func (b *BinanceExecutionProvider) monitorFill(ctx context.Context, symbol string, orderID int64, submittedAt time.Time) (types.OrderResult, error) {
	id := strconv.FormatInt(orderID, 10)
	deadline := time.Now().Add(b.fillTimeout)

	for time.Now().Before(deadline) {
		order, err := b.client.NewGetOrderService().
			Symbol(symbol).
			OrderID(orderID).
			Do(ctx)
		if err != nil {
			return types.OrderResult{}, classifyBinanceError(err, errors.ErrCodeOrderRejected, "failed to query order status on Binance")
		}

		switch order.Status {
		case binance.OrderStatusTypeFilled:
			executed, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
			quoteSpent, _ := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)

			return fillResult(id, executed, quoteSpent, submittedAt), nil
		case binance.OrderStatusTypeRejected, binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired:
			return rejectedResult(id, submittedAt), errors.Newf(errors.ErrCodeOrderRejected,
				"order %s ended %s", id, order.Status)
		}

		select {
		case <-ctx.Done():
			return types.OrderResult{}, errors.Wrap(errors.ErrCodeOrderTimeout, "order monitoring cancelled", ctx.Err())
		case <-time.After(b.fillPollInterval):
		}
	}

	if _, err := b.client.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx); err != nil {
		if b.log != nil {
			b.log.Error("failed to cancel unfilled order", zap.String("order_id", id), zap.Error(err))
		}
	}

	return types.OrderResult{
			Success:     false,
			OrderID:     id,
			Status:      types.OrderStatusCancelled,
			SubmittedAt: submittedAt,
			Error:       "order not filled within the monitoring window",
		}, errors.Newf(errors.ErrCodeOrderTimeout,
			"order %s not filled within %s", id, b.fillTimeout)
}

func fillResult(orderID string, executed, quoteSpent float64, submittedAt time.Time) types.OrderResult {
	avgPrice := 0.0
	if executed > 0 {
		avgPrice = quoteSpent / executed
	}

	return types.OrderResult{
		Success:        true,
		OrderID:        orderID,
		FilledQuantity: executed,
		AvgPrice:       avgPrice,
		Status:         types.OrderStatusFilled,
		SubmittedAt:    submittedAt,
	}
}

func rejectedResult(orderID string, submittedAt time.Time) types.OrderResult {
	return types.OrderResult{
		Success:     false,
		OrderID:     orderID,
		Status:      types.OrderStatusRejected,
		SubmittedAt: submittedAt,
		Error:       "rejected by exchange",
	}
}

// classifyBinanceError separates exchange-level failures from transport
// failures. An APIError means the exchange answered and gets apiCode;
// anything else is connectivity.
func classifyBinanceError(err error, apiCode errors.ErrorCode, message string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return errors.Wrap(apiCode, message, err)
	}

	return errors.Wrap(errors.ErrCodeConnectivity, message, err)
}
