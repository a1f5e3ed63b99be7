package tradingprovider

import (
	"context"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// OrderExecutionPort is the broker surface the trading controller depends on.
// Submit calls resolve to a terminal OrderResult within a bounded monitoring
// window; a still-unfilled order is cancelled and reported as a timeout.
type OrderExecutionPort interface {
	// GetAccountInfo returns the current account balances
	GetAccountInfo(ctx context.Context) (types.AccountInfo, error)
	// GetOpenPositions returns positions currently held at the broker
	GetOpenPositions(ctx context.Context) ([]types.Position, error)
	// SubmitOrder submits an order intent as a market order and waits for
	// the fill
	SubmitOrder(ctx context.Context, order types.ExecuteOrder) (types.OrderResult, error)
}

type ProviderType string

const (
	ProviderBinancePaper ProviderType = "binance-paper"
	ProviderBinanceLive  ProviderType = "binance-live"
)

// ProviderInfo describes a supported execution venue.
type ProviderInfo struct {
	Name           string `json:"name"`
	DisplayName    string `json:"displayName"`
	IsPaperTrading bool   `json:"isPaperTrading"`
}

var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderBinancePaper: {
		Name:           string(ProviderBinancePaper),
		DisplayName:    "Binance Testnet",
		IsPaperTrading: true,
	},
	ProviderBinanceLive: {
		Name:           string(ProviderBinanceLive),
		DisplayName:    "Binance Live",
		IsPaperTrading: false,
	},
}

func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	return providers
}

// GetProviderInfo returns metadata for a specific execution provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported execution provider: %s", providerName)
	}

	return info, nil
}

// NewOrderExecutionPort creates an execution port for the provider type.
func NewOrderExecutionPort(providerType ProviderType, config BinanceProviderConfig, log *logger.Logger) (OrderExecutionPort, error) {
	switch providerType {
	case ProviderBinancePaper:
		return NewBinanceExecutionProvider(config, true, log)
	case ProviderBinanceLive:
		return NewBinanceExecutionProvider(config, false, log)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported execution provider: %s", providerType)
	}
}
