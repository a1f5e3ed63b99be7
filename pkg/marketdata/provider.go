package marketdata

import (
	"context"

	"github.com/polygon-io/client-go/rest/models"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// ProviderType selects the market data backend.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
)

// Provider serves historical bars and fresh prices for a symbol.
type Provider interface {
	// GetHistoricalBars returns up to count closed bars in ascending time
	// order, ending at the most recent closed bar.
	GetHistoricalBars(ctx context.Context, symbol string, count int, timeframe types.Timeframe) ([]types.Bar, error)
	// GetCurrentPrice returns the latest traded price. The result is never
	// served from a cache older than the provider's own quote feed.
	GetCurrentPrice(ctx context.Context, symbol string) (float64, error)
}

// Config carries the provider credentials. Only the fields for the selected
// provider need to be set.
type Config struct {
	PolygonAPIKey string
}

// NewProvider creates a market data provider for the given type.
func NewProvider(providerType ProviderType, cfg Config, log *logger.Logger) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(log), nil
	case ProviderPolygon:
		if cfg.PolygonAPIKey == "" {
			return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon provider requires an API key")
		}

		return NewPolygonProvider(cfg.PolygonAPIKey, log), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}

// polygonTimespan maps a timeframe to the polygon aggregate parameters.
func polygonTimespan(timeframe types.Timeframe) (int, models.Timespan, error) {
	switch timeframe {
	case types.Timeframe1Min:
		return 1, models.Minute, nil
	case types.Timeframe5Min:
		return 5, models.Minute, nil
	case types.Timeframe15Min:
		return 15, models.Minute, nil
	default:
		return 0, "", errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe: %s", timeframe)
	}
}
