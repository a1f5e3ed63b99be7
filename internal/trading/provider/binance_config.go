package tradingprovider

import (
	"github.com/go-playground/validator/v10"

	"github.com/atlasquant/matrader/pkg/errors"
)

// BinanceProviderConfig contains configuration for Binance order execution.
type BinanceProviderConfig struct {
	ApiKey    string `json:"apiKey" yaml:"api_key" validate:"required"`
	SecretKey string `json:"secretKey" yaml:"secret_key" validate:"required"`
	// BaseAsset is the asset being traded, e.g. BTC for BTCUSDT
	BaseAsset string `json:"baseAsset" yaml:"base_asset" validate:"required"`
	// QuoteAsset is the currency positions are funded with, e.g. USDT
	QuoteAsset string `json:"quoteAsset" yaml:"quote_asset" validate:"required"`
	// BaseURL overrides the REST endpoint; takes precedence over the
	// testnet toggle. Used in tests.
	BaseURL string `json:"baseUrl" yaml:"base_url"`
}

// Validate validates the BinanceProviderConfig struct.
func (c *BinanceProviderConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid binance provider config", err)
	}

	return nil
}
