// Package config loads the bot configuration from a YAML file with
// environment fallbacks for credentials. Precedence is explicit YAML value,
// then environment variable, then built-in default.
package config

import (
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// Environment variable names recognized for credentials.
const (
	EnvBinanceAPIKey    = "BINANCE_API_KEY"
	EnvBinanceSecretKey = "BINANCE_SECRET_KEY"
	EnvPolygonAPIKey    = "POLYGON_API_KEY"
)

// Config is the full bot configuration.
type Config struct {
	// Symbol is the trading pair, derived from the assets when empty
	Symbol     string `yaml:"symbol"`
	BaseAsset  string `yaml:"base_asset" validate:"required"`
	QuoteAsset string `yaml:"quote_asset" validate:"required"`

	Timeframe   types.Timeframe `yaml:"timeframe" validate:"required"`
	RiskPercent float64         `yaml:"risk_percent" validate:"gt=0,lte=100"`

	// TPSLMode selects adaptive (ATR-derived) or manual exit levels
	TPSLMode          string  `yaml:"tpsl_mode" validate:"oneof=adaptive manual"`
	ManualStopLossPct float64 `yaml:"manual_stop_loss_pct" validate:"gte=0"`
	ManualRiskReward  float64 `yaml:"manual_risk_reward" validate:"gte=0"`

	// MarketDataProvider selects the price/kline source
	MarketDataProvider string `yaml:"market_data_provider" validate:"oneof=binance polygon"`
	PolygonAPIKey      string `yaml:"polygon_api_key"`

	BinanceAPIKey    string `yaml:"binance_api_key"`
	BinanceSecretKey string `yaml:"binance_secret_key"`
	// Paper routes orders to the Binance testnet
	Paper bool `yaml:"paper"`

	JournalPath string `yaml:"journal_path"`

	// OptimizerBars is the first history window the optimizer tries
	OptimizerBars int `yaml:"optimizer_bars" validate:"gte=0"`
	// Volume30d is the trailing 30-day traded volume used for fee tiers
	Volume30d float64 `yaml:"volume_30d" validate:"gte=0"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseAsset:          "BTC",
		QuoteAsset:         "USDT",
		Timeframe:          types.Timeframe5Min,
		RiskPercent:        1,
		TPSLMode:           "adaptive",
		ManualStopLossPct:  0.015,
		ManualRiskReward:   2,
		MarketDataProvider: "binance",
		Paper:              true,
		JournalPath:        "data/journal.db",
		OptimizerBars:      500,
	}
}

// Load builds the configuration. A missing path loads defaults plus
// environment values; a present path must parse.
func Load(path string) (Config, error) {
	// .env is optional, real environment variables win over it
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse config file %s", path)
		}
	}

	cfg.applyEnv()

	if cfg.Symbol == "" {
		cfg.Symbol = cfg.BaseAsset + cfg.QuoteAsset
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// applyEnv fills credential fields left empty by the file.
func (c *Config) applyEnv() {
	if c.BinanceAPIKey == "" {
		c.BinanceAPIKey = os.Getenv(EnvBinanceAPIKey)
	}

	if c.BinanceSecretKey == "" {
		c.BinanceSecretKey = os.Getenv(EnvBinanceSecretKey)
	}

	if c.PolygonAPIKey == "" {
		c.PolygonAPIKey = os.Getenv(EnvPolygonAPIKey)
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if !c.Timeframe.Valid() {
		return errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe: %s", c.Timeframe)
	}

	if c.TPSLMode == "manual" && (c.ManualStopLossPct <= 0 || c.ManualRiskReward <= 0) {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"manual TP/SL mode requires positive manual_stop_loss_pct and manual_risk_reward")
	}

	if c.MarketDataProvider == "polygon" && c.PolygonAPIKey == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration,
			"polygon market data provider requires an API key")
	}

	return nil
}
