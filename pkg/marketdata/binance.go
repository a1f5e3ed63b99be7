package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// binancePageLimit is the kline page size used for pagination.
const binancePageLimit = 500

// BinanceProvider fetches market data from the Binance public REST API.
// Market data endpoints need no credentials.
type BinanceProvider struct {
	client *binance.Client
	log    *logger.Logger
}

func NewBinanceProvider(log *logger.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
		log:    log,
	}
}

// SetBaseURL points the provider at an alternate REST endpoint, used in tests.
func (p *BinanceProvider) SetBaseURL(url string) {
	p.client.BaseURL = url
}

// GetHistoricalBars pages backwards through the klines endpoint until count
// bars are collected, returning them in ascending time order. A bar still
// forming at the time of the call is dropped.
func (p *BinanceProvider) GetHistoricalBars(ctx context.Context, symbol string, count int, timeframe types.Timeframe) ([]types.Bar, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bar count must be positive, got %d", count)
	}

	if !timeframe.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe: %s", timeframe)
	}

	interval := string(timeframe)
	nowMillis := time.Now().UnixMilli()

	bars := make([]types.Bar, 0, count)

	var endTime int64

	for len(bars) < count {
		svc := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			Limit(binancePageLimit)
		if endTime > 0 {
			svc = svc.EndTime(endTime)
		}

		klines, err := svc.Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, err,
				"failed to fetch %s klines for %s", interval, symbol)
		}

		if len(klines) == 0 {
			break
		}

		lastPage := len(klines) < binancePageLimit

		// The newest kline of the first page may still be open.
		if endTime == 0 && klines[len(klines)-1].CloseTime >= nowMillis {
			klines = klines[:len(klines)-1]
		}

		page, err := klinesToBars(symbol, klines)
		if err != nil {
			return nil, err
		}

		bars = append(page, bars...)

		if len(klines) == 0 || lastPage {
			break
		}

		endTime = klines[0].OpenTime - 1
	}

	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}

	if p.log != nil {
		p.log.Debug("fetched historical bars",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int("requested", count),
			zap.Int("returned", len(bars)),
		)
	}

	return bars, nil
}

// GetCurrentPrice returns the latest ticker price for the symbol.
func (p *BinanceProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	prices, err := p.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataFetchFailed, err,
			"failed to fetch current price for %s", symbol)
	}

	if len(prices) == 0 {
		return 0, errors.Newf(errors.ErrCodeDataFetchFailed, "no price returned for %s", symbol)
	}

	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataParseFailed, err,
			"failed to parse price %q for %s", prices[0].Price, symbol)
	}

	if price <= 0 {
		return 0, errors.Newf(errors.ErrCodeDataParseFailed, "non-positive price %f for %s", price, symbol)
	}

	return price, nil
}

func klinesToBars(symbol string, klines []*binance.Kline) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		bar, err := klineToBar(symbol, k)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "bad open for %s", symbol)
	}

	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "bad high for %s", symbol)
	}

	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "bad low for %s", symbol)
	}

	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "bad close for %s", symbol)
	}

	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeDataParseFailed, err, "bad volume for %s", symbol)
	}

	return types.Bar{
		Time:   time.UnixMilli(k.OpenTime),
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}
