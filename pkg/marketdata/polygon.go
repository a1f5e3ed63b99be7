package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// PolygonProvider fetches market data from the Polygon aggregates API.
type PolygonProvider struct {
	client *polygon.Client
	log    *logger.Logger
}

func NewPolygonProvider(apiKey string, log *logger.Logger) *PolygonProvider {
	return &PolygonProvider{
		client: polygon.New(apiKey),
		log:    log,
	}
}

// GetHistoricalBars lists aggregates over a window wide enough to hold count
// bars and returns the most recent count closed bars in ascending order.
func (p *PolygonProvider) GetHistoricalBars(ctx context.Context, symbol string, count int, timeframe types.Timeframe) ([]types.Bar, error) {
	if count <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "bar count must be positive, got %d", count)
	}

	multiplier, timespan, err := polygonTimespan(timeframe)
	if err != nil {
		return nil, err
	}

	barDuration := timeframe.Duration()
	now := time.Now()

	// Double the span to cover thin periods; crypto trades around the clock
	// but equities sessions have gaps.
	from := now.Add(-time.Duration(2*count) * barDuration)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(now),
	}.WithLimit(50000).WithOrder(models.Asc)

	bars := make([]types.Bar, 0, count)

	iter := p.client.ListAggs(ctx, params)
	for iter.Next() {
		agg := iter.Item()

		start := time.Time(agg.Timestamp)
		// Skip a bar still forming at the time of the call.
		if start.Add(barDuration).After(now) {
			continue
		}

		bars = append(bars, types.Bar{
			Time:   start,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, iter.Err(),
			"failed to list %s aggregates for %s", timeframe, symbol)
	}

	if len(bars) > count {
		bars = bars[len(bars)-count:]
	}

	if p.log != nil {
		p.log.Debug("fetched historical bars",
			zap.String("symbol", symbol),
			zap.String("timeframe", string(timeframe)),
			zap.Int("requested", count),
			zap.Int("returned", len(bars)),
		)
	}

	return bars, nil
}

// GetCurrentPrice returns the price of the most recent trade for the symbol.
func (p *PolygonProvider) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	res, err := p.client.GetLastTrade(ctx, &models.GetLastTradeParams{Ticker: symbol})
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeDataFetchFailed, err,
			"failed to fetch last trade for %s", symbol)
	}

	price := res.Results.Price
	if price <= 0 {
		return 0, errors.Newf(errors.ErrCodeDataParseFailed, "non-positive last trade price %f for %s", price, symbol)
	}

	return price, nil
}
