package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/suite"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

type BinanceProviderTestSuite struct {
	suite.Suite

	server   *httptest.Server
	provider *BinanceProvider

	klines    [][]any
	lastPrice string
}

func TestBinanceProviderSuite(t *testing.T) {
	suite.Run(t, new(BinanceProviderTestSuite))
}

func (suite *BinanceProviderTestSuite) SetupTest() {
	router := mux.NewRouter()
	router.HandleFunc("/api/v3/klines", suite.handleKlines).Methods(http.MethodGet)
	router.HandleFunc("/api/v3/ticker/price", suite.handlePrice).Methods(http.MethodGet)

	suite.server = httptest.NewServer(router)
	suite.provider = NewBinanceProvider(logger.NewNopLogger())
	suite.provider.SetBaseURL(suite.server.URL)

	suite.klines = nil
	suite.lastPrice = "45123.50"
}

func (suite *BinanceProviderTestSuite) TearDownTest() {
	suite.server.Close()
}

// seedKlines fills the mock book with n sequential closed 5m klines ending
// in the past.
func (suite *BinanceProviderTestSuite) seedKlines(n int) {
	interval := 5 * time.Minute
	end := time.Now().Add(-time.Hour).Truncate(interval)
	start := end.Add(-time.Duration(n) * interval)

	suite.klines = make([][]any, 0, n)
	for i := 0; i < n; i++ {
		openTime := start.Add(time.Duration(i) * interval)
		price := 100.0 + float64(i)*0.25
		suite.klines = append(suite.klines, makeKlineRow(openTime, interval, price))
	}
}

func makeKlineRow(openTime time.Time, interval time.Duration, price float64) []any {
	p := strconv.FormatFloat(price, 'f', 2, 64)

	return []any{
		openTime.UnixMilli(),
		p,                // open
		p,                // high
		p,                // low
		p,                // close
		"10.5",           // volume
		openTime.Add(interval).UnixMilli() - 1,
		"1000.0", // quote asset volume
		42,       // trade count
		"5.0",
		"500.0",
		"0",
	}
}

func (suite *BinanceProviderTestSuite) handleKlines(w http.ResponseWriter, r *http.Request) {
	limit := binancePageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		suite.Require().NoError(err)
		limit = parsed
	}

	rows := suite.klines

	if raw := r.URL.Query().Get("endTime"); raw != "" {
		endTime, err := strconv.ParseInt(raw, 10, 64)
		suite.Require().NoError(err)

		filtered := make([][]any, 0, len(rows))
		for _, row := range rows {
			if row[0].(int64) <= endTime {
				filtered = append(filtered, row)
			}
		}

		rows = filtered
	}

	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}

	w.Header().Set("Content-Type", "application/json")
	suite.Require().NoError(json.NewEncoder(w).Encode(rows))
}

func (suite *BinanceProviderTestSuite) handlePrice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	suite.Require().NoError(json.NewEncoder(w).Encode(map[string]string{
		"symbol": r.URL.Query().Get("symbol"),
		"price":  suite.lastPrice,
	}))
}

func (suite *BinanceProviderTestSuite) TestGetHistoricalBarsSinglePage() {
	suite.seedKlines(100)

	bars, err := suite.provider.GetHistoricalBars(
		context.Background(), "BTCUSDT", 100, types.Timeframe5Min)
	suite.NoError(err)
	suite.Len(bars, 100)

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i].Time.After(bars[i-1].Time))
	}

	suite.InDelta(100.0, bars[0].Close, 1e-9)
	suite.InDelta(100.0+99*0.25, bars[len(bars)-1].Close, 1e-9)
}

func (suite *BinanceProviderTestSuite) TestGetHistoricalBarsPaginates() {
	suite.seedKlines(1200)

	bars, err := suite.provider.GetHistoricalBars(
		context.Background(), "BTCUSDT", 700, types.Timeframe5Min)
	suite.NoError(err)
	suite.Len(bars, 700)

	for i := 1; i < len(bars); i++ {
		suite.True(bars[i].Time.After(bars[i-1].Time))
	}

	// The newest seeded kline is included, earlier ones trimmed
	last := suite.klines[len(suite.klines)-1]
	suite.Equal(time.UnixMilli(last[0].(int64)).UTC(), bars[len(bars)-1].Time.UTC())
}

func (suite *BinanceProviderTestSuite) TestGetHistoricalBarsDropsFormingBar() {
	suite.seedKlines(60)

	// Append a kline whose close time is still in the future
	interval := 5 * time.Minute
	forming := makeKlineRow(time.Now().Truncate(interval), interval, 999)
	suite.klines = append(suite.klines, forming)

	bars, err := suite.provider.GetHistoricalBars(
		context.Background(), "BTCUSDT", 61, types.Timeframe5Min)
	suite.NoError(err)
	suite.Len(bars, 60)

	for _, bar := range bars {
		suite.NotEqual(999.0, bar.Close)
	}
}

func (suite *BinanceProviderTestSuite) TestGetHistoricalBarsShortHistory() {
	suite.seedKlines(30)

	bars, err := suite.provider.GetHistoricalBars(
		context.Background(), "BTCUSDT", 500, types.Timeframe5Min)
	suite.NoError(err)
	suite.Len(bars, 30)
}

func (suite *BinanceProviderTestSuite) TestGetHistoricalBarsValidation() {
	_, err := suite.provider.GetHistoricalBars(
		context.Background(), "BTCUSDT", 0, types.Timeframe5Min)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	_, err = suite.provider.GetHistoricalBars(
		context.Background(), "BTCUSDT", 100, types.Timeframe("4h"))
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTimeframe))
}

func (suite *BinanceProviderTestSuite) TestGetCurrentPrice() {
	price, err := suite.provider.GetCurrentPrice(context.Background(), "BTCUSDT")
	suite.NoError(err)
	suite.InDelta(45123.50, price, 1e-9)
}

func (suite *BinanceProviderTestSuite) TestGetCurrentPriceBadPayload() {
	suite.lastPrice = "not-a-number"

	_, err := suite.provider.GetCurrentPrice(context.Background(), "BTCUSDT")
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataParseFailed))
}
