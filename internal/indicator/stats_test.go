package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/atlasquant/matrader/pkg/errors"
)

type StatsTestSuite struct {
	suite.Suite
}

func TestStatsSuite(t *testing.T) {
	suite.Run(t, new(StatsTestSuite))
}

func (suite *StatsTestSuite) TestVolatilityFlatSeries() {
	closes := []float64{100, 100, 100, 100, 100}

	vol, err := Volatility(closes, DefaultVolatilityWindow)
	suite.NoError(err)
	suite.InDelta(0.0, vol, 1e-12)
}

func (suite *StatsTestSuite) TestVolatilityAlternatingSeries() {
	// Returns alternate between +1% and about -0.99%
	closes := []float64{100, 101, 100, 101, 100, 101}

	vol, err := Volatility(closes, DefaultVolatilityWindow)
	suite.NoError(err)
	suite.Greater(vol, 0.005)
	suite.Less(vol, 0.02)
}

func (suite *StatsTestSuite) TestVolatilityUsesTrailingWindow() {
	// A violent early move outside the window must not affect the estimate
	closes := make([]float64, 0, 60)
	closes = append(closes, 100, 200)

	for i := 0; i < 58; i++ {
		closes = append(closes, 200)
	}

	vol, err := Volatility(closes, 50)
	suite.NoError(err)
	suite.InDelta(0.0, vol, 1e-12)
}

func (suite *StatsTestSuite) TestVolatilityInsufficientData() {
	_, err := Volatility([]float64{100, 101}, 50)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *StatsTestSuite) TestTrendStrengthUptrend() {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i)*(50.0/59.0)
	}

	trend, err := TrendStrength(closes)
	suite.NoError(err)
	suite.Greater(trend, 0.0)
	suite.LessOrEqual(trend, 1.0)
}

func (suite *StatsTestSuite) TestTrendStrengthDowntrend() {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 150 - float64(i)
	}

	trend, err := TrendStrength(closes)
	suite.NoError(err)
	suite.Less(trend, 0.0)
	suite.GreaterOrEqual(trend, -1.0)
}

func (suite *StatsTestSuite) TestTrendStrengthFlat() {
	closes := []float64{100, 100, 100, 100}

	trend, err := TrendStrength(closes)
	suite.NoError(err)
	suite.InDelta(0.0, trend, 1e-12)
}

func (suite *StatsTestSuite) TestTrendStrengthClamped() {
	// A very steep rise saturates at 1
	closes := []float64{1, 100, 200, 300}

	trend, err := TrendStrength(closes)
	suite.NoError(err)
	suite.Equal(1.0, trend)
}

func (suite *StatsTestSuite) TestRSquaredPerfectFit() {
	prices := []float64{1, 2, 3, 4}

	r2, err := RSquared(prices, prices)
	suite.NoError(err)
	suite.InDelta(1.0, r2, 1e-12)
}

func (suite *StatsTestSuite) TestRSquaredPoorFit() {
	prices := []float64{1, 2, 3, 4}
	ma := []float64{4, 3, 2, 1}

	r2, err := RSquared(prices, ma)
	suite.NoError(err)
	suite.Less(r2, 0.0)
}

func (suite *StatsTestSuite) TestRSquaredMismatchedLengths() {
	_, err := RSquared([]float64{1, 2, 3}, []float64{1, 2})
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *StatsTestSuite) TestAllFinite() {
	suite.True(AllFinite([]float64{1, 2, 3}))
	suite.True(AllFinite(nil))
	suite.False(AllFinite([]float64{1, math.NaN()}))
	suite.False(AllFinite([]float64{1, math.Inf(1)}))
}

func (suite *StatsTestSuite) TestClamp() {
	suite.Equal(0.5, Clamp(0.5, 0, 1))
	suite.Equal(0.0, Clamp(-1, 0, 1))
	suite.Equal(1.0, Clamp(2, 0, 1))
	suite.Equal(0.0, Clamp01(-0.1))
	suite.Equal(1.0, Clamp01(1.5))
}
