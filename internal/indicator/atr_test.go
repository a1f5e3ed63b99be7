package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

type ATRTestSuite struct {
	suite.Suite
}

func TestATRSuite(t *testing.T) {
	suite.Run(t, new(ATRTestSuite))
}

func (suite *ATRTestSuite) TestATRStableRange() {
	// 15 identical bars with a constant true range of 2
	bars := make([]types.Bar, 15)
	for i := range bars {
		bars[i] = types.Bar{High: 101, Low: 99, Close: 100}
	}

	atr, err := ATR(bars, DefaultATRPeriod)
	suite.NoError(err)
	suite.InDelta(2.0, atr, 1e-9)
}

func (suite *ATRTestSuite) TestATRUsesGapFromPrevClose() {
	// Second bar gaps up: true range is |high - prevClose| = 10
	bars := []types.Bar{
		{High: 101, Low: 99, Close: 100},
		{High: 110, Low: 109, Close: 110},
		{High: 111, Low: 109, Close: 110},
	}

	atr, err := ATR(bars, 2)
	suite.NoError(err)
	// TRs: max(1, |110-100|, |109-100|)=10 and max(2, 1, 1)=2
	suite.InDelta(6.0, atr, 1e-9)
}

func (suite *ATRTestSuite) TestATRInsufficientData() {
	bars := make([]types.Bar, 14)
	for i := range bars {
		bars[i] = types.Bar{High: 101, Low: 99, Close: 100}
	}

	_, err := ATR(bars, DefaultATRPeriod)
	suite.Error(err)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *ATRTestSuite) TestATRInvalidPeriod() {
	_, err := ATR(nil, 0)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (suite *ATRTestSuite) TestATRUsesTrailingWindowOnly() {
	// Early wide-range bars must not leak into a trailing 2-period ATR
	bars := []types.Bar{
		{High: 200, Low: 100, Close: 150},
		{High: 151, Low: 149, Close: 150},
		{High: 151, Low: 149, Close: 150},
		{High: 151, Low: 149, Close: 150},
	}

	atr, err := ATR(bars, 2)
	suite.NoError(err)
	suite.InDelta(2.0, atr, 1e-9)
}
