package types

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type TimeframeTestSuite struct {
	suite.Suite
}

func TestTimeframeSuite(t *testing.T) {
	suite.Run(t, new(TimeframeTestSuite))
}

func (suite *TimeframeTestSuite) TestValid() {
	for _, tf := range AllTimeframes() {
		suite.True(tf.Valid())
	}

	suite.False(Timeframe("1h").Valid())
	suite.False(Timeframe("").Valid())
}

func (suite *TimeframeTestSuite) TestScoreMultiplier() {
	suite.Equal(0.9, Timeframe1Min.ScoreMultiplier())
	suite.Equal(1.0, Timeframe5Min.ScoreMultiplier())
	suite.Equal(0.95, Timeframe15Min.ScoreMultiplier())
}

func (suite *TimeframeTestSuite) TestTakeProfitMultiplier() {
	suite.Equal(1.3, Timeframe1Min.TakeProfitMultiplier())
	suite.Equal(1.1, Timeframe5Min.TakeProfitMultiplier())
	suite.Equal(1.0, Timeframe15Min.TakeProfitMultiplier())
}

func (suite *TimeframeTestSuite) TestStopLossMultiplier() {
	// Only the 1m timeframe widens the stop
	suite.Equal(1.2, Timeframe1Min.StopLossMultiplier())
	suite.Equal(1.0, Timeframe5Min.StopLossMultiplier())
	suite.Equal(1.0, Timeframe15Min.StopLossMultiplier())
}

func (suite *TimeframeTestSuite) TestSizeMultiplier() {
	suite.Equal(1.5, Timeframe1Min.SizeMultiplier())
	suite.Equal(1.0, Timeframe5Min.SizeMultiplier())
	suite.Equal(0.7, Timeframe15Min.SizeMultiplier())
}

func (suite *TimeframeTestSuite) TestVolatilityCeiling() {
	suite.Equal(0.05, Timeframe1Min.VolatilityCeiling())
	suite.Equal(0.03, Timeframe5Min.VolatilityCeiling())
	suite.Equal(0.02, Timeframe15Min.VolatilityCeiling())
}
