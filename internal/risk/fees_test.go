package risk

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/atlasquant/matrader/internal/types"
)

type FeesTestSuite struct {
	suite.Suite

	schedule *FeeSchedule
}

func TestFeesSuite(t *testing.T) {
	suite.Run(t, new(FeesTestSuite))
}

func (suite *FeesTestSuite) SetupTest() {
	suite.schedule = NewFeeSchedule(types.DefaultRiskParameters().FeeTiers)
}

func (suite *FeesTestSuite) TestTakerRateBaseTier() {
	suite.Equal(0.0010, suite.schedule.TakerRate(0))
	suite.Equal(0.0010, suite.schedule.TakerRate(999_999))
}

func (suite *FeesTestSuite) TestTakerRateHigherTiers() {
	suite.Equal(0.0009, suite.schedule.TakerRate(5_000_000))
	suite.Equal(0.0008, suite.schedule.TakerRate(10_000_000))
	suite.Equal(0.0006, suite.schedule.TakerRate(100_000_000))
}

func (suite *FeesTestSuite) TestTakerRateUnsortedTiers() {
	schedule := NewFeeSchedule([]types.FeeTier{
		{VolumeThreshold: 1000, TakerRate: 0.0005},
		{VolumeThreshold: 0, TakerRate: 0.0010},
	})

	suite.Equal(0.0010, schedule.TakerRate(500))
	suite.Equal(0.0005, schedule.TakerRate(2000))
}

func (suite *FeesTestSuite) TestRoundTripFee() {
	// Buy fee: 2 * 0.001 * 100 = 0.2; sell fee: 2 * 103 * 0.001 = 0.206
	fee := suite.schedule.RoundTripFee(2, 100, 103, 0)
	suite.InDelta(0.406, fee, 1e-9)
}

func (suite *FeesTestSuite) TestRoundTripFeeZeroSize() {
	suite.Equal(0.0, suite.schedule.RoundTripFee(0, 100, 103, 0))
	suite.Equal(0.0, suite.schedule.RoundTripFee(-1, 100, 103, 0))
}

func (suite *FeesTestSuite) TestRoundTripFeeEmptySchedule() {
	schedule := NewFeeSchedule(nil)
	suite.Equal(0.0, schedule.RoundTripFee(2, 100, 103, 0))
}
