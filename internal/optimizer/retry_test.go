package optimizer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

type RetryTestSuite struct {
	suite.Suite

	optimizer *Optimizer
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetryTestSuite))
}

func (suite *RetryTestSuite) SetupTest() {
	suite.optimizer = NewOptimizer(logger.NewNopLogger())
}

// fakeBarSource serves synthetic bars and can fail selected calls.
type fakeBarSource struct {
	calls     int
	failCalls map[int]bool
	requests  []int
}

func (f *fakeBarSource) GetHistoricalBars(_ context.Context, _ string, count int, _ types.Timeframe) ([]types.Bar, error) {
	f.calls++
	if f.failCalls[f.calls] {
		return nil, fmt.Errorf("upstream unavailable")
	}

	f.requests = append(f.requests, count)

	return makeBars(wavyCloses(count)), nil
}

func fastRetryConfig(windows ...int) RetryConfig {
	return RetryConfig{
		Windows:         windows,
		TargetWinRate:   0,
		AttemptDelay:    time.Millisecond,
		FetchRetries:    1,
		FetchRetryDelay: time.Millisecond,
	}
}

func (suite *RetryTestSuite) TestStopsAtFirstWindowWhenTargetMet() {
	source := &fakeBarSource{}
	cfg := fastRetryConfig(60, 80, 100)

	result, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.NoError(err)
	suite.True(result.Config.Type.Valid())

	// Win rate always meets a zero target, so only the first window runs
	suite.Equal([]int{60}, source.requests)
}

func (suite *RetryTestSuite) TestWidensWindowsAndReturnsBest() {
	source := &fakeBarSource{}
	cfg := fastRetryConfig(60, 80, 100)
	cfg.TargetWinRate = 2.0 // unattainable

	result, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.NoError(err)
	suite.True(result.Config.Type.Valid())
	suite.Equal([]int{60, 80, 100}, source.requests)

	// The returned result carries the best composite across all windows
	for _, window := range []int{60, 80, 100} {
		attempt, err := suite.optimizer.Optimize(makeBars(wavyCloses(window)), types.Timeframe5Min, nil)
		suite.NoError(err)
		suite.LessOrEqual(attempt.CompositeScore, result.CompositeScore+1e-12)
	}
}

func (suite *RetryTestSuite) TestSkipsWindowWithTooFewBars() {
	source := &fakeBarSource{}
	cfg := fastRetryConfig(10, 60)

	result, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.NoError(err)
	suite.True(result.Config.Type.Valid())

	// The 10-bar window is fetched but cannot be optimized; the wider one wins
	suite.Equal([]int{10, 60}, source.requests)
}

func (suite *RetryTestSuite) TestAllWindowsUnusable() {
	source := &fakeBarSource{}
	cfg := fastRetryConfig(10, 20)

	_, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNoValidConfiguration))
}

func (suite *RetryTestSuite) TestFetchRetriesThenSucceeds() {
	source := &fakeBarSource{failCalls: map[int]bool{1: true, 2: true}}
	cfg := fastRetryConfig(60)
	cfg.FetchRetries = 3

	result, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.NoError(err)
	suite.True(result.Config.Type.Valid())
	suite.Equal(3, source.calls)
}

func (suite *RetryTestSuite) TestFetchFailureWithoutResultIsFatal() {
	source := &fakeBarSource{failCalls: map[int]bool{1: true, 2: true}}
	cfg := fastRetryConfig(60)

	_, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataFetchFailed))
}

func (suite *RetryTestSuite) TestFetchFailureAfterResultKeepsBest() {
	// First window succeeds, every later fetch fails
	source := &fakeBarSource{failCalls: map[int]bool{2: true, 3: true, 4: true, 5: true}}
	cfg := fastRetryConfig(60, 80)
	cfg.TargetWinRate = 2.0

	result, err := suite.optimizer.OptimizeWithRetry(
		context.Background(), source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.NoError(err)
	suite.True(result.Config.Type.Valid())
	suite.Equal([]int{60}, source.requests)
}

func (suite *RetryTestSuite) TestCancelledContextStopsBetweenAttempts() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeBarSource{}
	cfg := fastRetryConfig(60, 80)
	cfg.TargetWinRate = 2.0
	cfg.AttemptDelay = time.Hour

	// The first window still completes; the cancelled context cuts the wait
	// before the second attempt and the best result so far comes back.
	result, err := suite.optimizer.OptimizeWithRetry(
		ctx, source, "BTCUSDT", types.Timeframe5Min, cfg, nil)
	suite.NoError(err)
	suite.True(result.Config.Type.Valid())
	suite.Equal([]int{60}, source.requests)
}
