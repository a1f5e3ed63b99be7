package optimizer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// BarSource supplies historical bars for optimization passes.
type BarSource interface {
	GetHistoricalBars(ctx context.Context, symbol string, count int, timeframe types.Timeframe) ([]types.Bar, error)
}

// RetryConfig controls the widening-window retry policy applied when an
// optimization pass comes back with low confidence.
type RetryConfig struct {
	// Windows are the bar counts tried in order
	Windows []int
	// TargetWinRate stops the retries early once reached
	TargetWinRate float64
	// AttemptDelay is the fixed wait between optimization attempts
	AttemptDelay time.Duration
	// FetchRetries bounds per-window bar fetch retries
	FetchRetries uint64
	// FetchRetryDelay is the constant wait between fetch retries
	FetchRetryDelay time.Duration
}

// DefaultRetryConfig returns the stock retry policy: windows widening from
// 500 to 3500 bars, targeting a 60% simulated win rate.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Windows:         []int{500, 1500, 3500},
		TargetWinRate:   0.60,
		AttemptDelay:    10 * time.Second,
		FetchRetries:    3,
		FetchRetryDelay: 2 * time.Second,
	}
}

// OptimizeWithRetry runs Optimize over progressively larger bar windows until
// the winning configuration's simulated win rate reaches the target or the
// windows are exhausted. Low confidence after the final window is a warning,
// not an error: the best result obtained is returned.
func (o *Optimizer) OptimizeWithRetry(
	ctx context.Context,
	source BarSource,
	symbol string,
	timeframe types.Timeframe,
	cfg RetryConfig,
	onProgress OnProgress,
) (types.StrategyResult, error) {
	var (
		best     types.StrategyResult
		haveBest bool
	)

	for attempt, window := range cfg.Windows {
		bars, err := o.fetchBars(ctx, source, symbol, window, timeframe, cfg)
		if err != nil {
			if haveBest {
				break
			}

			return types.StrategyResult{}, err
		}

		result, err := o.Optimize(bars, timeframe, onProgress)
		if err != nil {
			// Not enough data or no scorable candidate in this window; a
			// larger window may still succeed.
			if errors.IsInsufficientDataError(err) || errors.HasCode(err, errors.ErrCodeNoValidConfiguration) {
				continue
			}

			return types.StrategyResult{}, err
		}

		if !haveBest || result.CompositeScore > best.CompositeScore {
			best = result
			haveBest = true
		}

		if result.Performance.WinRate >= cfg.TargetWinRate {
			return result, nil
		}

		if o.log != nil {
			o.log.Info("optimization confidence below target, widening window",
				zap.Int("attempt", attempt+1),
				zap.Int("window", window),
				zap.Float64("win_rate", result.Performance.WinRate),
				zap.Float64("target", cfg.TargetWinRate),
			)
		}

		if attempt < len(cfg.Windows)-1 {
			if err := sleepContext(ctx, cfg.AttemptDelay); err != nil {
				break
			}
		}
	}

	if !haveBest {
		return types.StrategyResult{}, errors.New(errors.ErrCodeNoValidConfiguration,
			"no optimization window produced a valid configuration")
	}

	if o.log != nil {
		o.log.Warn("proceeding with best available configuration below the confidence target",
			zap.String("ma_type", string(best.Config.Type)),
			zap.Int("length", best.Config.Length),
			zap.Float64("win_rate", best.Performance.WinRate),
		)
	}

	return best, nil
}

func (o *Optimizer) fetchBars(
	ctx context.Context,
	source BarSource,
	symbol string,
	count int,
	timeframe types.Timeframe,
	cfg RetryConfig,
) ([]types.Bar, error) {
	var bars []types.Bar

	operation := func() error {
		fetched, err := source.GetHistoricalBars(ctx, symbol, count, timeframe)
		if err != nil {
			return err
		}

		bars = fetched

		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.FetchRetryDelay), cfg.FetchRetries),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeDataFetchFailed, err,
			"failed to fetch %d bars for %s", count, symbol)
	}

	return bars, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
