package indicator

import (
	"math"

	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// DefaultATRPeriod is the conventional ATR lookback.
const DefaultATRPeriod = 14

// ATR computes the Average True Range over the trailing period using the last
// period+1 bars. True range is max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(bars []types.Bar, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "ATR period must be positive, got %d", period)
	}

	if len(bars) < period+1 {
		return 0, errors.NewInsufficientDataErrorf(period+1, len(bars), "",
			"ATR requires %d bars, got %d", period+1, len(bars))
	}

	window := bars[len(bars)-period-1:]

	sum := 0.0
	for i := 1; i < len(window); i++ {
		sum += trueRange(window[i], window[i-1].Close)
	}

	return sum / float64(period), nil
}

func trueRange(bar types.Bar, prevClose float64) float64 {
	return math.Max(
		bar.High-bar.Low,
		math.Max(
			math.Abs(bar.High-prevClose),
			math.Abs(bar.Low-prevClose),
		),
	)
}
