package indicator

import (
	"math"

	"github.com/atlasquant/matrader/pkg/errors"
)

// DefaultVolatilityWindow is the trailing window for volatility estimates.
const DefaultVolatilityWindow = 50

// Volatility is the standard deviation of simple returns over the trailing
// window. A window larger than the series uses whatever is available, down to
// a minimum of two returns.
func Volatility(closes []float64, window int) (float64, error) {
	if window < 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "volatility window must be at least 2, got %d", window)
	}

	if len(closes) < 3 {
		return 0, errors.NewInsufficientDataErrorf(3, len(closes), "",
			"volatility requires at least 3 closes, got %d", len(closes))
	}

	if len(closes) > window+1 {
		closes = closes[len(closes)-window-1:]
	}

	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}

		returns = append(returns, (closes[i]-closes[i-1])/closes[i-1])
	}

	if len(returns) < 2 {
		return 0, errors.NewInsufficientDataErrorf(2, len(returns), "",
			"volatility requires at least 2 usable returns, got %d", len(returns))
	}

	return stdDev(returns), nil
}

// TrendStrength is the slope of an ordinary least-squares fit of index vs.
// price, normalized by the mean price, scaled to percent-per-bar and clamped
// to [-1, 1]. Positive values indicate an uptrend; +-1 means the price moves
// a full percent of its mean per bar or more.
func TrendStrength(closes []float64) (float64, error) {
	n := len(closes)
	if n < 2 {
		return 0, errors.NewInsufficientDataErrorf(2, n, "",
			"trend strength requires at least 2 closes, got %d", n)
	}

	meanX := float64(n-1) / 2.0
	meanY := mean(closes)

	if meanY == 0 {
		return 0, errors.New(errors.ErrCodeIndicatorCalculation, "trend strength undefined for zero mean price")
	}

	var num, den float64
	for i, y := range closes {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}

	if den == 0 {
		return 0, nil
	}

	slope := num / den

	return clamp(slope/meanY*100, -1, 1), nil
}

// RSquared is the coefficient of determination of the MA series as a fit to
// the price series. Both slices must be equal length and aligned. The result
// ranges over (-inf, 1]; callers clamp when combining into scores.
func RSquared(prices, ma []float64) (float64, error) {
	if len(prices) != len(ma) {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter,
			"r-squared requires aligned series, got %d prices and %d MA points", len(prices), len(ma))
	}

	if len(prices) < 2 {
		return 0, errors.NewInsufficientDataErrorf(2, len(prices), "",
			"r-squared requires at least 2 points, got %d", len(prices))
	}

	meanPrice := mean(prices)

	var ssRes, ssTot float64
	for i := range prices {
		res := prices[i] - ma[i]
		tot := prices[i] - meanPrice
		ssRes += res * res
		ssTot += tot * tot
	}

	if ssTot == 0 {
		// Flat price series: the MA either matches exactly or does not fit.
		if ssRes == 0 {
			return 1, nil
		}

		return 0, nil
	}

	return 1 - ssRes/ssTot, nil
}

// AllFinite reports whether every value in the series is a finite number.
func AllFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)

	var sq float64
	for _, v := range values {
		d := v - m
		sq += d * d
	}

	return math.Sqrt(sq / float64(len(values)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return clamp(v, lo, hi)
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
