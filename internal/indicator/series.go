// Package indicator provides the pure moving-average computations and the
// series statistics the optimizer and risk engine are built on. All functions
// operate on caller-owned slices and never retain or mutate their inputs.
package indicator

import (
	"math"

	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// SeriesFunc computes a moving-average series from bars and a length.
// The output is end-aligned with the input: the last output value corresponds
// to the last bar. Output length is shorter than the input by the warm-up.
type SeriesFunc func(bars []types.Bar, length int) ([]float64, error)

// seriesTable maps each MA type to its computation. The closed map keeps
// dispatch exhaustive over the MAType enum.
var seriesTable = map[types.MAType]SeriesFunc{
	types.MATypeSMA:  smaFromBars,
	types.MATypeEMA:  emaFromBars,
	types.MATypeWMA:  wmaFromBars,
	types.MATypeDEMA: demaFromBars,
	types.MATypeTEMA: temaFromBars,
	types.MATypeHMA:  hmaFromBars,
	types.MATypeVWAP: VWAPSeries,
}

// Compute dispatches to the series function for the given MA type.
func Compute(maType types.MAType, bars []types.Bar, length int) ([]float64, error) {
	fn, ok := seriesTable[maType]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownMAType, "unknown MA type %q", maType)
	}

	return fn(bars, length)
}

// ComputeValues computes the series for the given MA type from raw prices.
// VWAP needs per-bar volume, which a plain price stream does not carry, so it
// degrades to the SMA here, matching VWAPSeries' zero-volume fallback.
func ComputeValues(maType types.MAType, values []float64, length int) ([]float64, error) {
	switch maType {
	case types.MATypeSMA, types.MATypeVWAP:
		return SMASeries(values, length)
	case types.MATypeEMA:
		return EMASeries(values, length)
	case types.MATypeWMA:
		return WMASeries(values, length)
	case types.MATypeDEMA:
		return DEMASeries(values, length)
	case types.MATypeTEMA:
		return TEMASeries(values, length)
	case types.MATypeHMA:
		return HMASeries(values, length)
	default:
		return nil, errors.Newf(errors.ErrCodeUnknownMAType, "unknown MA type %q", maType)
	}
}

func smaFromBars(bars []types.Bar, length int) ([]float64, error) {
	return SMASeries(types.Closes(bars), length)
}

func emaFromBars(bars []types.Bar, length int) ([]float64, error) {
	return EMASeries(types.Closes(bars), length)
}

func wmaFromBars(bars []types.Bar, length int) ([]float64, error) {
	return WMASeries(types.Closes(bars), length)
}

func demaFromBars(bars []types.Bar, length int) ([]float64, error) {
	return DEMASeries(types.Closes(bars), length)
}

func temaFromBars(bars []types.Bar, length int) ([]float64, error) {
	return TEMASeries(types.Closes(bars), length)
}

func hmaFromBars(bars []types.Bar, length int) ([]float64, error) {
	return HMASeries(types.Closes(bars), length)
}

func checkSeriesInput(n, length, required int) error {
	if length < 2 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "MA length must be at least 2, got %d", length)
	}

	if n < required {
		return errors.NewInsufficientDataErrorf(required, n, "",
			"need %d values for the requested series, got %d", required, n)
	}

	return nil
}

// SMASeries computes the simple moving average. The warm-up is length-1
// values; the output has len(values)-length+1 points.
func SMASeries(values []float64, length int) ([]float64, error) {
	if err := checkSeriesInput(len(values), length, length); err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(values)-length+1)

	windowSum := 0.0
	for i, v := range values {
		windowSum += v
		if i >= length {
			windowSum -= values[i-length]
		}

		if i >= length-1 {
			out = append(out, windowSum/float64(length))
		}
	}

	return out, nil
}

// EMASeries computes the exponential moving average with multiplier
// 2/(length+1), seeded with the SMA of the first length values.
func EMASeries(values []float64, length int) ([]float64, error) {
	if err := checkSeriesInput(len(values), length, length); err != nil {
		return nil, err
	}

	seed := 0.0
	for _, v := range values[:length] {
		seed += v
	}

	seed /= float64(length)

	multiplier := 2.0 / (float64(length) + 1.0)
	out := make([]float64, 0, len(values)-length+1)
	out = append(out, seed)

	prev := seed
	for _, v := range values[length:] {
		prev = (v-prev)*multiplier + prev
		out = append(out, prev)
	}

	return out, nil
}

// WMASeries computes the linearly weighted moving average with weights 1..length.
func WMASeries(values []float64, length int) ([]float64, error) {
	if err := checkSeriesInput(len(values), length, length); err != nil {
		return nil, err
	}

	weightSum := float64(length*(length+1)) / 2.0
	out := make([]float64, 0, len(values)-length+1)

	for i := length - 1; i < len(values); i++ {
		weighted := 0.0
		for j := 0; j < length; j++ {
			weighted += values[i-length+1+j] * float64(j+1)
		}

		out = append(out, weighted/weightSum)
	}

	return out, nil
}

// DEMASeries computes the double exponential moving average 2*EMA - EMA(EMA).
// The warm-up is 2*(length-1) values.
func DEMASeries(values []float64, length int) ([]float64, error) {
	if err := checkSeriesInput(len(values), length, 2*length-1); err != nil {
		return nil, err
	}

	ema1, err := EMASeries(values, length)
	if err != nil {
		return nil, err
	}

	ema2, err := EMASeries(ema1, length)
	if err != nil {
		return nil, err
	}

	// ema1 and ema2 are end-aligned; trim ema1's head to ema2's span.
	offset := len(ema1) - len(ema2)
	out := make([]float64, len(ema2))

	for i := range ema2 {
		out[i] = 2*ema1[offset+i] - ema2[i]
	}

	return out, nil
}

// TEMASeries computes the triple exponential moving average
// 3*EMA - 3*EMA(EMA) + EMA(EMA(EMA)). The warm-up is 3*(length-1) values.
func TEMASeries(values []float64, length int) ([]float64, error) {
	if err := checkSeriesInput(len(values), length, 3*length-2); err != nil {
		return nil, err
	}

	ema1, err := EMASeries(values, length)
	if err != nil {
		return nil, err
	}

	ema2, err := EMASeries(ema1, length)
	if err != nil {
		return nil, err
	}

	ema3, err := EMASeries(ema2, length)
	if err != nil {
		return nil, err
	}

	offset1 := len(ema1) - len(ema3)
	offset2 := len(ema2) - len(ema3)
	out := make([]float64, len(ema3))

	for i := range ema3 {
		out[i] = 3*ema1[offset1+i] - 3*ema2[offset2+i] + ema3[i]
	}

	return out, nil
}

// HMASeries computes the Hull moving average
// WMA(2*WMA(length/2) - WMA(length), sqrt(length)).
func HMASeries(values []float64, length int) ([]float64, error) {
	half := length / 2
	if half < 2 {
		half = 2
	}

	sqrtLen := int(math.Round(math.Sqrt(float64(length))))
	if sqrtLen < 2 {
		sqrtLen = 2
	}

	if err := checkSeriesInput(len(values), length, length+sqrtLen-1); err != nil {
		return nil, err
	}

	wmaHalf, err := WMASeries(values, half)
	if err != nil {
		return nil, err
	}

	wmaFull, err := WMASeries(values, length)
	if err != nil {
		return nil, err
	}

	// Both are end-aligned with the input; trim the longer half series.
	offset := len(wmaHalf) - len(wmaFull)
	diff := make([]float64, len(wmaFull))

	for i := range wmaFull {
		diff[i] = 2*wmaHalf[offset+i] - wmaFull[i]
	}

	return WMASeries(diff, sqrtLen)
}

// VWAPSeries computes a rolling volume-weighted average price over the
// window. When the window carries no volume it falls back to the SMA of the
// closes, so the series stays finite on volume-less feeds.
func VWAPSeries(bars []types.Bar, length int) ([]float64, error) {
	if err := checkSeriesInput(len(bars), length, length); err != nil {
		return nil, err
	}

	out := make([]float64, 0, len(bars)-length+1)

	for i := length - 1; i < len(bars); i++ {
		priceVolume := 0.0
		volume := 0.0
		closeSum := 0.0

		for j := i - length + 1; j <= i; j++ {
			typical := (bars[j].High + bars[j].Low + bars[j].Close) / 3.0
			priceVolume += typical * bars[j].Volume
			volume += bars[j].Volume
			closeSum += bars[j].Close
		}

		if volume > 0 {
			out = append(out, priceVolume/volume)
		} else {
			out = append(out, closeSum/float64(length))
		}
	}

	return out, nil
}
