// Package signal detects price/MA crossovers on a live price series.
package signal

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/indicator"
	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
)

// alignmentLookback is how many trailing (price, MA) pairs feed the
// trend-alignment confidence heuristic.
const alignmentLookback = 10

// Engine computes trade signals from a price series and an MA configuration.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates a signal engine.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Compute evaluates the latest tick. Insufficient data is an expected
// transient condition on a live feed: it yields an invalid HOLD signal, never
// an error.
func (e *Engine) Compute(prices []float64, maType types.MAType, length int) types.TradeSignal {
	if len(prices) < length+2 {
		return invalidSignal(fmt.Sprintf("need at least %d prices for %s(%d), have %d",
			length+2, maType, length, len(prices)))
	}

	for _, p := range prices {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return invalidSignal("price series contains non-finite or non-positive values")
		}
	}

	ma, err := indicator.ComputeValues(maType, prices, length)
	if err != nil {
		return invalidSignal(fmt.Sprintf("MA computation failed: %v", err))
	}

	if len(ma) < 2 || !indicator.AllFinite(ma) {
		return invalidSignal("MA series too short or non-finite")
	}

	curPrice := prices[len(prices)-1]
	prevPrice := prices[len(prices)-2]
	curMA := ma[len(ma)-1]
	prevMA := ma[len(ma)-2]

	if prevMA <= 0 || curMA <= 0 {
		return invalidSignal("MA values must be positive")
	}

	sig := types.TradeSignal{
		Action:  types.SignalActionHold,
		Valid:   true,
		Reason:  "no crossover",
		MAValue: curMA,
		Price:   curPrice,
	}

	switch {
	case prevPrice <= prevMA && curPrice > curMA:
		strength := crossoverStrength(prevPrice, curPrice, prevMA, curMA)
		sig.Action = types.SignalActionBuy
		sig.Reason = fmt.Sprintf("bullish crossover: price %.4f crossed above %s(%d) %.4f", curPrice, maType, length, curMA)
		sig.Crossover = &types.Crossover{Direction: types.CrossoverBullish, Strength: strength}
		sig.Confidence = e.confidence(prices, ma, strength)
	case prevPrice >= prevMA && curPrice < curMA:
		strength := crossoverStrength(prevPrice, curPrice, prevMA, curMA)
		sig.Action = types.SignalActionSell
		sig.Reason = fmt.Sprintf("bearish crossover: price %.4f crossed below %s(%d) %.4f", curPrice, maType, length, curMA)
		sig.Crossover = &types.Crossover{Direction: types.CrossoverBearish, Strength: strength}
		sig.Confidence = e.confidence(prices, ma, strength)
	}

	if e.log != nil && sig.Crossover != nil {
		e.log.Debug("crossover detected",
			zap.String("direction", string(sig.Crossover.Direction)),
			zap.Float64("strength", sig.Crossover.Strength),
			zap.Float64("confidence", sig.Confidence),
		)
	}

	return sig
}

func invalidSignal(reason string) types.TradeSignal {
	return types.TradeSignal{
		Action: types.SignalActionHold,
		Valid:  false,
		Reason: reason,
	}
}

// crossoverStrength blends the price move, the MA move, and the post-cross
// gap between them into a [0,1] decisiveness estimate.
func crossoverStrength(prevPrice, curPrice, prevMA, curMA float64) float64 {
	priceMove := math.Abs(curPrice-prevPrice) / prevPrice
	maMove := math.Abs(curMA-prevMA) / prevMA
	gapFactor := math.Abs(curPrice-curMA) / curMA

	return indicator.Clamp01((priceMove*2 + maMove + gapFactor*0.5) / 3)
}

// confidence is the percentage of the trailing aligned (price, MA) pairs with
// price above MA, scaled by the crossover strength and the current gap.
func (e *Engine) confidence(prices, ma []float64, strength float64) float64 {
	pairs := alignmentLookback
	if len(ma) < pairs {
		pairs = len(ma)
	}

	offset := len(prices) - len(ma)
	above := 0

	for i := len(ma) - pairs; i < len(ma); i++ {
		if prices[offset+i] > ma[i] {
			above++
		}
	}

	alignment := float64(above) / float64(pairs) * 100

	curPrice := prices[len(prices)-1]
	curMA := ma[len(ma)-1]
	gapFactor := indicator.Clamp01(math.Abs(curPrice-curMA)/curMA*100 + 0.5)

	return math.Round(indicator.Clamp(alignment*(0.5+strength*0.5)*gapFactor, 0, 100))
}
