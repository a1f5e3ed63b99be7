// Package optimizer searches the moving-average configuration space for the
// best crossover strategy on recent history.
package optimizer

import (
	"math"

	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/indicator"
	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

const (
	// MinOptimizationBars is the fewest bars an optimization pass accepts.
	MinOptimizationBars = 50
	// defaultEvaluationPeriod is how many trailing points feed the crossover score.
	defaultEvaluationPeriod = 20
	// minUsablePoints is the smallest price/MA overlap worth scoring.
	minUsablePoints = 20
)

// Composite score weights. The crossover capture history dominates; fit
// quality and simulated performance split the rest.
const (
	weightCrossover    = 0.4
	weightRSquared     = 0.2
	weightWinRate      = 0.2
	weightProfitFactor = 0.1
	weightDrawdown     = 0.1
)

// OnProgress receives a monotonically increasing fraction in [0,1] once per
// tested combination. Advisory only; must not block.
type OnProgress func(fraction float64)

// Optimizer scores every MAType x length combination over a bar history.
type Optimizer struct {
	evaluationPeriod int
	log              *logger.Logger
}

// NewOptimizer creates an optimizer with default settings.
func NewOptimizer(log *logger.Logger) *Optimizer {
	return &Optimizer{
		evaluationPeriod: defaultEvaluationPeriod,
		log:              log,
	}
}

// Optimize backtests all 7 MA types x lengths 5..30 and returns the best
// configuration by composite score, together with every scored candidate.
// Ties break to the first candidate in iteration order (MA type declaration
// order, then ascending length), which keeps results deterministic.
func (o *Optimizer) Optimize(bars []types.Bar, timeframe types.Timeframe, onProgress OnProgress) (types.StrategyResult, error) {
	if len(bars) < MinOptimizationBars {
		return types.StrategyResult{}, errors.NewInsufficientDataErrorf(MinOptimizationBars, len(bars), "",
			"optimization requires at least %d bars, got %d", MinOptimizationBars, len(bars))
	}

	maTypes := types.AllMATypes()
	totalCombos := len(maTypes) * (types.MaxMALength - types.MinMALength + 1)

	candidates := make([]types.CandidateScore, 0, totalCombos)
	skipped := 0
	tested := 0

	var best *types.CandidateScore

	for _, maType := range maTypes {
		for length := types.MinMALength; length <= types.MaxMALength; length++ {
			tested++

			if onProgress != nil {
				onProgress(float64(tested) / float64(totalCombos))
			}

			candidate, ok := o.scoreCandidate(bars, maType, length, timeframe)
			if !ok {
				skipped++

				continue
			}

			candidates = append(candidates, candidate)

			if best == nil || candidate.CompositeScore > best.CompositeScore {
				copied := candidate
				best = &copied
			}
		}
	}

	if best == nil {
		return types.StrategyResult{}, errors.Newf(errors.ErrCodeNoValidConfiguration,
			"all %d combinations were skipped, none produced a scorable series", totalCombos)
	}

	if o.log != nil {
		o.log.Info("optimization pass complete",
			zap.String("ma_type", string(best.Config.Type)),
			zap.Int("length", best.Config.Length),
			zap.Float64("composite_score", best.CompositeScore),
			zap.Float64("win_rate", best.Performance.WinRate),
			zap.Int("skipped", skipped),
		)
	}

	return types.StrategyResult{
		Config:              best.Config,
		CompositeScore:      best.CompositeScore,
		CrossoverScore:      best.CrossoverScore,
		RSquared:            best.RSquared,
		Performance:         best.Performance,
		Candidates:          candidates,
		SkippedCombinations: skipped,
	}, nil
}

// scoreCandidate computes all sub-scores for one configuration. Returns
// ok=false when the configuration cannot be scored (too little overlap or a
// non-finite series); such configurations are skipped, never fatal.
func (o *Optimizer) scoreCandidate(bars []types.Bar, maType types.MAType, length int, timeframe types.Timeframe) (types.CandidateScore, bool) {
	ma, err := indicator.Compute(maType, bars, length)
	if err != nil {
		return types.CandidateScore{}, false
	}

	if len(ma) < minUsablePoints || !indicator.AllFinite(ma) {
		return types.CandidateScore{}, false
	}

	closes := types.Closes(bars)
	// The MA series is end-aligned with the closes; trim the warm-up.
	prices := closes[len(closes)-len(ma):]

	crossoverScore := o.crossoverScore(prices, ma, length)

	rSquared, err := indicator.RSquared(prices, ma)
	if err != nil {
		return types.CandidateScore{}, false
	}

	performance := simulateTrades(prices, ma)

	composite := o.compositeScore(crossoverScore, rSquared, performance, timeframe)
	if math.IsNaN(composite) || math.IsInf(composite, 0) {
		return types.CandidateScore{}, false
	}

	return types.CandidateScore{
		Config:         types.MAConfig{Type: maType, Length: length},
		CompositeScore: composite,
		CrossoverScore: crossoverScore,
		RSquared:       rSquared,
		Performance:    performance,
	}, true
}

// crossoverScore sums the price deltas captured at crossovers over the most
// recent evaluation period, normalized by MA length. It rewards MAs whose
// crossings historically preceded moves in the crossing direction.
func (o *Optimizer) crossoverScore(prices, ma []float64, length int) float64 {
	start := len(prices) - o.evaluationPeriod
	if start < 1 {
		start = 1
	}

	score := 0.0

	for i := start; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]

		crossedUp := prices[i-1] <= ma[i-1] && prices[i] > ma[i]
		crossedDown := prices[i-1] >= ma[i-1] && prices[i] < ma[i]

		if crossedUp {
			score += delta
		} else if crossedDown {
			score -= delta
		}
	}

	return score / float64(length)
}

// simulateTrades replays the crossover strategy over the aligned series:
// enter long when price crosses above the MA, exit when it crosses below.
func simulateTrades(prices, ma []float64) types.StrategyPerformance {
	var (
		inPosition bool
		entryPrice float64
		tradePnLs  []float64
	)

	for i := 1; i < len(prices); i++ {
		crossedUp := prices[i-1] <= ma[i-1] && prices[i] > ma[i]
		crossedDown := prices[i-1] >= ma[i-1] && prices[i] < ma[i]

		switch {
		case !inPosition && crossedUp:
			inPosition = true
			entryPrice = prices[i]
		case inPosition && crossedDown:
			inPosition = false

			tradePnLs = append(tradePnLs, prices[i]-entryPrice)
		}
	}

	// An open trade at the end of history is marked to the last price.
	if inPosition {
		tradePnLs = append(tradePnLs, prices[len(prices)-1]-entryPrice)
	}

	return types.StrategyPerformance{
		WinRate:      winRate(tradePnLs),
		ProfitFactor: profitFactor(tradePnLs),
		MaxDrawdown:  maxDrawdown(tradePnLs),
		TotalTrades:  len(tradePnLs),
		SharpeRatio:  sharpeRatio(prices),
	}
}

func winRate(pnls []float64) float64 {
	if len(pnls) == 0 {
		return 0
	}

	wins := 0
	for _, pnl := range pnls {
		if pnl > 0 {
			wins++
		}
	}

	return float64(wins) / float64(len(pnls))
}

// profitFactor is gross win over gross loss; with no losses it degrades to
// the gross win itself.
func profitFactor(pnls []float64) float64 {
	var grossWin, grossLoss float64

	for _, pnl := range pnls {
		if pnl > 0 {
			grossWin += pnl
		} else {
			grossLoss -= pnl
		}
	}

	if grossLoss == 0 {
		return grossWin
	}

	return grossWin / grossLoss
}

// maxDrawdown is the largest peak-to-trough drop of the cumulative trade P&L.
func maxDrawdown(pnls []float64) float64 {
	var cumulative, peak, drawdown float64

	for _, pnl := range pnls {
		cumulative += pnl

		if cumulative > peak {
			peak = cumulative
		}

		if dd := peak - cumulative; dd > drawdown {
			drawdown = dd
		}
	}

	return drawdown
}

// sharpeRatio is a Sharpe-like ratio of per-bar simple returns with a zero
// risk-free rate.
func sharpeRatio(prices []float64) float64 {
	if len(prices) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}

		returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
	}

	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}

	meanReturn := sum / float64(len(returns))

	var sq float64
	for _, r := range returns {
		d := r - meanReturn
		sq += d * d
	}

	std := math.Sqrt(sq / float64(len(returns)))
	if std == 0 {
		return 0
	}

	return meanReturn / std
}

func (o *Optimizer) compositeScore(crossoverScore, rSquared float64, perf types.StrategyPerformance, timeframe types.Timeframe) float64 {
	normalizedCrossover := indicator.Clamp01((crossoverScore + 100) / 200)

	score := weightCrossover*normalizedCrossover +
		weightRSquared*indicator.Clamp01(rSquared) +
		weightWinRate*indicator.Clamp01(perf.WinRate) +
		weightProfitFactor*indicator.Clamp01(perf.ProfitFactor/1000) +
		weightDrawdown*indicator.Clamp01(1-perf.MaxDrawdown/1000)

	return score * timeframe.ScoreMultiplier()
}
