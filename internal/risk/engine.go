// Package risk derives adaptive stop-loss/take-profit levels and fee-aware
// position sizes from recent market conditions.
package risk

import (
	"math"

	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/indicator"
	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
)

// referenceVolatility is the "normal" volatility the engine scales against.
const referenceVolatility = 0.02

const (
	fallbackStopLossPct   = 0.015
	fallbackTakeProfitPct = 0.03
	fallbackConfidence    = 0.5
)

// Metrics is the market-condition snapshot behind a TP/SL decision.
type Metrics struct {
	// ATR is the average true range used for the stop distance
	ATR float64 `json:"atr" yaml:"atr"`
	// Volatility is the stddev of simple returns over the trailing window
	Volatility float64 `json:"volatility" yaml:"volatility"`
	// Trend is the normalized trend strength in [-1, 1]
	Trend float64 `json:"trend" yaml:"trend"`
	// MADistancePct is how far price sits from the MA, as a fraction
	MADistancePct float64 `json:"ma_distance_pct" yaml:"ma_distance_pct"`
}

// TPSLResult is an immutable take-profit/stop-loss decision.
type TPSLResult struct {
	StopLoss       float64 `json:"stop_loss" yaml:"stop_loss"`
	TakeProfit     float64 `json:"take_profit" yaml:"take_profit"`
	StopLossPct    float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	TakeProfitPct  float64 `json:"take_profit_pct" yaml:"take_profit_pct"`
	// RiskReward is net take-profit gain over net stop-loss cost, after fees
	RiskReward float64 `json:"risk_reward" yaml:"risk_reward"`
	// Confidence is a [0,1] estimate of how favorable conditions are
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Metrics    Metrics `json:"metrics" yaml:"metrics"`
}

// SizeResult is an immutable position sizing decision.
type SizeResult struct {
	// Size is the quantity to buy
	Size float64 `json:"size" yaml:"size"`
	// RiskAmount is the adjusted budget the size was derived from
	RiskAmount float64 `json:"risk_amount" yaml:"risk_amount"`
	// Fees is the estimated round-trip fee at the final size
	Fees float64 `json:"fees" yaml:"fees"`
	// ActualRisk is stop distance x size + fees, in quote currency
	ActualRisk float64 `json:"actual_risk" yaml:"actual_risk"`
	// ActualRiskPercent is ActualRisk as a percentage of equity
	ActualRiskPercent float64 `json:"actual_risk_percent" yaml:"actual_risk_percent"`
	// Clamped is true when a floor or cap overrode the computed size
	Clamped bool `json:"clamped" yaml:"clamped"`
}

// Engine computes TP/SL levels and position sizes from the configured risk
// parameters. Results are value objects; the engine itself is stateless.
type Engine struct {
	params    types.RiskParameters
	fees      *FeeSchedule
	atrPeriod int
	volWindow int
	log       *logger.Logger
}

// NewEngine creates a risk engine with the given parameters.
func NewEngine(params types.RiskParameters, log *logger.Logger) *Engine {
	return &Engine{
		params:    params,
		fees:      NewFeeSchedule(params.FeeTiers),
		atrPeriod: indicator.DefaultATRPeriod,
		volWindow: indicator.DefaultVolatilityWindow,
		log:       log,
	}
}

// Fees exposes the fee schedule for callers that need standalone estimates.
func (e *Engine) Fees() *FeeSchedule {
	return e.fees
}

// CalculateOptimalTPSL derives adaptive stop-loss and take-profit levels from
// ATR, volatility and trend. Returns an InsufficientDataError when fewer than
// atrPeriod+1 bars are available; callers fall back to FallbackTPSL.
//
// The percentage clamps happen before the absolute distances are re-derived.
// The clamp-then-rederive order is observable behavior and deliberately kept.
func (e *Engine) CalculateOptimalTPSL(
	bars []types.Bar,
	currentPrice float64,
	maType types.MAType,
	maLength int,
	positionSize float64,
	volume30d float64,
	timeframe types.Timeframe,
) (TPSLResult, error) {
	if currentPrice <= 0 {
		return TPSLResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "current price must be positive, got %f", currentPrice)
	}

	atr, err := indicator.ATR(bars, e.atrPeriod)
	if err != nil {
		return TPSLResult{}, err
	}

	closes := types.Closes(bars)

	volatility, err := indicator.Volatility(closes, e.volWindow)
	if err != nil {
		return TPSLResult{}, err
	}

	trend, err := indicator.TrendStrength(closes)
	if err != nil {
		return TPSLResult{}, err
	}

	// Stop distance scales with ATR and with how unusual current volatility is.
	volatilityFactor := indicator.Clamp(volatility/referenceVolatility, 0.5, 2.0)
	stopDistance := atr * e.params.ATRMultiplier * volatilityFactor

	stopLossPct := indicator.Clamp(stopDistance/currentPrice, e.params.MinStopLossPct, e.params.MaxStopLossPct)
	stopDistance = currentPrice * stopLossPct

	dynamicRiskReward := e.params.RiskRewardBase * (1 + math.Abs(trend)*0.5)

	takeProfitDistance := stopDistance * dynamicRiskReward
	takeProfitPct := indicator.Clamp(takeProfitDistance/currentPrice, e.params.MinTakeProfitPct, e.params.MaxTakeProfitPct)

	// Timeframe multipliers apply to the clamped percentages, after the
	// take-profit distance has been derived from the unmultiplied stop.
	stopLossPct = math.Min(stopLossPct*timeframe.StopLossMultiplier(), e.params.MaxStopLossPct)
	takeProfitPct = math.Min(takeProfitPct*timeframe.TakeProfitMultiplier(), e.params.MaxTakeProfitPct)

	stopLoss := currentPrice * (1 - stopLossPct)
	takeProfit := currentPrice * (1 + takeProfitPct)

	// Lift the take-profit so it stays net-profitable after round-trip fees.
	if positionSize > 0 {
		tpFees := e.fees.RoundTripFee(positionSize, currentPrice, takeProfit, volume30d)

		takeProfit += tpFees / positionSize
		takeProfitPct = takeProfit/currentPrice - 1

		if takeProfitPct > e.params.MaxTakeProfitPct {
			takeProfitPct = e.params.MaxTakeProfitPct
			takeProfit = currentPrice * (1 + takeProfitPct)
		}
	}

	maDistancePct := e.maDistance(bars, currentPrice, maType, maLength)
	confidence := e.confidence(volatility, trend, maDistancePct)
	riskReward := e.netRiskReward(currentPrice, stopLoss, takeProfit, positionSize, volume30d)

	result := TPSLResult{
		StopLoss:      stopLoss,
		TakeProfit:    takeProfit,
		StopLossPct:   stopLossPct,
		TakeProfitPct: takeProfitPct,
		RiskReward:    riskReward,
		Confidence:    confidence,
		Metrics: Metrics{
			ATR:           atr,
			Volatility:    volatility,
			Trend:         trend,
			MADistancePct: maDistancePct,
		},
	}

	if e.log != nil {
		e.log.Debug("adaptive TP/SL computed",
			zap.Float64("stop_loss", stopLoss),
			zap.Float64("take_profit", takeProfit),
			zap.Float64("atr", atr),
			zap.Float64("volatility", volatility),
			zap.Float64("trend", trend),
			zap.Float64("confidence", confidence),
		)
	}

	return result, nil
}

// FallbackTPSL is the fixed-percentage fallback for when ATR data is not
// available: stop-loss -1.5%, take-profit +3%, confidence 0.5.
func (e *Engine) FallbackTPSL(currentPrice float64) TPSLResult {
	return TPSLResult{
		StopLoss:      currentPrice * (1 - fallbackStopLossPct),
		TakeProfit:    currentPrice * (1 + fallbackTakeProfitPct),
		StopLossPct:   fallbackStopLossPct,
		TakeProfitPct: fallbackTakeProfitPct,
		RiskReward:    fallbackTakeProfitPct / fallbackStopLossPct,
		Confidence:    fallbackConfidence,
		Metrics:       Metrics{},
	}
}

// ManualTPSL derives fixed levels from a flat stop-loss percentage and a
// risk/reward multiplier, bypassing the ATR path entirely.
func (e *Engine) ManualTPSL(currentPrice, stopLossPct, riskReward float64) (TPSLResult, error) {
	if currentPrice <= 0 || stopLossPct <= 0 || riskReward <= 0 {
		return TPSLResult{}, errors.New(errors.ErrCodeInvalidParameter,
			"manual TP/SL requires positive price, stop-loss percent and risk/reward")
	}

	takeProfitPct := stopLossPct * riskReward

	return TPSLResult{
		StopLoss:      currentPrice * (1 - stopLossPct),
		TakeProfit:    currentPrice * (1 + takeProfitPct),
		StopLossPct:   stopLossPct,
		TakeProfitPct: takeProfitPct,
		RiskReward:    riskReward,
		Confidence:    1,
		Metrics:       Metrics{},
	}, nil
}

// CalculatePositionSize computes a fee-aware quantity such that the realized
// risk (stop distance plus round-trip fees) stays within the risk budget,
// then applies the exchange floor and the equity/buying-power caps.
func (e *Engine) CalculatePositionSize(
	account types.AccountInfo,
	riskPercent float64,
	entryPrice float64,
	stopLoss float64,
	volatility float64,
	volume30d float64,
	timeframe types.Timeframe,
) (SizeResult, error) {
	if entryPrice <= 0 || stopLoss <= 0 {
		return SizeResult{}, errors.New(errors.ErrCodeInvalidParameter, "entry price and stop loss must be positive")
	}

	if riskPercent <= 0 || riskPercent > 100 {
		return SizeResult{}, errors.Newf(errors.ErrCodeInvalidParameter, "risk percent must be in (0,100], got %f", riskPercent)
	}

	if account.Equity <= 0 {
		return SizeResult{}, errors.New(errors.ErrCodeInvalidParameter, "account equity must be positive")
	}

	stopDistance := math.Abs(entryPrice - stopLoss)
	if stopDistance == 0 {
		return SizeResult{}, errors.New(errors.ErrCodeInvalidParameter, "stop loss must differ from entry price")
	}

	baseRisk := account.Equity * riskPercent / 100

	volatilityAdjustment := 1.5
	if volatility > 0 {
		volatilityAdjustment = indicator.Clamp(1/(volatility*50), 0.5, 1.5)
	}

	riskAmount := baseRisk * volatilityAdjustment * timeframe.SizeMultiplier()

	size := riskAmount / stopDistance

	// Deduct the estimated fees from the budget before the final division so
	// realized risk including fees does not exceed it.
	fees := e.fees.RoundTripFee(size, entryPrice, stopLoss, volume30d)
	size = math.Max(0, riskAmount-fees) / stopDistance

	maxByBuyingPower := account.BuyingPower * e.params.MaxPositionPct / entryPrice
	maxByEquity := account.Equity * e.params.MaxEquityPct / entryPrice
	sizeCap := math.Min(maxByBuyingPower, maxByEquity)

	clamped := false

	if size > sizeCap {
		size = sizeCap
		clamped = true
	}

	if size < e.params.MinPositionSize {
		size = e.params.MinPositionSize
		clamped = true
	}

	finalFees := e.fees.RoundTripFee(size, entryPrice, stopLoss, volume30d)
	actualRisk := stopDistance*size + finalFees

	return SizeResult{
		Size:              size,
		RiskAmount:        riskAmount,
		Fees:              finalFees,
		ActualRisk:        actualRisk,
		ActualRiskPercent: actualRisk / account.Equity * 100,
		Clamped:           clamped,
	}, nil
}

func (e *Engine) maDistance(bars []types.Bar, currentPrice float64, maType types.MAType, maLength int) float64 {
	ma, err := indicator.Compute(maType, bars, maLength)
	if err != nil || len(ma) == 0 {
		return 0
	}

	latest := ma[len(ma)-1]
	if latest <= 0 {
		return 0
	}

	return math.Abs(currentPrice-latest) / latest
}

// confidence blends volatility normality (0.3), trend strength (0.4) and
// price-to-MA closeness (0.3) into a [0,1] score.
func (e *Engine) confidence(volatility, trend, maDistancePct float64) float64 {
	volScore := 1 - indicator.Clamp01(math.Abs(volatility-referenceVolatility)/referenceVolatility)
	trendScore := math.Abs(trend)
	proximityScore := 1 - indicator.Clamp01(maDistancePct*20)

	return indicator.Clamp01(volScore*0.3 + trendScore*0.4 + proximityScore*0.3)
}

func (e *Engine) netRiskReward(currentPrice, stopLoss, takeProfit, positionSize, volume30d float64) float64 {
	size := positionSize
	if size <= 0 {
		size = 1
	}

	tpFees := e.fees.RoundTripFee(size, currentPrice, takeProfit, volume30d)
	slFees := e.fees.RoundTripFee(size, currentPrice, stopLoss, volume30d)

	netGain := (takeProfit-currentPrice)*size - tpFees
	netLoss := (currentPrice-stopLoss)*size + slFees

	if netLoss <= 0 {
		return 0
	}

	return netGain / netLoss
}
