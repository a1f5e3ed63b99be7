// Package controller runs the live trading loop: a single cooperative loop
// that polls prices, tracks the price/MA relation across ticks, and turns
// confirmed crossovers into risk-sized orders. All state (position, signal
// state, rolling window) is owned by the loop; no locks are needed.
package controller

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/indicator"
	"github.com/atlasquant/matrader/internal/journal"
	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/risk"
	"github.com/atlasquant/matrader/internal/signal"
	tradingprovider "github.com/atlasquant/matrader/internal/trading/provider"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/pkg/errors"
	"github.com/atlasquant/matrader/pkg/marketdata"
)

const (
	// unarmedPollInterval is the tick cadence with no open position.
	unarmedPollInterval = 30 * time.Second
	// inPositionPollInterval is the faster cadence while holding a position,
	// for exit precision at TP/SL.
	inPositionPollInterval = time.Second
	// initializationSpan is how long the relation baseline settles before
	// trading arms. The tick count is derived from the unarmed cadence.
	initializationSpan = 5 * time.Minute
	initTicks          = int(initializationSpan / unarmedPollInterval)

	// priceWindowCap bounds the rolling bar window.
	priceWindowCap = 1000
	// historySeedBars is how many closed bars seed the window at startup.
	historySeedBars = 200

	priceFetchRetries    = 3
	priceFetchRetryDelay = 2 * time.Second
	loopErrorBackoff     = 5 * time.Second
	shutdownCloseTimeout = 10 * time.Second
)

// State is the controller's lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateArmed         State = "armed"
	StateInPosition    State = "in_position"
)

// TPSLMode selects how exit levels are derived.
type TPSLMode string

const (
	TPSLModeAdaptive TPSLMode = "adaptive"
	TPSLModeManual   TPSLMode = "manual"
)

// Config is the controller's startup configuration.
type Config struct {
	Symbol    string
	Timeframe types.Timeframe
	// MAConfig is the winning configuration from the optimizer
	MAConfig types.MAConfig
	// RiskPercent is the per-trade risk budget as a percent of equity
	RiskPercent float64
	TPSLMode    TPSLMode
	// ManualStopLossPct and ManualRiskReward drive TPSLModeManual
	ManualStopLossPct float64
	ManualRiskReward  float64
	// Volume30d is the account's trailing 30-day volume, for fee tiers
	Volume30d float64
}

// Controller drives the live trading state machine for one symbol.
type Controller struct {
	cfg     Config
	market  marketdata.Provider
	broker  tradingprovider.OrderExecutionPort
	riskEng *risk.Engine
	sigEng  *signal.Engine
	journal *journal.Journal
	log     *logger.Logger

	state       State
	signalState types.SignalState
	position    *types.Position
	window      []types.Bar

	// poll intervals and retry delay are fields so tests can shrink them
	unarmedInterval    time.Duration
	inPositionInterval time.Duration
	priceRetryDelay    time.Duration
}

// NewController wires a controller from its ports and engines. journal may
// be nil to disable trade journaling.
func NewController(
	cfg Config,
	market marketdata.Provider,
	broker tradingprovider.OrderExecutionPort,
	riskEngine *risk.Engine,
	signalEngine *signal.Engine,
	tradeJournal *journal.Journal,
	log *logger.Logger,
) (*Controller, error) {
	if cfg.Symbol == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "symbol is required")
	}

	if !cfg.Timeframe.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe: %s", cfg.Timeframe)
	}

	if !cfg.MAConfig.Type.Valid() || cfg.MAConfig.Length < types.MinMALength || cfg.MAConfig.Length > types.MaxMALength {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration,
			"invalid MA configuration: %s/%d", cfg.MAConfig.Type, cfg.MAConfig.Length)
	}

	if cfg.RiskPercent <= 0 || cfg.RiskPercent > 100 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "risk percent must be in (0,100], got %f", cfg.RiskPercent)
	}

	if cfg.TPSLMode == "" {
		cfg.TPSLMode = TPSLModeAdaptive
	}

	if cfg.TPSLMode == TPSLModeManual && (cfg.ManualStopLossPct <= 0 || cfg.ManualRiskReward <= 0) {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration,
			"manual TP/SL mode requires positive stop-loss percent and risk/reward")
	}

	return &Controller{
		cfg:                cfg,
		market:             market,
		broker:             broker,
		riskEng:            riskEngine,
		sigEng:             signalEngine,
		journal:            tradeJournal,
		log:                log,
		state:              StateUninitialized,
		signalState:        types.SignalState{},
		position:           nil,
		window:             nil,
		unarmedInterval:    unarmedPollInterval,
		inPositionInterval: inPositionPollInterval,
		priceRetryDelay:    priceFetchRetryDelay,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// Position returns the open position, or nil.
func (c *Controller) Position() *types.Position {
	return c.position
}

// Run executes the live loop until the context is cancelled or a fatal error
// occurs. On cancellation any open position is closed best-effort.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.closeExistingPositions(ctx); err != nil {
		return err
	}

	if err := c.seedHistory(ctx); err != nil {
		return err
	}

	c.log.Info("trading loop started",
		zap.String("symbol", c.cfg.Symbol),
		zap.String("timeframe", string(c.cfg.Timeframe)),
		zap.String("ma_type", string(c.cfg.MAConfig.Type)),
		zap.Int("ma_length", c.cfg.MAConfig.Length),
	)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()

			return nil
		default:
		}

		if err := c.tick(ctx); err != nil {
			if errors.HasCode(err, errors.ErrCodeConnectivity) {
				c.log.Error("connectivity failure, terminating", zap.Error(err))
				c.shutdown()

				return err
			}

			c.log.Error("tick failed, continuing after backoff", zap.Error(err))

			if sleepErr := sleepContext(ctx, loopErrorBackoff); sleepErr != nil {
				c.shutdown()

				return nil
			}

			continue
		}

		interval := c.unarmedInterval
		if c.position != nil {
			interval = c.inPositionInterval
		}

		if err := sleepContext(ctx, interval); err != nil {
			c.shutdown()

			return nil
		}
	}
}

// closeExistingPositions force-closes any position already held at the
// broker. The controller never starts with an ambiguous existing position.
func (c *Controller) closeExistingPositions(ctx context.Context) error {
	positions, err := c.broker.GetOpenPositions(ctx)
	if err != nil {
		return err
	}

	for _, pos := range positions {
		c.log.Warn("closing pre-existing position at startup",
			zap.String("symbol", pos.Symbol),
			zap.Float64("quantity", pos.Quantity),
		)

		result, err := c.broker.SubmitOrder(ctx, sellOrder(pos, types.OrderReasonStartupSafety))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeOrderRejected, err,
				"failed to close pre-existing position in %s", pos.Symbol)
		}

		c.recordClose(pos, result, types.OrderReasonStartupSafety)
	}

	return nil
}

// seedHistory fills the rolling window with recent closed bars so the MA,
// ATR and volatility inputs are meaningful from the first tick.
func (c *Controller) seedHistory(ctx context.Context) error {
	bars, err := c.market.GetHistoricalBars(ctx, c.cfg.Symbol, historySeedBars, c.cfg.Timeframe)
	if err != nil {
		return err
	}

	c.window = bars

	c.log.Info("seeded price window", zap.Int("bars", len(bars)))

	return nil
}

// tick runs one iteration of the state machine: fetch a fresh price, update
// the relation, and act on the current state.
func (c *Controller) tick(ctx context.Context) error {
	price, err := c.fetchPrice(ctx)
	if err != nil {
		return err
	}

	c.appendPrice(price)

	closes := types.Closes(c.window)

	sig := c.sigEng.Compute(closes, c.cfg.MAConfig.Type, c.cfg.MAConfig.Length)
	if !sig.Valid {
		c.log.Warn("signal not computable yet", zap.String("reason", sig.Reason), zap.Int("window", len(closes)))

		return nil
	}

	relation := types.RelationOf(price, sig.MAValue)
	prev := c.signalState.PrevRelation

	switch c.state {
	case StateUninitialized:
		c.signalState.PrevRelation = relation
		c.signalState.TicksRemaining = initTicks
		c.state = StateInitializing

		c.log.Info("initialization started",
			zap.String("relation", string(relation)),
			zap.Int("ticks_remaining", initTicks),
		)

	case StateInitializing:
		c.signalState.PrevRelation = relation
		c.signalState.TicksRemaining--

		if c.signalState.TicksRemaining <= 0 {
			c.signalState.Ready = true
			c.state = StateArmed

			required := "below -> above"

			c.log.Info("initialization complete, trading armed",
				zap.String("baseline", string(relation)),
				zap.String("required_crossover", required),
			)
		}

	case StateArmed:
		c.signalState.PrevRelation = relation

		if prev == types.RelationBelow && relation == types.RelationAbove && c.signalState.Ready {
			if err := c.tryEnter(ctx, price, closes, sig); err != nil {
				return err
			}
		}

	case StateInPosition:
		c.signalState.PrevRelation = relation

		if err := c.checkExit(ctx, price); err != nil {
			return err
		}
	}

	return nil
}

// tryEnter runs the volatility filter, sizes the position, and submits a buy.
// A failed buy leaves the controller armed; the crossover is never consumed
// by a failure.
func (c *Controller) tryEnter(ctx context.Context, price float64, closes []float64, sig types.TradeSignal) error {
	if vol, err := indicator.Volatility(closes, indicator.DefaultVolatilityWindow); err == nil {
		if ceiling := c.cfg.Timeframe.VolatilityCeiling(); vol > ceiling {
			c.log.Info("crossover suppressed by volatility filter",
				zap.Float64("volatility", vol),
				zap.Float64("ceiling", ceiling),
			)

			return nil
		}
	}

	account, err := c.broker.GetAccountInfo(ctx)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeConnectivity) {
			return err
		}

		c.log.Error("failed to fetch account info, staying armed", zap.Error(err))

		return nil
	}

	tpsl := c.exitLevels(price, 0)

	sizing, err := c.riskEng.CalculatePositionSize(
		account,
		c.cfg.RiskPercent,
		price,
		tpsl.StopLoss,
		tpsl.Metrics.Volatility,
		c.cfg.Volume30d,
		c.cfg.Timeframe,
	)
	if err != nil {
		c.log.Error("position sizing failed, staying armed", zap.Error(err))

		return nil
	}

	// Recompute the exit levels at the real size so the fee lift on the
	// take-profit reflects what will actually be paid.
	tpsl = c.exitLevels(price, sizing.Size)

	c.log.Info("crossover confirmed, submitting buy",
		zap.Float64("price", price),
		zap.Float64("size", sizing.Size),
		zap.Float64("stop_loss", tpsl.StopLoss),
		zap.Float64("take_profit", tpsl.TakeProfit),
		zap.Float64("signal_confidence", sig.Confidence),
		zap.Float64("actual_risk_pct", sizing.ActualRiskPercent),
	)

	order := types.ExecuteOrder{
		ID:       uuid.NewString(),
		Symbol:   c.cfg.Symbol,
		Side:     types.PurchaseTypeBuy,
		Quantity: sizing.Size,
		Reason:   types.OrderReasonCrossoverEntry,
		Bracket: optional.Some(types.BracketLevels{
			TakeProfit: tpsl.TakeProfit,
			StopLoss:   tpsl.StopLoss,
		}),
	}

	result, err := c.broker.SubmitOrder(ctx, order)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeConnectivity) {
			return err
		}

		c.log.Error("buy failed, staying armed", zap.Error(err))

		return nil
	}

	if !result.Success {
		c.log.Error("buy not filled, staying armed", zap.String("error", result.Error))

		return nil
	}

	entryPrice := result.AvgPrice
	if entryPrice <= 0 {
		entryPrice = price
	}

	quantity := result.FilledQuantity
	if quantity <= 0 {
		quantity = sizing.Size
	}

	c.position = &types.Position{
		Symbol:     c.cfg.Symbol,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		EntryTime:  time.Now(),
		StopLoss:   tpsl.StopLoss,
		TakeProfit: tpsl.TakeProfit,
		OrderID:    result.OrderID,
	}
	c.state = StateInPosition

	c.log.Info("position opened",
		zap.Float64("entry_price", entryPrice),
		zap.Float64("quantity", quantity),
		zap.String("order_id", result.OrderID),
	)

	return nil
}

// exitLevels derives TP/SL per the configured mode. ATR shortfalls fall back
// to the fixed-percentage levels.
func (c *Controller) exitLevels(price, positionSize float64) risk.TPSLResult {
	if c.cfg.TPSLMode == TPSLModeManual {
		tpsl, err := c.riskEng.ManualTPSL(price, c.cfg.ManualStopLossPct, c.cfg.ManualRiskReward)
		if err == nil {
			return tpsl
		}

		c.log.Error("manual TP/SL failed, using fallback", zap.Error(err))

		return c.riskEng.FallbackTPSL(price)
	}

	tpsl, err := c.riskEng.CalculateOptimalTPSL(
		c.window,
		price,
		c.cfg.MAConfig.Type,
		c.cfg.MAConfig.Length,
		positionSize,
		c.cfg.Volume30d,
		c.cfg.Timeframe,
	)
	if err != nil {
		c.log.Warn("adaptive TP/SL unavailable, using fallback", zap.Error(err))

		return c.riskEng.FallbackTPSL(price)
	}

	return tpsl
}

// checkExit closes the position when the price reaches either exit level.
// A failed sell keeps the position open for the next tick.
func (c *Controller) checkExit(ctx context.Context, price float64) error {
	pos := c.position
	if pos == nil {
		return nil
	}

	var reason string

	switch {
	case price >= pos.TakeProfit:
		reason = types.OrderReasonTakeProfit
	case price <= pos.StopLoss:
		reason = types.OrderReasonStopLoss
	default:
		return nil
	}

	result, err := c.broker.SubmitOrder(ctx, sellOrder(*pos, reason))
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeConnectivity) {
			return err
		}

		c.log.Error("sell failed, staying in position", zap.String("reason", reason), zap.Error(err))

		return nil
	}

	if !result.Success {
		c.log.Error("sell not filled, staying in position", zap.String("error", result.Error))

		return nil
	}

	c.recordClose(*pos, result, reason)

	c.position = nil
	c.state = StateArmed

	return nil
}

// shutdown closes any open position best-effort with a fresh bounded context.
func (c *Controller) shutdown() {
	pos := c.position
	if pos == nil {
		c.log.Info("trading loop stopped")

		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownCloseTimeout)
	defer cancel()

	result, err := c.broker.SubmitOrder(ctx, sellOrder(*pos, types.OrderReasonShutdown))
	if err != nil || !result.Success {
		c.log.Error("failed to close position on shutdown",
			zap.String("symbol", pos.Symbol),
			zap.Float64("quantity", pos.Quantity),
			zap.Error(err),
		)

		return
	}

	c.recordClose(*pos, result, types.OrderReasonShutdown)
	c.position = nil

	c.log.Info("position closed on shutdown")
}

// sellOrder builds the market sell intent that closes a position.
func sellOrder(pos types.Position, reason string) types.ExecuteOrder {
	return types.ExecuteOrder{
		ID:       uuid.NewString(),
		Symbol:   pos.Symbol,
		Side:     types.PurchaseTypeSell,
		Quantity: pos.Quantity,
		Reason:   reason,
	}
}

// recordClose journals a completed round trip. Journaling failures are
// logged, never fatal.
func (c *Controller) recordClose(pos types.Position, result types.OrderResult, reason string) {
	exitPrice := result.AvgPrice
	if exitPrice <= 0 {
		exitPrice = pos.EntryPrice
	}

	trade := types.NewClosedTrade(pos, exitPrice, time.Now(), reason)

	c.log.Info("position closed",
		zap.String("symbol", trade.Symbol),
		zap.String("reason", reason),
		zap.Float64("pnl", trade.PnL),
		zap.Float64("pnl_pct", trade.PnLPercent),
	)

	if err := c.journal.RecordClosedTrade(trade); err != nil {
		c.log.Error("failed to journal closed trade", zap.Error(err))
	}
}

// fetchPrice retries transient price fetch failures a bounded number of
// times before propagating.
func (c *Controller) fetchPrice(ctx context.Context) (float64, error) {
	var lastErr error

	for attempt := 0; attempt < priceFetchRetries; attempt++ {
		price, err := c.market.GetCurrentPrice(ctx, c.cfg.Symbol)
		if err == nil {
			return price, nil
		}

		lastErr = err

		c.log.Warn("price fetch failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", priceFetchRetries),
			zap.Error(err),
		)

		if attempt < priceFetchRetries-1 {
			if sleepErr := sleepContext(ctx, c.priceRetryDelay); sleepErr != nil {
				return 0, lastErr
			}
		}
	}

	return 0, lastErr
}

// appendPrice extends the rolling window with a synthetic bar at the fresh
// price and evicts the oldest bar past the cap.
func (c *Controller) appendPrice(price float64) {
	c.window = append(c.window, types.Bar{
		Time:   time.Now(),
		Open:   price,
		High:   price,
		Low:    price,
		Close:  price,
		Volume: 0,
	})

	if len(c.window) > priceWindowCap {
		c.window = c.window[len(c.window)-priceWindowCap:]
	}
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
