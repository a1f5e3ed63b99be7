package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/atlasquant/matrader/internal/config"
	"github.com/atlasquant/matrader/internal/journal"
	"github.com/atlasquant/matrader/internal/logger"
	"github.com/atlasquant/matrader/internal/optimizer"
	"github.com/atlasquant/matrader/internal/risk"
	signalengine "github.com/atlasquant/matrader/internal/signal"
	"github.com/atlasquant/matrader/internal/trading/controller"
	tradingprovider "github.com/atlasquant/matrader/internal/trading/provider"
	"github.com/atlasquant/matrader/internal/types"
	"github.com/atlasquant/matrader/internal/version"
	"github.com/atlasquant/matrader/pkg/marketdata"
	"github.com/atlasquant/matrader/pkg/schema"
)

func main() {
	cmd := &cli.Command{
		Name:    "matrader",
		Usage:   "Moving-average crossover trading bot for Binance spot markets",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "optimize",
				Usage:  "Score every MA configuration on recent history and print the winner",
				Action: optimizeAction,
			},
			{
				Name:   "trade",
				Usage:  "Optimize, then run the live trading loop until interrupted",
				Action: tradeAction,
			},
			{
				Name:   "venues",
				Usage:  "List supported order execution venues",
				Action: venuesAction,
			},
			{
				Name:   "schema",
				Usage:  "Print the JSON Schema of the configuration file",
				Action: schemaAction,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// optimizeAction runs a standalone optimization pass and prints the scored
// leaderboard.
func optimizeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	market, err := marketdata.NewProvider(
		marketdata.ProviderType(cfg.MarketDataProvider),
		marketdata.Config{PolygonAPIKey: cfg.PolygonAPIKey},
		log,
	)
	if err != nil {
		return err
	}

	result, err := runOptimization(ctx, cfg, market, log)
	if err != nil {
		return err
	}

	printResult(cfg, result)

	return nil
}

// tradeAction optimizes first, then hands the winning configuration to the
// live controller.
func tradeAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	market, err := marketdata.NewProvider(
		marketdata.ProviderType(cfg.MarketDataProvider),
		marketdata.Config{PolygonAPIKey: cfg.PolygonAPIKey},
		log,
	)
	if err != nil {
		return err
	}

	result, err := runOptimization(ctx, cfg, market, log)
	if err != nil {
		return err
	}

	printResult(cfg, result)

	providerType := tradingprovider.ProviderBinanceLive
	if cfg.Paper {
		providerType = tradingprovider.ProviderBinancePaper
	}

	broker, err := tradingprovider.NewOrderExecutionPort(providerType, tradingprovider.BinanceProviderConfig{
		ApiKey:     cfg.BinanceAPIKey,
		SecretKey:  cfg.BinanceSecretKey,
		BaseAsset:  cfg.BaseAsset,
		QuoteAsset: cfg.QuoteAsset,
	}, log)
	if err != nil {
		return err
	}

	tradeJournal, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer tradeJournal.Close()

	ctrl, err := controller.NewController(
		controller.Config{
			Symbol:            cfg.Symbol,
			Timeframe:         cfg.Timeframe,
			MAConfig:          result.Config,
			RiskPercent:       cfg.RiskPercent,
			TPSLMode:          controller.TPSLMode(cfg.TPSLMode),
			ManualStopLossPct: cfg.ManualStopLossPct,
			ManualRiskReward:  cfg.ManualRiskReward,
			Volume30d:         cfg.Volume30d,
		},
		market,
		broker,
		risk.NewEngine(types.DefaultRiskParameters(), log),
		signalengine.NewEngine(log),
		tradeJournal,
		log,
	)
	if err != nil {
		return err
	}

	log.Info("starting live trading",
		zap.String("symbol", cfg.Symbol),
		zap.Bool("paper", cfg.Paper),
	)

	return ctrl.Run(ctx)
}

// venuesAction lists the execution venues the trade command can target.
func venuesAction(_ context.Context, _ *cli.Command) error {
	names := tradingprovider.GetSupportedProviders()
	sort.Strings(names)

	fmt.Printf("%-16s %-20s %s\n", "NAME", "DISPLAY NAME", "PAPER")

	for _, name := range names {
		info, err := tradingprovider.GetProviderInfo(name)
		if err != nil {
			return err
		}

		fmt.Printf("%-16s %-20s %t\n", info.Name, info.DisplayName, info.IsPaperTrading)
	}

	return nil
}

// schemaAction prints the config file schema for editor validation.
func schemaAction(_ context.Context, _ *cli.Command) error {
	out, err := schema.ForConfig(config.Config{})
	if err != nil {
		return err
	}

	fmt.Println(out)

	return nil
}

// runOptimization executes the widening-window optimization with a terminal
// progress bar.
func runOptimization(ctx context.Context, cfg config.Config, market marketdata.Provider, log *logger.Logger) (types.StrategyResult, error) {
	opt := optimizer.NewOptimizer(log)

	retryCfg := optimizer.DefaultRetryConfig()
	if cfg.OptimizerBars > 0 {
		retryCfg.Windows[0] = cfg.OptimizerBars
	}

	bar := progressbar.Default(100, "scoring configurations")
	onProgress := func(fraction float64) {
		_ = bar.Set(int(fraction * 100))
	}

	result, err := opt.OptimizeWithRetry(ctx, market, cfg.Symbol, cfg.Timeframe, retryCfg, onProgress)

	_ = bar.Finish()

	return result, err
}

// printResult renders the winning configuration and the leaderboard of the
// best-scoring candidates.
func printResult(cfg config.Config, result types.StrategyResult) {
	fmt.Printf("\nOptimization result for %s (%s)\n", cfg.Symbol, cfg.Timeframe)
	fmt.Printf("Winner: %s(%d)  composite=%.4f  crossover=%.1f  r2=%.3f\n",
		result.Config.Type, result.Config.Length,
		result.CompositeScore, result.CrossoverScore, result.RSquared)
	fmt.Printf("Simulated: trades=%d  win_rate=%.1f%%  profit_factor=%.2f  max_drawdown=%.2f  sharpe=%.3f\n",
		result.Performance.TotalTrades,
		result.Performance.WinRate*100,
		result.Performance.ProfitFactor,
		result.Performance.MaxDrawdown,
		result.Performance.SharpeRatio)

	if result.SkippedCombinations > 0 {
		fmt.Printf("Skipped %d combinations with insufficient data\n", result.SkippedCombinations)
	}

	leaders := make([]types.CandidateScore, len(result.Candidates))
	copy(leaders, result.Candidates)
	sort.SliceStable(leaders, func(i, j int) bool {
		return leaders[i].CompositeScore > leaders[j].CompositeScore
	})

	if len(leaders) > 10 {
		leaders = leaders[:10]
	}

	fmt.Printf("\n%-10s %-8s %-10s %-10s %-8s %-8s\n", "MA", "Length", "Composite", "Crossover", "R2", "WinRate")

	for _, c := range leaders {
		fmt.Printf("%-10s %-8d %-10.4f %-10.1f %-8.3f %-8.2f\n",
			c.Config.Type, c.Config.Length,
			c.CompositeScore, c.CrossoverScore, c.RSquared, c.Performance.WinRate)
	}

	fmt.Println()
}
