package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"cryptoProbTrader/config"
	"cryptoProbTrader/internal/adapters/binanceclient"
	"cryptoProbTrader/internal/adapters/logger"
	"cryptoProbTrader/internal/app"
	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/analytics"
	"cryptoProbTrader/internal/strategy/estimator"
	"cryptoProbTrader/internal/strategy/indicators"
	"cryptoProbTrader/internal/strategy/optimization"
	"cryptoProbTrader/internal/utils"
)

func main() {
	csvPath := flag.String("csv", "", "load klines from this CSV instead of the exchange")
	tradesDir := flag.String("trades", "", "write each series' trades to <dir>/<series>_trades.csv")
	sweep := flag.Bool("sweep", false, "run a stop/target/threshold parameter sweep on the hybrid series")
	top := flag.Int("top", 5, "sweep results to print")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.New(cfg.LoggerConfig())
	ctx := context.Background()

	// 2. Load klines
	klines, err := loadKlines(ctx, cfg, *csvPath, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to load klines: %v", err)
	}
	fmt.Printf("Loaded %d klines for %s %s\n", len(klines), cfg.Symbol, cfg.Interval)

	// 3. Strategy and pipeline
	strat, err := strategy.New(cfg.StrategyConfig(), appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create strategy: %v", err)
	}
	pipeline, err := app.NewPipeline(app.PipelineConfig{
		Features:   cfg.FeatureConfig(),
		TrainRatio: 0.7,
		Backtest:   cfg.BacktestConfig(),
	}, strat, func() ports.ProbabilityEstimator { return estimator.NewCalibrated() }, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create pipeline: %v", err)
	}

	result, err := pipeline.Run(ctx, klines)
	if err != nil {
		log.Fatalf("FATAL: Pipeline failed: %v", err)
	}

	// 4. Report
	fmt.Printf("Prob model test metrics: auc=%.3f brier=%.3f logloss=%.3f (train=%d test=%d)\n",
		result.Evaluation.AUC, result.Evaluation.Brier, result.Evaluation.LogLoss, result.TrainRows, result.TestRows)
	fmt.Printf("\nRunning backtests (fee=%.2f%%)...\n\n", cfg.FeeRate*100)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "series\ttotal\tmaxDD\ttrades\twinRate\tprofitFactor\tsharpe\topen")
	for _, r := range result.Results {
		m := analytics.AnalyzePerformance(r.Trades)
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%d\t%.2f\t%.2f\t%.2f\t%t\n",
			r.Kind, r.TotalReturn, r.MaxDrawdown, len(r.Trades), m.WinRate, m.ProfitFactor, m.SharpeRatio, r.OpenPosition != nil)
	}
	w.Flush()

	if *tradesDir != "" {
		if err := os.MkdirAll(*tradesDir, 0755); err != nil {
			log.Fatalf("Error creating trades directory: %v", err)
		}
		for _, r := range result.Results {
			path := filepath.Join(*tradesDir, fmt.Sprintf("%s_trades.csv", r.Kind))
			if err := utils.WriteTradesToCSV(string(r.Kind), r.Trades, path); err != nil {
				appLogger.Error(ctx, err, "Error writing trades CSV", map[string]interface{}{"series": r.Kind})
				continue
			}
			appLogger.Info(ctx, "Trades saved to", map[string]interface{}{"filename": path})
		}
	}

	if *sweep {
		runSweep(ctx, cfg, klines, result.Probabilities, *top, appLogger)
	}
}

func loadKlines(ctx context.Context, cfg *config.Config, csvPath string, appLogger ports.Logger) ([]*domain.Kline, error) {
	if csvPath != "" {
		return utils.ReadKlinesFromCSV(csvPath)
	}
	client, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		return nil, err
	}
	fmt.Printf("Fetching data %s %s %d...\n", cfg.Symbol, cfg.Interval, cfg.Limit)
	return client.GetKlines(ctx, cfg.Symbol, cfg.Interval, cfg.Limit)
}

func runSweep(ctx context.Context, cfg *config.Config, klines []*domain.Kline, probs []float64, top int, appLogger ports.Logger) {
	opt, err := optimization.NewOptimizer(optimization.OptimizerConfig{
		ParameterRanges: []optimization.ParameterRange{
			{Name: optimization.ParamStopLossPct, Min: 0.5, Max: 3, Step: 0.5},
			{Name: optimization.ParamTakeProfitPct, Min: 1, Max: 5, Step: 1},
			{Name: optimization.ParamProbThreshold, Min: 0.55, Max: 0.7, Step: 0.05},
		},
		Strategy: cfg.StrategyConfig(),
		Backtest: cfg.BacktestConfig(),
		Kind:     domain.KindHybrid,
	}, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to create optimizer: %v", err)
	}

	results, err := opt.Optimize(ctx, optimization.Inputs{
		Klines:        klines,
		Frame:         indicators.Compute(klines, cfg.IndicatorParams()),
		Probabilities: probs,
	})
	if err != nil {
		log.Fatalf("FATAL: Sweep failed: %v", err)
	}

	fmt.Printf("\nTop %d of %d parameter sets (hybrid series):\n\n", min(top, len(results)), len(results))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "score\tstopLoss%\ttakeProfit%\tthreshold\ttotal\tmaxDD\ttrades")
	for i, r := range results {
		if i >= top {
			break
		}
		fmt.Fprintf(w, "%.4f\t%.2f\t%.2f\t%.2f\t%.3f\t%.3f\t%d\n",
			r.Score,
			r.Parameters[optimization.ParamStopLossPct],
			r.Parameters[optimization.ParamTakeProfitPct],
			r.Parameters[optimization.ParamProbThreshold],
			r.Metrics.TotalReturn, r.Metrics.MaxDrawdown, r.Metrics.TotalTrades)
	}
	w.Flush()
}
