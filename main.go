package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptoProbTrader/config"
	"cryptoProbTrader/internal/adapters/binanceclient"
	"cryptoProbTrader/internal/adapters/httpserver"
	"cryptoProbTrader/internal/adapters/logger"
	"cryptoProbTrader/internal/adapters/metrics"
	"cryptoProbTrader/internal/adapters/paper"
	"cryptoProbTrader/internal/adapters/sqlite"
	"cryptoProbTrader/internal/app"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/risk"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/estimator"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LoggerConfig())
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	barLength, err := config.IntervalDuration(cfg.Interval)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	// 3. Initialize Order Journal (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize order journal")
		log.Fatalf("FATAL: Failed to initialize order journal: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing order journal")
		}
	}()

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	if err := binanceClient.Ping(ctx); err != nil {
		appLogger.Warn(ctx, "Exchange ping failed, continuing", map[string]interface{}{"error": err.Error()})
	}
	if !cfg.PaperTrading {
		// Signed endpoints reject requests outside the receive window.
		if err := binanceClient.SetServerTime(ctx); err != nil {
			appLogger.Warn(ctx, "Could not sync server time", map[string]interface{}{"error": err.Error()})
		}
	}

	// 5. Latest-price listener
	prices := &app.PriceCache{}
	stream := binanceclient.NewTradeStream(binanceclient.StreamConfig{
		Logger:     appLogger,
		UseTestnet: cfg.IsTestnet,
	})
	if err := stream.Start(ctx, cfg.Symbol, prices.Update); err != nil {
		appLogger.Warn(ctx, "Price stream unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer stream.Stop()

	// 6. Order sink
	var sink ports.OrderSink = binanceClient
	if cfg.PaperTrading {
		sink = paper.New(appLogger, prices.Latest)
	}

	// 7. Strategy, risk and model
	strat, err := strategy.New(cfg.StrategyConfig(), appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize strategy: %v", err)
	}
	riskCalc, err := risk.NewCalculator(cfg.RiskConfig())
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize risk calculator: %v", err)
	}
	models := estimator.NewModelCache(func() ports.ProbabilityEstimator { return estimator.NewCalibrated() })

	// 8. Observability
	recorder := metrics.New()
	if cfg.MetricsAddr != "" {
		server, err := httpserver.New(httpserver.Config{
			Addr:    cfg.MetricsAddr,
			Symbol:  cfg.Symbol,
			Paper:   cfg.PaperTrading,
			Logger:  appLogger,
			Journal: repo,
			Prices:  prices,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
		}
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				appLogger.Error(shutdownCtx, err, "Error stopping HTTP server")
			}
		}()
	}

	// 9. Live loop
	trader, err := app.NewLiveTrader(app.LiveConfig{
		Symbol:         cfg.Symbol,
		Interval:       cfg.Interval,
		IntervalLength: barLength,
		Limit:          cfg.Limit,
		PollInterval:   cfg.PollInterval,
		OrderSizeUSDT:  cfg.OrderSizeUSDT,
		Paper:          cfg.PaperTrading,
		SwingLookback:  cfg.SwingLookback,
	}, app.LiveDeps{
		Logger:   appLogger,
		Data:     binanceClient,
		Sink:     sink,
		Journal:  repo,
		Metrics:  recorder,
		Strategy: strat,
		Features: cfg.FeatureConfig(),
		Risk:     riskCalc,
		Models:   models,
		Prices:   prices,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize live loop: %v", err)
	}

	if err := trader.Run(ctx); err != nil {
		appLogger.Error(context.Background(), err, "Live loop exited with error")
		os.Exit(1)
	}
	appLogger.Info(context.Background(), "Application finished gracefully.")
}
