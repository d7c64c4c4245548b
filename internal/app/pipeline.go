package app

import (
	"context"
	"fmt"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/backtesting"
	"cryptoProbTrader/internal/strategy/estimator"
	"cryptoProbTrader/internal/strategy/features"
	"cryptoProbTrader/internal/strategy/indicators"
	"cryptoProbTrader/internal/strategy/signals"
)

// PipelineConfig configures a backtest pipeline run.
type PipelineConfig struct {
	Features   features.Config
	TrainRatio float64 // Share of feature rows used to fit the model (e.g., 0.7)
	Backtest   backtesting.BacktestConfig
}

// PipelineResult holds everything one pipeline run produced.
type PipelineResult struct {
	Evaluation    ports.Evaluation // Out-of-sample metrics on the test split
	TrainRows     int
	TestRows      int
	Probabilities []float64 // Bar-aligned P(up), NaN where no feature row exists
	Signals       *signals.Set
	Results       []*backtesting.BacktestResult // Rule, probability, hybrid
}

// Pipeline turns a kline history into the three comparable backtests.
type Pipeline struct {
	cfg          PipelineConfig
	strat        *strategy.Strategy
	newEstimator func() ports.ProbabilityEstimator
	logger       ports.Logger
}

// NewPipeline creates a backtest pipeline.
func NewPipeline(cfg PipelineConfig, strat *strategy.Strategy, factory func() ports.ProbabilityEstimator, logger ports.Logger) (*Pipeline, error) {
	if strat == nil || factory == nil || logger == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for Pipeline", ports.ErrConfigurationError)
	}
	if cfg.TrainRatio <= 0 || cfg.TrainRatio > 1 {
		return nil, fmt.Errorf("%w: train ratio must be in (0, 1], got %v", ports.ErrConfigurationError, cfg.TrainRatio)
	}
	return &Pipeline{cfg: cfg, strat: strat, newEstimator: factory, logger: logger}, nil
}

// Run builds features, fits the estimator on the chronological training
// split, scores every bar, fuses the signals and backtests each series.
func (p *Pipeline) Run(ctx context.Context, klines []*domain.Kline) (*PipelineResult, error) {
	if len(klines) < p.strat.RequiredDataPoints() {
		return nil, fmt.Errorf("pipeline: %w: %d klines, need %d", ports.ErrInsufficientHistory, len(klines), p.strat.RequiredDataPoints())
	}

	frame := indicators.Compute(klines, p.cfg.Features.Indicators)
	table := features.BuildFromFrame(frame, p.cfg.Features)

	train, test := estimator.TimeSplit(table.Rows, p.cfg.TrainRatio)
	if len(train) == 0 {
		return nil, fmt.Errorf("pipeline: %w: no complete feature rows", ports.ErrInsufficientHistory)
	}

	est := p.newEstimator()
	trainX, trainY := features.XY(train)
	if err := est.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("pipeline fit: %w", err)
	}

	result := &PipelineResult{TrainRows: len(train), TestRows: len(test)}
	if len(test) > 0 {
		testX, testY := features.XY(test)
		eval, err := est.Evaluate(testX, testY)
		if err != nil {
			return nil, fmt.Errorf("pipeline evaluate: %w", err)
		}
		result.Evaluation = eval
	}
	p.logger.Info(ctx, "Probability model metrics", map[string]interface{}{
		"trainRows": len(train),
		"testRows":  len(test),
		"auc":       result.Evaluation.AUC,
		"brier":     result.Evaluation.Brier,
		"logLoss":   result.Evaluation.LogLoss,
	})

	rows := table.All()
	allX, _ := features.XY(rows)
	probs, err := est.Predict(allX)
	if err != nil {
		return nil, fmt.Errorf("pipeline predict: %w", err)
	}
	result.Probabilities = features.ProbabilitySeries(len(klines), rows, probs)

	rule, err := p.strat.RuleSignals(ctx, frame, result.Probabilities)
	if err != nil {
		return nil, err
	}
	set, err := signals.Fuse(rule, result.Probabilities, p.strat.Config().ProbThreshold)
	if err != nil {
		return nil, err
	}
	result.Signals = set

	results, err := backtesting.RunAll(ctx, klines, set, p.cfg.Backtest)
	if err != nil {
		return nil, err
	}
	result.Results = results

	for _, r := range results {
		p.logger.Info(ctx, "Backtest finished", map[string]interface{}{
			"series":      r.Kind,
			"totalReturn": r.TotalReturn,
			"maxDrawdown": r.MaxDrawdown,
			"trades":      len(r.Trades),
		})
	}
	return result, nil
}
