package optimization

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/analytics"
	"cryptoProbTrader/internal/strategy/backtesting"
	"cryptoProbTrader/internal/strategy/indicators"
	"cryptoProbTrader/internal/strategy/signals"
)

// Parameter names understood by the optimizer.
const (
	ParamStopLossPct   = "stopLossPct"
	ParamTakeProfitPct = "takeProfitPct"
	ParamProbThreshold = "probThreshold"
)

// ParameterRange defines a range for a parameter to optimize
type ParameterRange struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	IsInt bool
}

// OptimizationResult holds the results of a parameter optimization
type OptimizationResult struct {
	Parameters map[string]float64
	Metrics    *analytics.PerformanceMetrics
	Score      float64

	index int // position in the generated grid, breaks score ties
}

// OptimizerConfig holds configuration for the optimizer
type OptimizerConfig struct {
	ParameterRanges []ParameterRange
	Strategy        strategy.Config            // Base rule configuration
	Backtest        backtesting.BacktestConfig // Base backtest configuration
	Kind            domain.SignalKind          // Series to score (default hybrid)
	Workers         int                        // Concurrent backtests (default 4)
	ScoreFunction   func(*analytics.PerformanceMetrics) float64
}

// Inputs are the precomputed, parameter-independent parts of a run.
type Inputs struct {
	Klines        []*domain.Kline
	Frame         *indicators.Frame
	Probabilities []float64 // Bar-aligned P(up)
}

// Optimizer sweeps stop, target and probability threshold over one history.
type Optimizer struct {
	config OptimizerConfig
	logger ports.Logger
}

// NewOptimizer creates a new optimizer instance
func NewOptimizer(config OptimizerConfig, logger ports.Logger) (*Optimizer, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for optimizer", ports.ErrConfigurationError)
	}
	for _, r := range config.ParameterRanges {
		switch r.Name {
		case ParamStopLossPct, ParamTakeProfitPct, ParamProbThreshold:
		default:
			return nil, fmt.Errorf("%w: unknown parameter %q", ports.ErrConfigurationError, r.Name)
		}
		if r.Step <= 0 || r.Max < r.Min {
			return nil, fmt.Errorf("%w: invalid range for %s", ports.ErrConfigurationError, r.Name)
		}
	}
	if config.Kind == "" {
		config.Kind = domain.KindHybrid
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.ScoreFunction == nil {
		config.ScoreFunction = DefaultScoreFunction
	}
	return &Optimizer{config: config, logger: logger}, nil
}

// Optimize backtests every parameter combination and returns the results
// sorted by score, best first. Combinations the strategy rejects (e.g., a
// threshold outside (0.5, 1)) are skipped.
func (o *Optimizer) Optimize(ctx context.Context, in Inputs) ([]OptimizationResult, error) {
	if in.Frame == nil || len(in.Klines) != in.Frame.Len() || len(in.Probabilities) != len(in.Klines) {
		return nil, fmt.Errorf("optimize: %w", ports.ErrSeriesLength)
	}

	combinations := o.generateParameterCombinations()
	jobs := make(chan int)
	resultChan := make(chan OptimizationResult, len(combinations))
	var wg sync.WaitGroup

	for w := 0; w < o.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				res, err := o.evaluate(ctx, in, combinations[i])
				if err != nil {
					o.logger.Debug(ctx, "Skipping parameter combination", map[string]interface{}{"params": combinations[i], "error": err.Error()})
					continue
				}
				res.index = i
				resultChan <- res
			}
		}()
	}

feed:
	for i := range combinations {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
	close(resultChan)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]OptimizationResult, 0, len(combinations))
	for result := range resultChan {
		results = append(results, result)
	}
	sortResultsByScore(results)

	o.logger.Info(ctx, "Parameter sweep finished", map[string]interface{}{
		"combinations": len(combinations),
		"scored":       len(results),
		"series":       o.config.Kind,
	})
	return results, nil
}

func (o *Optimizer) evaluate(ctx context.Context, in Inputs, params map[string]float64) (OptimizationResult, error) {
	stratCfg := o.config.Strategy
	btCfg := o.config.Backtest
	if v, ok := params[ParamProbThreshold]; ok {
		stratCfg.ProbThreshold = v
	}
	if v, ok := params[ParamStopLossPct]; ok {
		btCfg.StopLossPct = &v
	}
	if v, ok := params[ParamTakeProfitPct]; ok {
		btCfg.TakeProfitPct = &v
	}

	strat, err := strategy.New(stratCfg, o.logger)
	if err != nil {
		return OptimizationResult{}, err
	}
	rule, err := strat.RuleSignals(ctx, in.Frame, in.Probabilities)
	if err != nil {
		return OptimizationResult{}, err
	}
	set, err := signals.Fuse(rule, in.Probabilities, stratCfg.ProbThreshold)
	if err != nil {
		return OptimizationResult{}, err
	}
	result, err := backtesting.Backtest(ctx, in.Klines, set.Series(o.config.Kind), btCfg)
	if err != nil {
		return OptimizationResult{}, err
	}

	metrics := analytics.AnalyzePerformance(result.Trades)
	return OptimizationResult{
		Parameters: params,
		Metrics:    metrics,
		Score:      o.config.ScoreFunction(metrics),
	}, nil
}

// generateParameterCombinations generates all possible parameter combinations
func (o *Optimizer) generateParameterCombinations() []map[string]float64 {
	var combinations []map[string]float64
	currentCombination := make(map[string]float64)

	var generate func(int)
	generate = func(paramIndex int) {
		if paramIndex == len(o.config.ParameterRanges) {
			combination := make(map[string]float64, len(currentCombination))
			for k, v := range currentCombination {
				combination[k] = v
			}
			combinations = append(combinations, combination)
			return
		}

		param := o.config.ParameterRanges[paramIndex]
		steps := int(math.Floor((param.Max-param.Min)/param.Step + 1e-9))
		for i := 0; i <= steps; i++ {
			value := param.Min + float64(i)*param.Step
			if param.IsInt {
				value = math.Round(value)
			}
			currentCombination[param.Name] = value
			generate(paramIndex + 1)
		}
	}

	generate(0)
	return combinations
}

// sortResultsByScore sorts optimization results by score in descending order.
// Equal scores keep grid order.
func sortResultsByScore(results []OptimizationResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].index < results[j].index
	})
}

// DefaultScoreFunction rewards total return and penalizes drawdown.
func DefaultScoreFunction(metrics *analytics.PerformanceMetrics) float64 {
	score := 0.0
	score += metrics.TotalReturn * 0.5
	score -= metrics.MaxDrawdown * 0.3
	score += metrics.WinRate * 0.1
	score += math.Min(metrics.ProfitFactor, 5) * 0.02
	return score
}
