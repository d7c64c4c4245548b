package app

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/backtesting"
	"cryptoProbTrader/internal/strategy/estimator"
	"cryptoProbTrader/internal/strategy/features"
)

func randomWalk(n int, seed int64) []*domain.Kline {
	rng := rand.New(rand.NewSource(seed))
	klines := make([]*domain.Kline, n)
	price := 3000.0
	for i := range klines {
		open := price
		price *= math.Exp(rng.NormFloat64() * 0.01)
		klines[i] = &domain.Kline{
			OpenTime: testStart.Add(time.Duration(i) * time.Hour),
			Open:     open,
			High:     math.Max(open, price) * (1 + rng.Float64()*0.004),
			Low:      math.Min(open, price) * (1 - rng.Float64()*0.004),
			Close:    price,
		}
	}
	return klines
}

func newTestPipeline(t *testing.T, factory func() ports.ProbabilityEstimator) *Pipeline {
	t.Helper()
	strat, err := strategy.New(strategy.Config{
		Indicators:    testParams,
		FibLookback:   50,
		ProxPct:       0.25,
		ProbThreshold: 0.55,
		BuyRSIMax:     50,
		SellRSIMin:    70,
		LiveRSIMax:    60,
	}, &mockLogger{})
	require.NoError(t, err)

	sl, tp := 1.0, 2.0
	p, err := NewPipeline(PipelineConfig{
		Features:   features.Config{Indicators: testParams, FibLookback: 50, ProxPct: 0.25, VolWindow: 10},
		TrainRatio: 0.7,
		Backtest:   backtesting.BacktestConfig{Symbol: "ETHUSDT", FeeRate: 0.0004, StopLossPct: &sl, TakeProfitPct: &tp},
	}, strat, factory, &mockLogger{})
	require.NoError(t, err)
	return p
}

func TestPipeline_Run(t *testing.T) {
	klines := randomWalk(400, 3)
	p := newTestPipeline(t, func() ports.ProbabilityEstimator { return estimator.NewCalibrated() })

	res, err := p.Run(context.Background(), klines)
	require.NoError(t, err)

	table := features.Build(klines, p.cfg.Features)
	assert.Equal(t, len(table.Rows), res.TrainRows+res.TestRows)
	assert.Equal(t, int(float64(len(table.Rows))*0.7), res.TrainRows)
	assert.GreaterOrEqual(t, res.Evaluation.Brier, 0.0)
	assert.LessOrEqual(t, res.Evaluation.Brier, 1.0)
	assert.Greater(t, res.Evaluation.LogLoss, 0.0)

	require.Len(t, res.Probabilities, len(klines))
	for i, prob := range res.Probabilities {
		if math.IsNaN(prob) {
			continue
		}
		assert.True(t, prob > 0 && prob < 1, "bar %d: %v", i, prob)
	}

	require.Len(t, res.Results, 3)
	for i, kind := range domain.SignalKinds {
		r := res.Results[i]
		assert.Equal(t, kind, r.Kind)
		assert.Len(t, r.EquityCurve, len(klines))
		assert.GreaterOrEqual(t, r.MaxDrawdown, 0.0)
	}

	for i := range klines {
		h := res.Signals.Hybrid[i]
		if h != domain.SignalNone {
			assert.Equal(t, h, res.Signals.Rule[i])
			assert.Equal(t, h, res.Signals.Probability[i])
		}
	}
}

func TestPipeline_Deterministic(t *testing.T) {
	klines := randomWalk(300, 9)
	p := newTestPipeline(t, func() ports.ProbabilityEstimator { return estimator.NewCalibrated() })

	a, err := p.Run(context.Background(), klines)
	require.NoError(t, err)
	b, err := p.Run(context.Background(), klines)
	require.NoError(t, err)

	assert.Equal(t, a.Signals, b.Signals)
	for i := range a.Results {
		assert.Equal(t, a.Results[i].TotalReturn, b.Results[i].TotalReturn)
		assert.Equal(t, len(a.Results[i].Trades), len(b.Results[i].Trades))
	}
}

func TestPipeline_ProbabilitySeriesFollowsEstimator(t *testing.T) {
	klines := randomWalk(200, 5)
	p := newTestPipeline(t, func() ports.ProbabilityEstimator { return &fixedEstimator{p: 0.9} })

	res, err := p.Run(context.Background(), klines)
	require.NoError(t, err)

	table := features.Build(klines, p.cfg.Features)
	var buys int
	for i, s := range res.Signals.Probability {
		if math.IsNaN(res.Probabilities[i]) {
			assert.Equal(t, domain.SignalNone, s)
			continue
		}
		assert.Equal(t, domain.SignalBuy, s)
		buys++
	}
	assert.Equal(t, len(table.All()), buys)

	// The gate never lets a SELL through when every probability is 0.9.
	for _, s := range res.Signals.Rule {
		assert.NotEqual(t, domain.SignalSell, s)
	}
}

func TestPipeline_Errors(t *testing.T) {
	factory := func() ports.ProbabilityEstimator { return estimator.NewCalibrated() }
	p := newTestPipeline(t, factory)

	_, err := p.Run(context.Background(), randomWalk(3, 1))
	assert.ErrorIs(t, err, ports.ErrInsufficientHistory)

	// Enough bars for the indicators but none for a feature row.
	_, err = p.Run(context.Background(), randomWalk(20, 1))
	assert.ErrorIs(t, err, ports.ErrInsufficientHistory)

	failing := newTestPipeline(t, func() ports.ProbabilityEstimator { return &fixedEstimator{fitErr: ports.ErrSingleClass} })
	_, err = failing.Run(context.Background(), randomWalk(200, 1))
	assert.ErrorIs(t, err, ports.ErrSingleClass)

	_, err = NewPipeline(PipelineConfig{TrainRatio: 0}, p.strat, factory, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
	_, err = NewPipeline(PipelineConfig{TrainRatio: 0.7}, nil, factory, &mockLogger{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
