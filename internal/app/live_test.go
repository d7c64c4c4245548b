package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/risk"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/estimator"
	"cryptoProbTrader/internal/strategy/features"
	"cryptoProbTrader/internal/strategy/indicators"
)

var testStart = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

// Short spans so a handful of bars settles every indicator.
var testParams = indicators.Params{
	RSILength:  5,
	EMAFast:    2,
	EMASlow:    3,
	ATRLength:  3,
	MACDFast:   2,
	MACDSlow:   3,
	MACDSignal: 2,
}

func bar(i int, c float64) *domain.Kline {
	return &domain.Kline{
		OpenTime: testStart.Add(time.Duration(i) * time.Hour),
		Symbol:   "ETHUSDT",
		Interval: "1h",
		Open:     c,
		High:     c + 0.5,
		Low:      c - 0.5,
		Close:    c,
	}
}

// bounceKlines declines by 1 per bar for 40 bars, then jumps 3 on the last
// bar. The jump crosses the fast EMA over the slow one with RSI near 43,
// MACD above its signal and the close within 0.04% of the 61.8% level.
func bounceKlines() []*domain.Kline {
	klines := make([]*domain.Kline, 0, 41)
	for i := 0; i < 40; i++ {
		klines = append(klines, bar(i, 200-float64(i)))
	}
	return append(klines, bar(40, 164))
}

type liveFixture struct {
	trader  *LiveTrader
	data    *mockMarketData
	sink    *mockSink
	journal *mockJournal
	metrics *mockMetrics
	logger  *mockLogger
	models  *estimator.ModelCache
	prices  *PriceCache
	sleeps  []time.Duration
	now     time.Time
}

func newLiveFixture(t *testing.T, p float64, responses ...marketResponse) *liveFixture {
	t.Helper()
	f := &liveFixture{
		data:    &mockMarketData{responses: responses},
		sink:    &mockSink{},
		journal: &mockJournal{},
		metrics: newMockMetrics(),
		logger:  &mockLogger{},
		prices:  &PriceCache{},
		now:     testStart.Add(40*time.Hour + 20*time.Minute),
	}

	strat, err := strategy.New(strategy.Config{
		Indicators:    testParams,
		FibLookback:   10,
		ProxPct:       0.25,
		ProbThreshold: 0.55,
		BuyRSIMax:     50,
		SellRSIMin:    70,
		LiveRSIMax:    60,
	}, f.logger)
	require.NoError(t, err)

	calc, err := risk.NewCalculator(risk.DefaultRiskConfig())
	require.NoError(t, err)

	f.models = estimator.NewModelCache(func() ports.ProbabilityEstimator {
		return &fixedEstimator{p: p}
	})

	f.trader, err = NewLiveTrader(LiveConfig{
		Symbol:         "ETHUSDT",
		Interval:       "1h",
		IntervalLength: time.Hour,
		Limit:          1000,
		PollInterval:   time.Minute,
		OrderSizeUSDT:  50,
		Paper:          true,
		SwingLookback:  20,
	}, LiveDeps{
		Logger:   f.logger,
		Data:     f.data,
		Sink:     f.sink,
		Journal:  f.journal,
		Metrics:  f.metrics,
		Strategy: strat,
		Features: features.Config{Indicators: testParams, FibLookback: 10, ProxPct: 0.25, VolWindow: 3},
		Risk:     calc,
		Models:   f.models,
		Prices:   f.prices,
	}, WithClock(func() time.Time { return f.now }))
	require.NoError(t, err)
	return f
}

// stopAfter returns a sleep func that records each call and cancels after n calls.
func (f *liveFixture) stopAfter(n int, cancel context.CancelFunc) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		if len(f.sleeps) >= n {
			cancel()
			return context.Canceled
		}
		return nil
	}
}

func TestRunCycle_EmitsBuy(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})

	res, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeBuy, res.Outcome)
	require.NotNil(t, res.Decision)
	assert.True(t, res.Decision.GoldenCross)
	assert.True(t, res.Decision.RSIOK)
	assert.True(t, res.Decision.ProxOK)
	assert.True(t, res.Decision.MACDOK)
	assert.Equal(t, "fib618", res.Decision.Nearest.Name)
	assert.Equal(t, 40*time.Minute, res.ETA)

	require.NotNil(t, res.Levels)
	assert.InDelta(t, 160.5, res.Levels.StopLoss, 1e-9)
	assert.InDelta(t, 165.0, res.Levels.TakeProfit1, 1e-9)
	assert.InDelta(t, 171.0, res.Levels.TakeProfit2, 1e-9)

	require.Len(t, f.sink.intents, 1)
	intent := f.sink.intents[0]
	assert.Equal(t, domain.Buy, intent.Side)
	assert.Equal(t, "ETHUSDT", intent.Symbol)
	assert.Equal(t, 50.0, intent.NotionalAmount)
	assert.Equal(t, testStart.Add(40*time.Hour), intent.BarOpenTime)
	assert.NotEmpty(t, intent.ClientOrderID)
	assert.True(t, intent.Paper)

	require.Len(t, f.journal.saved, 1)
	assert.Equal(t, "PAPER", f.journal.saved[0].Status)
	assert.Equal(t, int64(1), res.Intent.ID)

	assert.Equal(t, testStart.Add(40*time.Hour), f.trader.LastEmitted())
	assert.Equal(t, 1, f.metrics.decisions[OutcomeBuy])
	assert.Equal(t, 1, f.metrics.refits)
	assert.Equal(t, []float64{0.8}, f.metrics.probs)
	assert.Equal(t, 1, f.logger.count(f.logger.infoMsgs, "BUY signal"))
}

func TestRunCycle_SameBarEmitsOnce(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	ctx := context.Background()

	first, err := f.trader.RunCycle(ctx)
	require.NoError(t, err)
	second, err := f.trader.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, OutcomeBuy, first.Outcome)
	assert.Equal(t, OutcomeDuplicate, second.Outcome)
	assert.Len(t, f.sink.intents, 1)
	assert.Len(t, f.journal.saved, 1)
	assert.Equal(t, 1, f.metrics.decisions[OutcomeDuplicate])
	assert.Equal(t, 1, f.models.Fits(), "feature names unchanged, no refit")
}

func TestRunCycle_ProbabilityBelowThreshold(t *testing.T) {
	f := newLiveFixture(t, 0.3, marketResponse{klines: bounceKlines()})

	res, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeHold, res.Outcome)
	assert.True(t, res.Decision.RuleOK)
	assert.False(t, res.Decision.ProbOK)
	assert.Equal(t, []string{"prob<thr"}, res.Decision.Reasons())
	assert.Empty(t, f.sink.intents)
	assert.True(t, f.trader.LastEmitted().IsZero())

	fields := f.logger.fields["No signal"]
	require.Len(t, fields, 1)
	assert.Equal(t, "prob<thr", fields[0]["reasons"])
}

func TestRunCycle_RuleFails(t *testing.T) {
	klines := bounceKlines()
	klines = append(klines, bar(41, 165)) // No fresh cross on the newest bar
	f := newLiveFixture(t, 0.8, marketResponse{klines: klines})

	res, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeHold, res.Outcome)
	assert.False(t, res.Decision.GoldenCross)
	assert.Contains(t, res.Decision.Reasons(), "rule-fail")
	assert.Empty(t, f.sink.intents)
}

func TestRunCycle_InsufficientHistory(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()[:3]})

	res, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoData, res.Outcome)
	assert.Empty(t, f.sink.intents)
	assert.Equal(t, 0, f.models.Fits())
}

func TestRunCycle_FetchError(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{err: ports.ErrExchangeUnavailable})

	res, err := f.trader.RunCycle(context.Background())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrExchangeUnavailable)

	var cerr *CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "fetch", cerr.Stage)
}

func TestRunCycle_ModelError(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	f.trader.models = estimator.NewModelCache(func() ports.ProbabilityEstimator {
		return &fixedEstimator{fitErr: ports.ErrSingleClass}
	})

	_, err := f.trader.RunCycle(context.Background())
	assert.ErrorIs(t, err, ports.ErrSingleClass)
	var cerr *CycleError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "model", cerr.Stage)
}

func TestRunCycle_SinkFailureIsJournaled(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	f.sink.err = ports.ErrOrderPlacementFailed

	res, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, f.journal.saved, 1)
	assert.Equal(t, "FAILED", f.journal.saved[0].Status)
	assert.Equal(t, 1, f.logger.count(f.logger.errorMsgs, "Order placement failed"))

	// The bar is consumed; the next poll of the same bar does not retry.
	res, err = f.trader.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, res.Outcome)
	assert.Len(t, f.sink.intents, 1)
}

func TestRunCycle_JournalErrorDoesNotFailCycle(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	f.journal.saveErr = ports.ErrQueryFailed

	res, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeBuy, res.Outcome)
	assert.Zero(t, res.Intent.ID)
	assert.Equal(t, 1, f.logger.count(f.logger.errorMsgs, "Failed to journal order intent"))
}

func TestRunCycle_LevelsLoggedOnlyOnChange(t *testing.T) {
	f := newLiveFixture(t, 0.3, marketResponse{klines: bounceKlines()})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.trader.RunCycle(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, f.logger.count(f.logger.infoMsgs, "Fibonacci levels"))
	assert.Equal(t, 3, f.logger.count(f.logger.infoMsgs, "Nearest Fibonacci level"))
}

func TestRunCycle_ReadsPriceCache(t *testing.T) {
	f := newLiveFixture(t, 0.3, marketResponse{klines: bounceKlines()})
	f.prices.Update(164.2, f.now)

	_, err := f.trader.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []float64{164.2}, f.metrics.prices)
}

func TestRun_SkipsFailedCycleAndContinues(t *testing.T) {
	f := newLiveFixture(t, 0.8,
		marketResponse{err: ports.ErrConnectionFailed},
		marketResponse{klines: bounceKlines()},
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	WithSleep(f.stopAfter(3, cancel))(f.trader)

	require.NoError(t, f.trader.Run(ctx))

	assert.Equal(t, 3, f.data.calls)
	assert.Equal(t, []time.Duration{time.Minute, time.Minute, time.Minute}, f.sleeps)
	assert.Equal(t, 3, f.metrics.cycles)
	assert.Equal(t, 1, f.metrics.errors["fetch"])
	assert.Equal(t, 1, f.logger.count(f.logger.errorMsgs, "Live cycle failed, skipping"))

	// The failure left no trace: cycle 2 emitted, cycle 3 was a duplicate.
	assert.Len(t, f.sink.intents, 1)
	assert.Equal(t, 1, f.metrics.decisions[OutcomeBuy])
	assert.Equal(t, 1, f.metrics.decisions[OutcomeDuplicate])
}

func TestRun_SeedsDebounceFromJournal(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	f.journal.last = testStart.Add(40 * time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	WithSleep(f.stopAfter(1, cancel))(f.trader)

	require.NoError(t, f.trader.Run(ctx))

	assert.Empty(t, f.sink.intents)
	assert.Equal(t, 1, f.metrics.decisions[OutcomeDuplicate])
}

func TestRun_JournalReadErrorIsNotFatal(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	f.journal.lastErr = ports.ErrDBConnection
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	WithSleep(f.stopAfter(1, cancel))(f.trader)

	require.NoError(t, f.trader.Run(ctx))
	assert.Len(t, f.sink.intents, 1)
	assert.Equal(t, 1, f.logger.count(f.logger.warnMsgs, "Could not read last emitted bar from journal"))
}

func TestRun_StopsOnCancelledContext(t *testing.T) {
	f := newLiveFixture(t, 0.8, marketResponse{klines: bounceKlines()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.trader.Run(ctx))
	assert.Zero(t, f.data.calls)
}

func TestNewLiveTrader_Validation(t *testing.T) {
	logger := &mockLogger{}
	strat, err := strategy.New(strategy.DefaultConfig(), logger)
	require.NoError(t, err)
	calc, err := risk.NewCalculator(risk.DefaultRiskConfig())
	require.NoError(t, err)
	models := estimator.NewModelCache(func() ports.ProbabilityEstimator { return estimator.NewCalibrated() })

	valid := LiveConfig{Symbol: "ETHUSDT", Interval: "1h", IntervalLength: time.Hour, Limit: 100, PollInterval: time.Minute, OrderSizeUSDT: 50}
	deps := LiveDeps{Logger: logger, Data: &mockMarketData{}, Sink: &mockSink{}, Strategy: strat, Risk: calc, Models: models}

	_, err = NewLiveTrader(valid, deps)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*LiveConfig, *LiveDeps)
	}{
		{"missing sink", func(c *LiveConfig, d *LiveDeps) { d.Sink = nil }},
		{"missing models", func(c *LiveConfig, d *LiveDeps) { d.Models = nil }},
		{"empty symbol", func(c *LiveConfig, d *LiveDeps) { c.Symbol = "" }},
		{"zero poll", func(c *LiveConfig, d *LiveDeps) { c.PollInterval = 0 }},
		{"zero order size", func(c *LiveConfig, d *LiveDeps) { c.OrderSizeUSDT = 0 }},
		{"zero interval length", func(c *LiveConfig, d *LiveDeps) { c.IntervalLength = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, d := valid, deps
			tt.mutate(&c, &d)
			_, err := NewLiveTrader(c, d)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}
}
