package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/risk"
	"cryptoProbTrader/internal/strategy"
	"cryptoProbTrader/internal/strategy/estimator"
	"cryptoProbTrader/internal/strategy/features"
	"cryptoProbTrader/internal/strategy/indicators"
)

// Cycle outcomes, also used as metric labels.
const (
	OutcomeBuy       = "buy"
	OutcomeHold      = "hold"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
	OutcomeNoData    = "insufficient-history"
)

// LiveConfig configures the live decision loop.
type LiveConfig struct {
	Symbol         string
	Interval       string
	IntervalLength time.Duration // Bar length, used when a kline has no close time
	Limit          int           // Klines fetched per cycle
	PollInterval   time.Duration
	OrderSizeUSDT  float64
	Paper          bool
	SwingLookback  int     // Bars scanned for the swing-low stop candidate
	LevelTolerance float64 // Absolute move that re-logs the Fibonacci levels
}

// LiveDeps are the collaborators of the live loop. Journal, Metrics and Prices
// are optional.
type LiveDeps struct {
	Logger   ports.Logger
	Data     ports.MarketData
	Sink     ports.OrderSink
	Journal  ports.OrderJournal
	Metrics  ports.Metrics
	Strategy *strategy.Strategy
	Features features.Config
	Risk     *risk.Calculator
	Models   *estimator.ModelCache
	Prices   *PriceCache
}

// LiveOption customizes a LiveTrader.
type LiveOption func(*LiveTrader)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) LiveOption {
	return func(t *LiveTrader) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSleep replaces the pause between cycles. A non-nil error from sleep stops Run.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) LiveOption {
	return func(t *LiveTrader) {
		if sleep != nil {
			t.sleep = sleep
		}
	}
}

// CycleResult describes what one cycle decided.
type CycleResult struct {
	Outcome  string
	Decision *strategy.Decision
	Levels   *risk.RiskLevels
	Intent   *domain.OrderIntent
	ETA      time.Duration
}

// CycleError tags a failed cycle with the stage that failed.
type CycleError struct {
	Stage string
	Err   error
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *CycleError) Unwrap() error {
	return e.Err
}

// LiveTrader runs the polling decision loop: fetch, model, decide, emit.
// All mutable state is owned by the loop goroutine.
type LiveTrader struct {
	cfg     LiveConfig
	logger  ports.Logger
	data    ports.MarketData
	sink    ports.OrderSink
	journal ports.OrderJournal
	metrics ports.Metrics
	strat   *strategy.Strategy
	feats   features.Config
	risk    *risk.Calculator
	models  *estimator.ModelCache
	prices  *PriceCache

	debounce   Debouncer
	lastLevels indicators.FibLevels

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLiveTrader creates a live loop instance.
func NewLiveTrader(cfg LiveConfig, deps LiveDeps, opts ...LiveOption) (*LiveTrader, error) {
	if deps.Logger == nil || deps.Data == nil || deps.Sink == nil || deps.Strategy == nil || deps.Risk == nil || deps.Models == nil {
		return nil, fmt.Errorf("%w: missing required dependencies for LiveTrader", ports.ErrConfigurationError)
	}

	var errs []error
	if cfg.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if cfg.IntervalLength <= 0 {
		errs = append(errs, errors.New("interval length must be positive"))
	}
	if cfg.Limit <= 0 {
		errs = append(errs, errors.New("kline limit must be positive"))
	}
	if cfg.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if cfg.OrderSizeUSDT <= 0 {
		errs = append(errs, errors.New("order size must be positive"))
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ports.ErrConfigurationError, errors.Join(errs...))
	}
	if cfg.SwingLookback <= 0 {
		cfg.SwingLookback = 20
	}
	if cfg.LevelTolerance <= 0 {
		cfg.LevelTolerance = 0.01
	}

	metrics := deps.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	t := &LiveTrader{
		cfg:     cfg,
		logger:  deps.Logger,
		data:    deps.Data,
		sink:    deps.Sink,
		journal: deps.Journal,
		metrics: metrics,
		strat:   deps.Strategy,
		feats:   deps.Features,
		risk:    deps.Risk,
		models:  deps.Models,
		prices:  deps.Prices,
		now:     time.Now,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// LastEmitted returns the open time of the last bar an intent was emitted for.
func (t *LiveTrader) LastEmitted() time.Time {
	return t.debounce.Last()
}

// Run seeds the debouncer from the journal and then runs cycles until ctx is
// cancelled or sleep fails. Cycle errors are logged and never stop the loop.
func (t *LiveTrader) Run(ctx context.Context) error {
	t.logger.Info(ctx, "Starting live loop", map[string]interface{}{
		"symbol":   t.cfg.Symbol,
		"interval": t.cfg.Interval,
		"poll":     t.cfg.PollInterval.String(),
		"paper":    t.cfg.Paper,
	})

	if t.journal != nil {
		last, err := t.journal.LastBarOpenTime(ctx, t.cfg.Symbol)
		if err != nil {
			t.logger.Warn(ctx, "Could not read last emitted bar from journal", map[string]interface{}{
				"symbol": t.cfg.Symbol,
				"error":  err.Error(),
			})
		} else if !last.IsZero() {
			t.debounce.Seed(last)
			t.logger.Info(ctx, "Debounce seeded from journal", map[string]interface{}{
				"symbol":      t.cfg.Symbol,
				"barOpenTime": last,
			})
		}
	}

	for {
		if ctx.Err() != nil {
			break
		}

		if _, err := t.RunCycle(ctx); err != nil {
			stage := "unknown"
			var cerr *CycleError
			if errors.As(err, &cerr) {
				stage = cerr.Stage
			}
			t.metrics.RecordCycleError(t.cfg.Symbol, stage)
			t.logger.Error(ctx, err, "Live cycle failed, skipping", map[string]interface{}{
				"symbol": t.cfg.Symbol,
				"stage":  stage,
				"now":    t.now().UTC(),
			})
		}

		if err := t.sleep(ctx, t.cfg.PollInterval); err != nil {
			break
		}
	}

	t.logger.Info(ctx, "Live loop stopped", map[string]interface{}{"symbol": t.cfg.Symbol})
	return nil
}

// RunCycle performs one fetch/decide/emit pass. A returned error means the
// cycle was skipped; loop state is left as it was.
func (t *LiveTrader) RunCycle(ctx context.Context) (*CycleResult, error) {
	symbol := t.cfg.Symbol
	t.metrics.RecordCycle(symbol)

	klines, err := t.data.GetKlines(ctx, symbol, t.cfg.Interval, t.cfg.Limit)
	if err != nil {
		return nil, &CycleError{Stage: "fetch", Err: err}
	}
	if len(klines) < t.strat.RequiredDataPoints() {
		t.logger.Warn(ctx, "Not enough klines for indicators", map[string]interface{}{
			"symbol":   symbol,
			"klines":   len(klines),
			"required": t.strat.RequiredDataPoints(),
		})
		t.metrics.RecordDecision(symbol, OutcomeNoData)
		return &CycleResult{Outcome: OutcomeNoData}, nil
	}

	frame := indicators.Compute(klines, t.feats.Indicators)
	table := features.BuildFromFrame(frame, t.feats)
	last := klines[len(klines)-1]

	if len(table.Rows) == 0 {
		t.logger.Warn(ctx, "No complete feature rows yet", map[string]interface{}{
			"symbol":      symbol,
			"barOpenTime": last.OpenTime,
		})
		t.metrics.RecordDecision(symbol, OutcomeNoData)
		return &CycleResult{Outcome: OutcomeNoData}, nil
	}

	p, err := t.probability(ctx, table)
	if err != nil {
		return nil, &CycleError{Stage: "model", Err: err}
	}
	t.metrics.SetProbability(symbol, p)

	decision, err := t.strat.EvaluateLive(ctx, frame, p)
	if err != nil {
		return nil, &CycleError{Stage: "decision", Err: err}
	}

	now := t.now().UTC()
	eta := last.BarClose(t.cfg.IntervalLength).Sub(now)
	if eta < 0 {
		eta = 0
	}
	result := &CycleResult{Outcome: OutcomeHold, Decision: decision, ETA: eta}

	t.logCycle(ctx, decision, last, now, eta)

	if !decision.Buy() {
		t.logger.Info(ctx, "No signal", map[string]interface{}{
			"symbol":      symbol,
			"barOpenTime": decision.BarOpenTime,
			"reasons":     strings.Join(decision.Reasons(), ", "),
		})
		t.metrics.RecordDecision(symbol, OutcomeHold)
		return result, nil
	}

	if t.debounce.Seen(decision.BarOpenTime) {
		t.logger.Debug(ctx, "Signal already emitted for this bar", map[string]interface{}{
			"symbol":      symbol,
			"barOpenTime": decision.BarOpenTime,
		})
		result.Outcome = OutcomeDuplicate
		t.metrics.RecordDecision(symbol, OutcomeDuplicate)
		return result, nil
	}

	levels, err := t.risk.Calculate(risk.Inputs{
		Price:    decision.Price,
		ATR:      decision.ATR,
		SwingLow: indicators.LowestLow(klines, t.cfg.SwingLookback),
		Nearest:  decision.Nearest.Price,
		Levels:   decision.Levels,
	})
	if err != nil {
		return nil, &CycleError{Stage: "risk", Err: err}
	}
	result.Levels = levels
	t.debounce.Allow(decision.BarOpenTime)

	t.logger.Info(ctx, "BUY signal", map[string]interface{}{
		"symbol":         symbol,
		"barOpenTime":    decision.BarOpenTime,
		"price":          decision.Price,
		"probability":    p,
		"stopLoss":       levels.StopLoss,
		"stopLossPct":    levels.StopLossPct,
		"stopLossLev":    levels.StopLossLev,
		"takeProfit1":    levels.TakeProfit1,
		"takeProfit1Pct": levels.TakeProfit1Pct,
		"takeProfit1Lev": levels.TakeProfit1Lev,
		"takeProfit2":    levels.TakeProfit2,
		"takeProfit2Pct": levels.TakeProfit2Pct,
		"takeProfit2Lev": levels.TakeProfit2Lev,
	})

	result.Intent = t.emit(ctx, decision.BarOpenTime, now)
	result.Outcome = OutcomeBuy
	if result.Intent.Status == statusFailed {
		result.Outcome = OutcomeFailed
	}
	t.metrics.RecordDecision(symbol, result.Outcome)
	return result, nil
}

// probability returns P(up) for the newest bar, refitting the cached model
// when the feature names changed. NaN when the newest bar has no features.
func (t *LiveTrader) probability(ctx context.Context, table *features.Table) (float64, error) {
	est, refit, err := t.models.Ensure(table.Names, table.X(), table.Y())
	if err != nil {
		return math.NaN(), err
	}
	if refit {
		t.metrics.RecordModelRefit(t.cfg.Symbol)
		t.logger.Info(ctx, "Probability model fitted", map[string]interface{}{
			"symbol":   t.cfg.Symbol,
			"rows":     len(table.Rows),
			"features": len(table.Names),
		})
	}

	if table.Latest == nil {
		return math.NaN(), nil
	}
	probs, err := est.Predict([][]float64{table.Latest.Values})
	if err != nil {
		return math.NaN(), err
	}
	return probs[0], nil
}

const statusFailed = "FAILED"

// emit sends a BUY intent to the sink and journals it whatever the outcome.
func (t *LiveTrader) emit(ctx context.Context, barOpen, now time.Time) *domain.OrderIntent {
	intent := &domain.OrderIntent{
		ClientOrderID:  uuid.NewString(),
		Symbol:         t.cfg.Symbol,
		Side:           domain.Buy,
		NotionalAmount: t.cfg.OrderSizeUSDT,
		BarOpenTime:    barOpen,
		CreatedAt:      now,
		Paper:          t.cfg.Paper,
	}

	resp, err := t.sink.PlaceOrder(ctx, intent)
	if err != nil {
		intent.Status = statusFailed
		t.logger.Error(ctx, err, "Order placement failed", map[string]interface{}{
			"symbol":        intent.Symbol,
			"barOpenTime":   barOpen,
			"clientOrderID": intent.ClientOrderID,
			"notional":      intent.NotionalAmount,
		})
	} else {
		intent.Status = resp.Status
		intent.ExchangeID = resp.OrderID
		t.logger.Info(ctx, "Order placed", map[string]interface{}{
			"symbol":        intent.Symbol,
			"clientOrderID": intent.ClientOrderID,
			"status":        resp.Status,
			"paper":         resp.Paper,
			"notional":      intent.NotionalAmount,
		})
	}

	if t.journal != nil {
		id, err := t.journal.SaveIntent(ctx, intent)
		if err != nil {
			t.logger.Error(ctx, err, "Failed to journal order intent", map[string]interface{}{
				"symbol":      intent.Symbol,
				"barOpenTime": barOpen,
			})
		} else {
			intent.ID = id
		}
	}
	return intent
}

func (t *LiveTrader) logCycle(ctx context.Context, d *strategy.Decision, last *domain.Kline, now time.Time, eta time.Duration) {
	symbol := t.cfg.Symbol
	t.logger.Info(ctx, "Bar status", map[string]interface{}{
		"symbol":      symbol,
		"now":         now,
		"barOpenTime": d.BarOpenTime,
		"barClose":    last.BarClose(t.cfg.IntervalLength).UTC(),
		"eta":         eta.String(),
	})

	if indicators.LevelsChanged(t.lastLevels, d.Levels, t.cfg.LevelTolerance) {
		fields := map[string]interface{}{"symbol": symbol}
		for _, lvl := range d.Levels {
			fields[lvl.Name] = lvl.Price
		}
		t.logger.Info(ctx, "Fibonacci levels", fields)
		t.lastLevels = d.Levels
	}

	t.logger.Info(ctx, "Indicators", map[string]interface{}{
		"symbol":      symbol,
		"price":       d.Price,
		"rsi":         d.RSI,
		"emaFast":     d.EMAFast,
		"emaSlow":     d.EMASlow,
		"atr":         d.ATR,
		"macd":        d.MACD,
		"macdSignal":  d.MACDSignal,
		"probability": d.Probability,
	})

	if d.Nearest.Name != "" {
		t.logger.Info(ctx, "Nearest Fibonacci level", map[string]interface{}{
			"symbol":  symbol,
			"level":   d.Nearest.Name,
			"price":   d.Nearest.Price,
			"distPct": d.NearestPct,
		})
	}

	if t.prices != nil {
		if price, at, ok := t.prices.Latest(); ok {
			t.metrics.SetLatestPrice(symbol, price)
			t.logger.Debug(ctx, "Latest trade", map[string]interface{}{
				"symbol": symbol,
				"price":  price,
				"at":     at.UTC(),
			})
		}
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

type nopMetrics struct{}

func (nopMetrics) RecordCycle(string)              {}
func (nopMetrics) RecordCycleError(string, string) {}
func (nopMetrics) RecordDecision(string, string)   {}
func (nopMetrics) RecordModelRefit(string)         {}
func (nopMetrics) SetLatestPrice(string, float64)  {}
func (nopMetrics) SetProbability(string, float64)  {}
