package strategy

import (
	"context"
	"fmt"
	"math"
	"time"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy/indicators"
)

// Config holds parameters for the rule evaluator and the live decision.
type Config struct {
	Indicators    indicators.Params
	FibLookback   int     // Bars used for the static Fibonacci levels
	ProxPct       float64 // Max distance to a level, in percent
	ProbThreshold float64 // Probability gate, in (0.5, 1)
	BuyRSIMax     float64 // Backtest BUY requires RSI below this (e.g., 50)
	SellRSIMin    float64 // Backtest SELL requires RSI above this (e.g., 70)
	LiveRSIMax    float64 // Live BUY requires RSI below this (e.g., 60)
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Indicators:    indicators.DefaultParams(),
		FibLookback:   200,
		ProxPct:       0.25,
		ProbThreshold: 0.55,
		BuyRSIMax:     50,
		SellRSIMin:    70,
		LiveRSIMax:    60,
	}
}

// Strategy implements the trading rules.
type Strategy struct {
	cfg    Config
	logger ports.Logger
}

// New creates a new Strategy instance.
func New(cfg Config, logger ports.Logger) (*Strategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	// Basic validation
	p := cfg.Indicators
	if p.RSILength <= 0 || p.EMAFast <= 0 || p.EMASlow <= 0 || p.ATRLength <= 0 ||
		p.MACDFast <= 0 || p.MACDSlow <= 0 || p.MACDSignal <= 0 || cfg.FibLookback <= 0 {
		return nil, fmt.Errorf("strategy periods must be positive")
	}
	if p.EMAFast >= p.EMASlow {
		return nil, fmt.Errorf("fast EMA span must be less than slow EMA span")
	}
	if cfg.ProbThreshold <= 0.5 || cfg.ProbThreshold >= 1 {
		return nil, fmt.Errorf("%w: %v", ports.ErrInvalidThreshold, cfg.ProbThreshold)
	}
	return &Strategy{cfg: cfg, logger: logger}, nil
}

// Config returns the strategy configuration.
func (s *Strategy) Config() Config {
	return s.cfg
}

// RequiredDataPoints returns the number of klines needed before every rule
// input is defined: RSI needs one bar more than its period, the cross needs a
// previous bar.
func (s *Strategy) RequiredDataPoints() int {
	return max(s.cfg.Indicators.RSILength+1, s.cfg.Indicators.ATRLength, 2)
}

// RuleSignals evaluates the backtest rules on every bar. Fibonacci proximity is
// measured against the static levels of the last FibLookback bars. When probs
// is nil the probability gate is skipped; otherwise bar i also needs
// probs[i] > threshold for BUY and probs[i] < 1-threshold for SELL. Bars whose
// inputs are still warming up get NONE.
func (s *Strategy) RuleSignals(ctx context.Context, frame *indicators.Frame, probs []float64) ([]domain.Signal, error) {
	n := frame.Len()
	if probs != nil && len(probs) != n {
		return nil, fmt.Errorf("rule signals: %w: %d bars, %d probabilities", ports.ErrSeriesLength, n, len(probs))
	}

	out := make([]domain.Signal, n)
	levels := indicators.StaticFibLevels(frame.Klines, s.cfg.FibLookback)
	thr := s.cfg.ProbThreshold

	var buys, sells int
	for i := 0; i < n; i++ {
		rsi := frame.RSI[i]
		if !indicators.Valid(rsi) {
			continue
		}
		near := indicators.NearAny(frame.Klines[i].Close, levels, s.cfg.ProxPct)
		macdOK := frame.MACDBullish(i)

		probUp, probDown := true, true
		if probs != nil {
			probUp = probs[i] > thr     // NaN fails
			probDown = probs[i] < 1-thr // NaN fails
		}

		switch {
		case frame.GoldenCross(i) && rsi < s.cfg.BuyRSIMax && near && macdOK && probUp:
			out[i] = domain.SignalBuy
			buys++
		case frame.DeathCross(i) && rsi > s.cfg.SellRSIMin && near && !macdOK && probDown:
			out[i] = domain.SignalSell
			sells++
		}
	}

	s.logger.Debug(ctx, "Rule signals evaluated", map[string]interface{}{
		"bars":  n,
		"buys":  buys,
		"sells": sells,
		"gated": probs != nil,
	})
	return out, nil
}

// Decision is the outcome of the live BUY rule on the newest bar.
type Decision struct {
	BarOpenTime time.Time
	Price       float64
	RSI         float64
	EMAFast     float64
	EMASlow     float64
	ATR         float64
	MACD        float64
	MACDSignal  float64
	Probability float64

	Levels     indicators.FibLevels
	Nearest    indicators.FibLevel
	NearestPct float64

	GoldenCross bool
	RSIOK       bool
	ProxOK      bool
	MACDOK      bool
	RuleOK      bool
	ProbOK      bool
}

// Buy reports whether every rule condition and the probability gate passed.
func (d *Decision) Buy() bool {
	return d.RuleOK && d.ProbOK
}

// Reasons lists why no BUY was produced.
func (d *Decision) Reasons() []string {
	var reasons []string
	if !d.RuleOK {
		reasons = append(reasons, "rule-fail")
	}
	if !d.ProbOK {
		reasons = append(reasons, "prob<thr")
	}
	return reasons
}

// EvaluateLive applies the live BUY rule to the newest bar of frame given the
// model probability p for that bar. Missing indicator values fail their
// condition rather than raising an error.
func (s *Strategy) EvaluateLive(ctx context.Context, frame *indicators.Frame, p float64) (*Decision, error) {
	n := frame.Len()
	if n == 0 {
		return nil, fmt.Errorf("live decision: %w", ports.ErrInsufficientHistory)
	}
	last := n - 1
	bar := frame.Klines[last]

	d := &Decision{
		BarOpenTime: bar.OpenTime,
		Price:       bar.Close,
		RSI:         frame.RSI[last],
		EMAFast:     frame.EMAFast[last],
		EMASlow:     frame.EMASlow[last],
		ATR:         frame.ATR[last],
		MACD:        frame.MACD[last],
		MACDSignal:  frame.MACDSignal[last],
		Probability: p,
		Levels:      indicators.StaticFibLevels(frame.Klines, s.cfg.FibLookback),
		NearestPct:  math.NaN(),
	}

	if nearest, pct, ok := indicators.Nearest(d.Price, d.Levels); ok {
		d.Nearest, d.NearestPct = nearest, pct
	}

	d.GoldenCross = frame.GoldenCross(last)
	d.RSIOK = d.RSI < s.cfg.LiveRSIMax // NaN fails
	d.ProxOK = d.NearestPct <= s.cfg.ProxPct
	d.MACDOK = frame.MACDBullish(last)
	d.RuleOK = d.GoldenCross && d.RSIOK && d.ProxOK && d.MACDOK
	d.ProbOK = p > s.cfg.ProbThreshold

	s.logger.Debug(ctx, "Live rule evaluated", map[string]interface{}{
		"barOpenTime": d.BarOpenTime,
		"goldenCross": d.GoldenCross,
		"rsiOK":       d.RSIOK,
		"proxOK":      d.ProxOK,
		"macdOK":      d.MACDOK,
		"probability": p,
	})
	return d, nil
}
