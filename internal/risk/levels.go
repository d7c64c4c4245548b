package risk

import (
	"fmt"
	"math"

	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy/indicators"
)

// RiskConfig holds configuration for live stop-loss and take-profit levels
type RiskConfig struct {
	MaxStopPct     float64 // Stop never further than this fraction below price (e.g., 0.10)
	MaxTakePct     float64 // Targets never further than this fraction above price (e.g., 0.20)
	Leverage       float64 // Display-only multiplier for the percentage figures
	ProxPct        float64 // Level proximity in percent; the level-based stop sits this far below the nearest level
	ATRMultiple    float64 // Stop and fallback target distance in ATRs (e.g., 1.5)
	DefaultTakePct float64 // Fallback target when no level or ATR exists (e.g., 0.01)
	RewardRisk     float64 // TP2 distance as a multiple of the risk (e.g., 2)
}

// DefaultRiskConfig mirrors the configuration defaults.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxStopPct:     0.10,
		MaxTakePct:     0.20,
		Leverage:       13,
		ProxPct:        0.25,
		ATRMultiple:    1.5,
		DefaultTakePct: 0.01,
		RewardRisk:     2,
	}
}

// Inputs are the market facts at the decision bar.
type Inputs struct {
	Price    float64
	ATR      float64 // NaN when unavailable
	SwingLow float64 // Lowest low of the recent bars
	Nearest  float64 // Price of the nearest level; NaN or 0 when there is none
	Levels   indicators.FibLevels
}

// RiskLevels are the stop and targets for a BUY, with their display figures.
// The percentage and leverage-scaled fields are derived only.
type RiskLevels struct {
	StopLoss    float64
	TakeProfit1 float64
	TakeProfit2 float64

	StopLossPct    float64 // (price-SL)/price*100
	TakeProfit1Pct float64 // (TP1/price-1)*100
	TakeProfit2Pct float64

	StopLossLev    float64 // Pct * leverage
	TakeProfit1Lev float64
	TakeProfit2Lev float64
}

// Calculator computes live risk levels.
type Calculator struct {
	config RiskConfig
}

// NewCalculator creates a new risk level calculator.
func NewCalculator(config RiskConfig) (*Calculator, error) {
	if config.MaxStopPct <= 0 || config.MaxStopPct >= 1 {
		return nil, fmt.Errorf("%w: max stop pct must be in (0, 1), got %v", ports.ErrConfigurationError, config.MaxStopPct)
	}
	if config.MaxTakePct <= 0 {
		return nil, fmt.Errorf("%w: max take pct must be positive, got %v", ports.ErrConfigurationError, config.MaxTakePct)
	}
	if config.Leverage <= 0 || config.ATRMultiple <= 0 || config.DefaultTakePct <= 0 || config.RewardRisk <= 0 {
		return nil, fmt.Errorf("%w: leverage, ATR multiple, default take and reward:risk must be positive", ports.ErrConfigurationError)
	}
	return &Calculator{config: config}, nil
}

// Calculate picks the stop as the lowest candidate among price-ATR*k, the
// swing low and the nearest level less the proximity, but never below the hard
// floor price*(1-MaxStopPct) and never above price. TP1 is the lowest level
// above price, else price+ATR*k, else price*(1+DefaultTakePct). TP2 is
// price + RewardRisk*(price-SL). Both targets are capped at price*(1+MaxTakePct).
func (c *Calculator) Calculate(in Inputs) (*RiskLevels, error) {
	price := in.Price
	if !(price > 0) {
		return nil, fmt.Errorf("risk levels: %w: price %v", ports.ErrInvalidRequest, price)
	}
	cfg := c.config
	hasATR := indicators.Valid(in.ATR)

	// Stop-loss candidates
	candidates := make([]float64, 0, 3)
	if hasATR {
		candidates = append(candidates, price-cfg.ATRMultiple*in.ATR)
	}
	if indicators.Valid(in.SwingLow) {
		candidates = append(candidates, in.SwingLow)
	}
	if indicators.Valid(in.Nearest) && in.Nearest > 0 {
		candidates = append(candidates, in.Nearest*(1-cfg.ProxPct/100))
	}

	floor := price * (1 - cfg.MaxStopPct)
	stop := floor
	if len(candidates) > 0 {
		lowest := candidates[0]
		for _, v := range candidates[1:] {
			lowest = math.Min(lowest, v)
		}
		stop = math.Max(floor, lowest)
	}
	stop = math.Min(stop, price)

	// Take-profit 1
	maxTake := price * (1 + cfg.MaxTakePct)
	var tp1 float64
	if above, ok := in.Levels.LowestAbove(price); ok {
		tp1 = above
	} else if hasATR {
		tp1 = price + cfg.ATRMultiple*in.ATR
	} else {
		tp1 = price * (1 + cfg.DefaultTakePct)
	}
	tp1 = math.Min(tp1, maxTake)

	// Take-profit 2
	risk := math.Max(1e-6, price-stop)
	tp2 := math.Min(price+cfg.RewardRisk*risk, maxTake)

	levels := &RiskLevels{
		StopLoss:       stop,
		TakeProfit1:    tp1,
		TakeProfit2:    tp2,
		StopLossPct:    (price - stop) / price * 100,
		TakeProfit1Pct: (tp1/price - 1) * 100,
		TakeProfit2Pct: (tp2/price - 1) * 100,
	}
	levels.StopLossLev = levels.StopLossPct * cfg.Leverage
	levels.TakeProfit1Lev = levels.TakeProfit1Pct * cfg.Leverage
	levels.TakeProfit2Lev = levels.TakeProfit2Pct * cfg.Leverage

	return levels, nil
}
