package indicators

import (
	"cryptoProbTrader/internal/domain"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type MovingAverageType
}

// MovingAverage implements both SMA and EMA indicators
type MovingAverage struct {
	BaseIndicator
	config MovingAverageConfig
}

// NewMovingAverage creates a new moving average indicator instance
func NewMovingAverage(config MovingAverageConfig) *MovingAverage {
	return &MovingAverage{
		BaseIndicator: BaseIndicator{Config: config.IndicatorConfig},
		config:        config,
	}
}

// Name returns the name of the indicator
func (m *MovingAverage) Name() string {
	return string(m.config.Type)
}

// RequiredDataPoints returns 1 for the EMA, which is seeded with the first close.
func (m *MovingAverage) RequiredDataPoints() int {
	if m.config.Type == ExponentialMovingAverage {
		return 1
	}
	return m.Config.Period
}

// Calculate computes the moving average series based on the configured type.
// Unknown types yield an all-NaN series.
func (m *MovingAverage) Calculate(klines []*domain.Kline) Series {
	closes := Closes(klines)
	switch m.config.Type {
	case SimpleMovingAverage:
		return SMA(closes, m.Config.Period)
	case ExponentialMovingAverage:
		return EMA(closes, m.Config.Period)
	default:
		return nanSeries(len(klines))
	}
}

// SMA computes the simple moving average over a trailing window of period values.
// A window containing NaN yields NaN.
func SMA(values []float64, period int) Series {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		total := 0.0
		for _, v := range values[i-period+1 : i+1] {
			total += v
		}
		out[i] = total / float64(period)
	}
	return out
}

// EMA computes the exponential moving average with alpha = 2/(span+1), seeded
// with the first valid value and defined from that point on. Leading NaN values
// stay NaN.
func EMA(values []float64, span int) Series {
	out := nanSeries(len(values))
	if span <= 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)

	started := false
	var ema float64
	for i, v := range values {
		if !Valid(v) {
			if started {
				out[i] = ema
			}
			continue
		}
		if !started {
			ema = v
			started = true
		} else {
			ema = alpha*v + (1-alpha)*ema
		}
		out[i] = ema
	}
	return out
}
