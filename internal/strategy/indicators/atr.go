package indicators

import (
	"math"

	"cryptoProbTrader/internal/domain"
)

// ATRConfig holds configuration for the Average True Range indicator
type ATRConfig struct {
	IndicatorConfig
}

// ATR implements the Average True Range indicator as a simple rolling mean of
// the true range.
type ATR struct {
	BaseIndicator
}

// NewATR creates a new Average True Range indicator instance
func NewATR(config ATRConfig) *ATR {
	return &ATR{BaseIndicator: BaseIndicator{Config: config.IndicatorConfig}}
}

// Name returns the name of the indicator
func (a *ATR) Name() string {
	return "ATR"
}

// TrueRange computes the true range of every kline. The first kline has no
// previous close, so its range is just high-low.
func TrueRange(klines []*domain.Kline) []float64 {
	trueRanges := make([]float64, len(klines))
	for i, k := range klines {
		if i == 0 {
			trueRanges[i] = k.High - k.Low
			continue
		}
		prevClose := klines[i-1].Close

		// True Range is the greatest of:
		// 1. Current High - Current Low
		// 2. |Current High - Previous Close|
		// 3. |Current Low - Previous Close|
		tr1 := math.Abs(k.High - k.Low)
		tr2 := math.Abs(k.High - prevClose)
		tr3 := math.Abs(k.Low - prevClose)

		trueRanges[i] = math.Max(tr1, math.Max(tr2, tr3))
	}
	return trueRanges
}

// Calculate computes the ATR series. The first value is available at index Period-1.
func (a *ATR) Calculate(klines []*domain.Kline) Series {
	return SMA(TrueRange(klines), a.Config.Period)
}
