package indicators

import (
	"math"

	"cryptoProbTrader/internal/domain"
)

// Series is an indicator output aligned index-for-index with the input klines.
// Entries that cannot be computed yet (warm-up) hold NaN.
type Series []float64

// At returns the value at i, or NaN when i is out of range.
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

// Last returns the most recent value, or NaN for an empty series.
func (s Series) Last() float64 {
	return s.At(len(s) - 1)
}

// Valid reports whether v holds a computed value.
func Valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Indicator represents a technical indicator that can be calculated from price data
type Indicator interface {
	// Calculate computes the indicator for every kline; warm-up entries are NaN.
	Calculate(klines []*domain.Kline) Series

	// RequiredDataPoints returns the minimum number of klines needed for the first value
	RequiredDataPoints() int

	// Name returns the name of the indicator
	Name() string
}

// IndicatorConfig holds common configuration for indicators
type IndicatorConfig struct {
	Period int
}

// BaseIndicator provides common functionality for indicators
type BaseIndicator struct {
	Config IndicatorConfig
}

// RequiredDataPoints returns the minimum number of klines needed for calculation
func (b *BaseIndicator) RequiredDataPoints() int {
	return b.Config.Period
}

func nanSeries(n int) Series {
	s := make(Series, n)
	for i := range s {
		s[i] = math.NaN()
	}
	return s
}

// Closes extracts the close prices of klines.
func Closes(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i, k := range klines {
		out[i] = k.Close
	}
	return out
}

// LowestLow returns the minimum low of the last n klines (all klines if fewer).
func LowestLow(klines []*domain.Kline, n int) float64 {
	if len(klines) == 0 || n <= 0 {
		return math.NaN()
	}
	start := len(klines) - n
	if start < 0 {
		start = 0
	}
	low := math.Inf(1)
	for _, k := range klines[start:] {
		low = math.Min(low, k.Low)
	}
	return low
}
