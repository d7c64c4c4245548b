package indicators

import (
	"cryptoProbTrader/internal/domain"
)

// MACDConfig holds the three spans of the MACD.
type MACDConfig struct {
	Fast   int
	Slow   int
	Signal int
}

// MACDResult holds the MACD line, its signal line and the histogram.
type MACDResult struct {
	MACD      Series
	Signal    Series
	Histogram Series
}

// MACD computes the Moving Average Convergence Divergence.
type MACD struct {
	config MACDConfig
}

// NewMACD creates a new MACD indicator instance
func NewMACD(config MACDConfig) *MACD {
	return &MACD{config: config}
}

// Name returns the name of the indicator
func (m *MACD) Name() string {
	return "MACD"
}

// RequiredDataPoints returns 1; every line is an EMA seeded with the first close.
func (m *MACD) RequiredDataPoints() int {
	return 1
}

// Calculate returns the MACD line.
func (m *MACD) Calculate(klines []*domain.Kline) Series {
	return m.Compute(klines).MACD
}

// Compute returns all three MACD series.
func (m *MACD) Compute(klines []*domain.Kline) MACDResult {
	closes := Closes(klines)
	fast := EMA(closes, m.config.Fast)
	slow := EMA(closes, m.config.Slow)

	line := make(Series, len(closes))
	for i := range line {
		line[i] = fast[i] - slow[i]
	}
	signal := EMA(line, m.config.Signal)

	hist := make(Series, len(closes))
	for i := range hist {
		hist[i] = line[i] - signal[i]
	}
	return MACDResult{MACD: line, Signal: signal, Histogram: hist}
}
