package indicators

import (
	"cryptoProbTrader/internal/domain"
)

// Params holds the indicator lengths shared by the feature table, the rule
// evaluator and the live decision.
type Params struct {
	RSILength  int
	EMAFast    int
	EMASlow    int
	ATRLength  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams mirrors the configuration defaults.
func DefaultParams() Params {
	return Params{
		RSILength:  14,
		EMAFast:    50,
		EMASlow:    200,
		ATRLength:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// Frame bundles the bar-aligned indicator series of one kline sequence.
type Frame struct {
	Klines     []*domain.Kline
	RSI        Series
	EMAFast    Series
	EMASlow    Series
	ATR        Series
	MACD       Series
	MACDSignal Series
}

// Compute calculates every indicator of the frame.
func Compute(klines []*domain.Kline, p Params) *Frame {
	closes := Closes(klines)
	macd := NewMACD(MACDConfig{Fast: p.MACDFast, Slow: p.MACDSlow, Signal: p.MACDSignal}).Compute(klines)

	return &Frame{
		Klines:     klines,
		RSI:        NewRSI(RSIConfig{IndicatorConfig: IndicatorConfig{Period: p.RSILength}}).Calculate(klines),
		EMAFast:    EMA(closes, p.EMAFast),
		EMASlow:    EMA(closes, p.EMASlow),
		ATR:        NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: p.ATRLength}}).Calculate(klines),
		MACD:       macd.MACD,
		MACDSignal: macd.Signal,
	}
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int {
	return len(f.Klines)
}

// GoldenCross reports whether the fast EMA crossed above the slow EMA at bar i.
// Bar 0 has no predecessor and never crosses.
func (f *Frame) GoldenCross(i int) bool {
	if i <= 0 || i >= f.Len() {
		return false
	}
	return f.EMAFast[i] > f.EMASlow[i] && f.EMAFast[i-1] <= f.EMASlow[i-1]
}

// DeathCross reports whether the fast EMA crossed below the slow EMA at bar i.
func (f *Frame) DeathCross(i int) bool {
	if i <= 0 || i >= f.Len() {
		return false
	}
	return f.EMAFast[i] < f.EMASlow[i] && f.EMAFast[i-1] >= f.EMASlow[i-1]
}

// MACDBullish reports whether the MACD line is above its signal at bar i.
func (f *Frame) MACDBullish(i int) bool {
	return f.MACD.At(i) > f.MACDSignal.At(i)
}
