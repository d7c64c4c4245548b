package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"cryptoProbTrader/internal/domain"
)

func TestATR_Calculate(t *testing.T) {
	klines := []*domain.Kline{
		{High: 10, Low: 8, Close: 9},   // TR 2
		{High: 11, Low: 9, Close: 10},  // TR 2
		{High: 13, Low: 10, Close: 12}, // TR 3
		{High: 12, Low: 11, Close: 11}, // TR max(1, 0, 1) = 1
	}

	assert.Equal(t, []float64{2, 2, 3, 1}, TrueRange(klines))

	atr := NewATR(ATRConfig{IndicatorConfig: IndicatorConfig{Period: 2}})
	series := atr.Calculate(klines)

	assert.True(t, math.IsNaN(series[0]))
	assert.InDelta(t, 2.0, series[1], 1e-12)
	assert.InDelta(t, 2.5, series[2], 1e-12)
	assert.InDelta(t, 2.0, series[3], 1e-12)
	assert.Equal(t, "ATR", atr.Name())
	assert.Equal(t, 2, atr.RequiredDataPoints())
}

func TestATR_GapUsesPreviousClose(t *testing.T) {
	klines := []*domain.Kline{
		{High: 10, Low: 9, Close: 10},
		{High: 15, Low: 14, Close: 14}, // gap up: |15-10| = 5
	}
	assert.Equal(t, 5.0, TrueRange(klines)[1])
}

func TestLowestLow(t *testing.T) {
	klines := []*domain.Kline{{Low: 5}, {Low: 9}, {Low: 7}, {Low: 8}}

	assert.Equal(t, 7.0, LowestLow(klines, 3))
	assert.Equal(t, 5.0, LowestLow(klines, 20), "shorter history uses everything")
	assert.True(t, math.IsNaN(LowestLow(nil, 3)))
}
