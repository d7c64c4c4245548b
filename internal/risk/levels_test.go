package risk

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoProbTrader/internal/ports"
	"cryptoProbTrader/internal/strategy/indicators"
)

var nan = math.NaN()

func testLevels() indicators.FibLevels {
	return indicators.FibLevels{
		{Name: "fib382", Price: 102.36},
		{Name: "fib50", Price: 100},
		{Name: "fib618", Price: 97.64},
	}
}

func newCalc(t *testing.T, mutate func(*RiskConfig)) *Calculator {
	t.Helper()
	cfg := DefaultRiskConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewCalculator(cfg)
	require.NoError(t, err)
	return c
}

func TestCalculate(t *testing.T) {
	below := indicators.FibLevels{{Name: "fib50", Price: 95}, {Name: "fib618", Price: 92}}

	tests := []struct {
		name    string
		mutate  func(*RiskConfig)
		in      Inputs
		wantSL  float64
		wantTP1 float64
		wantTP2 float64
	}{
		{
			name:    "tightest candidate wins and nearest level above is the target",
			in:      Inputs{Price: 100, ATR: 2, SwingLow: 98, Nearest: 100, Levels: testLevels()},
			wantSL:  97, // min(97, 98, 99.75)
			wantTP1: 102.36,
			wantTP2: 106,
		},
		{
			name:    "swing low is the lowest candidate",
			in:      Inputs{Price: 100, ATR: 0.5, SwingLow: 98, Nearest: 100, Levels: testLevels()},
			wantSL:  98,
			wantTP1: 102.36,
			wantTP2: 104,
		},
		{
			name:    "hard floor binds",
			in:      Inputs{Price: 100, ATR: 20, SwingLow: 60, Nearest: 100, Levels: testLevels()},
			wantSL:  90,
			wantTP1: 102.36,
			wantTP2: 120,
		},
		{
			name:    "no ATR and no level above",
			in:      Inputs{Price: 100, ATR: nan, SwingLow: 98, Nearest: 95, Levels: below},
			wantSL:  94.7625, // 95 * (1 - 0.25/100)
			wantTP1: 101,
			wantTP2: 100 + 2*5.2375,
		},
		{
			name:    "ATR target when no level above",
			in:      Inputs{Price: 100, ATR: 2, SwingLow: 99, Nearest: 95, Levels: below},
			wantSL:  94.7625,
			wantTP1: 103,
			wantTP2: 100 + 2*5.2375,
		},
		{
			name:    "targets capped",
			mutate:  func(c *RiskConfig) { c.MaxTakePct = 0.05 },
			in:      Inputs{Price: 100, ATR: 4, SwingLow: 93, Nearest: 150, Levels: indicators.FibLevels{{Name: "fib382", Price: 150}}},
			wantSL:  93,
			wantTP1: 105,
			wantTP2: 105,
		},
		{
			name:    "no candidates falls back to floor",
			in:      Inputs{Price: 100, ATR: nan, SwingLow: nan, Nearest: nan},
			wantSL:  90,
			wantTP1: 101,
			wantTP2: 120,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCalc(t, tt.mutate)
			got, err := c.Calculate(tt.in)
			require.NoError(t, err)

			assert.InDelta(t, tt.wantSL, got.StopLoss, 1e-9)
			assert.InDelta(t, tt.wantTP1, got.TakeProfit1, 1e-9)
			assert.InDelta(t, tt.wantTP2, got.TakeProfit2, 1e-9)
		})
	}
}

func TestCalculate_DisplayFields(t *testing.T) {
	c := newCalc(t, nil)
	got, err := c.Calculate(Inputs{Price: 100, ATR: 2, SwingLow: 98, Nearest: 100, Levels: testLevels()})
	require.NoError(t, err)

	assert.InDelta(t, 3.0, got.StopLossPct, 1e-9)
	assert.InDelta(t, 2.36, got.TakeProfit1Pct, 1e-9)
	assert.InDelta(t, 6.0, got.TakeProfit2Pct, 1e-9)
	assert.InDelta(t, 39.0, got.StopLossLev, 1e-9)
	assert.InDelta(t, 30.68, got.TakeProfit1Lev, 1e-9)
	assert.InDelta(t, 78.0, got.TakeProfit2Lev, 1e-9)
}

func TestCalculate_LeverageNeverMovesLevels(t *testing.T) {
	in := Inputs{Price: 2500, ATR: 30, SwingLow: 2450, Nearest: 2490, Levels: testLevels()}

	a, err := newCalc(t, func(c *RiskConfig) { c.Leverage = 1 }).Calculate(in)
	require.NoError(t, err)
	b, err := newCalc(t, func(c *RiskConfig) { c.Leverage = 125 }).Calculate(in)
	require.NoError(t, err)

	assert.Equal(t, a.StopLoss, b.StopLoss)
	assert.Equal(t, a.TakeProfit1, b.TakeProfit1)
	assert.Equal(t, a.TakeProfit2, b.TakeProfit2)
	assert.Equal(t, a.StopLossPct, b.StopLossPct)
}

func TestCalculate_Bounds(t *testing.T) {
	c := newCalc(t, nil)
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 2000; i++ {
		price := 10 + rng.Float64()*5000
		in := Inputs{
			Price:    price,
			ATR:      rng.Float64() * price * 0.2,
			SwingLow: price * (0.7 + rng.Float64()*0.35),
			Nearest:  price * (0.8 + rng.Float64()*0.4),
			Levels: indicators.FibLevels{
				{Name: "fib382", Price: price * (0.8 + rng.Float64()*0.6)},
				{Name: "fib50", Price: price * (0.8 + rng.Float64()*0.4)},
			},
		}
		if i%3 == 0 {
			in.ATR = nan
		}

		got, err := c.Calculate(in)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, got.StopLoss, price*(1-0.10), "never looser than the cap")
		assert.LessOrEqual(t, got.StopLoss, price, "never above entry")
		assert.LessOrEqual(t, got.TakeProfit1, price*(1+0.20)+1e-9)
		assert.LessOrEqual(t, got.TakeProfit2, price*(1+0.20)+1e-9)
		assert.Greater(t, got.TakeProfit2, price)
	}
}

func TestCalculate_InvalidPrice(t *testing.T) {
	c := newCalc(t, nil)
	for _, p := range []float64{0, -1, nan} {
		_, err := c.Calculate(Inputs{Price: p})
		assert.ErrorIs(t, err, ports.ErrInvalidRequest)
	}
}

func TestNewCalculator_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RiskConfig)
	}{
		{"stop cap zero", func(c *RiskConfig) { c.MaxStopPct = 0 }},
		{"stop cap whole price", func(c *RiskConfig) { c.MaxStopPct = 1 }},
		{"take cap negative", func(c *RiskConfig) { c.MaxTakePct = -0.1 }},
		{"leverage zero", func(c *RiskConfig) { c.Leverage = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRiskConfig()
			tt.mutate(&cfg)
			_, err := NewCalculator(cfg)
			assert.ErrorIs(t, err, ports.ErrConfigurationError)
		})
	}
}
