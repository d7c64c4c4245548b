package signals

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

func TestFromProbability(t *testing.T) {
	tests := []struct {
		name string
		p    float64
		want domain.Signal
	}{
		{"above threshold", 0.56, domain.SignalBuy},
		{"at threshold", 0.55, domain.SignalNone},
		{"neutral band", 0.5, domain.SignalNone},
		{"at lower bound", 0.45, domain.SignalNone},
		{"below lower bound", 0.44, domain.SignalSell},
		{"missing", math.NaN(), domain.SignalNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromProbability(tt.p, 0.55))
		})
	}
}

func TestHybrid(t *testing.T) {
	buy, sell, none := domain.SignalBuy, domain.SignalSell, domain.SignalNone
	tests := []struct {
		rule, prob, want domain.Signal
	}{
		{buy, buy, buy},
		{sell, sell, sell},
		{buy, sell, none},
		{sell, buy, none},
		{buy, none, none},
		{none, sell, none},
		{none, none, none},
		{"HOLD", "HOLD", none},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Hybrid(tt.rule, tt.prob), "rule=%s prob=%s", tt.rule, tt.prob)
	}
}

func TestFuse(t *testing.T) {
	rule := []domain.Signal{domain.SignalBuy, domain.SignalBuy, domain.SignalSell, domain.SignalNone, "garbage"}
	probs := []float64{0.7, 0.5, 0.2, math.NaN(), 0.9}

	set, err := Fuse(rule, probs, 0.55)
	require.NoError(t, err)

	assert.Equal(t, []domain.Signal{domain.SignalBuy, domain.SignalBuy, domain.SignalSell, domain.SignalNone, domain.SignalNone}, set.Rule)
	assert.Equal(t, []domain.Signal{domain.SignalBuy, domain.SignalNone, domain.SignalSell, domain.SignalNone, domain.SignalBuy}, set.Probability)
	assert.Equal(t, []domain.Signal{domain.SignalBuy, domain.SignalNone, domain.SignalSell, domain.SignalNone, domain.SignalNone}, set.Hybrid)

	again, err := Fuse(rule, probs, 0.55)
	require.NoError(t, err)
	assert.Equal(t, set, again, "fusion is deterministic")

	assert.Equal(t, set.Hybrid, set.Series(domain.KindHybrid))
	assert.Nil(t, set.Series("other"))
}

func TestFuse_Errors(t *testing.T) {
	_, err := Fuse([]domain.Signal{domain.SignalBuy}, nil, 0.55)
	assert.ErrorIs(t, err, ports.ErrSeriesLength)

	_, err = Fuse(nil, nil, 0.5)
	assert.ErrorIs(t, err, ports.ErrInvalidThreshold)
}
