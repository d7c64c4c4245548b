package paper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoProbTrader/internal/adapters/logger"
	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

func TestSink_PlaceOrder(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	s := New(logger.Nop(), func() (float64, time.Time, bool) { return 2500, at, true })
	s.now = func() time.Time { return at }

	resp, err := s.PlaceOrder(context.Background(), &domain.OrderIntent{
		ClientOrderID:  "id-1",
		Symbol:         "ETHUSDT",
		Side:           domain.Buy,
		NotionalAmount: 50,
	})
	require.NoError(t, err)

	assert.True(t, resp.Paper)
	assert.Equal(t, StatusPaper, resp.Status)
	assert.Equal(t, "BUY", resp.Side)
	assert.Equal(t, "id-1", resp.ClientOrderID)
	assert.Equal(t, 50.0, resp.QuoteQuantity)
	assert.Equal(t, 0.02, resp.ExecutedQty)
	assert.Equal(t, at, resp.Timestamp)
	assert.Zero(t, resp.OrderID)

	require.Len(t, s.Orders(), 1)
}

func TestSink_AcceptsSellWithoutPrice(t *testing.T) {
	s := New(logger.Nop(), nil)

	resp, err := s.PlaceOrder(context.Background(), &domain.OrderIntent{Symbol: "ETHUSDT", Side: domain.Sell, NotionalAmount: 10})
	require.NoError(t, err)
	assert.Equal(t, "SELL", resp.Side)
	assert.Zero(t, resp.ExecutedQty)
}

func TestSink_Rejects(t *testing.T) {
	s := New(logger.Nop(), nil)
	ctx := context.Background()

	_, err := s.PlaceOrder(ctx, nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	_, err = s.PlaceOrder(ctx, &domain.OrderIntent{Symbol: "ETHUSDT", Side: "HOLD", NotionalAmount: 10})
	assert.ErrorIs(t, err, ports.ErrUnsupportedOrderSide)

	_, err = s.PlaceOrder(ctx, &domain.OrderIntent{Symbol: "ETHUSDT", Side: domain.Buy, NotionalAmount: -1})
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)

	assert.Empty(t, s.Orders())
}
