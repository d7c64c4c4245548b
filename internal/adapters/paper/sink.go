// Package paper provides an order sink that records intents without sending
// anything to an exchange.
package paper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

// StatusPaper is the order status reported for simulated fills.
const StatusPaper = "PAPER"

// Sink simulates market orders by quote notional. When a price source is set,
// the base quantity is estimated from its latest price.
type Sink struct {
	logger ports.Logger
	price  func() (float64, time.Time, bool)
	now    func() time.Time

	mu     sync.Mutex
	orders []ports.OrderResponse
}

var _ ports.OrderSink = (*Sink)(nil)

// New creates a paper sink. price may be nil.
func New(logger ports.Logger, price func() (float64, time.Time, bool)) *Sink {
	return &Sink{logger: logger, price: price, now: time.Now}
}

// PlaceOrder records the intent and returns a simulated fill. Any side is
// accepted since nothing reaches the exchange.
func (s *Sink) PlaceOrder(ctx context.Context, intent *domain.OrderIntent) (*ports.OrderResponse, error) {
	if intent == nil {
		return nil, fmt.Errorf("paper order: %w: nil intent", ports.ErrInvalidRequest)
	}
	if intent.Side != domain.Buy && intent.Side != domain.Sell {
		return nil, fmt.Errorf("paper order: %w: %q", ports.ErrUnsupportedOrderSide, intent.Side)
	}
	if intent.NotionalAmount <= 0 {
		return nil, fmt.Errorf("paper order: %w: notional must be positive", ports.ErrInvalidRequest)
	}

	resp := ports.OrderResponse{
		Symbol:        intent.Symbol,
		ClientOrderID: intent.ClientOrderID,
		Side:          string(intent.Side),
		Status:        StatusPaper,
		QuoteQuantity: intent.NotionalAmount,
		Paper:         true,
		Timestamp:     s.now().UTC(),
	}
	if s.price != nil {
		if price, _, ok := s.price(); ok && price > 0 {
			qty := decimal.NewFromFloat(intent.NotionalAmount).Div(decimal.NewFromFloat(price)).Round(8)
			resp.ExecutedQty = qty.InexactFloat64()
			resp.CummQuoteQty = intent.NotionalAmount
		}
	}

	s.mu.Lock()
	s.orders = append(s.orders, resp)
	s.mu.Unlock()

	s.logger.Info(ctx, "[PAPER] order recorded, nothing sent", map[string]interface{}{
		"symbol":        intent.Symbol,
		"side":          intent.Side,
		"quoteUSDT":     intent.NotionalAmount,
		"clientOrderID": intent.ClientOrderID,
		"estimatedQty":  resp.ExecutedQty,
	})
	out := resp
	return &out, nil
}

// Orders returns a copy of every simulated order so far.
func (s *Sink) Orders() []ports.OrderResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.OrderResponse(nil), s.orders...)
}
