package ports

import (
	"context"
	"time"

	"cryptoProbTrader/internal/domain"
)

// OrderResponse represents the essential details returned after placing an order.
type OrderResponse struct {
	OrderID       int64     // Exchange's order ID (0 for paper fills)
	Symbol        string    // Symbol for the order
	ClientOrderID string    // User-defined order ID
	Side          string    // Order side (BUY, SELL)
	Status        string    // Order status (e.g., NEW, FILLED, PAPER)
	QuoteQuantity float64   // Quote amount requested
	ExecutedQty   float64   // Base quantity filled
	CummQuoteQty  float64   // Quote amount actually spent
	Paper         bool      // True when nothing was sent to the exchange
	Timestamp     time.Time // Time the order response was generated
}

// MarketData is the OHLCV data source consumed by the core.
type MarketData interface {
	// GetKlines retrieves the most recent klines in ascending open-time order.
	GetKlines(ctx context.Context, symbol string, interval string, limit int) ([]*domain.Kline, error)
}

// OrderSink receives order intents and either simulates or submits them.
type OrderSink interface {
	// PlaceOrder executes a market order for a quote-currency notional amount.
	PlaceOrder(ctx context.Context, intent *domain.OrderIntent) (*OrderResponse, error)
}

// PriceHandler receives each observed trade price.
type PriceHandler func(price float64, at time.Time)

// PriceStream is a background listener for the latest traded price. It is used
// for display only and never participates in trade decisions.
type PriceStream interface {
	// Start connects the stream and calls handler for every trade.
	Start(ctx context.Context, symbol string, handler PriceHandler) error
	// Stop disconnects the stream and waits for it to finish.
	Stop()
}
