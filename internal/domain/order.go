package domain

import "time"

// OrderIntent is the single order emitted for an actionable bar.
type OrderIntent struct {
	ID             int64     // Journal identifier (0 until stored)
	ClientOrderID  string    // Unique client order ID sent to the sink
	Symbol         string    // Trading symbol
	Side           OrderSide // BUY or SELL
	NotionalAmount float64   // Quote-currency amount (e.g., USDT)
	BarOpenTime    time.Time // Open time of the bar that triggered the intent
	CreatedAt      time.Time // Wall-clock time the intent was emitted
	Paper          bool      // True when routed to the paper sink
	Status         string    // Sink outcome (e.g., FILLED, PAPER, FAILED)
	ExchangeID     int64     // Exchange order ID when submitted live
}
