package domain

import "time"

// Trade represents a closed position in the backtest ledger.
type Trade struct {
	Symbol      string      // Trading symbol (e.g., "ETHUSDT")
	EntryTime   time.Time   // Open time of the entry bar
	EntryPrice  float64     // Price at which the position was entered
	ExitTime    time.Time   // Open time of the exit bar
	ExitPrice   float64     // Price at which the position was exited
	Return      float64     // Fee-adjusted fractional return of the trade
	CloseReason CloseReason // Reason why the position was closed (SL, TP, SIGNAL)
}

// Duration returns how long the trade was held.
func (t *Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// TradeReturn computes the fee-adjusted return of a round trip:
// (exit*(1-fee)) / (entry*(1+fee)) - 1.
func TradeReturn(entry, exit, feeRate float64) float64 {
	return (exit*(1-feeRate))/(entry*(1+feeRate)) - 1
}
