package domain

import "time"

// Position represents an open long position. At most one exists at a time.
type Position struct {
	Symbol     string         // Trading symbol (e.g., "ETHUSDT")
	EntryPrice float64        // Bar close at which the position was entered
	EntryTime  time.Time      // Open time of the entry bar
	Status     PositionStatus // Current status (open, closed)
}

// IsOpen checks if the position status is open.
func (p *Position) IsOpen() bool {
	return p != nil && p.Status == StatusOpen
}

// StopLossPrice returns the fixed stop level entry*(1 - pct/100).
func (p *Position) StopLossPrice(pct float64) float64 {
	return p.EntryPrice * (1 - pct/100)
}

// TakeProfitPrice returns the fixed target level entry*(1 + pct/100).
func (p *Position) TakeProfitPrice(pct float64) float64 {
	return p.EntryPrice * (1 + pct/100)
}
