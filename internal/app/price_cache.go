package app

import (
	"sync"
	"time"
)

// PriceCache holds the single latest observed trade price. A background
// stream writes it and the decision loop only reads it for display.
type PriceCache struct {
	mu    sync.RWMutex
	price float64
	at    time.Time
	set   bool
}

// Update stores a new observation. Its signature matches ports.PriceHandler.
func (c *PriceCache) Update(price float64, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price, c.at, c.set = price, at, true
}

// Latest returns the last observation, ok is false until the first update.
func (c *PriceCache) Latest() (price float64, at time.Time, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.price, c.at, c.set
}
