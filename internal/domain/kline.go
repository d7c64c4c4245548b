package domain

import "time"

// Kline represents a single candlestick data point (a bar).
type Kline struct {
	OpenTime  time.Time // Start time of the interval, used as the bar's identity
	CloseTime time.Time // End time of the interval (zero if the source does not provide it)
	Symbol    string    // Trading symbol
	Interval  string    // Kline interval (e.g., "1m", "1h")
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Trading volume
	IsFinal   bool      // Whether this kline is the final one for the interval
}

// BarClose returns the close time of the bar, falling back to open+interval
// when the source did not report one.
func (k *Kline) BarClose(interval time.Duration) time.Time {
	if !k.CloseTime.IsZero() {
		return k.CloseTime
	}
	return k.OpenTime.Add(interval)
}
