package indicators

import (
	"math"

	"cryptoProbTrader/internal/domain"
)

// Retracement ratios measured down from the window high.
var fibRatios = []struct {
	name  string
	ratio float64
}{
	{"fib382", 0.382},
	{"fib50", 0.5},
	{"fib618", 0.618},
}

// FibLevel is one named retracement price.
type FibLevel struct {
	Name  string
	Price float64
}

// FibLevels is an ordered set of retracement levels.
type FibLevels []FibLevel

// Get returns the price of the named level.
func (l FibLevels) Get(name string) (float64, bool) {
	for _, lvl := range l {
		if lvl.Name == name {
			return lvl.Price, true
		}
	}
	return 0, false
}

// LowestAbove returns the lowest level strictly above price.
func (l FibLevels) LowestAbove(price float64) (float64, bool) {
	best, found := math.Inf(1), false
	for _, lvl := range l {
		if lvl.Price > price && lvl.Price < best {
			best, found = lvl.Price, true
		}
	}
	return best, found
}

func levelsFromRange(hi, lo float64) FibLevels {
	rng := hi - lo
	out := make(FibLevels, len(fibRatios))
	for i, r := range fibRatios {
		out[i] = FibLevel{Name: r.name, Price: hi - r.ratio*rng}
	}
	return out
}

// StaticFibLevels computes levels from the last lookback klines (all klines if
// fewer). Returns nil for an empty input.
func StaticFibLevels(klines []*domain.Kline, lookback int) FibLevels {
	if len(klines) == 0 || lookback <= 0 {
		return nil
	}
	start := len(klines) - lookback
	if start < 0 {
		start = 0
	}
	hi, lo := math.Inf(-1), math.Inf(1)
	for _, k := range klines[start:] {
		hi = math.Max(hi, k.High)
		lo = math.Min(lo, k.Low)
	}
	return levelsFromRange(hi, lo)
}

// RollingFibLevels computes, for every kline i >= lookback-1, the levels of the
// trailing window ending at i. Earlier entries are nil.
func RollingFibLevels(klines []*domain.Kline, lookback int) []FibLevels {
	out := make([]FibLevels, len(klines))
	if lookback <= 0 {
		return out
	}
	for i := lookback - 1; i < len(klines); i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, k := range klines[i-lookback+1 : i+1] {
			hi = math.Max(hi, k.High)
			lo = math.Min(lo, k.Low)
		}
		out[i] = levelsFromRange(hi, lo)
	}
	return out
}

// RelativeDistance returns min over levels of |price-level|/price, or NaN when
// there are no levels.
func RelativeDistance(price float64, levels FibLevels) float64 {
	if len(levels) == 0 || price == 0 {
		return math.NaN()
	}
	d := math.Inf(1)
	for _, lvl := range levels {
		d = math.Min(d, math.Abs(price-lvl.Price)/price)
	}
	return d
}

// NearAny reports whether price is within proxPct percent of any level,
// distance measured relative to the level.
func NearAny(price float64, levels FibLevels, proxPct float64) bool {
	for _, lvl := range levels {
		if lvl.Price == 0 {
			continue
		}
		if math.Abs(price-lvl.Price)/lvl.Price*100 <= proxPct {
			return true
		}
	}
	return false
}

// Nearest returns the level closest to price and its distance in percent of the level.
func Nearest(price float64, levels FibLevels) (FibLevel, float64, bool) {
	var best FibLevel
	bestPct, found := math.Inf(1), false
	for _, lvl := range levels {
		if lvl.Price == 0 {
			continue
		}
		pct := math.Abs(price-lvl.Price) / lvl.Price * 100
		if pct < bestPct {
			best, bestPct, found = lvl, pct, true
		}
	}
	return best, bestPct, found
}

// LevelsChanged reports whether the level set differs from old: a name was
// added or removed, or any price moved by more than tol.
func LevelsChanged(old, next FibLevels, tol float64) bool {
	if old == nil {
		return true
	}
	if len(old) != len(next) {
		return true
	}
	for _, lvl := range next {
		prev, ok := old.Get(lvl.Name)
		if !ok || math.Abs(prev-lvl.Price) > tol {
			return true
		}
	}
	return false
}
