// Package signals combines rule-based and probability-based signals into the
// three series compared by the backtest.
package signals

import (
	"fmt"
	"math"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/ports"
)

// FromProbability thresholds p: above threshold is BUY, below 1-threshold is
// SELL, anything else (including a missing value) is NONE.
func FromProbability(p, threshold float64) domain.Signal {
	if math.IsNaN(p) {
		return domain.SignalNone
	}
	switch {
	case p > threshold:
		return domain.SignalBuy
	case p < 1-threshold:
		return domain.SignalSell
	default:
		return domain.SignalNone
	}
}

// Hybrid is BUY or SELL only when both inputs agree on that direction.
func Hybrid(rule, prob domain.Signal) domain.Signal {
	rule, prob = normalize(rule), normalize(prob)
	if rule == prob {
		return rule
	}
	return domain.SignalNone
}

func normalize(s domain.Signal) domain.Signal {
	switch s {
	case domain.SignalBuy, domain.SignalSell:
		return s
	default:
		return domain.SignalNone
	}
}

// Set holds the three parallel signal series of one run, all aligned with the bars.
type Set struct {
	Rule        []domain.Signal
	Probability []domain.Signal
	Hybrid      []domain.Signal
}

// Fuse builds the rule, probability and hybrid series. probs holds one value
// per bar, NaN where no prediction exists.
func Fuse(rule []domain.Signal, probs []float64, threshold float64) (*Set, error) {
	if len(rule) != len(probs) {
		return nil, fmt.Errorf("fuse: %w: %d rule signals, %d probabilities", ports.ErrSeriesLength, len(rule), len(probs))
	}
	if threshold <= 0.5 || threshold >= 1 {
		return nil, fmt.Errorf("fuse: %w: %v", ports.ErrInvalidThreshold, threshold)
	}

	set := &Set{
		Rule:        make([]domain.Signal, len(rule)),
		Probability: make([]domain.Signal, len(rule)),
		Hybrid:      make([]domain.Signal, len(rule)),
	}
	for i := range rule {
		set.Rule[i] = normalize(rule[i])
		set.Probability[i] = FromProbability(probs[i], threshold)
		set.Hybrid[i] = Hybrid(set.Rule[i], set.Probability[i])
	}
	return set, nil
}

// Series returns the series for kind, or nil for an unknown kind.
func (s *Set) Series(kind domain.SignalKind) []domain.Signal {
	switch kind {
	case domain.KindRule:
		return s.Rule
	case domain.KindProbability:
		return s.Probability
	case domain.KindHybrid:
		return s.Hybrid
	default:
		return nil
	}
}
