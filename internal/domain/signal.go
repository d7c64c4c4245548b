package domain

// Signal is the per-bar decision attached to a bar.
type Signal string

const (
	SignalNone Signal = ""
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
)

// String returns a printable form; SignalNone renders as "NONE".
func (s Signal) String() string {
	if s == SignalNone {
		return "NONE"
	}
	return string(s)
}

// SignalKind names one of the three parallel signal series produced per run.
type SignalKind string

const (
	KindRule        SignalKind = "rule"
	KindProbability SignalKind = "prob"
	KindHybrid      SignalKind = "hybrid"
)

// SignalKinds lists the series in display order.
var SignalKinds = []SignalKind{KindRule, KindProbability, KindHybrid}
