package ports

// Metrics records live-loop observations.
type Metrics interface {
	RecordCycle(symbol string)
	RecordCycleError(symbol, stage string)
	RecordDecision(symbol, outcome string)
	RecordModelRefit(symbol string)
	SetLatestPrice(symbol string, price float64)
	SetProbability(symbol string, p float64)
}
