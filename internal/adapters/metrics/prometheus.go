// Package metrics exposes live-loop observations as Prometheus series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"cryptoProbTrader/internal/ports"
)

// Recorder implements ports.Metrics using Prometheus.
type Recorder struct {
	cycles      *prometheus.CounterVec
	cycleErrors *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	refits      *prometheus.CounterVec
	lastPrice   *prometheus.GaugeVec
	probability *prometheus.GaugeVec
}

var _ ports.Metrics = (*Recorder)(nil)

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		cycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probtrader_cycles_total",
				Help: "Total number of live decision cycles started",
			},
			[]string{"symbol"},
		),
		cycleErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probtrader_cycle_errors_total",
				Help: "Total number of live cycles that failed, by stage",
			},
			[]string{"symbol", "stage"},
		),
		decisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probtrader_decisions_total",
				Help: "Total number of live cycle outcomes",
			},
			[]string{"symbol", "outcome"},
		),
		refits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "probtrader_model_refits_total",
				Help: "Total number of probability model refits",
			},
			[]string{"symbol"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "probtrader_last_price",
				Help: "Last streamed trade price for a symbol",
			},
			[]string{"symbol"},
		),
		probability: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "probtrader_up_probability",
				Help: "Latest estimated probability that the next bar closes higher",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) RecordCycle(symbol string) {
	r.cycles.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordCycleError(symbol, stage string) {
	r.cycleErrors.WithLabelValues(symbol, stage).Inc()
}

func (r *Recorder) RecordDecision(symbol, outcome string) {
	r.decisions.WithLabelValues(symbol, outcome).Inc()
}

func (r *Recorder) RecordModelRefit(symbol string) {
	r.refits.WithLabelValues(symbol).Inc()
}

// SetLatestPrice records the last streamed price for a symbol.
func (r *Recorder) SetLatestPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// SetProbability records the latest P(up) for a symbol.
func (r *Recorder) SetProbability(symbol string, p float64) {
	r.probability.WithLabelValues(symbol).Set(p)
}
