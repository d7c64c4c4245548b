// Package features turns klines into the labeled feature table consumed by the
// probability estimator.
package features

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"cryptoProbTrader/internal/domain"
	"cryptoProbTrader/internal/strategy/indicators"
)

// Names is the ordered list of feature columns. The estimator cache is keyed on it.
var Names = []string{
	"rsi",
	"ema_spread",
	"ema_cross_up",
	"ema_cross_down",
	"macd_edge",
	"fib_rel_dist",
	"near_fib",
	"vol_10",
	"atr_norm",
}

// Config controls feature construction.
type Config struct {
	Indicators  indicators.Params
	FibLookback int
	ProxPct     float64
	VolWindow   int
}

// DefaultConfig mirrors the configuration defaults.
func DefaultConfig() Config {
	return Config{
		Indicators:  indicators.DefaultParams(),
		FibLookback: 200,
		ProxPct:     0.25,
		VolWindow:   10,
	}
}

// Row is one bar's feature vector.
type Row struct {
	Index    int // Position of the bar in the input klines
	OpenTime time.Time
	Values   []float64
	Label    int // 1 when the next bar's log return is positive; only meaningful for training rows
}

// Table is the feature table of a kline sequence.
type Table struct {
	Names []string
	// Rows are the labeled rows: every feature present and a next bar exists.
	Rows []Row
	// Latest is the newest bar when its features are complete. It has no label
	// and is used only for inference.
	Latest *Row
}

// X returns the feature matrix of the labeled rows.
func (t *Table) X() [][]float64 {
	out := make([][]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Values
	}
	return out
}

// Y returns the labels of the labeled rows.
func (t *Table) Y() []int {
	out := make([]int, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Label
	}
	return out
}

// All returns the labeled rows followed by the inference row, if any.
func (t *Table) All() []Row {
	out := make([]Row, 0, len(t.Rows)+1)
	out = append(out, t.Rows...)
	if t.Latest != nil {
		out = append(out, *t.Latest)
	}
	return out
}

// XY returns the feature matrix and labels of rows.
func XY(rows []Row) ([][]float64, []int) {
	X := make([][]float64, len(rows))
	y := make([]int, len(rows))
	for i, r := range rows {
		X[i], y[i] = r.Values, r.Label
	}
	return X, y
}

// Build computes the feature table. Rows with any missing feature are dropped.
func Build(klines []*domain.Kline, cfg Config) *Table {
	frame := indicators.Compute(klines, cfg.Indicators)
	return BuildFromFrame(frame, cfg)
}

// BuildFromFrame computes the feature table from precomputed indicators.
func BuildFromFrame(frame *indicators.Frame, cfg Config) *Table {
	klines := frame.Klines
	n := len(klines)

	ret := LogReturns(klines)
	vol := RollingStd(ret, cfg.VolWindow)
	fibs := indicators.RollingFibLevels(klines, cfg.FibLookback)

	table := &Table{Names: append([]string(nil), Names...)}
	for i := 0; i < n; i++ {
		price := klines[i].Close
		relDist := indicators.RelativeDistance(price, fibs[i])

		values := []float64{
			frame.RSI[i],
			frame.EMAFast[i] - frame.EMASlow[i],
			boolFloat(frame.GoldenCross(i)),
			boolFloat(frame.DeathCross(i)),
			frame.MACD[i] - frame.MACDSignal[i],
			relDist,
			boolFloat(indicators.Valid(relDist) && relDist <= cfg.ProxPct/100),
			vol[i],
			frame.ATR[i] / price,
		}
		if !allValid(values) {
			continue
		}

		row := Row{Index: i, OpenTime: klines[i].OpenTime, Values: values}
		if i == n-1 {
			table.Latest = &row
			continue
		}
		if ret[i+1] > 0 {
			row.Label = 1
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// LogReturns returns ln(close[i]/close[i-1]); index 0 is NaN.
func LogReturns(klines []*domain.Kline) []float64 {
	out := make([]float64, len(klines))
	for i := range klines {
		if i == 0 || klines[i-1].Close <= 0 || klines[i].Close <= 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = math.Log(klines[i].Close) - math.Log(klines[i-1].Close)
	}
	return out
}

// RollingStd returns the sample standard deviation over a trailing window.
// Windows containing NaN yield NaN.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window < 2 {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		w := values[i-window+1 : i+1]
		if !allValid(w) {
			continue
		}
		out[i] = stat.StdDev(w, nil)
	}
	return out
}

// ProbabilitySeries spreads per-row probabilities back onto bar positions.
// Bars without a feature row get NaN.
func ProbabilitySeries(n int, rows []Row, probs []float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	for i, r := range rows {
		if i < len(probs) && r.Index >= 0 && r.Index < n {
			out[r.Index] = probs[i]
		}
	}
	return out
}

func allValid(values []float64) bool {
	for _, v := range values {
		if !indicators.Valid(v) {
			return false
		}
	}
	return true
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
