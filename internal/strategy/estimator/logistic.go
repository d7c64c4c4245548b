package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"cryptoProbTrader/internal/ports"
)

// LogisticRegression is an L2-regularized binary logistic model with
// class-balanced sample weights, fitted by Newton's method. The intercept is
// not penalized.
type LogisticRegression struct {
	C       float64 // Inverse regularization strength
	MaxIter int
	Tol     float64

	Coef      []float64
	Intercept float64
}

// NewLogisticRegression returns a model with C=1.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIter: 100, Tol: 1e-8}
}

// balancedWeights returns n/(2*n_c) for each sample's class.
func balancedWeights(y []int) ([]float64, error) {
	var pos int
	for _, v := range y {
		if v == 1 {
			pos++
		}
	}
	neg := len(y) - pos
	if pos == 0 || neg == 0 {
		return nil, ports.ErrSingleClass
	}
	n := float64(len(y))
	wPos, wNeg := n/(2*float64(pos)), n/(2*float64(neg))
	out := make([]float64, len(y))
	for i, v := range y {
		if v == 1 {
			out[i] = wPos
		} else {
			out[i] = wNeg
		}
	}
	return out, nil
}

// Fit trains the model on standardized rows X and labels y.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("logistic fit: %d rows, %d labels", len(X), len(y))
	}
	sw, err := balancedWeights(y)
	if err != nil {
		return err
	}

	width := len(X[0])
	dim := width + 1 // last parameter is the intercept
	theta := make([]float64, dim)

	prev := m.objective(X, y, sw, theta)
	for iter := 0; iter < m.MaxIter; iter++ {
		grad := make([]float64, dim)
		hess := mat.NewSymDense(dim, nil)

		copy(grad[:width], theta[:width])
		for j := 0; j < width; j++ {
			hess.SetSym(j, j, 1)
		}
		for i, row := range X {
			p := sigmoid(floats.Dot(theta[:width], row) + theta[width])
			r := m.C * sw[i] * (p - float64(y[i]))
			d := m.C * sw[i] * p * (1 - p)
			for a := 0; a < dim; a++ {
				xa := feature(row, a)
				grad[a] += r * xa
				for b := a; b < dim; b++ {
					hess.SetSym(a, b, hess.At(a, b)+d*xa*feature(row, b))
				}
			}
		}
		// Keep the system solvable when a column is degenerate.
		hess.SetSym(width, width, hess.At(width, width)+1e-10)

		var step mat.VecDense
		if err := step.SolveVec(hess, mat.NewVecDense(dim, grad)); err != nil {
			return fmt.Errorf("logistic fit: newton step: %w", err)
		}

		// Step halving keeps the objective decreasing.
		scale := 1.0
		next := make([]float64, dim)
		var obj float64
		for k := 0; k < 30; k++ {
			for a := range next {
				next[a] = theta[a] - scale*step.AtVec(a)
			}
			obj = m.objective(X, y, sw, next)
			if obj <= prev {
				break
			}
			scale /= 2
		}

		maxStep := 0.0
		for a := range next {
			maxStep = math.Max(maxStep, math.Abs(next[a]-theta[a]))
		}
		copy(theta, next)
		prev = obj
		if maxStep < m.Tol {
			break
		}
	}

	m.Coef = append([]float64(nil), theta[:width]...)
	m.Intercept = theta[width]
	return nil
}

func feature(row []float64, a int) float64 {
	if a == len(row) {
		return 1
	}
	return row[a]
}

func (m *LogisticRegression) objective(X [][]float64, y []int, sw, theta []float64) float64 {
	width := len(theta) - 1
	obj := 0.5 * floats.Dot(theta[:width], theta[:width])
	for i, row := range X {
		z := floats.Dot(theta[:width], row) + theta[width]
		// log(1+exp(z)) - y*z, computed stably
		obj += m.C * sw[i] * (softplus(z) - float64(y[i])*z)
	}
	return obj
}

// Decision returns the linear score w.x + b for a standardized row.
func (m *LogisticRegression) Decision(row []float64) float64 {
	return floats.Dot(m.Coef, row) + m.Intercept
}

// Probability returns the uncalibrated P(y=1) for a standardized row.
func (m *LogisticRegression) Probability(row []float64) float64 {
	return sigmoid(m.Decision(row))
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
