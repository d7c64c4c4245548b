// Package estimator implements the probability model: a standardized,
// class-balanced logistic regression calibrated with cross-validated Platt
// scaling, plus its evaluation metrics and a feature-keyed model cache.
package estimator

import (
	"fmt"

	"cryptoProbTrader/internal/ports"
)

type member struct {
	scaler *Scaler
	model  *LogisticRegression
	platt  PlattScaler
}

func (m member) predict(row []float64) float64 {
	return m.platt.Probability(m.model.Decision(m.scaler.Transform(row)))
}

// Calibrated is an ensemble of Folds calibrated classifiers. Each member is fit
// on all folds but one and calibrated on the held-out fold; predictions are the
// mean of the members' calibrated probabilities.
type Calibrated struct {
	Folds int
	C     float64

	width   int
	members []member
}

var _ ports.ProbabilityEstimator = (*Calibrated)(nil)

// NewCalibrated returns a 3-fold sigmoid-calibrated estimator with C=1.
func NewCalibrated() *Calibrated {
	return &Calibrated{Folds: 3, C: 1.0}
}

// Fit trains the ensemble. Every class needs at least Folds samples.
func (c *Calibrated) Fit(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return fmt.Errorf("estimator fit: %w: %d rows, %d labels", ports.ErrInvalidRequest, len(X), len(y))
	}
	width := len(X[0])
	for _, row := range X {
		if len(row) != width {
			return fmt.Errorf("estimator fit: %w", ports.ErrFeatureMismatch)
		}
	}

	folds, err := stratifiedFolds(y, c.Folds)
	if err != nil {
		return fmt.Errorf("estimator fit: %w", err)
	}

	members := make([]member, 0, len(folds))
	for _, test := range folds {
		trainX, trainY, testX, testY := splitByFold(X, y, test)

		scaler := FitScaler(trainX)
		lr := NewLogisticRegression()
		lr.C = c.C
		if err := lr.Fit(scaler.TransformAll(trainX), trainY); err != nil {
			return fmt.Errorf("estimator fit: %w", err)
		}

		scores := make([]float64, len(testX))
		for i, row := range testX {
			scores[i] = lr.Decision(scaler.Transform(row))
		}
		members = append(members, member{scaler: scaler, model: lr, platt: FitPlatt(scores, testY)})
	}

	c.width = width
	c.members = members
	return nil
}

// Predict returns the calibrated P(y=1) for each row.
func (c *Calibrated) Predict(X [][]float64) ([]float64, error) {
	if len(c.members) == 0 {
		return nil, ports.ErrEstimatorNotFitted
	}
	out := make([]float64, len(X))
	for i, row := range X {
		if len(row) != c.width {
			return nil, fmt.Errorf("estimator predict: %w: got %d, want %d", ports.ErrFeatureMismatch, len(row), c.width)
		}
		var sum float64
		for _, m := range c.members {
			sum += m.predict(row)
		}
		out[i] = sum / float64(len(c.members))
	}
	return out, nil
}

// Evaluate scores the estimator on a labeled set.
func (c *Calibrated) Evaluate(X [][]float64, y []int) (ports.Evaluation, error) {
	p, err := c.Predict(X)
	if err != nil {
		return ports.Evaluation{}, err
	}
	return Evaluate(p, y)
}

// stratifiedFolds partitions sample indices into k test folds, splitting each
// class into k contiguous chunks so every fold keeps the class balance.
func stratifiedFolds(y []int, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: need at least 2 folds, got %d", ports.ErrInvalidRequest, k)
	}
	byClass := map[int][]int{}
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}
	if len(byClass) < 2 {
		return nil, ports.ErrSingleClass
	}

	folds := make([][]int, k)
	for _, label := range []int{0, 1} {
		idx := byClass[label]
		if len(idx) < k {
			return nil, fmt.Errorf("%w: class %d has %d samples, need %d", ports.ErrInvalidRequest, label, len(idx), k)
		}
		for f := 0; f < k; f++ {
			lo, hi := f*len(idx)/k, (f+1)*len(idx)/k
			folds[f] = append(folds[f], idx[lo:hi]...)
		}
	}
	return folds, nil
}

func splitByFold(X [][]float64, y []int, test []int) (trainX [][]float64, trainY []int, testX [][]float64, testY []int) {
	inTest := make(map[int]bool, len(test))
	for _, i := range test {
		inTest[i] = true
	}
	for i := range X {
		if inTest[i] {
			testX = append(testX, X[i])
			testY = append(testY, y[i])
		} else {
			trainX = append(trainX, X[i])
			trainY = append(trainY, y[i])
		}
	}
	return trainX, trainY, testX, testY
}
