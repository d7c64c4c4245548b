package estimator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"

	"cryptoProbTrader/internal/ports"
)

const probClip = 1e-15

// Evaluate computes AUC, Brier score and log loss of probabilities p against
// labels y. AUC is NaN when y holds a single class.
func Evaluate(p []float64, y []int) (ports.Evaluation, error) {
	if len(p) == 0 || len(p) != len(y) {
		return ports.Evaluation{}, fmt.Errorf("evaluate: %w: %d probabilities, %d labels", ports.ErrInvalidRequest, len(p), len(y))
	}
	return ports.Evaluation{
		AUC:     AUC(p, y),
		Brier:   Brier(p, y),
		LogLoss: LogLoss(p, y),
	}, nil
}

// AUC returns the area under the ROC curve.
func AUC(p []float64, y []int) float64 {
	scores := append([]float64(nil), p...)
	classes := make([]bool, len(y))
	var pos int
	for i, v := range y {
		classes[i] = v == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(y) {
		return math.NaN()
	}

	stat.SortWeightedLabeled(scores, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, scores, classes, nil)
	return integrate.Trapezoidal(fpr, tpr)
}

// Brier returns the mean squared error between probability and outcome.
func Brier(p []float64, y []int) float64 {
	var sum float64
	for i := range p {
		d := p[i] - float64(y[i])
		sum += d * d
	}
	return sum / float64(len(p))
}

// LogLoss returns the mean negative log-likelihood, with p clipped away from 0 and 1.
func LogLoss(p []float64, y []int) float64 {
	var sum float64
	for i := range p {
		q := math.Min(math.Max(p[i], probClip), 1-probClip)
		if y[i] == 1 {
			sum -= math.Log(q)
		} else {
			sum -= math.Log(1 - q)
		}
	}
	return sum / float64(len(p))
}
