package ports

// Evaluation holds the quality metrics of a probability model on a labeled set.
type Evaluation struct {
	AUC     float64
	Brier   float64
	LogLoss float64
}

// ProbabilityEstimator produces a calibrated P(next-bar return > 0) per feature row.
type ProbabilityEstimator interface {
	// Fit trains the estimator on feature rows X and binary labels y.
	Fit(X [][]float64, y []int) error
	// Predict returns one probability per row.
	Predict(X [][]float64) ([]float64, error)
	// Evaluate scores the estimator on a labeled set.
	Evaluate(X [][]float64, y []int) (Evaluation, error)
}
