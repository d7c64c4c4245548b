package estimator

import (
	"slices"

	"cryptoProbTrader/internal/ports"
)

// ModelCache holds a fitted estimator together with the feature names it was
// trained on. The estimator is refit only when the name list changes.
type ModelCache struct {
	newEstimator func() ports.ProbabilityEstimator
	estimator    ports.ProbabilityEstimator
	names        []string
	fits         int
}

// NewModelCache creates an empty cache using factory to build fresh estimators.
func NewModelCache(factory func() ports.ProbabilityEstimator) *ModelCache {
	return &ModelCache{newEstimator: factory}
}

// Ensure returns an estimator fitted for names, fitting one on X/y when the
// cache is empty or the names differ from the cached list. The bool reports
// whether a fit happened. A failed fit leaves the cache untouched.
func (c *ModelCache) Ensure(names []string, X [][]float64, y []int) (ports.ProbabilityEstimator, bool, error) {
	if c.estimator != nil && slices.Equal(c.names, names) {
		return c.estimator, false, nil
	}

	est := c.newEstimator()
	if err := est.Fit(X, y); err != nil {
		return nil, false, err
	}
	c.estimator = est
	c.names = slices.Clone(names)
	c.fits++
	return est, true, nil
}

// Fits returns how many times the cache has fit an estimator.
func (c *ModelCache) Fits() int {
	return c.fits
}

// Reset drops the cached estimator.
func (c *ModelCache) Reset() {
	c.estimator = nil
	c.names = nil
}
