package model

import "github.com/paveg/returnlab/internal/config"

// LogRegFactory returns a Factory of logistic regressions.
func LogRegFactory(params config.LogRegParams) Factory {
	return func() Classifier { return NewLogReg(params) }
}

// ForestFactory returns a Factory of random forests sharing one seed, so every
// fold grows the same sequence of bootstrap samples.
func ForestFactory(params config.ForestParams, seed int64) Factory {
	return func() Classifier { return NewRandomForest(params, seed) }
}

// BoostFactory validates the parameters once and returns a Factory of
// boosted-tree models built from them.
func BoostFactory(base config.BoostParams, opts ...BoostOption) (Factory, error) {
	if _, err := NewBoost(base, opts...); err != nil {
		return nil, err
	}
	return func() Classifier { return MustBoost(base, opts...) }, nil
}
