// Package train fits classifiers on hold-out splits and scores them with
// stratified cross-validation.
package train

import (
	"context"
	"fmt"

	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/metrics"
	"github.com/paveg/returnlab/internal/model"
)

// Result is the outcome of one fit on a train split scored on a test split.
type Result struct {
	Name      string            `json:"name"`
	Model     model.Classifier  `json:"-"`
	Pred      []int             `json:"-"`
	Proba     []float64         `json:"-"`
	Confusion metrics.Confusion `json:"confusion_matrix"`
	metrics.Scores
}

// TrainAndEvaluate fits clf once on train and scores it on test.
func TrainAndEvaluate(ctx context.Context, name string, clf model.Classifier, train, test *dataset.Dataset) (*Result, error) {
	if err := clf.Fit(ctx, train.X, train.Y); err != nil {
		return nil, fmt.Errorf("fit %s: %w", name, err)
	}

	proba, err := clf.PredictProba(test.X)
	if err != nil {
		return nil, fmt.Errorf("predict %s: %w", name, err)
	}
	pred := metrics.Threshold(proba, model.DecisionThreshold)

	return &Result{
		Name:      name,
		Model:     clf,
		Pred:      pred,
		Proba:     proba,
		Confusion: metrics.ConfusionMatrix(test.Y, pred),
		Scores:    metrics.Score(test.Y, pred, proba),
	}, nil
}

// Undersample balances ds 1:1 by keeping every positive and a seeded sample
// of as many negatives. Only training data should be balanced.
func Undersample(ds *dataset.Dataset, seed int64) (*dataset.Dataset, error) {
	idx, err := dataset.Undersample(ds.Y, seed)
	if err != nil {
		return nil, err
	}
	return ds.Subset(idx), nil
}
