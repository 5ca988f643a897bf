// Package model provides the three classifiers compared by the pipeline:
// a scaled logistic regression, a random forest and gradient-boosted trees.
//
// Every constructor returns an independent, untrained estimator. Estimators
// are not safe for concurrent use; cross-validation builds one per fold from
// a Factory.
package model

import (
	"context"
	"fmt"

	"github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/validation"
	"gonum.org/v1/gonum/mat"
)

// DecisionThreshold is the probability at which Predict labels a sample positive.
const DecisionThreshold = 0.5

// Classifier is a binary probabilistic classifier.
type Classifier interface {
	// Name identifies the estimator family in logs and reports.
	Name() string
	// Fit trains on x (samples in rows) and labels y in {0, 1}.
	Fit(ctx context.Context, x mat.Matrix, y []int) error
	// PredictProba returns the positive-class probability of every row of x.
	PredictProba(x mat.Matrix) ([]float64, error)
}

// FeatureImporter is implemented by estimators that rank their inputs.
// Importances are non-negative and sum to 1 (all zero when no split was made).
type FeatureImporter interface {
	FeatureImportances() []float64
}

// Factory builds a fresh untrained estimator.
type Factory func() Classifier

// Predict thresholds PredictProba at DecisionThreshold.
func Predict(c Classifier, x mat.Matrix) ([]int, error) {
	proba, err := c.PredictProba(x)
	if err != nil {
		return nil, err
	}
	pred := make([]int, len(proba))
	for i, p := range proba {
		if p >= DecisionThreshold {
			pred[i] = 1
		}
	}
	return pred, nil
}

// ErrNotFitted is returned by PredictProba before a successful Fit.
var ErrNotFitted = errors.NewInvalidInputError("PredictProba", "estimator is not fitted")

func checkFit(op string, x mat.Matrix, y []int) (rows, cols int, err error) {
	rows, cols = x.Dims()
	if rows == 0 || cols == 0 {
		return 0, 0, errors.ErrEmptyDataFrame
	}
	if err := validation.NewCompoundValidator(
		validation.NewLengthValidator(rows, len(y), op, "labels"),
		validation.NewBinaryLabelValidator(y, true, op),
	).Validate(); err != nil {
		return 0, 0, err
	}
	return rows, cols, nil
}

func checkPredict(x mat.Matrix, want int) (rows int, err error) {
	rows, cols := x.Dims()
	if cols != want {
		return 0, errors.NewInvalidInputError("PredictProba",
			fmt.Sprintf("expected %d features, got %d", want, cols))
	}
	return rows, nil
}

// rowsOf copies x into row slices, which the tree learners index directly.
func rowsOf(x mat.Matrix) [][]float64 {
	r, c := x.Dims()
	out := make([][]float64, r)
	if d, ok := x.(mat.RawRowViewer); ok {
		for i := range out {
			out[i] = d.RawRowView(i)
		}
		return out
	}
	for i := range out {
		out[i] = make([]float64, c)
		for j := range out[i] {
			out[i][j] = x.At(i, j)
		}
	}
	return out
}

// normalize scales v in place to sum 1 unless it is all zero.
func normalize(v []float64) []float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total > 0 {
		for i := range v {
			v[i] /= total
		}
	}
	return v
}
