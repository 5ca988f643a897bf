package model

import (
	"context"
	"math"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/dataset"
	"gonum.org/v1/gonum/mat"
)

// RandomForest is a bagged ensemble of Gini trees. Each split considers
// sqrt(features) candidates; probabilities are the mean leaf class fraction.
type RandomForest struct {
	params config.ForestParams
	seed   int64

	trees       []*decisionTree
	importances []float64
}

// NewRandomForest builds the tree-ensemble baseline.
func NewRandomForest(params config.ForestParams, seed int64) *RandomForest {
	return &RandomForest{params: params, seed: seed}
}

// Name implements Classifier.
func (m *RandomForest) Name() string { return "RandomForest" }

// Fit implements Classifier.
func (m *RandomForest) Fit(ctx context.Context, x mat.Matrix, y []int) error {
	n, p, err := checkFit("RandomForest.Fit", x, y)
	if err != nil {
		return err
	}
	rows := rowsOf(x)
	rng := dataset.NewRand(m.seed)
	mtry := max(1, int(math.Sqrt(float64(p))))
	minSplit := max(2, m.params.MinSamplesSplit)

	m.trees = make([]*decisionTree, 0, m.params.NTrees)
	m.importances = make([]float64, p)
	for t := 0; t < m.params.NTrees; t++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		treeRng := dataset.NewRand(rng.Int64())
		sample := make([]int, n)
		for i := range sample {
			sample[i] = treeRng.IntN(n)
		}

		b := &cartBuilder{
			rows:            rows,
			y:               y,
			maxDepth:        m.params.MaxDepth,
			minSamplesSplit: minSplit,
			maxFeatures:     mtry,
			rng:             treeRng,
		}
		m.trees = append(m.trees, b.fit(sample))
		for j, v := range normalize(b.importance) {
			m.importances[j] += v
		}
	}
	normalize(m.importances)
	return nil
}

// PredictProba implements Classifier.
func (m *RandomForest) PredictProba(x mat.Matrix) ([]float64, error) {
	if len(m.trees) == 0 {
		return nil, ErrNotFitted
	}
	if _, err := checkPredict(x, len(m.importances)); err != nil {
		return nil, err
	}
	rows := rowsOf(x)
	out := make([]float64, len(rows))
	for i, row := range rows {
		sum := 0.0
		for _, t := range m.trees {
			sum += t.predict(row)
		}
		out[i] = sum / float64(len(m.trees))
	}
	return out, nil
}

// FeatureImportances implements FeatureImporter as the mean decrease in
// Gini impurity.
func (m *RandomForest) FeatureImportances() []float64 {
	return append([]float64(nil), m.importances...)
}

// NumTrees reports the fitted ensemble size.
func (m *RandomForest) NumTrees() int {
	return len(m.trees)
}

// MaxTreeDepth reports the deepest fitted tree.
func (m *RandomForest) MaxTreeDepth() int {
	deepest := 0
	for _, t := range m.trees {
		deepest = max(deepest, t.depth())
	}
	return deepest
}
