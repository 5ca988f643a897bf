package viz_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/model"
	"github.com/paveg/returnlab/internal/viz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func requireFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, path)
	assert.Positive(t, info.Size(), path)
}

func predictions() ([]int, []viz.Prediction) {
	y := []int{0, 0, 1, 1, 0, 1, 0, 0}
	return y, []viz.Prediction{
		{Name: "LogisticRegression", Proba: []float64{0.1, 0.4, 0.35, 0.8, 0.2, 0.9, 0.3, 0.6}, Pred: []int{0, 0, 0, 1, 0, 1, 0, 1}},
		{Name: "XGBoost (tuned)", Proba: []float64{0.2, 0.1, 0.7, 0.9, 0.3, 0.6, 0.1, 0.2}, Pred: []int{0, 0, 1, 1, 0, 1, 0, 0}},
	}
}

func TestModelPlots(t *testing.T) {
	dir := t.TempDir()
	y, preds := predictions()

	require.NoError(t, viz.ROCCurves(filepath.Join(dir, "roc_holdout.png"), y, preds))
	require.NoError(t, viz.PRCurves(filepath.Join(dir, "pr_holdout.png"), y, preds))
	require.NoError(t, viz.ConfusionMatrices(dir, y, preds))

	requireFile(t, filepath.Join(dir, "roc_holdout.png"))
	requireFile(t, filepath.Join(dir, "pr_holdout.png"))
	requireFile(t, filepath.Join(dir, "cm_LogisticRegression.png"))
	requireFile(t, filepath.Join(dir, "cm_XGBoost_(tuned).png"))
}

func signal(t *testing.T) *dataset.Dataset {
	t.Helper()
	rng := dataset.NewRand(5)
	n := 60
	x := mat.NewDense(n, 2, nil)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		y[i] = i % 2
		x.Set(i, 0, float64(y[i])+0.3*rng.NormFloat64())
		x.Set(i, 1, rng.NormFloat64())
	}
	ds, err := dataset.New(x, y, []string{"signal", "noise"})
	require.NoError(t, err)
	return ds
}

func TestFeatureImportance(t *testing.T) {
	dir := t.TempDir()
	ds := signal(t)

	forest := model.NewRandomForest(config.ForestParams{NTrees: 10, MinSamplesSplit: 2}, 1)
	require.NoError(t, forest.Fit(context.Background(), ds.X, ds.Y))

	path := filepath.Join(dir, "models", "fi_rf.png")
	require.NoError(t, viz.FeatureImportance(path, forest, ds.FeatureNames, 20, ""))
	requireFile(t, path)

	assert.Error(t, viz.FeatureImportance(path, forest, []string{"only-one"}, 20, ""))

	logreg := model.NewLogReg(config.NewConfig().LogReg)
	skipped := filepath.Join(dir, "fi_logreg.png")
	require.NoError(t, viz.FeatureImportance(skipped, logreg, ds.FeatureNames, 20, ""))
	assert.NoFileExists(t, skipped)
}

func TestEDAPlots(t *testing.T) {
	dir := t.TempDir()
	labels := []int{0, 1, 0, 1, 0, 0, 1, 0}
	revenue := viz.Column{Name: "TotalRevenue_sum", Values: []float64{10, 80, 15, 90, 20, 12, 75, 18}}
	discount := viz.Column{Name: "DiscountRatio", Values: []float64{0, -0.2, 0, -0.3, -0.05, 0, -0.25, 0}}
	constant := viz.Column{Name: "UniqueItems_n", Values: []float64{1, 1, 1, 1, 1, 1, 1, 1}}

	require.NoError(t, viz.TargetDistribution(filepath.Join(dir, "target_distribution.png"), labels, "Returned"))
	require.NoError(t, viz.Histograms(dir, []viz.Column{revenue, discount, constant}, 10))
	require.NoError(t, viz.BoxplotsByTarget(dir, []viz.Column{revenue, discount}, labels, "Returned"))
	require.NoError(t, viz.ScatterByTarget(filepath.Join(dir, "scatter_revenue_discount.png"), revenue, discount, labels, "Returned"))

	corr := mat.NewDense(2, 2, []float64{1, -0.9, -0.9, 1})
	require.NoError(t, viz.CorrelationHeatmap(filepath.Join(dir, "corr_heatmap.png"), []string{"a", "b"}, corr))

	for _, name := range []string{
		"target_distribution.png",
		"hist_TotalRevenue_sum.png",
		"hist_DiscountRatio.png",
		"hist_UniqueItems_n.png",
		"box_TotalRevenue_sum_by_Returned.png",
		"box_DiscountRatio_by_Returned.png",
		"scatter_revenue_discount.png",
		"corr_heatmap.png",
	} {
		requireFile(t, filepath.Join(dir, name))
	}
}

func TestEDAPlotErrors(t *testing.T) {
	dir := t.TempDir()
	short := viz.Column{Name: "x", Values: []float64{1, 2}}

	assert.Error(t, viz.BoxplotsByTarget(dir, []viz.Column{short}, []int{0, 1, 0}, "Returned"))
	assert.Error(t, viz.ScatterByTarget(filepath.Join(dir, "s.png"), short, short, []int{0}, "Returned"))
	assert.Error(t, viz.CorrelationHeatmap(filepath.Join(dir, "c.png"), []string{"a"}, mat.NewDense(2, 2, nil)))

	withNaN := mat.NewDense(2, 2, []float64{1, math.NaN(), math.NaN(), 1})
	assert.NoError(t, viz.CorrelationHeatmap(filepath.Join(dir, "nan.png"), []string{"a", "b"}, withNaN))
}
