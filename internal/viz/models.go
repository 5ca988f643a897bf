package viz

import (
	"fmt"
	"image/color"
	"path/filepath"
	"sort"

	"github.com/paveg/returnlab/internal/metrics"
	"github.com/paveg/returnlab/internal/model"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

func curvePlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Add(plotter.NewGrid())
	p.Legend.Top = false
	return p
}

func addCurve(p *plot.Plot, i int, label string, c metrics.Curve) error {
	pts := make(plotter.XYs, len(c.X))
	for k := range c.X {
		pts[k].X, pts[k].Y = c.X[k], c.Y[k]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.Color = plotutil.Color(i)
	line.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}

// ROCCurves draws one ROC curve per model against the chance diagonal.
func ROCCurves(path string, y []int, models []Prediction) error {
	p := curvePlot("ROC curve (hold-out)", "False positive rate", "True positive rate")
	p.Legend.Left = false

	chance, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err != nil {
		return err
	}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	chance.Color = color.Gray{Y: 128}
	p.Add(chance)

	for i, m := range models {
		label := fmt.Sprintf("%s (AUC = %.3f)", m.Name, metrics.ROCAUC(y, m.Proba))
		if err := addCurve(p, i, label, metrics.ROCCurve(y, m.Proba)); err != nil {
			return err
		}
	}
	return save(p, DefaultWidth, DefaultHeight, path)
}

// PRCurves draws one precision-recall curve per model.
func PRCurves(path string, y []int, models []Prediction) error {
	p := curvePlot("Precision-Recall curve (hold-out)", "Recall", "Precision")
	p.Legend.Left = true

	for i, m := range models {
		label := fmt.Sprintf("%s (AP = %.3f)", m.Name, metrics.AveragePrecision(y, m.Proba))
		if err := addCurve(p, i, label, metrics.PRCurve(y, m.Proba)); err != nil {
			return err
		}
	}
	return save(p, DefaultWidth, DefaultHeight, path)
}

// confusionGrid adapts a confusion matrix to plotter.GridXYZ with the
// predicted class on X and the actual class on Y.
type confusionGrid metrics.Confusion

func (g confusionGrid) Dims() (c, r int) { return 2, 2 }

func (g confusionGrid) Z(c, r int) float64 { return float64(g[r][c]) }

func (g confusionGrid) X(c int) float64 { return float64(c) }

func (g confusionGrid) Y(r int) float64 { return float64(r) }

func maxZ(g plotter.GridXYZ) float64 {
	c, r := g.Dims()
	m := 0.0
	for i := 0; i < c; i++ {
		for j := 0; j < r; j++ {
			m = max(m, g.Z(i, j))
		}
	}
	return m
}

// ConfusionMatrices writes cm_<name>.png into dir for every model.
func ConfusionMatrices(dir string, y []int, models []Prediction) error {
	jobs := make([]func() error, len(models))
	for i, m := range models {
		jobs[i] = func() error {
			return confusionMatrix(filepath.Join(dir, "cm_"+fileSafe(m.Name)+".png"), m.Name,
				metrics.ConfusionMatrix(y, m.Pred))
		}
	}
	return renderAll(jobs)
}

func confusionMatrix(path, name string, cm metrics.Confusion) error {
	grid := confusionGrid(cm)
	pal := moreland.SmoothBlueRed()
	pal.SetMin(0)
	pal.SetMax(max(maxZ(grid), 1))

	p := plot.New()
	p.Title.Text = "Confusion matrix (hold-out) - " + name
	p.X.Label.Text = "Predicted label"
	p.Y.Label.Text = "True label"
	p.Add(plotter.NewHeatMap(grid, pal.Palette(64)))

	var labels plotter.XYLabels
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%d", cm[r][c]))
		}
	}
	text, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	p.Add(text)
	p.NominalX("0", "1")
	p.NominalY("0", "1")
	return save(p, 5*vg.Inch, 4*vg.Inch, path)
}

// FeatureImportance draws the topN importances as horizontal bars, largest
// on top. Estimators without importances are skipped without error.
func FeatureImportance(path string, clf model.Classifier, names []string, topN int, title string) error {
	fi, ok := clf.(model.FeatureImporter)
	if !ok {
		return nil
	}
	imp := fi.FeatureImportances()
	if len(imp) != len(names) {
		return fmt.Errorf("feature importance: %d values for %d names", len(imp), len(names))
	}

	order := make([]int, len(imp))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return imp[order[a]] > imp[order[b]] })
	if topN > 0 && topN < len(order) {
		order = order[:topN]
	}

	values := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for k, idx := range order {
		// bars are drawn bottom-up, so reverse to put the largest on top
		values[len(order)-1-k] = imp[idx]
		labels[len(order)-1-k] = names[idx]
	}

	if title == "" {
		title = "Feature importance (top)"
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "feature importance"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)
	return save(p, 8*vg.Inch, 5*vg.Inch, path)
}
