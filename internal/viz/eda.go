package viz

import (
	"fmt"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// TargetDistribution draws the count of each class of a binary target.
func TargetDistribution(path string, y []int, target string) error {
	var counts [2]float64
	for _, v := range y {
		if v == 0 || v == 1 {
			counts[v]++
		}
	}

	p := plot.New()
	p.Title.Text = "Target distribution: " + target
	p.Y.Label.Text = "count"

	bars, err := plotter.NewBarChart(plotter.Values(counts[:]), vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX("0", "1")
	return save(p, DefaultWidth, DefaultHeight, path)
}

// Histograms writes hist_<col>.png into dir for every column.
func Histograms(dir string, cols []Column, bins int) error {
	if bins <= 0 {
		bins = 30
	}
	jobs := make([]func() error, len(cols))
	for i, c := range cols {
		jobs[i] = func() error {
			return histogram(filepath.Join(dir, "hist_"+fileSafe(c.Name)+".png"), c, bins)
		}
	}
	return renderAll(jobs)
}

func histogram(path string, c Column, bins int) error {
	p := plot.New()
	p.Title.Text = "Histogram: " + c.Name
	p.X.Label.Text = c.Name
	p.Y.Label.Text = "count"

	if len(c.Values) > 0 {
		h, err := plotter.NewHist(plotter.Values(c.Values), bins)
		if err != nil {
			return fmt.Errorf("histogram %s: %w", c.Name, err)
		}
		h.FillColor = plotutil.Color(0)
		p.Add(h)
	}
	return save(p, DefaultWidth, DefaultHeight, path)
}

// BoxplotsByTarget writes box_<col>_by_<target>.png into dir, one box per
// class, with outlier points hidden.
func BoxplotsByTarget(dir string, cols []Column, y []int, target string) error {
	jobs := make([]func() error, len(cols))
	for i, c := range cols {
		if len(c.Values) != len(y) {
			return fmt.Errorf("boxplot %s: %d values for %d labels", c.Name, len(c.Values), len(y))
		}
		jobs[i] = func() error {
			name := "box_" + fileSafe(c.Name) + "_by_" + fileSafe(target) + ".png"
			return boxplot(filepath.Join(dir, name), c, y, target)
		}
	}
	return renderAll(jobs)
}

func boxplot(path string, c Column, y []int, target string) error {
	var groups [2]plotter.Values
	for i, v := range c.Values {
		if y[i] == 0 || y[i] == 1 {
			groups[y[i]] = append(groups[y[i]], v)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s by %s", c.Name, target)
	p.X.Label.Text = target
	p.Y.Label.Text = c.Name

	for class, vals := range groups {
		if len(vals) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(40), float64(class), vals)
		if err != nil {
			return fmt.Errorf("boxplot %s: %w", c.Name, err)
		}
		box.FillColor = plotutil.Color(class)
		box.GlyphStyle.Radius = 0
		p.Add(box)
	}
	p.NominalX("0", "1")
	return save(p, DefaultWidth, DefaultHeight, path)
}

// ScatterByTarget draws x against y with one colour per class.
func ScatterByTarget(path string, x, y Column, labels []int, target string) error {
	if len(x.Values) != len(y.Values) || len(x.Values) != len(labels) {
		return fmt.Errorf("scatter: mismatched lengths %d, %d, %d", len(x.Values), len(y.Values), len(labels))
	}

	var groups [2]plotter.XYs
	for i := range labels {
		if labels[i] == 0 || labels[i] == 1 {
			groups[labels[i]] = append(groups[labels[i]], plotter.XY{X: x.Values[i], Y: y.Values[i]})
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s vs %s", x.Name, y.Name)
	p.X.Label.Text = x.Name
	p.Y.Label.Text = y.Name

	for class, pts := range groups {
		if len(pts) == 0 {
			continue
		}
		s, err := plotter.NewScatter(pts)
		if err != nil {
			return err
		}
		s.GlyphStyle.Color = plotutil.Color(class)
		s.GlyphStyle.Radius = vg.Points(1.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(s)
		p.Legend.Add(fmt.Sprintf("%s=%d", target, class), s)
	}
	return save(p, DefaultWidth, DefaultHeight, path)
}

// corrGrid shows a square correlation matrix with row 0 at the top.
type corrGrid struct {
	m mat.Matrix
}

func (g corrGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g corrGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g corrGrid) X(c int) float64 { return float64(c) }

func (g corrGrid) Y(r int) float64 { return float64(r) }

// CorrelationHeatmap draws a correlation matrix with cell annotations.
// NaN cells are left blank.
func CorrelationHeatmap(path string, names []string, corr mat.Matrix) error {
	r, c := corr.Dims()
	if r != c || r != len(names) {
		return fmt.Errorf("correlation heatmap: %dx%d matrix for %d names", r, c, len(names))
	}
	if r == 0 {
		return fmt.Errorf("correlation heatmap: empty matrix")
	}

	grid := corrGrid{m: corr}
	pal := moreland.SmoothBlueRed()
	pal.SetMin(-1)
	pal.SetMax(1)

	p := plot.New()
	p.Title.Text = "Correlation heatmap"
	heat := plotter.NewHeatMap(grid, pal.Palette(64))
	heat.Min, heat.Max = -1, 1
	heat.NaN = plotutil.Color(6)
	p.Add(heat)

	var labels plotter.XYLabels
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := grid.Z(j, i)
			text := ""
			if !math.IsNaN(v) {
				text = fmt.Sprintf("%.2f", v)
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(j), Y: float64(i)})
			labels.Labels = append(labels.Labels, text)
		}
	}
	text, err := plotter.NewLabels(labels)
	if err != nil {
		return err
	}
	p.Add(text)

	reversed := make([]string, len(names))
	for i, n := range names {
		reversed[len(names)-1-i] = n
	}
	p.NominalX(names...)
	p.NominalY(reversed...)
	p.X.Tick.Label.Rotation = 0.8
	p.X.Tick.Label.XAlign = draw.XRight

	size := vg.Length(max(6, r)) * 0.6 * vg.Inch
	return save(p, size+2*vg.Inch, size+1*vg.Inch, path)
}
