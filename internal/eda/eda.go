// Package eda summarises the transaction-level table: descriptive statistics,
// correlation with the target, and the exploratory plots.
package eda

import (
	"context"
	"math"
	"path/filepath"
	"sort"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/features"
	"github.com/paveg/returnlab/internal/io"
	"github.com/paveg/returnlab/internal/logger"
	"github.com/paveg/returnlab/internal/series"
	"github.com/paveg/returnlab/internal/viz"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// PlotColumns are the features drawn as histograms and per-class boxplots.
var PlotColumns = []string{
	features.ColTotalRevenueSum,
	features.ColDiscountRatio,
	features.ColUnitPrice,
	features.ColUniqueItems,
	features.ColItemsPurchasedSum,
}

// Output file names under the EDA directory.
const (
	DescriptiveStatsFile = "descriptive_stats.csv"
	CorrToTargetFile     = "corr_to_target.csv"
	TargetDistFile       = "target_distribution.png"
	ScatterFile          = "scatter_revenue_discount.png"
	CorrHeatmapFile      = "corr_heatmap.png"
)

// Description is one row of DescribeNumeric. NaN values are skipped.
type Description struct {
	Column string
	Count  int
	Mean   float64
	Std    float64 // sample standard deviation
	Min    float64
	Q25    float64
	Q50    float64
	Q75    float64
	Max    float64
}

// DescribeNumeric summarises every numeric column of df in column order.
func DescribeNumeric(df *dataframe.DataFrame) ([]Description, error) {
	var out []Description
	for _, name := range df.NumericColumns() {
		values, err := df.Float64Values(name)
		if err != nil {
			return nil, err
		}
		out = append(out, describe(name, values))
	}
	return out, nil
}

func describe(name string, values []float64) Description {
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			clean = append(clean, v)
		}
	}
	sort.Float64s(clean)

	d := Description{Column: name, Count: len(clean)}
	nan := math.NaN()
	if len(clean) == 0 {
		d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max = nan, nan, nan, nan, nan, nan, nan
		return d
	}

	d.Mean = stat.Mean(clean, nil)
	d.Std = nan
	if len(clean) > 1 {
		d.Std = stat.StdDev(clean, nil)
	}
	d.Min = clean[0]
	d.Max = clean[len(clean)-1]
	d.Q25 = quantile(clean, 0.25)
	d.Q50 = quantile(clean, 0.50)
	d.Q75 = quantile(clean, 0.75)
	return d
}

// quantile linearly interpolates between the closest ranks of sorted values
// (Hyndman-Fan type 7).
func quantile(sorted []float64, p float64) float64 {
	h := p * float64(len(sorted)-1)
	lo := int(math.Floor(h))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}

// DescriptionFrame renders descriptions one row per column, like
// describe().T.
func DescriptionFrame(desc []Description, mem memory.Allocator) *dataframe.DataFrame {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	names := make([]string, len(desc))
	counts := make([]float64, len(desc))
	stats := make([][]float64, 7)
	for j := range stats {
		stats[j] = make([]float64, len(desc))
	}
	for i, d := range desc {
		names[i] = d.Column
		counts[i] = float64(d.Count)
		for j, v := range []float64{d.Mean, d.Std, d.Min, d.Q25, d.Q50, d.Q75, d.Max} {
			stats[j][i] = v
		}
	}

	cols := []dataframe.ISeries{series.New("column", names, mem), series.New("count", counts, mem)}
	for j, label := range []string{"mean", "std", "min", "25%", "50%", "75%", "max"} {
		cols = append(cols, series.New(label, stats[j], mem))
	}
	return dataframe.New(cols...)
}

// Correlation is the Pearson correlation of one column with the target.
type Correlation struct {
	Column string
	R      float64
}

// CorrelationWithTarget correlates every numeric column of df with target,
// sorted by |r| descending with NaN last. Constant columns get NaN.
func CorrelationWithTarget(df *dataframe.DataFrame, target string) ([]Correlation, error) {
	if !df.IsNumeric(target) {
		return nil, errors.NewColumnNotFoundError("CorrelationWithTarget", target)
	}
	y, err := df.Float64Values(target)
	if err != nil {
		return nil, err
	}

	var out []Correlation
	for _, name := range df.NumericColumns() {
		if name == target {
			continue
		}
		x, err := df.Float64Values(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Correlation{Column: name, R: pearson(x, y)})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].R, out[j].R
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		if math.IsNaN(a) {
			return false
		}
		return math.Abs(a) > math.Abs(b)
	})
	return out, nil
}

// pearson is the correlation over rows where both values are present.
func pearson(x, y []float64) float64 {
	var xs, ys []float64
	for i := range x {
		if !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			xs = append(xs, x[i])
			ys = append(ys, y[i])
		}
	}
	if len(xs) < 2 || stat.StdDev(xs, nil) == 0 || stat.StdDev(ys, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(xs, ys, nil)
}

// CorrelationFrame renders correlations as a column/r table.
func CorrelationFrame(corr []Correlation, target string, mem memory.Allocator) *dataframe.DataFrame {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	names := make([]string, len(corr))
	rs := make([]float64, len(corr))
	for i, c := range corr {
		names[i], rs[i] = c.Column, c.R
	}
	return dataframe.New(series.New("column", names, mem), series.New(target, rs, mem))
}

// CorrelationMatrix returns the pairwise Pearson correlations of cols.
func CorrelationMatrix(df *dataframe.DataFrame, cols []string) (*mat.SymDense, error) {
	values := make([][]float64, len(cols))
	for i, name := range cols {
		v, err := df.Float64Values(name)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	if len(cols) == 0 {
		return nil, errors.NewInvalidInputError("CorrelationMatrix", "no columns")
	}
	corr := mat.NewSymDense(len(cols), nil)
	for i := range cols {
		for j := i; j < len(cols); j++ {
			r := pearson(values[i], values[j])
			if i == j && !math.IsNaN(r) {
				r = 1
			}
			corr.SetSym(i, j, r)
		}
	}
	return corr, nil
}

// Run writes the descriptive statistics, the target correlations and the
// exploratory plots for table into outDir.
func Run(ctx context.Context, table *features.Table, outDir string) error {
	log := logger.WithComponent("eda")
	if table.Len() == 0 {
		return errors.ErrEmptyDataFrame
	}

	mem := memory.NewGoAllocator()
	df := table.ToDataFrame(mem)
	defer df.Release()

	pos, neg := table.ClassCounts()
	total := float64(table.Len())
	log.Info().
		Int("rows", df.Len()).
		Int("cols", df.Width()).
		Int("returned", pos).
		Int("kept", neg).
		Float64("returned_pct", math.Round(float64(pos)/total*10000)/100).
		Msg("transaction table")

	desc, err := DescribeNumeric(df)
	if err != nil {
		return err
	}
	descFrame := DescriptionFrame(desc, mem)
	defer descFrame.Release()
	if err := io.WriteCSVFile(filepath.Join(outDir, DescriptiveStatsFile), descFrame); err != nil {
		return err
	}

	corr, err := CorrelationWithTarget(df, features.ColReturned)
	if err != nil {
		return err
	}
	corrFrame := CorrelationFrame(corr, features.ColReturned, mem)
	defer corrFrame.Release()
	if err := io.WriteCSVFile(filepath.Join(outDir, CorrToTargetFile), corrFrame); err != nil {
		return err
	}
	top := corr[:min(len(corr), 15)]
	for _, c := range top {
		log.Debug().Str("column", c.Column).Float64("r", c.R).Msg("correlation with target")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	_, labels := table.Matrix()
	columns := make(map[string]viz.Column, len(PlotColumns))
	var plotCols []viz.Column
	for _, name := range PlotColumns {
		values, err := df.Float64Values(name)
		if err != nil {
			return err
		}
		c := viz.Column{Name: name, Values: values}
		columns[name] = c
		plotCols = append(plotCols, c)
	}

	if err := viz.TargetDistribution(filepath.Join(outDir, TargetDistFile), labels, features.ColReturned); err != nil {
		return err
	}
	if err := viz.Histograms(outDir, plotCols, 30); err != nil {
		return err
	}
	if err := viz.BoxplotsByTarget(outDir, plotCols, labels, features.ColReturned); err != nil {
		return err
	}
	if err := viz.ScatterByTarget(filepath.Join(outDir, ScatterFile),
		columns[features.ColTotalRevenueSum], columns[features.ColDiscountRatio], labels, features.ColReturned); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	numeric := df.NumericColumns()
	matrix, err := CorrelationMatrix(df, numeric)
	if err != nil {
		return err
	}
	if err := viz.CorrelationHeatmap(filepath.Join(outDir, CorrHeatmapFile), numeric, matrix); err != nil {
		return err
	}

	log.Info().Str("dir", outDir).Msg("eda finished")
	return nil
}
