package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/metrics"
	"github.com/paveg/returnlab/internal/train"
	"github.com/paveg/returnlab/internal/viz"
)

// Hold-out plots and their model labels.
const (
	ROCFile          = "roc_holdout.png"
	PRFile           = "pr_holdout.png"
	ForestFIFile     = "fi_rf.png"
	TunedBoostFIFile = "fi_xgb_tuned.png"

	featureImportanceTopN = 20
)

func newTable(w io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func meanStd(s *train.CVSummary, name string) string {
	m, ok := s.Metric(name)
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.4f ± %.4f", m.Mean, m.Std)
}

func renderCVTable(w io.Writer, title string, summaries []*train.CVSummary) {
	t := newTable(w, title)
	header := table.Row{"Model"}
	for _, name := range metrics.Names {
		header = append(header, name)
	}
	t.AppendHeader(header)
	for _, s := range summaries {
		row := table.Row{s.Model}
		for _, name := range metrics.Names {
			row = append(row, meanStd(s, name))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func confusionString(c metrics.Confusion) string {
	return fmt.Sprintf("[[%d %d] [%d %d]]", c.TN(), c.FP(), c.FN(), c.TP())
}

func renderHoldOutTable(w io.Writer, title string, results []*train.Result) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Model", "roc_auc", "accuracy", "f1", "precision", "recall", "confusion"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Name,
			fmt.Sprintf("%.4f", r.ROCAUC),
			fmt.Sprintf("%.4f", r.Accuracy),
			fmt.Sprintf("%.4f", r.F1),
			fmt.Sprintf("%.4f", r.Precision),
			fmt.Sprintf("%.4f", r.Recall),
			confusionString(r.Confusion),
		})
	}
	t.Render()
}

func renderCVComparison(w io.Writer, title string, before, after *train.CVSummary) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Metric", "Before (mean ± std)", "After (mean ± std)"})
	for _, name := range metrics.Names {
		t.AppendRow(table.Row{name, meanStd(before, name), meanStd(after, name)})
	}
	t.Render()
}

func renderHoldOutComparison(w io.Writer, title string, before, after *train.Result) {
	t := newTable(w, title)
	t.AppendHeader(table.Row{"Metric", "Before", "After"})
	for _, name := range []string{metrics.NameROCAUC, metrics.NameAccuracy, metrics.NameF1, metrics.NamePrecision, metrics.NameRecall} {
		t.AppendRow(table.Row{name, fmt.Sprintf("%.4f", before.Get(name)), fmt.Sprintf("%.4f", after.Get(name))})
	}
	t.AppendRow(table.Row{"confusion", confusionString(before.Confusion), confusionString(after.Confusion)})
	t.Render()
}

// renderModelPlots draws the hold-out plots of the full-train models and the
// tuned model into dir and returns the written paths.
func renderModelPlots(dir string, test *dataset.Dataset, featureNames []string, s *Summary) ([]string, error) {
	labels := []string{"LogReg_full", "RF_full", "XGB_full"}
	var preds []viz.Prediction
	for i, r := range s.HoldOutFull {
		preds = append(preds, viz.Prediction{Name: labels[i], Proba: r.Proba, Pred: r.Pred})
	}
	preds = append(preds, viz.Prediction{Name: "XGB_tuned_full", Proba: s.TunedHoldOut.Proba, Pred: s.TunedHoldOut.Pred})

	paths := []string{filepath.Join(dir, ROCFile), filepath.Join(dir, PRFile)}
	if err := viz.ROCCurves(paths[0], test.Y, preds); err != nil {
		return nil, err
	}
	if err := viz.PRCurves(paths[1], test.Y, preds); err != nil {
		return nil, err
	}
	if err := viz.ConfusionMatrices(dir, test.Y, preds); err != nil {
		return nil, err
	}
	for _, p := range preds {
		paths = append(paths, filepath.Join(dir, "cm_"+p.Name+".png"))
	}

	forestFI := filepath.Join(dir, ForestFIFile)
	if err := viz.FeatureImportance(forestFI, s.HoldOutFull[1].Model, featureNames, featureImportanceTopN,
		"RandomForest feature importance (hold-out, full train)"); err != nil {
		return nil, err
	}
	tunedFI := filepath.Join(dir, TunedBoostFIFile)
	if err := viz.FeatureImportance(tunedFI, s.TunedHoldOut.Model, featureNames, featureImportanceTopN,
		"XGBoost tuned feature importance (hold-out, full train)"); err != nil {
		return nil, err
	}
	return append(paths, forestFI, tunedFI), nil
}

// writeJSON writes v as indented JSON, creating parent directories.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil { //nolint:gosec // artifacts are meant to be world-readable
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
