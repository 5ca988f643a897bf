// Package viz renders the model comparison and exploratory plots as PNG files.
package viz

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
)

// Default canvas sizes
const (
	DefaultWidth  = 6 * vg.Inch
	DefaultHeight = 4 * vg.Inch
)

// Prediction is one model's hold-out output.
type Prediction struct {
	Name  string
	Proba []float64
	Pred  []int
}

// Column is a named numeric series for the exploratory plots.
type Column struct {
	Name   string
	Values []float64
}

func save(p *plot.Plot, w, h vg.Length, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot directory: %w", err)
	}
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// renderAll runs every job concurrently, bounded by the CPU count, and
// returns the first error.
func renderAll(jobs []func() error) error {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())
	for _, job := range jobs {
		g.Go(job)
	}
	return g.Wait()
}

// fileSafe replaces path separators and spaces in a plot name.
func fileSafe(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(name)
}
