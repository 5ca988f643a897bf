package tuning

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// DefaultPrunerStartupTrials is the number of completed trials required
// before MedianPruner prunes anything.
const DefaultPrunerStartupTrials = 10

// MedianPruner stops a trial whose latest intermediate value is below the
// median of the completed trials' values at the same step.
type MedianPruner struct {
	StartupTrials int
	// WarmupSteps are the first steps of every trial that are never pruned.
	WarmupSteps int
}

// NewMedianPruner returns a pruner that starts after startupTrials completions.
func NewMedianPruner(startupTrials int) *MedianPruner {
	return &MedianPruner{StartupTrials: startupTrials}
}

// Prune implements Pruner.
func (p *MedianPruner) Prune(trial *Trial, completed []Trial) bool {
	step := len(trial.Intermediate) - 1
	if step < p.WarmupSteps || len(completed) < p.StartupTrials {
		return false
	}

	var values []float64
	for _, t := range completed {
		if step < len(t.Intermediate) {
			values = append(values, t.Intermediate[step])
		}
	}
	if len(values) == 0 {
		return false
	}
	return trial.Intermediate[step] < median(values)
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return stat.Mean(sorted[n/2-1:n/2+1], nil)
}
