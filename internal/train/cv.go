package train

import (
	"context"
	"fmt"

	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/logger"
	"github.com/paveg/returnlab/internal/metrics"
	"github.com/paveg/returnlab/internal/model"
	"github.com/paveg/returnlab/internal/parallel"
)

// CVOptions configures CrossValidate.
type CVOptions struct {
	Folds   int
	Seed    int64
	Workers int // 0 = runtime.NumCPU()
}

// CVSummary holds per-fold scores and their mean and population std.
type CVSummary struct {
	Model   string            `json:"model"`
	Folds   []metrics.Scores  `json:"folds"`
	Metrics []metrics.Summary `json:"metrics"`
}

// Metric returns the summary for name.
func (s *CVSummary) Metric(name string) (metrics.Summary, bool) {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return metrics.Summary{}, false
}

// CrossValidate scores a fresh estimator from factory on every stratified
// fold of ds. Folds run on a worker pool and are gathered by index, so the
// summary does not depend on opts.Workers.
func CrossValidate(ctx context.Context, name string, factory model.Factory, ds *dataset.Dataset, opts CVOptions) (*CVSummary, error) {
	folds, err := dataset.StratifiedKFold(ds.Y, opts.Folds, opts.Seed)
	if err != nil {
		return nil, err
	}

	log := logger.WithComponent("cv")
	log.Debug().Str("model", name).Int("folds", len(folds)).Msg("cross-validating")

	scores, err := EvaluateFolds(ctx, factory, ds, folds, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("cross-validate %s: %w", name, err)
	}

	summary := &CVSummary{Model: name, Folds: scores, Metrics: metrics.Summarize(scores)}
	event := log.Info().Str("model", name)
	for _, m := range summary.Metrics {
		event = event.Float64(m.Name+"_mean", m.Mean).Float64(m.Name+"_std", m.Std)
	}
	event.Msg("cross-validation finished")
	return summary, nil
}

// EvaluateFolds fits and scores one estimator per fold in parallel.
func EvaluateFolds(ctx context.Context, factory model.Factory, ds *dataset.Dataset, folds []dataset.Fold, workers int) ([]metrics.Scores, error) {
	pool := parallel.NewWorkerPool(ctx, workers)
	defer pool.Close()

	return parallel.TryProcessIndexed(pool, folds, func(ctx context.Context, i int, f dataset.Fold) (metrics.Scores, error) {
		res, err := TrainAndEvaluate(ctx, fmt.Sprintf("fold %d", i), factory(), ds.Subset(f.Train), ds.Subset(f.Test))
		if err != nil {
			return metrics.Scores{}, err
		}
		return res.Scores, nil
	})
}
