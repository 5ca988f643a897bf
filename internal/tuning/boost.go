package tuning

import (
	"context"
	"fmt"
	"runtime"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/logger"
	"github.com/paveg/returnlab/internal/model"
	"github.com/paveg/returnlab/internal/train"
	"gonum.org/v1/gonum/stat"
)

// BoostSpace is the boosted-tree search space.
func BoostSpace() Space {
	return Space{
		IntParam("n_estimators", 200, 800),
		IntParam("max_depth", 3, 10),
		LogFloatParam("learning_rate", 0.01, 0.2),
		FloatParam("subsample", 0.6, 1.0),
		FloatParam("colsample_bytree", 0.6, 1.0),
		IntParam("min_child_weight", 1, 10),
		FloatParam("gamma", 0.0, 5.0),
		FloatParam("reg_alpha", 0.0, 5.0),
		FloatParam("reg_lambda", 0.5, 5.0),
	}
}

// BoostOverrideFrom converts trial parameters into a boosted-tree override.
// Unknown names are ignored and absent ones stay nil.
func BoostOverrideFrom(params map[string]float64) config.BoostOverride {
	var o config.BoostOverride
	intOf := func(name string) *int {
		if v, ok := params[name]; ok {
			return config.Int(int(v))
		}
		return nil
	}
	floatOf := func(name string) *float64 {
		if v, ok := params[name]; ok {
			return config.Float(v)
		}
		return nil
	}
	o.NEstimators = intOf("n_estimators")
	o.MaxDepth = intOf("max_depth")
	o.LearningRate = floatOf("learning_rate")
	o.Subsample = floatOf("subsample")
	o.ColsampleByTree = floatOf("colsample_bytree")
	if v := intOf("min_child_weight"); v != nil {
		o.MinChildWeight = config.Float(float64(*v))
	}
	o.Gamma = floatOf("gamma")
	o.RegAlpha = floatOf("reg_alpha")
	o.RegLambda = floatOf("reg_lambda")
	return o
}

// TuneOptions configures TuneBoost.
type TuneOptions struct {
	Trials              int
	Folds               int
	Seed                int64
	Workers             int // 0 = runtime.NumCPU()
	PrunerStartupTrials int
	// Base supplies every parameter not searched over.
	Base config.BoostParams
}

// TuneResult is the outcome of TuneBoost.
type TuneResult struct {
	// Params are the best searched values merged with the fixed settings.
	Params    config.BoostParams `json:"params"`
	BestValue float64            `json:"best_value"`
	BestTrial int                `json:"best_trial"`
	Trials    []Trial            `json:"trials"`
}

// TuneBoost searches BoostSpace for the highest mean stratified k-fold
// ROC-AUC on ds. The positive-class weight is fixed to negatives/positives.
// Folds are evaluated in waves of opts.Workers; after each wave the running
// mean is reported step by step, so pruning decisions are the same for every
// worker count.
func TuneBoost(ctx context.Context, ds *dataset.Dataset, opts TuneOptions) (*TuneResult, error) {
	folds, err := dataset.StratifiedKFold(ds.Y, opts.Folds, opts.Seed)
	if err != nil {
		return nil, err
	}

	fixed := opts.Base
	fixed.Objective = config.DefaultObjective
	fixed.EvalMetric = config.DefaultEvalMetric
	fixed.TreeMethod = config.DefaultTreeMethod
	fixed.RandomState = opts.Seed
	fixed.ScalePosWeight = ds.ScalePosWeight()

	study, err := NewStudy(BoostSpace(), NewTPESampler(), NewMedianPruner(opts.PrunerStartupTrials), opts.Seed)
	if err != nil {
		return nil, err
	}

	wave := opts.Workers
	if wave <= 0 {
		wave = runtime.NumCPU()
	}

	objective := func(ctx context.Context, trial *Trial) (float64, error) {
		params := fixed.Override(BoostOverrideFrom(trial.Params))
		factory, err := model.BoostFactory(params)
		if err != nil {
			return 0, err
		}

		var aucs []float64
		for start := 0; start < len(folds); start += wave {
			end := min(start+wave, len(folds))
			scores, err := train.EvaluateFolds(ctx, factory, ds, folds[start:end], opts.Workers)
			if err != nil {
				return 0, err
			}
			for _, s := range scores {
				aucs = append(aucs, s.ROCAUC)
				if err := trial.Report(len(aucs)-1, stat.Mean(aucs, nil)); err != nil {
					return 0, err
				}
			}
		}
		return stat.Mean(aucs, nil), nil
	}

	if err := study.Optimize(ctx, opts.Trials, objective); err != nil {
		return nil, fmt.Errorf("tune boost: %w", err)
	}

	best, err := study.Best()
	if err != nil {
		return nil, fmt.Errorf("tune boost: %w", err)
	}

	result := &TuneResult{
		Params:    fixed.Override(BoostOverrideFrom(best.Params)),
		BestValue: best.Value,
		BestTrial: best.Number,
		Trials:    study.Trials,
	}

	log := logger.WithComponent("tuning")
	log.Info().
		Int("best_trial", best.Number).
		Float64("best_roc_auc", best.Value).
		Interface("params", result.Params).
		Msg("boost tuning finished")
	return result, nil
}
