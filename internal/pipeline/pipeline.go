// Package pipeline runs the end-to-end return-prediction workflow and the
// exploratory report on top of the individual stages.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/dataframe"
	"github.com/paveg/returnlab/internal/dataset"
	"github.com/paveg/returnlab/internal/eda"
	"github.com/paveg/returnlab/internal/features"
	dfio "github.com/paveg/returnlab/internal/io"
	"github.com/paveg/returnlab/internal/logger"
	"github.com/paveg/returnlab/internal/model"
	"github.com/paveg/returnlab/internal/monitoring"
	"github.com/paveg/returnlab/internal/quality"
	"github.com/paveg/returnlab/internal/train"
	"github.com/paveg/returnlab/internal/tuning"
	"github.com/paveg/returnlab/internal/version"
	"github.com/rs/zerolog"
)

// Artifact locations relative to the output directory.
const (
	BestParamsFile = "best_xgb_params.json"
	SummaryFile    = "run_summary.json"
	ModelsDir      = "models"
	EDADir         = "eda"
)

// Model names used in logs, tables and the run summary.
const (
	NameLogReg     = "LogisticRegression"
	NameForest     = "RandomForest"
	NameBoost      = "XGBoost"
	NameBoostTuned = "XGBoost_tuned"
)

// DataSummary describes the modelling table and its split.
type DataSummary struct {
	Transactions   int     `json:"transactions"`
	Features       int     `json:"features"`
	Positives      int     `json:"positives"`
	PositiveRate   float64 `json:"positive_rate"`
	ScalePosWeight float64 `json:"scale_pos_weight"`
	TrainRows      int     `json:"train_rows"`
	TestRows       int     `json:"test_rows"`
	BalancedRows   int     `json:"balanced_train_rows"`
	TrainPosRate   float64 `json:"train_positive_rate"`
	TestPosRate    float64 `json:"test_positive_rate"`
}

// Summary is everything a run measured. It is written to run_summary.json.
type Summary struct {
	RunID     string    `json:"run_id"`
	Version   string    `json:"version"`
	StartedAt time.Time `json:"started_at"`
	DataPath  string    `json:"data_path"`
	Seed      int64     `json:"random_state"`

	Audit quality.Reports `json:"audit"`
	Data  DataSummary     `json:"data"`

	CV              []*train.CVSummary `json:"cv"`
	HoldOutFull     []*train.Result    `json:"holdout_full"`
	HoldOutBalanced []*train.Result    `json:"holdout_balanced"`

	Tuning       *tuning.TuneResult `json:"tuning,omitempty"`
	TunedParams  config.BoostParams `json:"tuned_params"`
	TunedCV      *train.CVSummary   `json:"tuned_cv"`
	TunedHoldOut *train.Result      `json:"tuned_holdout"`

	Stages    []monitoring.StageMetrics `json:"stages"`
	Timing    monitoring.MetricsSummary `json:"timing"`
	Artifacts []string                  `json:"artifacts"`
}

// prepared is the output of the shared load, clean and feature stages.
type prepared struct {
	audit quality.Reports
	table *features.Table
}

// prepare loads cfg.DataPath, deduplicates it and builds the transaction table.
func prepare(ctx context.Context, cfg config.Config, collector *monitoring.MetricsCollector, log zerolog.Logger) (*prepared, error) {
	mem := memory.NewGoAllocator()
	out := &prepared{}

	var raw *dataframe.DataFrame
	err := collector.RecordRows("load", func() (int, error) {
		df, err := dfio.LoadCSV(cfg.DataPath, dfio.DefaultCSVOptions(), mem)
		if err != nil {
			return 0, err
		}
		raw = df
		return df.Len(), nil
	})
	if err != nil {
		return nil, err
	}
	defer raw.Release()
	log.Info().Str("path", cfg.DataPath).Int("rows", raw.Len()).Int("cols", raw.Width()).Msg("data loaded")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var clean *dataframe.DataFrame
	err = collector.RecordRows("preprocess", func() (int, error) {
		df, reports, err := quality.Preprocess(raw)
		if err != nil {
			return 0, err
		}
		clean = df
		out.audit = reports
		return df.Len(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer clean.Release()
	log.Info().Object("before", out.audit.Before).Object("after", out.audit.After).Msg("audit")

	err = collector.RecordRows("features", func() (int, error) {
		table, err := features.BuildTransactionLevel(clean, features.BuildOptions{})
		if err != nil {
			return 0, err
		}
		out.table = table
		return table.Len(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}

	pos, neg := out.table.ClassCounts()
	log.Info().Int("transactions", out.table.Len()).Int("returned", pos).Int("kept", neg).Msg("transaction table built")
	return out, ctx.Err()
}

// RunEDA builds the transaction table and writes the exploratory report to
// <output>/eda.
func RunEDA(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.WithComponent("pipeline")
	collector := monitoring.NewMetricsCollector(true)

	data, err := prepare(ctx, cfg, collector, log)
	if err != nil {
		return err
	}

	err = collector.RecordStage("eda", func() error {
		return eda.Run(ctx, data.table, filepath.Join(cfg.OutputDir, EDADir))
	})
	if err != nil {
		return fmt.Errorf("eda: %w", err)
	}
	log.Info().Object("timing", collector.Summary()).Msg("eda run finished")
	return nil
}

// factories builds the three estimator factories. The boosted model weights
// positives by spw.
func factories(cfg config.Config, spw float64) ([]string, []model.Factory, error) {
	boost, err := model.BoostFactory(cfg.Boost, model.WithScalePosWeight(spw))
	if err != nil {
		return nil, nil, err
	}
	names := []string{NameLogReg, NameForest, NameBoost}
	return names, []model.Factory{
		model.LogRegFactory(cfg.LogReg),
		model.ForestFactory(cfg.Forest, cfg.RandomState),
		boost,
	}, nil
}

func holdOut(ctx context.Context, names []string, fs []model.Factory, trainSet, testSet *dataset.Dataset) ([]*train.Result, error) {
	results := make([]*train.Result, len(fs))
	for i, f := range fs {
		res, err := train.TrainAndEvaluate(ctx, names[i], f(), trainSet, testSet)
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

// Run executes the full workflow: cross-validation of the three models on
// the whole table, hold-out evaluation on the full and on a balanced
// training split, boosted-tree tuning, and evaluation of the tuned model.
// Comparison tables go to out (nil discards them); artifacts go under
// cfg.OutputDir.
func Run(ctx context.Context, cfg config.Config, out io.Writer) (*Summary, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if out == nil {
		out = io.Discard
	}

	summary := &Summary{
		RunID:     uuid.NewString(),
		Version:   version.Info().Short(),
		StartedAt: time.Now().UTC(),
		DataPath:  cfg.DataPath,
		Seed:      cfg.RandomState,
	}
	base := logger.WithComponent("pipeline")
	log := base.With().Str("run_id", summary.RunID).Logger()
	log.Info().Str("version", summary.Version).Int64("seed", cfg.RandomState).Msg("run started")

	collector := monitoring.NewMetricsCollector(true)
	data, err := prepare(ctx, cfg, collector, log)
	if err != nil {
		return nil, err
	}
	summary.Audit = data.audit

	ds, err := dataset.FromTable(data.table)
	if err != nil {
		return nil, err
	}

	var trainSet, testSet, balanced *dataset.Dataset
	err = collector.RecordStage("split", func() error {
		trainIdx, testIdx, err := dataset.StratifiedSplit(ds.Y, cfg.TestSize, cfg.RandomState)
		if err != nil {
			return err
		}
		trainSet, testSet = ds.Subset(trainIdx), ds.Subset(testIdx)
		balanced, err = train.Undersample(trainSet, cfg.RandomState)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	pos, _ := ds.ClassCounts()
	spw := ds.ScalePosWeight()
	summary.Data = DataSummary{
		Transactions:   ds.Len(),
		Features:       ds.NumFeatures(),
		Positives:      pos,
		PositiveRate:   ds.PositiveRate(),
		ScalePosWeight: spw,
		TrainRows:      trainSet.Len(),
		TestRows:       testSet.Len(),
		BalancedRows:   balanced.Len(),
		TrainPosRate:   trainSet.PositiveRate(),
		TestPosRate:    testSet.PositiveRate(),
	}
	log.Info().
		Int("train", trainSet.Len()).
		Int("test", testSet.Len()).
		Int("balanced", balanced.Len()).
		Float64("train_pos_rate", trainSet.PositiveRate()).
		Float64("test_pos_rate", testSet.PositiveRate()).
		Float64("scale_pos_weight", spw).
		Msg("hold-out split")

	names, fs, err := factories(cfg, spw)
	if err != nil {
		return nil, err
	}

	cvOpts := train.CVOptions{Folds: cfg.CVFolds, Seed: cfg.RandomState, Workers: cfg.Workers}
	err = collector.RecordStage("cv", func() error {
		for i, f := range fs {
			cv, err := train.CrossValidate(ctx, names[i], f, ds, cvOpts)
			if err != nil {
				return err
			}
			summary.CV = append(summary.CV, cv)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	renderCVTable(out, fmt.Sprintf("%d-fold CV (full data, untuned)", cfg.CVFolds), summary.CV)

	err = collector.RecordStage("holdout_full", func() error {
		var err error
		summary.HoldOutFull, err = holdOut(ctx, names, fs, trainSet, testSet)
		return err
	})
	if err != nil {
		return nil, err
	}
	renderHoldOutTable(out, "Hold-out (full train)", summary.HoldOutFull)

	// Undersampled training data is already 1:1, so positives are not reweighted.
	_, balancedFs, err := factories(cfg, 1.0)
	if err != nil {
		return nil, err
	}
	err = collector.RecordStage("holdout_balanced", func() error {
		var err error
		summary.HoldOutBalanced, err = holdOut(ctx, names, balancedFs, balanced, testSet)
		return err
	})
	if err != nil {
		return nil, err
	}
	renderHoldOutTable(out, "Hold-out (balanced 1:1 train)", summary.HoldOutBalanced)

	summary.TunedParams = cfg.Boost.WithScalePosWeight(spw)
	err = collector.RecordStage("tuning", func() error {
		if cfg.TuningTrials == 0 {
			log.Warn().Msg("tuning disabled, keeping the configured boosted-tree parameters")
			return nil
		}
		res, err := tuning.TuneBoost(ctx, ds, tuning.TuneOptions{
			Trials:              cfg.TuningTrials,
			Folds:               cfg.TuningFolds,
			Seed:                cfg.RandomState,
			Workers:             cfg.Workers,
			PrunerStartupTrials: cfg.PrunerStartupTrials,
			Base:                cfg.Boost,
		})
		if err != nil {
			return err
		}
		summary.Tuning = res
		summary.TunedParams = res.Params
		return nil
	})
	if err != nil {
		return nil, err
	}

	paramsPath := filepath.Join(cfg.OutputDir, BestParamsFile)
	if err := writeJSON(paramsPath, summary.TunedParams); err != nil {
		return nil, err
	}
	summary.Artifacts = append(summary.Artifacts, paramsPath)
	log.Info().Str("path", paramsPath).Msg("best boosted-tree params saved")

	tuned, err := model.BoostFactory(summary.TunedParams)
	if err != nil {
		return nil, err
	}
	err = collector.RecordStage("cv_tuned", func() error {
		var err error
		summary.TunedCV, err = train.CrossValidate(ctx, NameBoostTuned, tuned, ds, cvOpts)
		return err
	})
	if err != nil {
		return nil, err
	}
	err = collector.RecordStage("holdout_tuned", func() error {
		var err error
		summary.TunedHoldOut, err = train.TrainAndEvaluate(ctx, NameBoostTuned, tuned(), trainSet, testSet)
		return err
	})
	if err != nil {
		return nil, err
	}

	renderCVComparison(out, fmt.Sprintf("%d-fold CV: XGBoost before vs after tuning", cfg.CVFolds), summary.CV[2], summary.TunedCV)
	renderHoldOutComparison(out, "Hold-out (full train): XGBoost before vs after tuning", summary.HoldOutFull[2], summary.TunedHoldOut)

	err = collector.RecordStage("plots", func() error {
		paths, err := renderModelPlots(filepath.Join(cfg.OutputDir, ModelsDir), testSet, ds.FeatureNames, summary)
		summary.Artifacts = append(summary.Artifacts, paths...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("plots: %w", err)
	}

	summary.Stages = collector.Stages()
	summary.Timing = collector.Summary()
	summaryPath := filepath.Join(cfg.OutputDir, SummaryFile)
	summary.Artifacts = append(summary.Artifacts, summaryPath)
	if err := writeJSON(summaryPath, summary); err != nil {
		return nil, err
	}

	log.Info().Object("timing", summary.Timing).Str("output", cfg.OutputDir).Msg("run finished")
	return summary, nil
}
