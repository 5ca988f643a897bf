package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/returnlab/internal/config"
	dferrors "github.com/paveg/returnlab/internal/errors"
	"github.com/paveg/returnlab/internal/logger"
	"github.com/paveg/returnlab/internal/pipeline"
	"github.com/paveg/returnlab/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.InitWithWriter(io.Discard, "error", "json")
	os.Exit(m.Run())
}

func smallConfig(t *testing.T, transactions int) config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.DataPath = testutil.WriteLineItemsCSV(t, t.TempDir(), testutil.SyntheticLineItems(transactions, 7))
	cfg.OutputDir = filepath.Join(t.TempDir(), "outputs")
	cfg.CVFolds = 3
	cfg.TuningFolds = 3
	cfg.TuningTrials = 0
	cfg.Workers = 2
	cfg.Forest.NTrees = 10
	cfg.Boost.NEstimators = 20
	return cfg
}

func requireArtifact(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err, path)
	assert.Positive(t, info.Size(), path)
}

func TestRunWithoutTuning(t *testing.T) {
	cfg := smallConfig(t, 240)
	var out bytes.Buffer

	summary, err := pipeline.Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Nil(t, summary.Tuning)
	require.Len(t, summary.CV, 3)
	assert.Equal(t, pipeline.NameLogReg, summary.CV[0].Model)
	assert.Equal(t, pipeline.NameBoost, summary.CV[2].Model)
	require.Len(t, summary.HoldOutFull, 3)
	require.Len(t, summary.HoldOutBalanced, 3)
	require.NotNil(t, summary.TunedCV)
	require.NotNil(t, summary.TunedHoldOut)

	d := summary.Data
	assert.Equal(t, d.Transactions, d.TrainRows+d.TestRows)
	assert.Less(t, d.PositiveRate, 0.5, "returns are the minority class")
	assert.Equal(t, 0, d.BalancedRows%2, "balanced train is 1:1")
	assert.InDelta(t, d.PositiveRate, d.TestPosRate, 0.05, "the split is stratified")
	assert.InDelta(t, d.ScalePosWeight, summary.TunedParams.ScalePosWeight, 1e-12)
	for _, r := range summary.HoldOutFull {
		assert.Greater(t, r.ROCAUC, 0.5, r.Name)
	}

	var stages []string
	for _, s := range summary.Stages {
		stages = append(stages, s.Stage)
	}
	assert.Equal(t, []string{
		"load", "preprocess", "features", "split", "cv",
		"holdout_full", "holdout_balanced", "tuning", "cv_tuned", "holdout_tuned", "plots",
	}, stages)

	models := filepath.Join(cfg.OutputDir, pipeline.ModelsDir)
	for _, name := range []string{
		pipeline.ROCFile, pipeline.PRFile, pipeline.ForestFIFile, pipeline.TunedBoostFIFile,
		"cm_LogReg_full.png", "cm_RF_full.png", "cm_XGB_full.png", "cm_XGB_tuned_full.png",
	} {
		requireArtifact(t, filepath.Join(models, name))
	}

	raw, err := os.ReadFile(filepath.Join(cfg.OutputDir, pipeline.BestParamsFile))
	require.NoError(t, err)
	var params config.BoostParams
	require.NoError(t, json.Unmarshal(raw, &params))
	assert.Equal(t, summary.TunedParams, params)

	raw, err = os.ReadFile(filepath.Join(cfg.OutputDir, pipeline.SummaryFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, summary.RunID, decoded["run_id"])
	assert.Contains(t, decoded, "stages")
	assert.Contains(t, decoded, "holdout_full")

	text := out.String()
	assert.Contains(t, text, "3-fold CV (full data, untuned)")
	assert.Contains(t, text, "Hold-out (balanced 1:1 train)")
	assert.Contains(t, text, "XGBoost before vs after tuning")
	assert.Contains(t, text, pipeline.NameForest)
}

func TestRunWithTuning(t *testing.T) {
	if testing.Short() {
		t.Skip("tunes boosted trees")
	}
	cfg := smallConfig(t, 150)
	cfg.TuningTrials = 2

	summary, err := pipeline.Run(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NotNil(t, summary.Tuning)
	assert.Len(t, summary.Tuning.Trials, 2)
	assert.Equal(t, summary.Tuning.Params, summary.TunedParams)
	assert.Equal(t, cfg.RandomState, summary.TunedParams.RandomState)
	assert.InDelta(t, summary.Data.ScalePosWeight, summary.TunedParams.ScalePosWeight, 1e-12)
}

func TestRunEDA(t *testing.T) {
	cfg := smallConfig(t, 120)

	require.NoError(t, pipeline.RunEDA(context.Background(), cfg))

	dir := filepath.Join(cfg.OutputDir, pipeline.EDADir)
	requireArtifact(t, filepath.Join(dir, "descriptive_stats.csv"))
	requireArtifact(t, filepath.Join(dir, "corr_to_target.csv"))
	requireArtifact(t, filepath.Join(dir, "corr_heatmap.png"))
}

func TestRunErrors(t *testing.T) {
	t.Run("missing input file", func(t *testing.T) {
		cfg := smallConfig(t, 10)
		cfg.DataPath = filepath.Join(t.TempDir(), "absent.csv")

		_, err := pipeline.Run(context.Background(), cfg, nil)
		assert.ErrorIs(t, err, dferrors.ErrFileNotFound)
		assert.ErrorIs(t, pipeline.RunEDA(context.Background(), cfg), dferrors.ErrFileNotFound)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := smallConfig(t, 10)
		cfg.CVFolds = 1

		_, err := pipeline.Run(context.Background(), cfg, nil)
		assert.Error(t, err)
	})

	t.Run("missing column", func(t *testing.T) {
		cfg := smallConfig(t, 10)
		cfg.DataPath = testutil.WriteLineItemsCSV(t, t.TempDir(), testutil.ToyLineItems(),
			testutil.WithoutColumn("Category"))

		_, err := pipeline.Run(context.Background(), cfg, nil)
		var dfErr *dferrors.DataFrameError
		require.ErrorAs(t, err, &dfErr)
		assert.Equal(t, "Category", dfErr.Column)
	})

	t.Run("cancelled", func(t *testing.T) {
		cfg := smallConfig(t, 60)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := pipeline.Run(ctx, cfg, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
