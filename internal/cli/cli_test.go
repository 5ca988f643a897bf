package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/pipeline"
	"github.com/paveg/returnlab/internal/testutil"
	"github.com/paveg/returnlab/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "returnlab")
	assert.Contains(t, out, version.Version)

	out, _, err = execute(t, "version", "--json")
	require.NoError(t, err)
	var info version.BuildInfo
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, version.Version, info.Version)
}

func TestResolveConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "returnlab.yaml")
	require.NoError(t, os.WriteFile(file, []byte("cv_folds: 4\ntuning_trials: 3\noutput_dir: from-file\n"), 0o600))
	t.Setenv(config.EnvPrefix+"TUNING_TRIALS", "5")
	t.Setenv(config.EnvPrefix+"OUTPUT_DIR", "from-env")

	cmd := NewRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", file, "--output", "from-flag", "--seed", "7"}))

	opts := &options{}
	opts.configFile = file
	opts.outputDir = "from-flag"
	opts.seed = 7
	cfg, err := resolveConfig(opts, cmd.Flags())
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.CVFolds, "file overrides defaults")
	assert.Equal(t, 5, cfg.TuningTrials, "env overrides file")
	assert.Equal(t, "from-flag", cfg.OutputDir, "flags override env")
	assert.Equal(t, int64(7), cfg.RandomState)
	assert.Equal(t, int64(7), cfg.Boost.RandomState)
	assert.Equal(t, config.DefaultDataPath, cfg.DataPath)
}

func TestResolveConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		cmd := NewRootCmd()
		opts := &options{configFile: filepath.Join(t.TempDir(), "absent.json")}
		_, err := resolveConfig(opts, cmd.Flags())
		assert.Error(t, err)
	})

	t.Run("invalid folds", func(t *testing.T) {
		_, _, err := execute(t, "run", "--folds", "1", "--data", filepath.Join(t.TempDir(), "x.csv"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid configuration")
	})
}

func TestEDACommand(t *testing.T) {
	dir := t.TempDir()
	data := testutil.WriteLineItemsCSV(t, dir, testutil.SyntheticLineItems(120, 3))
	outDir := filepath.Join(dir, "outputs")

	out, _, err := execute(t, "eda", "--data", data, "--output", outDir, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "EDA written to")
	assert.FileExists(t, filepath.Join(outDir, pipeline.EDADir, "descriptive_stats.csv"))
}

func TestRunCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("trains every classifier")
	}
	dir := t.TempDir()
	data := testutil.WriteLineItemsCSV(t, dir, testutil.SyntheticLineItems(150, 5))
	outDir := filepath.Join(dir, "outputs")

	out, _, err := execute(t, "run",
		"--data", data, "--output", outDir,
		"--folds", "3", "--trials", "0", "--workers", "2", "--log-format", "json", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Hold-out (balanced 1:1 train)")
	assert.Contains(t, out, "artifacts written")
	assert.FileExists(t, filepath.Join(outDir, pipeline.SummaryFile))
	assert.FileExists(t, filepath.Join(outDir, pipeline.BestParamsFile))
}

func TestRunCommandMissingData(t *testing.T) {
	_, _, err := execute(t, "run", "--data", filepath.Join(t.TempDir(), "absent.csv"), "--log-level", "error")
	assert.Error(t, err)
}
