// Package config provides configuration management for returnlab pipeline runs
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the configuration of one pipeline run
type Config struct {
	// Input / output
	DataPath  string `json:"data_path" yaml:"data_path"`   // Raw line-item CSV
	OutputDir string `json:"output_dir" yaml:"output_dir"` // Root directory for artifacts

	// Splitting and resampling
	TestSize    float64 `json:"test_size" yaml:"test_size"`       // Hold-out fraction
	ValSize     float64 `json:"val_size" yaml:"val_size"`         // Reserved validation fraction
	RandomState int64   `json:"random_state" yaml:"random_state"` // Seed threaded through every stochastic step

	// Evaluation and search
	CVFolds             int `json:"cv_folds" yaml:"cv_folds"`
	TuningTrials        int `json:"tuning_trials" yaml:"tuning_trials"`
	TuningFolds         int `json:"tuning_folds" yaml:"tuning_folds"`
	PrunerStartupTrials int `json:"pruner_startup_trials" yaml:"pruner_startup_trials"`
	Workers             int `json:"workers" yaml:"workers"` // Fold workers (0 = auto-detect)

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format"` // console or json

	// Estimators
	Boost  BoostParams  `json:"boost" yaml:"boost"`
	LogReg LogRegParams `json:"logreg" yaml:"logreg"`
	Forest ForestParams `json:"forest" yaml:"forest"`
}

// LogRegParams configures the scaled logistic regression.
type LogRegParams struct {
	C         float64 `json:"c" yaml:"c"`
	MaxIter   int     `json:"max_iter" yaml:"max_iter"`
	Tolerance float64 `json:"tol" yaml:"tol"`
}

// ForestParams configures the random forest.
type ForestParams struct {
	NTrees          int `json:"n_estimators" yaml:"n_estimators"`
	MaxDepth        int `json:"max_depth" yaml:"max_depth"` // 0 = unlimited
	MinSamplesSplit int `json:"min_samples_split" yaml:"min_samples_split"`
}

// SystemInfo contains system information for configuration validation
type SystemInfo struct {
	CPUCount     int
	Architecture string
	OSType       string
}

// ConfigValidator validates and provides recommendations for configuration
type ConfigValidator struct {
	systemInfo SystemInfo
}

// Default configuration values
const (
	DefaultDataPath            = "data/online_sales_dataset.csv"
	DefaultOutputDir           = "outputs"
	DefaultTestSize            = 0.2
	DefaultValSize             = 0.2
	DefaultRandomState         = 42
	DefaultCVFolds             = 10
	DefaultTuningTrials        = 10
	DefaultTuningFolds         = 10
	DefaultPrunerStartupTrials = 10
	DefaultLogLevel            = "info"
	DefaultLogFormat           = "console"

	DefaultLogRegC       = 1.0
	DefaultLogRegMaxIter = 5000
	DefaultLogRegTol     = 1e-6
	DefaultForestTrees   = 100
	DefaultMinSplit      = 2

	// EnvPrefix prefixes every environment variable read by LoadFromEnv.
	EnvPrefix = "RETURNLAB_"
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		DataPath:  DefaultDataPath,
		OutputDir: DefaultOutputDir,

		TestSize:    DefaultTestSize,
		ValSize:     DefaultValSize,
		RandomState: DefaultRandomState,

		CVFolds:             DefaultCVFolds,
		TuningTrials:        DefaultTuningTrials,
		TuningFolds:         DefaultTuningFolds,
		PrunerStartupTrials: DefaultPrunerStartupTrials,
		Workers:             0, // Auto-detect

		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,

		Boost: DefaultBoostParams(DefaultRandomState),
		LogReg: LogRegParams{
			C:         DefaultLogRegC,
			MaxIter:   DefaultLogRegMaxIter,
			Tolerance: DefaultLogRegTol,
		},
		Forest: ForestParams{
			NTrees:          DefaultForestTrees,
			MinSamplesSplit: DefaultMinSplit,
		},
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.DataPath == "" {
		return fmt.Errorf("DataPath must not be empty")
	}

	if c.OutputDir == "" {
		return fmt.Errorf("OutputDir must not be empty")
	}

	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("TestSize must be between 0 and 1, got %f", c.TestSize)
	}

	if c.ValSize < 0 || c.ValSize >= 1 {
		return fmt.Errorf("ValSize must be in [0, 1), got %f", c.ValSize)
	}

	if c.CVFolds < 2 {
		return fmt.Errorf("CVFolds must be at least 2, got %d", c.CVFolds)
	}

	if c.TuningFolds < 2 {
		return fmt.Errorf("TuningFolds must be at least 2, got %d", c.TuningFolds)
	}

	if c.TuningTrials < 0 {
		return fmt.Errorf("TuningTrials must be non-negative, got %d", c.TuningTrials)
	}

	if c.PrunerStartupTrials < 0 {
		return fmt.Errorf("PrunerStartupTrials must be non-negative, got %d", c.PrunerStartupTrials)
	}

	if c.Workers < 0 {
		return fmt.Errorf("Workers must be non-negative, got %d", c.Workers)
	}

	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("LogFormat must be console or json, got %q", c.LogFormat)
	}

	if c.LogReg.C <= 0 {
		return fmt.Errorf("LogReg.C must be positive, got %f", c.LogReg.C)
	}

	if c.LogReg.MaxIter <= 0 {
		return fmt.Errorf("LogReg.MaxIter must be positive, got %d", c.LogReg.MaxIter)
	}

	if c.Forest.NTrees <= 0 {
		return fmt.Errorf("Forest.NTrees must be positive, got %d", c.Forest.NTrees)
	}

	return c.Boost.Validate()
}

// WithDefaults returns a new configuration with default values filled in for zero values
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.DataPath == "" {
		c.DataPath = defaults.DataPath
	}
	if c.OutputDir == "" {
		c.OutputDir = defaults.OutputDir
	}
	if c.TestSize == 0 {
		c.TestSize = defaults.TestSize
	}
	if c.ValSize == 0 {
		c.ValSize = defaults.ValSize
	}
	if c.RandomState == 0 {
		c.RandomState = defaults.RandomState
	}
	if c.CVFolds == 0 {
		c.CVFolds = defaults.CVFolds
	}
	if c.TuningTrials == 0 {
		c.TuningTrials = defaults.TuningTrials
	}
	if c.TuningFolds == 0 {
		c.TuningFolds = defaults.TuningFolds
	}
	if c.PrunerStartupTrials == 0 {
		c.PrunerStartupTrials = defaults.PrunerStartupTrials
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = defaults.LogFormat
	}
	if c.LogReg.C == 0 {
		c.LogReg.C = defaults.LogReg.C
	}
	if c.LogReg.MaxIter == 0 {
		c.LogReg.MaxIter = defaults.LogReg.MaxIter
	}
	if c.LogReg.Tolerance == 0 {
		c.LogReg.Tolerance = defaults.LogReg.Tolerance
	}
	if c.Forest.NTrees == 0 {
		c.Forest.NTrees = defaults.Forest.NTrees
	}
	if c.Forest.MinSamplesSplit == 0 {
		c.Forest.MinSamplesSplit = defaults.Forest.MinSamplesSplit
	}

	// Regularisation terms whose default is zero cannot be told apart from unset
	// values; only the fields with non-zero defaults are filled in.
	c.Boost = c.Boost.withDefaults(c.RandomState)

	return c
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON, YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables on top of the defaults
func LoadFromEnv() Config {
	return ApplyEnv(NewConfig())
}

// ApplyEnv overrides fields of config with any RETURNLAB_* variables that are set.
// Values that fail to parse are ignored.
func ApplyEnv(config Config) Config {
	if val := os.Getenv(EnvPrefix + "DATA_PATH"); val != "" {
		config.DataPath = val
	}

	if val := os.Getenv(EnvPrefix + "OUTPUT_DIR"); val != "" {
		config.OutputDir = val
	}

	if val := os.Getenv(EnvPrefix + "TEST_SIZE"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.TestSize = parsed
		}
	}

	if val := os.Getenv(EnvPrefix + "RANDOM_STATE"); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			config.RandomState = parsed
			config.Boost.RandomState = parsed
		}
	}

	envInt(EnvPrefix+"CV_FOLDS", &config.CVFolds)
	envInt(EnvPrefix+"TUNING_TRIALS", &config.TuningTrials)
	envInt(EnvPrefix+"TUNING_FOLDS", &config.TuningFolds)
	envInt(EnvPrefix+"PRUNER_STARTUP_TRIALS", &config.PrunerStartupTrials)
	envInt(EnvPrefix+"WORKERS", &config.Workers)

	if val := os.Getenv(EnvPrefix + "LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv(EnvPrefix + "LOG_FORMAT"); val != "" {
		config.LogFormat = val
	}

	return config
}

func envInt(name string, dst *int) {
	if val := os.Getenv(name); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			*dst = parsed
		}
	}
}

// GetSystemInfo returns system information for configuration validation
func GetSystemInfo() SystemInfo {
	return SystemInfo{
		CPUCount:     runtime.NumCPU(),
		Architecture: runtime.GOARCH,
		OSType:       runtime.GOOS,
	}
}

// NewConfigValidator creates a new configuration validator
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		systemInfo: GetSystemInfo(),
	}
}

// Validate validates a configuration and provides recommendations
func (cv *ConfigValidator) Validate(config Config) (Config, []string, error) {
	var warnings []string
	validated := config

	if err := config.Validate(); err != nil {
		return Config{}, warnings, err
	}

	if config.Workers > cv.systemInfo.CPUCount*2 {
		warnings = append(warnings,
			fmt.Sprintf("Worker count (%d) exceeds 2x CPU count (%d), may cause contention",
				config.Workers, cv.systemInfo.CPUCount))
	}

	if config.Workers > config.CVFolds {
		warnings = append(warnings,
			fmt.Sprintf("Worker count (%d) exceeds fold count (%d), extra workers stay idle",
				config.Workers, config.CVFolds))
	}

	if config.Workers == 0 {
		validated.Workers = cv.systemInfo.CPUCount
		warnings = append(warnings,
			fmt.Sprintf("Auto-setting worker count to %d (CPU count)", validated.Workers))
	}

	return validated, warnings, nil
}
