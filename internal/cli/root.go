// Package cli provides the returnlab command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/paveg/returnlab/internal/config"
	"github.com/paveg/returnlab/internal/logger"
	"github.com/paveg/returnlab/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// configKey stores the resolved configuration in the command context.
type configKey struct{}

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	dataPath   string
	outputDir  string
	trials     int
	folds      int
	seed       int64
	workers    int
	logLevel   string
	logFormat  string
}

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "returnlab",
		Short: "Predict which retail transactions will be returned",
		Long: `returnlab builds a transaction-level table from raw line-item sales,
compares logistic regression, random forest and boosted trees with stratified
cross-validation, tunes the boosted trees, and writes plots and a run summary.`,
		Version: version.Info().Short(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			cfg, err := resolveConfig(opts, cmd.Flags())
			if err != nil {
				return err
			}
			logger.InitWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (.json, .yaml or .yml)")
	flags.StringVar(&opts.dataPath, "data", "", "raw line-item CSV (default: "+config.DefaultDataPath+")")
	flags.StringVar(&opts.outputDir, "output", "", "artifact directory (default: "+config.DefaultOutputDir+")")
	flags.IntVar(&opts.trials, "trials", config.DefaultTuningTrials, "boosted-tree tuning trials (0 disables tuning)")
	flags.IntVar(&opts.folds, "folds", config.DefaultCVFolds, "cross-validation and tuning folds")
	flags.Int64Var(&opts.seed, "seed", config.DefaultRandomState, "random seed for every stochastic step")
	flags.IntVar(&opts.workers, "workers", 0, "fold workers (0 = number of CPUs)")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", config.DefaultLogFormat, "log format (console or json)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"console", "json"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newEDACommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// resolveConfig layers defaults, the config file, RETURNLAB_* variables and
// explicitly set flags, in that order, and validates the result.
func resolveConfig(opts *options, flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.NewConfig()
	if opts.configFile != "" {
		loaded, err := config.LoadFromFile(opts.configFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	cfg = config.ApplyEnv(cfg)

	if flags.Changed("data") {
		cfg.DataPath = opts.dataPath
	}
	if flags.Changed("output") {
		cfg.OutputDir = opts.outputDir
	}
	if flags.Changed("trials") {
		cfg.TuningTrials = opts.trials
	}
	if flags.Changed("folds") {
		cfg.CVFolds = opts.folds
		cfg.TuningFolds = opts.folds
	}
	if flags.Changed("seed") {
		cfg.RandomState = opts.seed
		cfg.Boost.RandomState = opts.seed
	}
	if flags.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = opts.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) config.Config {
	if cfg, ok := cmd.Context().Value(configKey{}).(config.Config); ok {
		return cfg
	}
	return config.NewConfig()
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		l := logger.Get()
		l.Error().Err(err).Msg("returnlab failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
