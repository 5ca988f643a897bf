package cli

import (
	"encoding/json"
	"fmt"

	"github.com/paveg/returnlab/internal/pipeline"
	"github.com/paveg/returnlab/internal/version"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Train, cross-validate and tune the return classifiers",
		Long: `Run the full workflow: cross-validate the three classifiers, evaluate them
on a stratified hold-out split with full and balanced training data, tune the
boosted trees, and write best_xgb_params.json, run_summary.json and the model
plots under the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := pipeline.Run(cmd.Context(), configFrom(cmd), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Run %s finished in %.1fs, %d artifacts written\n",
				summary.RunID, summary.Timing.TotalSeconds, len(summary.Artifacts))
			return nil
		},
	}
}

func newEDACommand() *cobra.Command {
	return &cobra.Command{
		Use:   "eda",
		Short: "Write descriptive statistics and exploratory plots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := configFrom(cmd)
			if err := pipeline.RunEDA(cmd.Context(), cfg); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "EDA written to %s/%s\n", cfg.OutputDir, pipeline.EDADir)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Info()
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print build information as JSON")
	return cmd
}
