package main

import (
	"github.com/spf13/cobra"

	"github.com/kestrel/textreg/internal/config"
)

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Work with experiment configuration files",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate <experiment.yml>",
	Short: "Validate an experiment file and show the resolved settings",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidate,
}

// ConfigSummary is the JSON payload of config validate: the experiment
// after defaults, as the other commands will interpret it.
type ConfigSummary struct {
	Valid        bool     `json:"valid"`
	FoldPlan     string   `json:"fold_plan"`
	Pipeline     string   `json:"pipeline"`
	Model        string   `json:"model"`
	Metrics      []string `json:"metrics"`
	TargetMetric string   `json:"target_metric"`
	TolerancePct float64  `json:"tolerance_pct"`
	GridSize     int      `json:"grid_size"`
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	exp, err := config.Load(args[0])
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	summary := ConfigSummary{
		Valid:        true,
		FoldPlan:     exp.FoldPlan().Name(),
		Pipeline:     exp.BasePipeline().Name(),
		Model:        exp.Model,
		Metrics:      exp.Metrics,
		TargetMetric: exp.TargetMetric,
		TolerancePct: exp.TolerancePct,
		GridSize:     len(exp.GridConfigs()),
	}

	if humanOutput {
		outputHuman("%s is valid\n", args[0])
		outputHuman("fold plan: %s  pipeline: %s  model: %s\n", summary.FoldPlan, summary.Pipeline, summary.Model)
		outputHuman("metrics: %v  target: %s  tolerance: %g%%  grid size: %d\n",
			summary.Metrics, summary.TargetMetric, summary.TolerancePct, summary.GridSize)
		return nil
	}
	return outputJSON(summary)
}
