package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel/textreg/internal/config"
	"github.com/kestrel/textreg/internal/corpus"
	"github.com/kestrel/textreg/internal/grid"
	"github.com/kestrel/textreg/internal/report"
	"github.com/kestrel/textreg/internal/resample"
	"github.com/kestrel/textreg/internal/storage"
)

var (
	gridCorpusPath string
	gridConfigPath string
	gridNoSave     bool
)

func init() {
	gridCmd.Flags().StringVar(&gridCorpusPath, "corpus", "", "Corpus file (.csv, .jsonl) or PDF directory")
	gridCmd.Flags().StringVar(&gridConfigPath, "config", "", "Experiment YAML file with a grid section")
	gridCmd.Flags().BoolVar(&gridNoSave, "no-save", false, "Skip persisting the run to the store")
	gridCmd.MarkFlagRequired("corpus")
	gridCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(gridCmd)
}

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Sweep a configuration grid and select the simplest good config",
	Long: `Evaluate every configuration in the experiment's grid, then select
the simplest configuration whose target metric is within the tolerance
of the best one.

Interrupting a sweep keeps the configurations evaluated so far.

Examples:
  textreg grid --corpus reviews.csv --config experiment.yml
  textreg grid --corpus reviews.csv --config experiment.yml --human`,
	Args: cobra.NoArgs,
	RunE: runGrid,
}

// GridEntry is one evaluated configuration in the JSON payload.
type GridEntry struct {
	Name       string           `json:"name"`
	Complexity float64          `json:"complexity"`
	Report     *resample.Report `json:"report"`
}

// GridResponse is the JSON payload of the grid command.
type GridResponse struct {
	RunID        string      `json:"run_id,omitempty"`
	TargetMetric string      `json:"target_metric"`
	TolerancePct float64     `json:"tolerance_pct"`
	Results      []GridEntry `json:"results"`
	Selected     string      `json:"selected,omitempty"`
	Aborted      bool        `json:"aborted,omitempty"`
}

func runGrid(cmd *cobra.Command, args []string) error {
	settings := mustLoadSettings()
	exp := mustLoadExperiment(gridConfigPath)
	c := mustLoadCorpus(gridCorpusPath)

	metricSet, err := exp.MetricSet()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	fitPredictor, err := exp.BuildModel()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	parallelism := exp.Parallelism
	if settings.Parallelism > 0 {
		parallelism = settings.Parallelism
	}

	runner := &grid.Runner{
		Evaluator: resample.Evaluator{
			Plan:        exp.FoldPlan(),
			Tokenizer:   exp.BuildTokenizer(),
			Model:       fitPredictor,
			Metrics:     metricSet,
			Parallelism: parallelism,
		},
		Progress: progressReporter(settings, "configs"),
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, runErr := runner.Run(ctx, c, exp.GridConfigs())
	aborted := errors.Is(runErr, context.Canceled)
	switch {
	case runErr == nil || aborted:
		// Selection proceeds over whatever completed.
	case errors.Is(runErr, grid.ErrEmptyGrid), errors.Is(runErr, resample.ErrInvalidConfig):
		exitWithError(ExitConfigError, "%v", runErr)
	default:
		exitWithError(ExitError, "%v", runErr)
	}
	if len(results) == 0 {
		exitWithError(ExitCancelled, "aborted before any configuration completed")
	}

	response := GridResponse{
		TargetMetric: exp.TargetMetric,
		TolerancePct: exp.TolerancePct,
		Aborted:      aborted,
	}
	for _, res := range results {
		response.Results = append(response.Results, GridEntry{
			Name:       res.Config.Name,
			Complexity: res.Config.Complexity,
			Report:     res.Report,
		})
	}

	selected, err := grid.SelectByPercentLoss(results, exp.TargetMetric, exp.TolerancePct)
	if err != nil {
		exitWithError(ExitError, "selecting configuration: %v", err)
	}
	response.Selected = selected.Name

	if !gridNoSave {
		response.RunID = saveGridRun(settings, exp, c, results, selected.Name)
	}

	if humanOutput {
		report.WriteGridTable(os.Stdout, results, exp.TargetMetric, selected.Name)
		outputHuman("selected: %s\n", selected.Name)
		if aborted {
			outputHuman("note: sweep aborted early; selection covers completed configs only\n")
		}
		if response.RunID != "" {
			outputHuman("saved run %s\n", response.RunID)
		}
		return nil
	}
	return outputJSON(response)
}

func saveGridRun(settings *config.Settings, exp *config.Experiment, c *corpus.Corpus, results []grid.Result, selected string) string {
	db := mustOpenStore(settings)
	defer db.Close()

	configJSON, err := storage.MarshalConfig(exp)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	// Persist the selected configuration's report as the run's report.
	var selectedReport *resample.Report
	for _, res := range results {
		if res.Config.Name == selected {
			selectedReport = res.Report
		}
	}

	id, err := db.SaveRun(storage.Run{
		Kind:              "grid",
		CorpusFingerprint: c.Fingerprint(),
		CorpusSize:        c.Len(),
		ConfigJSON:        configJSON,
		PipelineName:      selected,
		ModelName:         exp.Model,
		Selected:          selected,
		Report:            selectedReport,
	})
	if err != nil {
		exitWithError(ExitError, "saving run: %v", err)
	}
	return id
}
