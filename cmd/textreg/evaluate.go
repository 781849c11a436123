package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kestrel/textreg/internal/config"
	"github.com/kestrel/textreg/internal/corpus"
	"github.com/kestrel/textreg/internal/resample"
	"github.com/kestrel/textreg/internal/storage"
)

var (
	evaluateCorpusPath string
	evaluateConfigPath string
	evaluateNoSave     bool
)

func init() {
	evaluateCmd.Flags().StringVar(&evaluateCorpusPath, "corpus", "", "Corpus file (.csv, .jsonl) or PDF directory")
	evaluateCmd.Flags().StringVar(&evaluateConfigPath, "config", "", "Experiment YAML file")
	evaluateCmd.Flags().BoolVar(&evaluateNoSave, "no-save", false, "Skip persisting the run to the store")
	evaluateCmd.MarkFlagRequired("corpus")
	evaluateCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(evaluateCmd)
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Run a cross-validated evaluation of one configuration",
	Long: `Run the experiment's base pipeline through the configured fold plan
and report per-fold and overall metrics.

Examples:
  textreg evaluate --corpus reviews.csv --config experiment.yml
  textreg evaluate --corpus docs/ --config experiment.yml --human`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

// EvaluateResponse is the JSON payload of the evaluate command.
type EvaluateResponse struct {
	RunID    string                        `json:"run_id,omitempty"`
	Pipeline string                        `json:"pipeline"`
	Model    string                        `json:"model"`
	Report   *resample.Report              `json:"report"`
	Table    map[string]map[string]float64 `json:"table"`
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	settings := mustLoadSettings()
	exp := mustLoadExperiment(evaluateConfigPath)
	c := mustLoadCorpus(evaluateCorpusPath)

	if err := exp.RequireBaseWidth(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
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

	evaluator := &resample.Evaluator{
		Plan:        exp.FoldPlan(),
		Tokenizer:   exp.BuildTokenizer(),
		Pipeline:    exp.BasePipeline(),
		Model:       fitPredictor,
		Metrics:     metricSet,
		Parallelism: parallelism,
		Progress:    progressReporter(settings, "folds"),
	}

	ctx, cancel := signalContext()
	defer cancel()

	rep, err := evaluator.Evaluate(ctx, c)
	switch {
	case errors.Is(err, context.Canceled):
		exitWithError(ExitCancelled, "evaluation aborted")
	case errors.Is(err, resample.ErrAllFoldsFailed):
		exitWithError(ExitRunFailed, "%v", err)
	case errors.Is(err, resample.ErrInvalidConfig):
		exitWithError(ExitConfigError, "%v", err)
	case err != nil:
		exitWithError(ExitError, "%v", err)
	}

	response := EvaluateResponse{
		Pipeline: exp.BasePipeline().Name(),
		Model:    fitPredictor.Name(),
		Report:   rep,
		Table:    rep.Table(),
	}

	if !evaluateNoSave {
		response.RunID = saveEvaluation(settings, exp, c, response, rep)
	}

	if humanOutput {
		outputHuman("pipeline: %s  model: %s\n", response.Pipeline, response.Model)
		writeHumanReport(rep)
		if response.RunID != "" {
			outputHuman("saved run %s\n", response.RunID)
		}
		return nil
	}
	return outputJSON(response)
}

func saveEvaluation(settings *config.Settings, exp *config.Experiment, c *corpus.Corpus, response EvaluateResponse, rep *resample.Report) string {
	db := mustOpenStore(settings)
	defer db.Close()

	configJSON, err := storage.MarshalConfig(exp)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	id, err := db.SaveRun(storage.Run{
		Kind:              "evaluate",
		CorpusFingerprint: c.Fingerprint(),
		CorpusSize:        c.Len(),
		ConfigJSON:        configJSON,
		PipelineName:      response.Pipeline,
		ModelName:         response.Model,
		Report:            rep,
	})
	if err != nil {
		exitWithError(ExitError, "saving run: %v", err)
	}
	return id
}
