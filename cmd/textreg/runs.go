package main

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kestrel/textreg/internal/storage"
)

var runsListLimit int

func init() {
	runsListCmd.Flags().IntVar(&runsListLimit, "limit", 20, "Maximum number of runs to list")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored evaluation and grid-search runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one stored run with its full report",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	settings := mustLoadSettings()
	db := mustOpenStore(settings)
	defer db.Close()

	runs, err := db.ListRuns(runsListLimit)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"id", "kind", "created", "pipeline", "model", "docs", "selected"})
		for _, run := range runs {
			table.Append([]string{
				run.ID,
				run.Kind,
				run.CreatedAt.Format(time.RFC3339),
				run.PipelineName,
				run.ModelName,
				strconv.Itoa(run.CorpusSize),
				run.Selected,
			})
		}
		table.Render()
		return nil
	}
	return outputJSON(runs)
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	settings := mustLoadSettings()
	db := mustOpenStore(settings)
	defer db.Close()

	run, err := db.GetRun(args[0])
	if errors.Is(err, storage.ErrRunNotFound) {
		exitWithError(ExitDataError, "run %s not found", args[0])
	}
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		outputHuman("run %s (%s) created %s\n", run.ID, run.Kind, run.CreatedAt.Format(time.RFC3339))
		fingerprint := run.CorpusFingerprint
		if len(fingerprint) > 12 {
			fingerprint = fingerprint[:12]
		}
		outputHuman("pipeline: %s  model: %s  corpus: %d docs (%s)\n",
			run.PipelineName, run.ModelName, run.CorpusSize, fingerprint)
		if run.Selected != "" {
			outputHuman("selected: %s\n", run.Selected)
		}
		if run.Report != nil {
			writeHumanReport(run.Report)
		}
		return nil
	}
	return outputJSON(run)
}
