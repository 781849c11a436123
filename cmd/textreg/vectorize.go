package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel/textreg/internal/tokenize"
)

var (
	vectorizeCorpusPath string
	vectorizeConfigPath string
	vectorizeOutPath    string
)

func init() {
	vectorizeCmd.Flags().StringVar(&vectorizeCorpusPath, "corpus", "", "Corpus file (.csv, .jsonl) or PDF directory")
	vectorizeCmd.Flags().StringVar(&vectorizeConfigPath, "config", "", "Experiment YAML file")
	vectorizeCmd.Flags().StringVar(&vectorizeOutPath, "out", "", "Output CSV path (default stdout)")
	vectorizeCmd.MarkFlagRequired("corpus")
	vectorizeCmd.MarkFlagRequired("config")
	rootCmd.AddCommand(vectorizeCmd)
}

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize",
	Short: "Fit the configured pipeline on the whole corpus and emit features",
	Long: `Fit the experiment's base pipeline on the full corpus and write the
feature matrix as CSV, one row per document with its id and target.

This is a data-inspection tool: unlike evaluate, it fits on everything,
so the output must not be used to estimate generalization.

Example:
  textreg vectorize --corpus reviews.csv --config experiment.yml --out features.csv`,
	Args: cobra.NoArgs,
	RunE: runVectorize,
}

func runVectorize(cmd *cobra.Command, args []string) error {
	exp := mustLoadExperiment(vectorizeConfigPath)
	if err := exp.RequireBaseWidth(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	c := mustLoadCorpus(vectorizeCorpusPath)

	tokenizer := exp.BuildTokenizer()
	docTokens := tokenize.TokenizeAll(tokenizer, c.Texts())

	pipeline := exp.BasePipeline()
	transformer, err := pipeline.Fit(docTokens)
	if err != nil {
		exitWithError(ExitDataError, "fitting %s: %v", pipeline.Name(), err)
	}
	matrix, err := transformer.Transform(docTokens)
	if err != nil {
		exitWithError(ExitDataError, "transforming corpus: %v", err)
	}

	out := os.Stdout
	if vectorizeOutPath != "" {
		f, err := os.Create(vectorizeOutPath)
		if err != nil {
			exitWithError(ExitError, "creating output file: %v", err)
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	header := []string{"id", "target"}
	for j := 0; j < matrix.Cols(); j++ {
		header = append(header, fmt.Sprintf("f%d", j))
	}
	if err := w.Write(header); err != nil {
		exitWithError(ExitError, "writing features: %v", err)
	}
	for i, doc := range c.Docs {
		row := []string{doc.ID, fmt.Sprintf("%g", doc.Target)}
		for j := 0; j < matrix.Cols(); j++ {
			row = append(row, fmt.Sprintf("%g", matrix.At(i, j)))
		}
		if err := w.Write(row); err != nil {
			exitWithError(ExitError, "writing features: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		exitWithError(ExitError, "writing features: %v", err)
	}

	if humanOutput && vectorizeOutPath != "" {
		outputHuman("wrote %d × %d feature matrix to %s\n", matrix.Rows(), matrix.Cols(), vectorizeOutPath)
	}
	return nil
}
