package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/kestrel/textreg/internal/config"
	"github.com/kestrel/textreg/internal/corpus"
	"github.com/kestrel/textreg/internal/report"
	"github.com/kestrel/textreg/internal/resample"
	"github.com/kestrel/textreg/internal/storage"
)

// loadCorpus dispatches on the corpus path: directories are PDF
// corpora, otherwise the extension picks the format.
func loadCorpus(path string) (*corpus.Corpus, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("checking corpus path: %w", err)
	}
	if info.IsDir() {
		return corpus.LoadPDFDir(path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return corpus.LoadJSONL(path)
	case ".csv":
		return corpus.LoadCSV(path)
	default:
		return nil, fmt.Errorf("unsupported corpus format %q (want .csv, .jsonl or a PDF directory)", filepath.Ext(path))
	}
}

// mustLoadCorpus loads the corpus or exits with a data error.
func mustLoadCorpus(path string) *corpus.Corpus {
	c, err := loadCorpus(path)
	if err != nil {
		exitWithError(ExitDataError, "loading corpus: %v", err)
	}
	return c
}

// mustLoadExperiment loads the experiment config or exits.
func mustLoadExperiment(path string) *config.Experiment {
	exp, err := config.Load(path)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return exp
}

// mustLoadSettings reads environment settings or exits.
func mustLoadSettings() *config.Settings {
	s, err := config.LoadSettings()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return s
}

// mustOpenStore opens the run store or exits.
func mustOpenStore(settings *config.Settings) *storage.DB {
	db, err := storage.OpenDB(settings.DBPath)
	if err != nil {
		exitWithError(ExitError, "opening run store: %v", err)
	}
	return db
}

// signalContext returns a context cancelled by SIGINT/SIGTERM, so a
// long grid search can be aborted while keeping completed results.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// writeHumanReport renders a report table to stdout.
func writeHumanReport(r *resample.Report) {
	report.WriteReportTable(os.Stdout, r)
}

// progressReporter prints fold/config progress to stderr when running
// with --human, throttled so tight loops don't flood the terminal.
func progressReporter(settings *config.Settings, label string) resample.ProgressReporter {
	if !humanOutput {
		return nil
	}
	return resample.Throttle(resample.ProgressFunc(func(current, total int) {
		fmt.Fprintf(os.Stderr, "\r%s %d/%d", label, current, total)
		if current == total {
			fmt.Fprintln(os.Stderr)
		}
	}), settings.ProgressPerSec)
}
