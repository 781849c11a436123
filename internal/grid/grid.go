// Package grid enumerates hyperparameter configurations, evaluates
// each one independently, and selects a final configuration by a
// percent-loss tolerance rule. The grid is data, not control flow: an
// explicit list of configuration records, evaluated exhaustively.
package grid

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/kestrel/textreg/internal/corpus"
	"github.com/kestrel/textreg/internal/features"
	"github.com/kestrel/textreg/internal/metrics"
	"github.com/kestrel/textreg/internal/resample"
)

// Errors returned by the grid runner.
var (
	ErrEmptyGrid     = errors.New("configuration grid is empty")
	ErrNoSelection   = errors.New("no configuration qualifies for selection")
	ErrMetricMissing = errors.New("target metric absent from results")
)

// Config is one candidate configuration. Complexity is the declared
// simplicity ordering used by SelectByPercentLoss: smaller means
// simpler (e.g., vocabulary size, bucket count).
type Config struct {
	Name       string            `json:"name"`
	Pipeline   features.Pipeline `json:"-"`
	Complexity float64           `json:"complexity"`
}

// Result pairs a configuration with its evaluation report.
type Result struct {
	Config Config           `json:"config"`
	Report *resample.Report `json:"report"`
}

// Runner evaluates every configuration with a shared evaluator
// template. Each configuration gets its own evaluator so fitted
// artifacts are never shared across configurations.
type Runner struct {
	Evaluator resample.Evaluator // template; Pipeline is set per config

	// Progress, when set, is notified as configurations complete.
	Progress resample.ProgressReporter
}

// Run evaluates every configuration against the corpus. Cancellation
// is checked between configurations: already-completed results are
// returned alongside the context error rather than discarded.
func (r *Runner) Run(ctx context.Context, c *corpus.Corpus, configs []Config) ([]Result, error) {
	if len(configs) == 0 {
		return nil, ErrEmptyGrid
	}

	results := make([]Result, 0, len(configs))
	for i, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		eval := r.Evaluator
		eval.Pipeline = cfg.Pipeline
		report, err := eval.Evaluate(ctx, c)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return results, err
			}
			return results, fmt.Errorf("evaluating %s: %w", cfg.Name, err)
		}
		results = append(results, Result{Config: cfg, Report: report})

		if r.Progress != nil {
			r.Progress.OnProgress(i+1, len(configs))
		}
	}
	return results, nil
}

// SelectByPercentLoss picks the simplest configuration whose mean
// targetMetric is within tolerancePct percent of the best result. For
// error metrics best is the minimum and qualification means
// mean <= best*(1+tol/100); for R² the directions flip. Ties on
// qualification resolve to the smallest complexity.
func SelectByPercentLoss(results []Result, targetMetric string, tolerancePct float64) (Config, error) {
	if len(results) == 0 {
		return Config{}, ErrEmptyGrid
	}

	type scored struct {
		config Config
		mean   float64
	}
	var all []scored
	for _, res := range results {
		mean, ok := res.Report.Mean(targetMetric)
		if !ok {
			return Config{}, fmt.Errorf("%w: %q", ErrMetricMissing, targetMetric)
		}
		all = append(all, scored{config: res.Config, mean: mean})
	}

	lower := metrics.Lower(targetMetric)
	best := lo.MinBy(all, func(a, b scored) bool {
		if lower {
			return a.mean < b.mean
		}
		return a.mean > b.mean
	})

	var bound float64
	if lower {
		bound = best.mean * (1 + tolerancePct/100)
	} else {
		bound = best.mean * (1 - tolerancePct/100)
	}

	qualifying := lo.Filter(all, func(s scored, _ int) bool {
		if lower {
			return s.mean <= bound
		}
		return s.mean >= bound
	})
	if len(qualifying) == 0 {
		return Config{}, ErrNoSelection
	}

	chosen := lo.MinBy(qualifying, func(a, b scored) bool {
		return a.config.Complexity < b.config.Complexity
	})
	return chosen.config, nil
}
