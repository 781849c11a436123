package resample

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/kestrel/textreg/internal/corpus"
	"github.com/kestrel/textreg/internal/features"
	"github.com/kestrel/textreg/internal/metrics"
	"github.com/kestrel/textreg/internal/model"
	"github.com/kestrel/textreg/internal/tokenize"
)

// FoldResult holds one fold's metric estimates.
type FoldResult struct {
	Fold    int                `json:"fold"`
	Metrics map[string]float64 `json:"metrics"`
}

// ExcludedFold records a fold whose fit, predict, or scoring failed.
// Excluded folds are left out of aggregation but always reported.
type ExcludedFold struct {
	Fold   int    `json:"fold"`
	Reason string `json:"reason"`
}

// Summary aggregates one metric across the successful folds.
// StdErr is the sample standard deviation divided by √folds.
type Summary struct {
	Metric string  `json:"metric"`
	Mean   float64 `json:"mean"`
	StdErr float64 `json:"std_err"`
	Folds  int     `json:"folds"`
}

// Report is the outcome of one evaluation run.
type Report struct {
	PerFold  []FoldResult   `json:"per_fold"`
	Overall  []Summary      `json:"overall"`
	Excluded []ExcludedFold `json:"excluded,omitempty"`
}

// Mean returns the overall mean of the named metric.
func (r *Report) Mean(metric string) (float64, bool) {
	for _, s := range r.Overall {
		if s.Metric == metric {
			return s.Mean, true
		}
	}
	return 0, false
}

// Table flattens the report into metric → fold id → estimate, the shape
// external report layers consume. Overall rows use the key "overall".
func (r *Report) Table() map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for _, fr := range r.PerFold {
		for name, v := range fr.Metrics {
			if out[name] == nil {
				out[name] = make(map[string]float64)
			}
			out[name][fmt.Sprintf("fold-%d", fr.Fold)] = v
		}
	}
	for _, s := range r.Overall {
		if out[s.Metric] == nil {
			out[s.Metric] = make(map[string]float64)
		}
		out[s.Metric]["overall"] = s.Mean
	}
	return out
}

// Evaluator runs the fit/predict/score cycle over a fold plan. Each
// fold fits its own pipeline artifacts from its analysis partition, so
// folds share no mutable state and may run in parallel.
type Evaluator struct {
	Plan      FoldPlan
	Tokenizer tokenize.Tokenizer
	Pipeline  features.Pipeline
	Model     model.FitPredictor
	Metrics   []metrics.Metric

	// Parallelism bounds concurrent folds. Values below 1 run folds
	// sequentially.
	Parallelism int

	// Progress, when set, is notified as folds complete.
	Progress ProgressReporter
}

// Evaluate runs every fold and aggregates the surviving metrics.
// Per-fold failures are recorded and excluded; the run only fails when
// every fold does, or when the configuration itself is unusable.
// On context cancellation the folds finished so far are returned
// alongside the context error.
func (e *Evaluator) Evaluate(ctx context.Context, c *corpus.Corpus) (*Report, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("%w: empty corpus", ErrInvalidConfig)
	}

	folds, err := e.Plan.Split(c.Len())
	if err != nil {
		return nil, err
	}

	docTokens := tokenize.TokenizeAll(e.Tokenizer, c.Texts())
	targets := c.Targets()

	results, excluded, err := e.runFolds(ctx, folds, docTokens, targets)
	if err != nil {
		// Cancellation: hand back what completed.
		return buildReport(results, excluded), err
	}

	if len(results) == 0 {
		return nil, fmt.Errorf("%w: %d of %d folds excluded", ErrAllFoldsFailed, len(excluded), len(folds))
	}
	return buildReport(results, excluded), nil
}

func (e *Evaluator) validate() error {
	switch {
	case e.Plan == nil:
		return fmt.Errorf("%w: no fold plan", ErrInvalidConfig)
	case e.Tokenizer == nil:
		return fmt.Errorf("%w: no tokenizer", ErrInvalidConfig)
	case e.Pipeline == nil:
		return fmt.Errorf("%w: no feature pipeline", ErrInvalidConfig)
	case e.Model == nil:
		return fmt.Errorf("%w: no model", ErrInvalidConfig)
	case len(e.Metrics) == 0:
		return fmt.Errorf("%w: empty metric set", ErrInvalidConfig)
	}
	return nil
}

// runFolds executes folds on a bounded worker pool. Workers own their
// fold's fitted artifacts exclusively; the shared token and target
// slices are read-only.
func (e *Evaluator) runFolds(ctx context.Context, folds []Fold, docTokens [][]string, targets []float64) ([]FoldResult, []ExcludedFold, error) {
	type outcome struct {
		result   *FoldResult
		excluded *ExcludedFold
	}

	workers := e.Parallelism
	if workers < 1 {
		workers = 1
	}
	if workers > len(folds) {
		workers = len(folds)
	}

	jobs := make(chan int)
	outcomes := make(chan outcome)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res, exc := e.runFold(ctx, idx, folds[idx], docTokens, targets)
				outcomes <- outcome{result: res, excluded: exc}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range folds {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var results []FoldResult
	var excluded []ExcludedFold
	done := 0
	for o := range outcomes {
		done++
		if e.Progress != nil {
			e.Progress.OnProgress(done, len(folds))
		}
		if o.result != nil {
			results = append(results, *o.result)
		}
		if o.excluded != nil {
			excluded = append(excluded, *o.excluded)
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Fold < results[j].Fold })
	sort.Slice(excluded, func(i, j int) bool { return excluded[i].Fold < excluded[j].Fold })

	if err := ctx.Err(); err != nil {
		return results, excluded, err
	}
	return results, excluded, nil
}

// runFold executes one fold. Any failure past configuration is
// converted to an exclusion, never propagated.
func (e *Evaluator) runFold(ctx context.Context, idx int, fold Fold, docTokens [][]string, targets []float64) (*FoldResult, *ExcludedFold) {
	exclude := func(stage string, err error) (*FoldResult, *ExcludedFold) {
		return nil, &ExcludedFold{Fold: idx, Reason: fmt.Sprintf("%s: %v", stage, err)}
	}

	analysisTokens := gather(docTokens, fold.Analysis)
	assessmentTokens := gather(docTokens, fold.Assessment)
	analysisTargets := gatherFloats(targets, fold.Analysis)
	assessmentTargets := gatherFloats(targets, fold.Assessment)

	// Fit the pipeline on the analysis partition only.
	transformer, err := e.Pipeline.Fit(analysisTokens)
	if err != nil {
		return exclude("fitting pipeline", err)
	}

	analysisFeatures, err := transformer.Transform(analysisTokens)
	if err != nil {
		return exclude("transforming analysis partition", err)
	}
	assessmentFeatures, err := transformer.Transform(assessmentTokens)
	if err != nil {
		return exclude("transforming assessment partition", err)
	}

	predictor, err := e.Model.Fit(ctx, analysisFeatures.Rows2D(), analysisTargets)
	if err != nil {
		return exclude("fitting model", err)
	}
	predictions, err := predictor.Predict(assessmentFeatures.Rows2D())
	if err != nil {
		return exclude("predicting", err)
	}

	scores := make(map[string]float64, len(e.Metrics))
	for _, m := range e.Metrics {
		score, err := m.Score(assessmentTargets, predictions)
		if err != nil {
			return exclude(fmt.Sprintf("scoring %s", m.Name()), err)
		}
		scores[m.Name()] = score
	}
	return &FoldResult{Fold: idx, Metrics: scores}, nil
}

// buildReport aggregates per-fold results into overall summaries.
func buildReport(results []FoldResult, excluded []ExcludedFold) *Report {
	report := &Report{PerFold: results, Excluded: excluded}
	if len(results) == 0 {
		return report
	}

	names := make([]string, 0, len(results[0].Metrics))
	for name := range results[0].Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	k := float64(len(results))
	for _, name := range names {
		var mean float64
		for _, r := range results {
			mean += r.Metrics[name]
		}
		mean /= k

		var stderr float64
		if len(results) > 1 {
			var sq float64
			for _, r := range results {
				d := r.Metrics[name] - mean
				sq += d * d
			}
			stderr = math.Sqrt(sq/(k-1)) / math.Sqrt(k)
		}

		report.Overall = append(report.Overall, Summary{
			Metric: name,
			Mean:   mean,
			StdErr: stderr,
			Folds:  len(results),
		})
	}
	return report
}

func gather(src [][]string, indices []int) [][]string {
	out := make([][]string, len(indices))
	for i, idx := range indices {
		out[i] = src[idx]
	}
	return out
}

func gatherFloats(src []float64, indices []int) []float64 {
	out := make([]float64, len(indices))
	for i, idx := range indices {
		out[i] = src[idx]
	}
	return out
}
