package resample

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrel/textreg/internal/corpus"
	"github.com/kestrel/textreg/internal/features"
	"github.com/kestrel/textreg/internal/metrics"
	"github.com/kestrel/textreg/internal/model"
	"github.com/kestrel/textreg/internal/tokenize"
)

// markerFailModel fails any fold whose analysis targets contain the
// marker value, so failures are deterministic regardless of fold order.
type markerFailModel struct {
	marker float64
}

func (m markerFailModel) Name() string { return "marker-fail" }

func (m markerFailModel) Fit(ctx context.Context, feats [][]float64, targets []float64) (model.Predictor, error) {
	for _, t := range targets {
		if t == m.marker {
			return nil, fmt.Errorf("solver did not converge")
		}
	}
	return model.Mean{}.Fit(ctx, feats, targets)
}

func testCorpus(n int) *corpus.Corpus {
	words := []string{"old", "dusty", "ancient", "modern", "shiny", "new"}
	docs := make([]corpus.Document, n)
	for i := range docs {
		docs[i] = corpus.Document{
			ID:     fmt.Sprintf("d%d", i),
			Text:   strings.Repeat(words[i%len(words)]+" ", 3),
			Target: 1900 + float64(i),
		}
	}
	return &corpus.Corpus{Docs: docs}
}

func newEvaluator(m model.FitPredictor) *Evaluator {
	return &Evaluator{
		Plan:      KFold{K: 3, Seed: 11},
		Tokenizer: tokenize.NewWordTokenizer(tokenize.Options{}),
		Pipeline:  features.HashingPipeline{NumBuckets: 16, Signed: true},
		Model:     m,
		Metrics:   mustMetrics("rmse", "mae"),
	}
}

func mustMetrics(names ...string) []metrics.Metric {
	set, err := metrics.Set(names)
	if err != nil {
		panic(err)
	}
	return set
}

func TestEvaluateHappyPath(t *testing.T) {
	e := newEvaluator(model.Mean{})
	report, err := e.Evaluate(context.Background(), testCorpus(12))
	require.NoError(t, err)

	assert.Len(t, report.PerFold, 3)
	assert.Empty(t, report.Excluded)
	require.Len(t, report.Overall, 2)

	for _, s := range report.Overall {
		assert.Equal(t, 3, s.Folds)
		assert.Greater(t, s.Mean, 0.0, "mean-baseline error should be positive")
	}

	mae, ok := report.Mean("mae")
	require.True(t, ok)
	assert.Greater(t, mae, 0.0)
}

func TestEvaluateDeterminism(t *testing.T) {
	a, err := newEvaluator(model.Mean{}).Evaluate(context.Background(), testCorpus(12))
	require.NoError(t, err)
	b, err := newEvaluator(model.Mean{}).Evaluate(context.Background(), testCorpus(12))
	require.NoError(t, err)

	assert.Equal(t, a.PerFold, b.PerFold, "same corpus, seed and config must reproduce identical metrics")
	assert.Equal(t, a.Overall, b.Overall)
}

func TestEvaluateParallelMatchesSequential(t *testing.T) {
	seq := newEvaluator(model.Mean{})
	seq.Parallelism = 1
	par := newEvaluator(model.Mean{})
	par.Parallelism = 4

	a, err := seq.Evaluate(context.Background(), testCorpus(16))
	require.NoError(t, err)
	b, err := par.Evaluate(context.Background(), testCorpus(16))
	require.NoError(t, err)

	assert.Equal(t, a.PerFold, b.PerFold)
	assert.Equal(t, a.Overall, b.Overall)
}

func TestEvaluatePartialFoldFailure(t *testing.T) {
	// Fail every fold that trains on target 1900, i.e. every fold except
	// the one holding document 0 in its assessment set.
	e := newEvaluator(markerFailModel{marker: 1900})
	report, err := e.Evaluate(context.Background(), testCorpus(12))
	require.NoError(t, err, "partial failure must not abort the run")

	assert.Len(t, report.PerFold, 1)
	assert.Len(t, report.Excluded, 2)
	for _, ex := range report.Excluded {
		assert.Contains(t, ex.Reason, "fitting model")
		assert.Contains(t, ex.Reason, "converge")
	}
	for _, s := range report.Overall {
		assert.Equal(t, 1, s.Folds)
		assert.Zero(t, s.StdErr, "single surviving fold has no spread")
	}
}

func TestEvaluateAllFoldsFailed(t *testing.T) {
	e := newEvaluator(failingModel{})
	_, err := e.Evaluate(context.Background(), testCorpus(12))
	require.ErrorIs(t, err, ErrAllFoldsFailed)
}

type failingModel struct{}

func (failingModel) Name() string { return "always-fails" }
func (failingModel) Fit(ctx context.Context, feats [][]float64, targets []float64) (model.Predictor, error) {
	return nil, errors.New("broken backend")
}

func TestEvaluateConfigurationErrors(t *testing.T) {
	t.Run("empty metric set", func(t *testing.T) {
		e := newEvaluator(model.Mean{})
		e.Metrics = nil
		_, err := e.Evaluate(context.Background(), testCorpus(12))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("missing pipeline", func(t *testing.T) {
		e := newEvaluator(model.Mean{})
		e.Pipeline = nil
		_, err := e.Evaluate(context.Background(), testCorpus(12))
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("empty corpus", func(t *testing.T) {
		e := newEvaluator(model.Mean{})
		_, err := e.Evaluate(context.Background(), &corpus.Corpus{})
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestEvaluateCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newEvaluator(model.Mean{})
	report, err := e.Evaluate(ctx, testCorpus(12))
	require.ErrorIs(t, err, context.Canceled)
	if report != nil {
		assert.LessOrEqual(t, len(report.PerFold), 3, "partial results only")
	}
}

func TestEvaluateMAPEZeroTargetExcludesFold(t *testing.T) {
	c := testCorpus(12)
	c.Docs[3].Target = 0

	e := newEvaluator(model.Mean{})
	e.Metrics = mustMetrics("mape")

	report, err := e.Evaluate(context.Background(), c)
	require.NoError(t, err)
	require.NotEmpty(t, report.Excluded)

	found := false
	for _, ex := range report.Excluded {
		if strings.Contains(ex.Reason, "scoring mape") {
			found = true
		}
	}
	assert.True(t, found, "zero-target fold should be excluded by the MAPE zero-guard")
}

func TestReportTable(t *testing.T) {
	report := &Report{
		PerFold: []FoldResult{
			{Fold: 0, Metrics: map[string]float64{"mae": 2}},
			{Fold: 1, Metrics: map[string]float64{"mae": 4}},
		},
		Overall: []Summary{{Metric: "mae", Mean: 3, Folds: 2}},
	}
	table := report.Table()
	require.Contains(t, table, "mae")
	assert.Equal(t, 2.0, table["mae"]["fold-0"])
	assert.Equal(t, 4.0, table["mae"]["fold-1"])
	assert.Equal(t, 3.0, table["mae"]["overall"])
}

func TestEvaluateProgressReporting(t *testing.T) {
	var calls int
	e := newEvaluator(model.Mean{})
	e.Progress = ProgressFunc(func(current, total int) {
		calls++
		assert.Equal(t, 3, total)
	})

	_, err := e.Evaluate(context.Background(), testCorpus(12))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestThrottleAlwaysDeliversFinalUpdate(t *testing.T) {
	var got []int
	r := Throttle(ProgressFunc(func(current, total int) {
		got = append(got, current)
	}), 1e-9) // effectively never allows

	for i := 1; i <= 5; i++ {
		r.OnProgress(i, 5)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, 5, got[len(got)-1], "final update must not be throttled away")
}
