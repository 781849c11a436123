// Package config loads and validates experiment configuration.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/kestrel/textreg/internal/features"
	"github.com/kestrel/textreg/internal/grid"
	"github.com/kestrel/textreg/internal/metrics"
	"github.com/kestrel/textreg/internal/model"
	"github.com/kestrel/textreg/internal/resample"
	"github.com/kestrel/textreg/internal/tokenize"
)

// TokenizerConfig configures text splitting.
type TokenizerConfig struct {
	NGramMin int `yaml:"ngram_min" validate:"min=0"`
	NGramMax int `yaml:"ngram_max" validate:"min=0"`

	// Stopwords selects the stop-word set: "default", "none", or empty
	// (treated as none).
	Stopwords string `yaml:"stopwords" validate:"omitempty,oneof=default none"`
}

// PipelineConfig configures the feature extraction path.
type PipelineConfig struct {
	// Kind selects the feature path.
	Kind string `yaml:"kind" validate:"required,oneof=tfidf hashing"`

	// MaxTokens bounds the vocabulary (tfidf path).
	MaxTokens int `yaml:"max_tokens" validate:"min=0"`

	// Buckets is the feature width (hashing path).
	Buckets int `yaml:"buckets" validate:"min=0"`

	// Signed enables signed accumulation (hashing path).
	Signed bool `yaml:"signed"`

	// Normalize enables z-score normalization fit on the analysis
	// partition.
	Normalize bool `yaml:"normalize"`
}

// GridConfig enumerates the candidate values swept by the grid runner.
// Only the axis matching the pipeline kind is used.
type GridConfig struct {
	MaxTokens []int `yaml:"max_tokens" validate:"omitempty,min=1,dive,gt=0"`
	Buckets   []int `yaml:"buckets" validate:"omitempty,min=1,dive,gt=0"`
}

// Experiment is a full experiment description loaded from YAML.
type Experiment struct {
	Seed  int64 `yaml:"seed"`
	Folds int   `yaml:"folds" validate:"min=1"`

	// TestFraction is only consulted when Folds == 1 (single
	// train/test split).
	TestFraction float64 `yaml:"test_fraction" validate:"min=0,max=1"`

	Parallelism int `yaml:"parallelism" validate:"min=0"`

	Model        string   `yaml:"model" validate:"required,oneof=mean ridge knn"`
	Metrics      []string `yaml:"metrics" validate:"required,min=1,dive,oneof=rmse mae mape r2"`
	TargetMetric string   `yaml:"target_metric" validate:"omitempty,oneof=rmse mae mape r2"`
	TolerancePct float64  `yaml:"tolerance_pct" validate:"min=0"`

	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Pipeline  PipelineConfig  `yaml:"pipeline" validate:"required"`
	Grid      GridConfig      `yaml:"grid"`
}

var validate = validator.New()

// Load reads an experiment file, applies defaults, and validates it.
func Load(path string) (*Experiment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading experiment file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates experiment YAML.
func Parse(data []byte) (*Experiment, error) {
	var exp Experiment
	if err := yaml.Unmarshal(data, &exp); err != nil {
		return nil, fmt.Errorf("parsing experiment file: %w", err)
	}
	exp.applyDefaults()

	if err := validate.Struct(&exp); err != nil {
		return nil, fmt.Errorf("invalid experiment: %w", err)
	}
	if err := exp.checkPipeline(); err != nil {
		return nil, err
	}
	return &exp, nil
}

func (e *Experiment) applyDefaults() {
	if e.Folds == 0 {
		e.Folds = 5
	}
	if e.Folds == 1 && e.TestFraction == 0 {
		e.TestFraction = 0.25
	}
	if len(e.Metrics) == 0 {
		e.Metrics = []string{"rmse", "mae"}
	}
	if e.TargetMetric == "" {
		e.TargetMetric = e.Metrics[0]
	}
	if e.Model == "" {
		e.Model = "ridge"
	}
	if e.Tokenizer.NGramMin == 0 {
		e.Tokenizer.NGramMin = 1
	}
	if e.Tokenizer.NGramMax == 0 {
		e.Tokenizer.NGramMax = e.Tokenizer.NGramMin
	}
}

// checkPipeline enforces the axis/kind pairing the validator tags
// cannot express.
func (e *Experiment) checkPipeline() error {
	switch e.Pipeline.Kind {
	case "tfidf":
		if e.Pipeline.MaxTokens < 1 && len(e.Grid.MaxTokens) == 0 {
			return fmt.Errorf("invalid experiment: tfidf pipeline needs max_tokens or a grid.max_tokens sweep")
		}
	case "hashing":
		if e.Pipeline.Buckets < 1 && len(e.Grid.Buckets) == 0 {
			return fmt.Errorf("invalid experiment: hashing pipeline needs buckets or a grid.buckets sweep")
		}
	}
	return nil
}

// RequireBaseWidth rejects experiments whose pipeline width only comes
// from a grid sweep. Commands that run the base pipeline directly
// (evaluate, vectorize) need an explicit width.
func (e *Experiment) RequireBaseWidth() error {
	switch e.Pipeline.Kind {
	case "tfidf":
		if e.Pipeline.MaxTokens < 1 {
			return fmt.Errorf("invalid experiment: this command needs pipeline.max_tokens (grid sweeps only apply to the grid command)")
		}
	case "hashing":
		if e.Pipeline.Buckets < 1 {
			return fmt.Errorf("invalid experiment: this command needs pipeline.buckets (grid sweeps only apply to the grid command)")
		}
	}
	return nil
}

// FoldPlan builds the resampling plan.
func (e *Experiment) FoldPlan() resample.FoldPlan {
	if e.Folds == 1 {
		return resample.TrainTest{TestFraction: e.TestFraction, Seed: e.Seed}
	}
	return resample.KFold{K: e.Folds, Seed: e.Seed}
}

// BuildTokenizer builds the configured tokenizer.
func (e *Experiment) BuildTokenizer() tokenize.Tokenizer {
	opts := tokenize.Options{
		NGramMin: e.Tokenizer.NGramMin,
		NGramMax: e.Tokenizer.NGramMax,
	}
	if e.Tokenizer.Stopwords == "default" {
		opts.Stopwords = tokenize.DefaultStopwords()
	}
	return tokenize.NewWordTokenizer(opts)
}

// BasePipeline builds the configured feature pipeline.
func (e *Experiment) BasePipeline() features.Pipeline {
	if e.Pipeline.Kind == "hashing" {
		return features.HashingPipeline{
			NumBuckets: e.Pipeline.Buckets,
			Signed:     e.Pipeline.Signed,
			Normalize:  e.Pipeline.Normalize,
		}
	}
	return features.TFIDFPipeline{
		MaxTokens: e.Pipeline.MaxTokens,
		Normalize: e.Pipeline.Normalize,
	}
}

// GridConfigs expands the grid axis matching the pipeline kind into
// concrete configurations. With no sweep values it falls back to the
// single base pipeline.
func (e *Experiment) GridConfigs() []grid.Config {
	if e.Pipeline.Kind == "hashing" {
		if len(e.Grid.Buckets) == 0 {
			return []grid.Config{e.singleConfig()}
		}
		configs := make([]grid.Config, len(e.Grid.Buckets))
		for i, buckets := range e.Grid.Buckets {
			p := features.HashingPipeline{
				NumBuckets: buckets,
				Signed:     e.Pipeline.Signed,
				Normalize:  e.Pipeline.Normalize,
			}
			configs[i] = grid.Config{Name: p.Name(), Pipeline: p, Complexity: float64(buckets)}
		}
		return configs
	}

	if len(e.Grid.MaxTokens) == 0 {
		return []grid.Config{e.singleConfig()}
	}
	configs := make([]grid.Config, len(e.Grid.MaxTokens))
	for i, maxTokens := range e.Grid.MaxTokens {
		p := features.TFIDFPipeline{MaxTokens: maxTokens, Normalize: e.Pipeline.Normalize}
		configs[i] = grid.Config{Name: p.Name(), Pipeline: p, Complexity: float64(maxTokens)}
	}
	return configs
}

func (e *Experiment) singleConfig() grid.Config {
	p := e.BasePipeline()
	complexity := float64(e.Pipeline.MaxTokens)
	if e.Pipeline.Kind == "hashing" {
		complexity = float64(e.Pipeline.Buckets)
	}
	return grid.Config{Name: p.Name(), Pipeline: p, Complexity: complexity}
}

// MetricSet resolves the configured metrics.
func (e *Experiment) MetricSet() ([]metrics.Metric, error) {
	return metrics.Set(e.Metrics)
}

// BuildModel resolves the configured model backend.
func (e *Experiment) BuildModel() (model.FitPredictor, error) {
	return model.ByName(e.Model)
}
