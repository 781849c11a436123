package features

import "fmt"

// Transformer maps tokenized documents into a feature matrix using
// artifacts fit on an analysis partition. Implementations are immutable
// once produced by a Pipeline fit.
type Transformer interface {
	// Columns is the fixed feature width of every transformed matrix.
	Columns() int

	// Transform vectorizes the documents. It never learns from them.
	Transform(docTokens [][]string) (*Matrix, error)
}

// Pipeline builds a Transformer from an analysis partition. Fitting on
// one partition and transforming another is the only supported flow;
// each cross-validation fold fits its own pipeline.
type Pipeline interface {
	Name() string
	Fit(docTokens [][]string) (Transformer, error)
}

// TFIDFPipeline is the vocabulary-based feature path: bounded
// document-frequency vocabulary, smoothed tf-idf weights, optional
// z-score normalization.
type TFIDFPipeline struct {
	MaxTokens int
	Normalize bool
}

// Name implements Pipeline.
func (p TFIDFPipeline) Name() string {
	return fmt.Sprintf("tfidf(max_tokens=%d)", p.MaxTokens)
}

// Fit implements Pipeline.
func (p TFIDFPipeline) Fit(docTokens [][]string) (Transformer, error) {
	model, err := FitTFIDF(docTokens, p.MaxTokens)
	if err != nil {
		return nil, err
	}
	if !p.Normalize {
		return model, nil
	}
	return fitNormalized(model, docTokens)
}

// HashingPipeline is the vocabulary-free feature path: fixed-width
// feature hashing with optional signed accumulation and optional
// z-score normalization. The vectorizer itself is stateless; only the
// normalization stats are learned, and only from the analysis
// partition.
type HashingPipeline struct {
	NumBuckets int
	Signed     bool
	Normalize  bool
}

// Name implements Pipeline.
func (p HashingPipeline) Name() string {
	return fmt.Sprintf("hashing(buckets=%d,signed=%t)", p.NumBuckets, p.Signed)
}

// Fit implements Pipeline.
func (p HashingPipeline) Fit(docTokens [][]string) (Transformer, error) {
	vectorizer, err := NewHashingVectorizer(p.NumBuckets, p.Signed)
	if err != nil {
		return nil, err
	}
	if len(docTokens) == 0 {
		return nil, fmt.Errorf("fitting hashing pipeline: %w", ErrEmptyInput)
	}
	if !p.Normalize {
		return vectorizer, nil
	}
	return fitNormalized(vectorizer, docTokens)
}

// normalizedTransformer wraps a base transformer with frozen
// normalization stats fit on the analysis partition.
type normalizedTransformer struct {
	base  Transformer
	stats *NormalizationStats
}

func fitNormalized(base Transformer, docTokens [][]string) (Transformer, error) {
	analysis, err := base.Transform(docTokens)
	if err != nil {
		return nil, err
	}
	stats, err := FitStats(analysis)
	if err != nil {
		return nil, err
	}
	return &normalizedTransformer{base: base, stats: stats}, nil
}

func (t *normalizedTransformer) Columns() int { return t.base.Columns() }

func (t *normalizedTransformer) Transform(docTokens [][]string) (*Matrix, error) {
	m, err := t.base.Transform(docTokens)
	if err != nil {
		return nil, err
	}
	return ApplyStats(m, t.stats)
}

// Columns implements Transformer for HashingVectorizer.
func (h *HashingVectorizer) Columns() int { return h.NumBuckets }
