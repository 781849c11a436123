package features

import (
	"fmt"
	"math"
)

// TFIDFModel holds the frozen artifacts of a tf-idf fit: the vocabulary
// and the per-column idf table. Both are computed once on the training
// partition and never updated.
type TFIDFModel struct {
	vocab *Vocabulary
	idf   []float64
}

// FitTFIDF builds a vocabulary of at most maxTokens tokens from the
// training documents and computes the smoothed idf table
//
//	idf(t) = log((1 + N) / (1 + df(t))) + 1
//
// which avoids divide-by-zero and keeps every idf strictly positive.
func FitTFIDF(docTokens [][]string, maxTokens int) (*TFIDFModel, error) {
	vocab, err := BuildVocabulary(docTokens, maxTokens)
	if err != nil {
		return nil, err
	}

	df := DocumentFrequencies(docTokens)
	n := float64(len(docTokens))
	idf := make([]float64, vocab.Size())
	for i, term := range vocab.terms {
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}
	return &TFIDFModel{vocab: vocab, idf: idf}, nil
}

// Vocabulary returns the model's vocabulary.
func (m *TFIDFModel) Vocabulary() *Vocabulary { return m.vocab }

// IDF returns the idf value for column i.
func (m *TFIDFModel) IDF(i int) float64 { return m.idf[i] }

// Columns returns the feature width.
func (m *TFIDFModel) Columns() int { return m.vocab.Size() }

// WeightRow computes the tf-idf row for one document: raw term count
// times idf. Tokens outside the vocabulary are dropped, never an error,
// and weighting can never invent new columns.
func (m *TFIDFModel) WeightRow(tokens []string) []float64 {
	row := make([]float64, m.vocab.Size())
	for _, tok := range tokens {
		if idx, ok := m.vocab.Lookup(tok); ok {
			row[idx] += m.idf[idx]
		}
	}
	return row
}

// Transform weights every document against the frozen model.
func (m *TFIDFModel) Transform(docTokens [][]string) (*Matrix, error) {
	out := NewMatrix(len(docTokens), m.vocab.Size())
	for i, tokens := range docTokens {
		if err := out.SetRow(i, m.WeightRow(tokens)); err != nil {
			return nil, fmt.Errorf("weighting document %d: %w", i, err)
		}
	}
	return out, nil
}
