// Package corpus defines the document collection consumed by the
// experimentation pipeline and its loaders.
package corpus

import (
	"crypto/sha256"
	"fmt"
	"io"
)

// Document is a single text record with a continuous target value
// (e.g., publication year). Documents are created at ingestion and
// never mutated afterwards.
type Document struct {
	ID     string            `json:"id"`
	Text   string            `json:"text"`
	Target float64           `json:"target"`
	Meta   map[string]string `json:"meta,omitempty"` // Passthrough columns, untouched by the pipeline
}

// Corpus is an ordered sequence of documents. Order carries no meaning,
// but it must be stable so that seeded fold assignment is reproducible.
type Corpus struct {
	Docs []Document
}

// Len returns the number of documents.
func (c *Corpus) Len() int { return len(c.Docs) }

// Targets returns the target values in document order.
func (c *Corpus) Targets() []float64 {
	out := make([]float64, len(c.Docs))
	for i, d := range c.Docs {
		out[i] = d.Target
	}
	return out
}

// Texts returns the raw texts in document order.
func (c *Corpus) Texts() []string {
	out := make([]string, len(c.Docs))
	for i, d := range c.Docs {
		out[i] = d.Text
	}
	return out
}

// Subset returns a new corpus containing the documents at the given
// indices, in the order given. Indices must be valid for the corpus.
func (c *Corpus) Subset(indices []int) *Corpus {
	docs := make([]Document, len(indices))
	for i, idx := range indices {
		docs[i] = c.Docs[idx]
	}
	return &Corpus{Docs: docs}
}

// Fingerprint returns a SHA256 hex digest over document IDs, texts and
// targets. Used by the run store to detect that two runs saw the same data.
func (c *Corpus) Fingerprint() string {
	h := sha256.New()
	for _, d := range c.Docs {
		io.WriteString(h, d.ID)
		io.WriteString(h, "\x00")
		io.WriteString(h, d.Text)
		fmt.Fprintf(h, "\x00%g\x00", d.Target)
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
