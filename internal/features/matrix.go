// Package features turns tokenized documents into numeric feature
// matrices. Feature extractors follow a fit/transform split: artifacts
// (vocabulary, idf table, normalization stats) are fit once on an
// analysis partition and are immutable afterwards, so transforming a
// held-out partition can never leak information back into the fit.
package features

import "errors"

// Errors returned by feature extraction.
var (
	ErrEmptyInput    = errors.New("feature extraction requires at least one document")
	ErrInvalidConfig = errors.New("invalid feature configuration")
	ErrShapeMismatch = errors.New("matrix shape mismatch")
)

// Matrix is a dense row-major feature matrix: rows are documents,
// columns are vocabulary terms or hash buckets. Column count is fixed
// per configuration and identical between fit-time and transform-time.
type Matrix struct {
	rows, cols int
	data       []float64
}

// NewMatrix allocates a zeroed rows×cols matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{rows: rows, cols: cols, data: make([]float64, rows*cols)}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

// At returns the value at (i, j).
func (m *Matrix) At(i, j int) float64 { return m.data[i*m.cols+j] }

// Set writes the value at (i, j).
func (m *Matrix) Set(i, j int, v float64) { m.data[i*m.cols+j] = v }

// Add accumulates v into (i, j).
func (m *Matrix) Add(i, j int, v float64) { m.data[i*m.cols+j] += v }

// Row returns row i as a slice backed by the matrix storage.
// Callers must not append to it.
func (m *Matrix) Row(i int) []float64 {
	return m.data[i*m.cols : (i+1)*m.cols]
}

// SetRow copies values into row i. Length must equal Cols.
func (m *Matrix) SetRow(i int, values []float64) error {
	if len(values) != m.cols {
		return ErrShapeMismatch
	}
	copy(m.Row(i), values)
	return nil
}

// Rows2D returns the matrix as a slice of row slices, sharing storage.
// This is the shape model backends consume.
func (m *Matrix) Rows2D() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}
