package features

import (
	"fmt"
	"math"
)

// NormalizationStats holds per-column mean and standard deviation
// learned from a reference (training) matrix. The stats are frozen:
// applying them to any later partition never re-estimates anything,
// which is what keeps test data out of the fit.
type NormalizationStats struct {
	Mean []float64
	Std  []float64
}

// Columns returns the number of columns the stats were fit on.
func (s *NormalizationStats) Columns() int { return len(s.Mean) }

// FitStats computes per-column mean and population standard deviation
// over the given rows.
func FitStats(m *Matrix) (*NormalizationStats, error) {
	if m.Rows() == 0 {
		return nil, fmt.Errorf("fitting normalization stats: %w", ErrEmptyInput)
	}

	n := float64(m.Rows())
	mean := make([]float64, m.Cols())
	std := make([]float64, m.Cols())

	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		for j, v := range row {
			mean[j] += v
		}
	}
	for j := range mean {
		mean[j] /= n
	}

	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
	}

	return &NormalizationStats{Mean: mean, Std: std}, nil
}

// ApplyStats centers and scales each column with the frozen stats,
// returning a new matrix. A zero-variance column maps to all zeros
// rather than failing: a constant column carries no signal, so there is
// nothing meaningful to scale. Applying is idempotent with respect to
// the stats and valid for any partition.
func ApplyStats(m *Matrix, stats *NormalizationStats) (*Matrix, error) {
	if m.Cols() != stats.Columns() {
		return nil, fmt.Errorf("%w: matrix has %d columns, stats have %d",
			ErrShapeMismatch, m.Cols(), stats.Columns())
	}

	out := NewMatrix(m.Rows(), m.Cols())
	for i := 0; i < m.Rows(); i++ {
		row := m.Row(i)
		dst := out.Row(i)
		for j, v := range row {
			if stats.Std[j] == 0 {
				dst[j] = 0
				continue
			}
			dst[j] = (v - stats.Mean[j]) / stats.Std[j]
		}
	}
	return out, nil
}
