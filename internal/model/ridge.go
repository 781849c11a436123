package model

import (
	"context"
	"fmt"
	"math"
)

// DefaultRidgeLambda is the default L2 penalty.
const DefaultRidgeLambda = 1.0

// Ridge is a closed-form L2-regularized linear regressor solved via the
// normal equations (XᵀX + λI)w = Xᵀy with an unpenalized intercept
// column. It exists so experiments can run end to end without an
// external solver; it is not meant to compete with dedicated libraries.
type Ridge struct {
	Lambda float64
}

// Name implements FitPredictor.
func (m Ridge) Name() string { return fmt.Sprintf("ridge(lambda=%g)", m.Lambda) }

// Fit implements FitPredictor.
func (m Ridge) Fit(ctx context.Context, features [][]float64, targets []float64) (Predictor, error) {
	if err := checkTraining(features, targets); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lambda := m.Lambda
	if lambda < 0 {
		lambda = DefaultRidgeLambda
	}

	cols := len(features[0]) + 1 // +1 intercept
	// Gram matrix XᵀX and moment vector Xᵀy over the augmented design.
	gram := make([][]float64, cols)
	for i := range gram {
		gram[i] = make([]float64, cols)
	}
	moment := make([]float64, cols)

	for r, row := range features {
		if len(row) != cols-1 {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimensionMismatch, r, len(row), cols-1)
		}
		aug := make([]float64, cols)
		copy(aug, row)
		aug[cols-1] = 1
		for i := 0; i < cols; i++ {
			for j := 0; j < cols; j++ {
				gram[i][j] += aug[i] * aug[j]
			}
			moment[i] += aug[i] * targets[r]
		}
	}

	// Penalize every weight except the intercept.
	for i := 0; i < cols-1; i++ {
		gram[i][i] += lambda
	}

	weights, err := solveLinear(gram, moment)
	if err != nil {
		return nil, fmt.Errorf("solving normal equations: %w", err)
	}
	return &ridgePredictor{weights: weights}, nil
}

type ridgePredictor struct {
	weights []float64 // feature weights then intercept
}

func (p *ridgePredictor) Predict(features [][]float64) ([]float64, error) {
	nw := len(p.weights)
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != nw-1 {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(row), nw-1)
		}
		v := p.weights[nw-1]
		for j, x := range row {
			v += p.weights[j] * x
		}
		out[i] = v
	}
	return out, nil
}

// solveLinear solves Ax = b in place via Gaussian elimination with
// partial pivoting. A must be square.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	x := append([]float64(nil), b...)

	for col := 0; col < n; col++ {
		// Pivot on the largest magnitude in this column.
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("singular system at column %d", col)
		}
		a[col], a[pivot] = a[pivot], a[col]
		x[col], x[pivot] = x[pivot], x[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			x[r] -= factor * x[col]
		}
	}

	for col := n - 1; col >= 0; col-- {
		for c := col + 1; c < n; c++ {
			x[col] -= a[col][c] * x[c]
		}
		x[col] /= a[col][col]
	}
	return x, nil
}
