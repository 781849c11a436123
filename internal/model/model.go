// Package model defines the fit/predict capability the evaluator
// drives. The evaluator treats implementations as opaque and possibly
// failing; anything that can map a feature matrix and target vector to
// a predictor can sit behind this interface, including external
// solvers. SVM and random-forest internals are deliberately out of
// scope here.
package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Errors returned by model backends.
var (
	ErrNoTrainingData    = errors.New("no training data")
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
	ErrUnknownModel      = errors.New("unknown model")
)

// Predictor produces predictions for transformed feature rows.
type Predictor interface {
	Predict(features [][]float64) ([]float64, error)
}

// FitPredictor fits a predictor on transformed analysis features and
// targets. Fit may be long-running (an external training call) and must
// honor context cancellation.
type FitPredictor interface {
	Name() string
	Fit(ctx context.Context, features [][]float64, targets []float64) (Predictor, error)
}

// ByName resolves a bundled backend by name.
func ByName(name string) (FitPredictor, error) {
	switch name {
	case "mean":
		return Mean{}, nil
	case "ridge":
		return Ridge{Lambda: DefaultRidgeLambda}, nil
	case "knn":
		return KNN{K: DefaultKNNNeighbors}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, name)
	}
}

// Mean is the baseline backend: it predicts the mean training target
// regardless of features. Useful as a floor in experiments.
type Mean struct{}

// Name implements FitPredictor.
func (Mean) Name() string { return "mean" }

// Fit implements FitPredictor.
func (Mean) Fit(ctx context.Context, features [][]float64, targets []float64) (Predictor, error) {
	if err := checkTraining(features, targets); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var sum float64
	for _, t := range targets {
		sum += t
	}
	return constantPredictor(sum / float64(len(targets))), nil
}

type constantPredictor float64

func (p constantPredictor) Predict(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i := range out {
		out[i] = float64(p)
	}
	return out, nil
}

// KNN predicts the mean target of the K nearest training rows by
// Euclidean distance. K is clamped to the training size.
type KNN struct {
	K int
}

// DefaultKNNNeighbors is the default neighbourhood size.
const DefaultKNNNeighbors = 5

// Name implements FitPredictor.
func (m KNN) Name() string { return fmt.Sprintf("knn(k=%d)", m.K) }

// Fit implements FitPredictor.
func (m KNN) Fit(ctx context.Context, features [][]float64, targets []float64) (Predictor, error) {
	if err := checkTraining(features, targets); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := m.K
	if k < 1 {
		k = DefaultKNNNeighbors
	}
	if k > len(targets) {
		k = len(targets)
	}

	train := make([][]float64, len(features))
	for i, row := range features {
		train[i] = append([]float64(nil), row...)
	}
	return &knnPredictor{
		features: train,
		targets:  append([]float64(nil), targets...),
		k:        k,
	}, nil
}

type knnPredictor struct {
	features [][]float64
	targets  []float64
	k        int
}

func (p *knnPredictor) Predict(features [][]float64) ([]float64, error) {
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != len(p.features[0]) {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(row), len(p.features[0]))
		}

		type neighbor struct {
			dist   float64
			target float64
		}
		neighbors := make([]neighbor, len(p.features))
		for j, trainRow := range p.features {
			var d float64
			for c := range row {
				diff := row[c] - trainRow[c]
				d += diff * diff
			}
			neighbors[j] = neighbor{dist: d, target: p.targets[j]}
		}
		sort.Slice(neighbors, func(a, b int) bool { return neighbors[a].dist < neighbors[b].dist })

		var sum float64
		for j := 0; j < p.k; j++ {
			sum += neighbors[j].target
		}
		out[i] = sum / float64(p.k)
	}
	return out, nil
}

func checkTraining(features [][]float64, targets []float64) error {
	if len(features) == 0 || len(targets) == 0 {
		return ErrNoTrainingData
	}
	if len(features) != len(targets) {
		return fmt.Errorf("%w: %d feature rows, %d targets", ErrDimensionMismatch, len(features), len(targets))
	}
	return nil
}
