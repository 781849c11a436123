// Package metrics implements the regression metrics reported by the
// resampling evaluator.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Errors returned by metric computation.
var (
	ErrDivideByZero   = errors.New("metric division by zero")
	ErrLengthMismatch = errors.New("truth and prediction lengths differ")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrEmptySet       = errors.New("metric set is empty")
)

// Metric scores predictions against true values.
type Metric interface {
	Name() string
	Score(truth, predicted []float64) (float64, error)
}

// Lower reports whether smaller values of the named metric are better.
// R² is the only higher-is-better metric in the set.
func Lower(name string) bool { return name != "r2" }

// RMSE is the root of the mean squared error.
type RMSE struct{}

// Name implements Metric.
func (RMSE) Name() string { return "rmse" }

// Score implements Metric.
func (RMSE) Score(truth, predicted []float64) (float64, error) {
	if err := checkLengths(truth, predicted); err != nil {
		return 0, err
	}
	var sum float64
	for i := range truth {
		d := truth[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(truth))), nil
}

// MAE is the mean absolute error.
type MAE struct{}

// Name implements Metric.
func (MAE) Name() string { return "mae" }

// Score implements Metric.
func (MAE) Score(truth, predicted []float64) (float64, error) {
	if err := checkLengths(truth, predicted); err != nil {
		return 0, err
	}
	var sum float64
	for i := range truth {
		sum += math.Abs(truth[i] - predicted[i])
	}
	return sum / float64(len(truth)), nil
}

// MAPE is the mean absolute percentage error. A true value of exactly
// zero is undefined for this metric and fails with ErrDivideByZero;
// callers that cannot rule out zero targets should prefer MAE.
type MAPE struct{}

// Name implements Metric.
func (MAPE) Name() string { return "mape" }

// Score implements Metric.
func (MAPE) Score(truth, predicted []float64) (float64, error) {
	if err := checkLengths(truth, predicted); err != nil {
		return 0, err
	}
	var sum float64
	for i := range truth {
		if truth[i] == 0 {
			return 0, fmt.Errorf("%w: MAPE with zero true value at row %d", ErrDivideByZero, i)
		}
		sum += math.Abs(truth[i]-predicted[i]) / math.Abs(truth[i])
	}
	return sum / float64(len(truth)), nil
}

// RSquared is the squared Pearson correlation between truth and
// prediction: 1 for a perfect positive-slope affine relationship, 0
// when uncorrelated. Constant truth or constant predictions have no
// defined correlation and score 0.
type RSquared struct{}

// Name implements Metric.
func (RSquared) Name() string { return "r2" }

// Score implements Metric.
func (RSquared) Score(truth, predicted []float64) (float64, error) {
	if err := checkLengths(truth, predicted); err != nil {
		return 0, err
	}

	n := float64(len(truth))
	var meanT, meanP float64
	for i := range truth {
		meanT += truth[i]
		meanP += predicted[i]
	}
	meanT /= n
	meanP /= n

	var cov, varT, varP float64
	for i := range truth {
		dt := truth[i] - meanT
		dp := predicted[i] - meanP
		cov += dt * dp
		varT += dt * dt
		varP += dp * dp
	}
	if varT == 0 || varP == 0 {
		return 0, nil
	}
	r := cov / math.Sqrt(varT*varP)
	return r * r, nil
}

func checkLengths(truth, predicted []float64) error {
	if len(truth) != len(predicted) {
		return fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(truth), len(predicted))
	}
	if len(truth) == 0 {
		return fmt.Errorf("%w: no rows to score", ErrLengthMismatch)
	}
	return nil
}

// registry maps metric names to constructors.
var registry = map[string]Metric{
	"rmse": RMSE{},
	"mae":  MAE{},
	"mape": MAPE{},
	"r2":   RSquared{},
}

// ByName resolves a metric by its name.
func ByName(name string) (Metric, error) {
	m, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
	}
	return m, nil
}

// Set resolves a list of metric names. An empty list is a
// configuration error.
func Set(names []string) ([]Metric, error) {
	if len(names) == 0 {
		return nil, ErrEmptySet
	}
	out := make([]Metric, len(names))
	for i, name := range names {
		m, err := ByName(name)
		if err != nil {
			return nil, err
		}
		out[i] = m
	}
	return out, nil
}

// Names lists the registered metric names, sorted.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
