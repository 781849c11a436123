// Package resample drives cross-validated evaluation: it partitions a
// corpus into folds, fits a feature pipeline and model per fold on the
// analysis partition only, scores the held-out assessment partition,
// and aggregates the per-fold metrics.
package resample

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// Errors returned by resampling.
var (
	ErrInvalidConfig  = errors.New("invalid resampling configuration")
	ErrAllFoldsFailed = errors.New("all folds failed")
)

// Fold is one partition of the corpus indices. Analysis rows are used
// for fitting, assessment rows only for scoring; the two sets are
// disjoint and together cover every index.
type Fold struct {
	Analysis   []int
	Assessment []int
}

// FoldPlan produces the folds for a corpus of n documents.
type FoldPlan interface {
	Name() string
	Split(n int) ([]Fold, error)
}

// KFold shuffles indices with a fixed seed and deals them into K
// disjoint assessment sets covering the corpus exactly once. The same
// seed and n always produce the same folds.
type KFold struct {
	K    int
	Seed int64
}

// Name implements FoldPlan.
func (p KFold) Name() string { return fmt.Sprintf("%d-fold(seed=%d)", p.K, p.Seed) }

// Split implements FoldPlan.
func (p KFold) Split(n int) ([]Fold, error) {
	if p.K < 2 {
		return nil, fmt.Errorf("%w: K must be >= 2, got %d", ErrInvalidConfig, p.K)
	}
	if n < p.K {
		return nil, fmt.Errorf("%w: %d documents cannot fill %d folds", ErrInvalidConfig, n, p.K)
	}

	indices := shuffledIndices(n, p.Seed)

	folds := make([]Fold, p.K)
	// Chunk sizes n/K, with the remainder spread over the first folds.
	base, rem := n/p.K, n%p.K
	start := 0
	for f := 0; f < p.K; f++ {
		size := base
		if f < rem {
			size++
		}
		assessment := append([]int(nil), indices[start:start+size]...)
		analysis := make([]int, 0, n-size)
		analysis = append(analysis, indices[:start]...)
		analysis = append(analysis, indices[start+size:]...)
		start += size

		sort.Ints(assessment)
		sort.Ints(analysis)
		folds[f] = Fold{Analysis: analysis, Assessment: assessment}
	}
	return folds, nil
}

// TrainTest is the degenerate single-split plan: one fold whose
// assessment set holds TestFraction of the documents.
type TrainTest struct {
	TestFraction float64
	Seed         int64
}

// Name implements FoldPlan.
func (p TrainTest) Name() string {
	return fmt.Sprintf("train-test(%.0f%%,seed=%d)", p.TestFraction*100, p.Seed)
}

// Split implements FoldPlan.
func (p TrainTest) Split(n int) ([]Fold, error) {
	if p.TestFraction <= 0 || p.TestFraction >= 1 {
		return nil, fmt.Errorf("%w: test fraction must be in (0,1), got %g", ErrInvalidConfig, p.TestFraction)
	}
	testSize := int(float64(n) * p.TestFraction)
	if testSize < 1 || testSize >= n {
		return nil, fmt.Errorf("%w: %d documents leave no room for a %.0f%% test split",
			ErrInvalidConfig, n, p.TestFraction*100)
	}

	indices := shuffledIndices(n, p.Seed)
	assessment := append([]int(nil), indices[:testSize]...)
	analysis := append([]int(nil), indices[testSize:]...)
	sort.Ints(assessment)
	sort.Ints(analysis)
	return []Fold{{Analysis: analysis, Assessment: assessment}}, nil
}

// shuffledIndices returns 0..n-1 in seeded shuffle order.
func shuffledIndices(n int, seed int64) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	return indices
}
