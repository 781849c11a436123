package features

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func TestNewHashingVectorizer(t *testing.T) {
	for _, buckets := range []int{0, -1} {
		if _, err := NewHashingVectorizer(buckets, false); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("buckets=%d: expected ErrInvalidConfig, got %v", buckets, err)
		}
	}
	if _, err := NewHashingVectorizer(1, true); err != nil {
		t.Errorf("buckets=1 should be valid: %v", err)
	}
}

func TestHashingBucketRange(t *testing.T) {
	for _, buckets := range []int{1, 4, 7, 1024} {
		h, err := NewHashingVectorizer(buckets, false)
		if err != nil {
			t.Fatalf("NewHashingVectorizer(%d): %v", buckets, err)
		}
		for i := 0; i < 500; i++ {
			b := h.Bucket(fmt.Sprintf("token-%d", i))
			if b < 0 || b >= buckets {
				t.Fatalf("bucket %d out of range [0,%d)", b, buckets)
			}
		}
	}
}

func TestHashingOrderIndependence(t *testing.T) {
	h, _ := NewHashingVectorizer(32, true)
	tokens := []string{"alpha", "beta", "gamma", "alpha", "delta", "beta", "beta"}

	want := h.Vectorize(tokens)
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]string(nil), tokens...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		if got := h.Vectorize(shuffled); !reflect.DeepEqual(got, want) {
			t.Fatalf("permutation changed the vector: %v vs %v", got, want)
		}
	}
}

func TestHashingEmptyTokenList(t *testing.T) {
	h, _ := NewHashingVectorizer(8, true)
	vec := h.Vectorize(nil)
	if len(vec) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(vec))
	}
	for _, v := range vec {
		if v != 0 {
			t.Error("empty token list should yield an all-zero vector")
		}
	}
}

// findColliding searches generated tokens for a pair that lands in the
// same bucket, with signs per wantSameSign.
func findColliding(t *testing.T, h *HashingVectorizer, wantSameSign bool) (string, string) {
	t.Helper()
	seen := make(map[int][]string)
	for i := 0; i < 10000; i++ {
		tok := fmt.Sprintf("tok%d", i)
		bucket := h.Bucket(tok)
		for _, prev := range seen[bucket] {
			if (h.Sign(prev) == h.Sign(tok)) == wantSameSign {
				return prev, tok
			}
		}
		seen[bucket] = append(seen[bucket], tok)
	}
	t.Fatal("no colliding token pair found")
	return "", ""
}

func TestHashingUnsignedCollisionsAdd(t *testing.T) {
	h, _ := NewHashingVectorizer(4, false)
	a, b := findColliding(t, h, true)

	// Two occurrences of a and one of b, all in the same bucket,
	// accumulate to 3.
	vec := h.Vectorize([]string{a, a, b})
	bucket := h.Bucket(a)
	for i, v := range vec {
		if i == bucket {
			if v != 3 {
				t.Errorf("colliding bucket = %g, want 3", v)
			}
		} else if v != 0 {
			t.Errorf("bucket %d = %g, want 0", i, v)
		}
	}
}

func TestHashingSignedCollisionsCancel(t *testing.T) {
	h, _ := NewHashingVectorizer(4, true)
	a, b := findColliding(t, h, false) // same bucket, opposite signs

	// One occurrence of b cancels one of the two occurrences of a.
	vec := h.Vectorize([]string{a, a, b})
	bucket := h.Bucket(a)
	want := 2*h.Sign(a) + h.Sign(b) // magnitude 1
	if math.Abs(vec[bucket]-want) > 1e-12 {
		t.Errorf("colliding bucket = %g, want %g", vec[bucket], want)
	}
	if math.Abs(vec[bucket]) != 1 {
		t.Errorf("opposite signs should leave magnitude 1, got %g", vec[bucket])
	}
}

func TestHashingDistributionRoughlyUniform(t *testing.T) {
	const buckets = 16
	const tokens = 8000
	h, _ := NewHashingVectorizer(buckets, false)

	counts := make([]int, buckets)
	for i := 0; i < tokens; i++ {
		counts[h.Bucket(fmt.Sprintf("w%d-%d", i, i*i))]++
	}

	expected := float64(tokens) / buckets
	for i, c := range counts {
		if float64(c) < expected*0.8 || float64(c) > expected*1.2 {
			t.Errorf("bucket %d holds %d tokens, expected about %.0f", i, c, expected)
		}
	}
}

func TestHashingTransform(t *testing.T) {
	h, _ := NewHashingVectorizer(16, true)
	m, err := h.Transform([][]string{{"a", "b"}, nil})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if m.Rows() != 2 || m.Cols() != 16 {
		t.Errorf("unexpected shape %dx%d", m.Rows(), m.Cols())
	}
	if !reflect.DeepEqual(m.Row(0), h.Vectorize([]string{"a", "b"})) {
		t.Error("matrix row should match per-document vectorization")
	}
}
