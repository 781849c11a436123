package features

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"

	"golang.org/x/crypto/blake2b"
)

// HashingVectorizer maps tokens into a fixed number of buckets via the
// hashing trick. No vocabulary is ever materialized: the token→bucket
// mapping is not invertible and not stored. Collisions are expected;
// with Signed set, a second independent hash decides each token's sign
// so that unrelated colliding tokens partially cancel instead of
// strictly adding.
//
// The computation is purely per-document, with no cross-document state,
// so documents can be vectorized in parallel.
type HashingVectorizer struct {
	NumBuckets int
	Signed     bool
}

// NewHashingVectorizer validates the bucket count.
func NewHashingVectorizer(numBuckets int, signed bool) (*HashingVectorizer, error) {
	if numBuckets <= 0 {
		return nil, fmt.Errorf("%w: numBuckets must be positive, got %d", ErrInvalidConfig, numBuckets)
	}
	return &HashingVectorizer{NumBuckets: numBuckets, Signed: signed}, nil
}

// Bucket returns the bucket index for a token, always in [0, NumBuckets).
// BLAKE2b supplies the avalanche property that makes collisions behave
// like independent noise rather than systematic bias.
func (h *HashingVectorizer) Bucket(token string) int {
	sum := blake2b.Sum256([]byte(token))
	return int(binary.BigEndian.Uint64(sum[:8]) % uint64(h.NumBuckets))
}

// Sign returns the token's accumulation sign: +1 when the second hash
// is even, -1 when odd. Always +1 for unsigned vectorizers. FNV-1a is
// independent of the BLAKE2b bucket hash.
func (h *HashingVectorizer) Sign(token string) float64 {
	if !h.Signed {
		return 1
	}
	f := fnv.New64a()
	f.Write([]byte(token))
	if f.Sum64()%2 == 0 {
		return 1
	}
	return -1
}

// Vectorize accumulates the token multiset into a dense vector of
// length NumBuckets. The result depends only on the multiset, not on
// token order. An empty token list yields an all-zero vector.
func (h *HashingVectorizer) Vectorize(tokens []string) []float64 {
	vec := make([]float64, h.NumBuckets)
	for _, tok := range tokens {
		vec[h.Bucket(tok)] += h.Sign(tok)
	}
	return vec
}

// Transform vectorizes every document into a matrix.
func (h *HashingVectorizer) Transform(docTokens [][]string) (*Matrix, error) {
	out := NewMatrix(len(docTokens), h.NumBuckets)
	for i, tokens := range docTokens {
		if err := out.SetRow(i, h.Vectorize(tokens)); err != nil {
			return nil, fmt.Errorf("hashing document %d: %w", i, err)
		}
	}
	return out, nil
}
