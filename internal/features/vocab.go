package features

import (
	"fmt"
	"sort"
)

// Vocabulary maps retained tokens to column indices. It is built from a
// training partition only and is immutable once built.
type Vocabulary struct {
	index map[string]int
	terms []string
}

// Lookup returns the column index for a token.
func (v *Vocabulary) Lookup(token string) (int, bool) {
	idx, ok := v.index[token]
	return idx, ok
}

// Size returns the number of retained tokens.
func (v *Vocabulary) Size() int { return len(v.terms) }

// Terms returns the retained tokens in column order. The returned slice
// is a copy.
func (v *Vocabulary) Terms() []string {
	out := make([]string, len(v.terms))
	copy(out, v.terms)
	return out
}

// DocumentFrequencies counts, per distinct token, the number of
// documents containing it at least once.
func DocumentFrequencies(docTokens [][]string) map[string]int {
	df := make(map[string]int)
	for _, tokens := range docTokens {
		seen := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	return df
}

// BuildVocabulary selects the top maxTokens tokens by descending
// document frequency, tie-broken by lexicographic token order so the
// result is deterministic. Column indices are assigned in rank order.
// A maxTokens larger than the distinct-token count keeps all tokens.
func BuildVocabulary(docTokens [][]string, maxTokens int) (*Vocabulary, error) {
	if len(docTokens) == 0 {
		return nil, fmt.Errorf("building vocabulary: %w", ErrEmptyInput)
	}
	if maxTokens < 1 {
		return nil, fmt.Errorf("%w: maxTokens must be >= 1, got %d", ErrInvalidConfig, maxTokens)
	}

	df := DocumentFrequencies(docTokens)
	ranked := make([]string, 0, len(df))
	for tok := range df {
		ranked = append(ranked, tok)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if df[ranked[i]] != df[ranked[j]] {
			return df[ranked[i]] > df[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if maxTokens < len(ranked) {
		ranked = ranked[:maxTokens]
	}

	index := make(map[string]int, len(ranked))
	for i, tok := range ranked {
		index[tok] = i
	}
	return &Vocabulary{index: index, terms: ranked}, nil
}
