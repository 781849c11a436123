// Package tokenize splits raw text into token sequences for the feature
// extraction pipeline. Tokens are case- and normalization-sensitive; any
// Unicode canonicalization happens through the configured Normalizer
// before splitting, never inside this package.
package tokenize

import (
	"regexp"
	"strings"
)

// Normalizer is an optional pre-tokenization text transform
// (e.g., Unicode canonicalization, case folding beyond ASCII).
type Normalizer func(text string) string

// Options configures tokenization.
type Options struct {
	// NGramMin and NGramMax bound the n-gram order. Both default to 1
	// (unigrams only). NGramMax < NGramMin is treated as NGramMin.
	NGramMin int
	NGramMax int

	// Stopwords are removed after word splitting and before n-gram
	// assembly, so n-grams never span a removed stop word's position.
	Stopwords map[string]struct{}

	// Normalizer, when set, is applied to the text before splitting.
	Normalizer Normalizer
}

// Tokenizer turns text into an ordered token sequence.
type Tokenizer interface {
	Tokenize(text string) []string
}

// wordPattern extracts letter runs, keeping internal apostrophes
// ("don't" stays one token).
var wordPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)

// WordTokenizer is the default tokenizer: lowercased word extraction
// with optional stop-word removal and n-gram assembly. N-grams are
// joined with a single space.
type WordTokenizer struct {
	opts Options
}

// NewWordTokenizer creates a tokenizer with the given options.
func NewWordTokenizer(opts Options) *WordTokenizer {
	if opts.NGramMin < 1 {
		opts.NGramMin = 1
	}
	if opts.NGramMax < opts.NGramMin {
		opts.NGramMax = opts.NGramMin
	}
	return &WordTokenizer{opts: opts}
}

// Tokenize splits text into tokens per the configured options.
func (t *WordTokenizer) Tokenize(text string) []string {
	if t.opts.Normalizer != nil {
		text = t.opts.Normalizer(text)
	}
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return nil
	}

	if len(t.opts.Stopwords) > 0 {
		kept := words[:0]
		for _, w := range words {
			if _, stop := t.opts.Stopwords[w]; stop {
				continue
			}
			kept = append(kept, w)
		}
		words = kept
	}

	if t.opts.NGramMin == 1 && t.opts.NGramMax == 1 {
		return words
	}

	var tokens []string
	for n := t.opts.NGramMin; n <= t.opts.NGramMax; n++ {
		for i := 0; i+n <= len(words); i++ {
			tokens = append(tokens, strings.Join(words[i:i+n], " "))
		}
	}
	return tokens
}

// TokenizeAll tokenizes every text in order.
func TokenizeAll(t Tokenizer, texts []string) [][]string {
	out := make([][]string, len(texts))
	for i, text := range texts {
		out[i] = t.Tokenize(text)
	}
	return out
}

// DefaultStopwords returns a small English stop-word set.
func DefaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for",
		"to", "of", "in", "on", "at", "by", "with", "as", "is", "are",
		"was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again",
		"further", "than", "so", "such", "into", "about", "between",
		"through", "during", "before", "after", "above", "below", "out",
		"off", "own", "same", "too", "very", "can", "will", "just",
		"don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
