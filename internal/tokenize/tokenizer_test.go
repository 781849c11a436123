package tokenize

import (
	"reflect"
	"strings"
	"testing"
)

func TestWordTokenizer(t *testing.T) {
	t.Run("lowercases and splits on non-letters", func(t *testing.T) {
		tok := NewWordTokenizer(Options{})
		got := tok.Tokenize("The Quick, Brown FOX!")
		want := []string{"the", "quick", "brown", "fox"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("keeps internal apostrophes", func(t *testing.T) {
		tok := NewWordTokenizer(Options{})
		got := tok.Tokenize("don't stop")
		want := []string{"don't", "stop"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("empty text yields nil", func(t *testing.T) {
		tok := NewWordTokenizer(Options{})
		if got := tok.Tokenize("  123 !!! "); got != nil {
			t.Errorf("expected nil for letterless text, got %v", got)
		}
	})

	t.Run("removes stopwords before n-gram assembly", func(t *testing.T) {
		tok := NewWordTokenizer(Options{
			NGramMin:  2,
			NGramMax:  2,
			Stopwords: map[string]struct{}{"the": {}},
		})
		got := tok.Tokenize("the quick brown fox")
		// "the" removed first, so bigrams span the gap
		want := []string{"quick brown", "brown fox"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("mixed unigram and bigram output", func(t *testing.T) {
		tok := NewWordTokenizer(Options{NGramMin: 1, NGramMax: 2})
		got := tok.Tokenize("old dusty books")
		want := []string{"old", "dusty", "books", "old dusty", "dusty books"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("applies normalizer before splitting", func(t *testing.T) {
		tok := NewWordTokenizer(Options{
			Normalizer: func(s string) string { return strings.ReplaceAll(s, "œ", "oe") },
		})
		got := tok.Tokenize("cœur")
		want := []string{"coeur"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("invalid n-gram bounds are clamped", func(t *testing.T) {
		tok := NewWordTokenizer(Options{NGramMin: 0, NGramMax: -3})
		got := tok.Tokenize("one two")
		want := []string{"one", "two"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})
}

func TestTokenizeAll(t *testing.T) {
	tok := NewWordTokenizer(Options{})
	got := TokenizeAll(tok, []string{"one two", "", "three"})
	if len(got) != 3 {
		t.Fatalf("expected 3 token lists, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0], []string{"one", "two"}) || got[1] != nil {
		t.Errorf("unexpected tokenization: %v", got)
	}
}

func TestDefaultStopwords(t *testing.T) {
	sw := DefaultStopwords()
	if _, ok := sw["the"]; !ok {
		t.Error("expected 'the' in default stopwords")
	}
	if _, ok := sw["phylogenetics"]; ok {
		t.Error("unexpected content word in default stopwords")
	}
}
