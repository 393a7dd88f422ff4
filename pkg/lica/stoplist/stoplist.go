package stoplist

import (
	"sort"
	"strings"
)

// List is an immutable set of stopwords
type List struct {
	stops map[string]struct{}
}

// New creates a stoplist from the given words. Words are lowercased and
// surrounding whitespace is dropped.
func New(words []string) *List {
	stops := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		stops[w] = struct{}{}
	}
	return &List{stops: stops}
}

// IsStop checks if a token is a stopword
func (l *List) IsStop(token string) bool {
	_, ok := l.stops[token]
	return ok
}

// FirstStop returns the first token that is a stopword.
func (l *List) FirstStop(tokens []string) (string, bool) {
	for _, tok := range tokens {
		if l.IsStop(tok) {
			return tok, true
		}
	}
	return "", false
}

// Filter returns the tokens that are not stopwords, in order.
func (l *List) Filter(tokens []string) []string {
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if !l.IsStop(tok) {
			kept = append(kept, tok)
		}
	}
	return kept
}

// Len returns the number of stopwords
func (l *List) Len() int {
	return len(l.stops)
}

// All returns all stopwords, sorted
func (l *List) All() []string {
	result := make([]string, 0, len(l.stops))
	for s := range l.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}
