package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MinTokenLen is the shortest letter run kept as a token
const MinTokenLen = 3

// Tokenizer extracts lowercase word tokens from free text
type Tokenizer struct {
	foldAccents bool
}

// Option configures a Tokenizer
type Option func(*Tokenizer)

// WithAccentFolding decomposes accented letters and drops the marks before
// scanning, so "café" yields "cafe" rather than "caf".
func WithAccentFolding() Option {
	return func(t *Tokenizer) {
		t.foldAccents = true
	}
}

// NewTokenizer creates a new tokenizer
func NewTokenizer(opts ...Option) *Tokenizer {
	t := &Tokenizer{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Tokenize lowercases text and returns every maximal run of at least
// MinTokenLen ASCII letters, in input order. Duplicates are kept.
func (t *Tokenizer) Tokenize(text string) []string {
	if t.foldAccents {
		text = foldAccents(text)
	}
	text = strings.ToLower(text)

	var tokens []string
	start := -1

	for i := 0; i < len(text); i++ {
		c := text[i]
		if c >= 'a' && c <= 'z' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			if i-start >= MinTokenLen {
				tokens = append(tokens, text[start:i])
			}
			start = -1
		}
	}

	// Don't forget the last token
	if start >= 0 && len(text)-start >= MinTokenLen {
		tokens = append(tokens, text[start:])
	}

	return tokens
}

func foldAccents(text string) string {
	tr := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(tr, text)
	if err != nil {
		return text
	}
	return folded
}
