package taxonomy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/lica/pkg/lica/internalerr"
)

// Reserved category names
const (
	General       = "general"
	Uncategorized = "uncategorized"
	Ignored       = "ignored"
	Unknown       = "unknown"
	NoConsensus   = "no consensus"
)

// Fixed results used by the classifier
var (
	IgnoredPair     = CategoryPair{Top: Uncategorized, Sub: Ignored}
	UnknownPair     = CategoryPair{Top: Uncategorized, Sub: Unknown}
	NoConsensusPair = CategoryPair{Top: Uncategorized, Sub: NoConsensus}
)

// CategoryPair is a two-level topic category, e.g. ("hobbies & interests", "coins").
type CategoryPair struct {
	Top string
	Sub string
}

// String renders the pair as "top/sub".
func (p CategoryPair) String() string {
	return p.Top + "/" + p.Sub
}

// IsUncategorized reports whether the pair is one of the uncategorized outcomes.
func (p CategoryPair) IsUncategorized() bool {
	return p.Top == Uncategorized
}

// MarshalJSON encodes the pair as a two element array. Names are written
// unescaped, so "&" stays "&".
func (p CategoryPair) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode([2]string{p.Top, p.Sub}); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON decodes a two element array.
func (p *CategoryPair) UnmarshalJSON(data []byte) error {
	var pair [2]string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.Top, p.Sub = pair[0], pair[1]
	return nil
}

// Branch is one top-level category and its ordered sub-levels.
type Branch struct {
	Top  string
	Subs []string
}

// UnknownCategoryError reports a reference to a name missing from the taxonomy.
type UnknownCategoryError struct {
	Name string
}

func (e *UnknownCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Name)
}

// Is matches internalerr.ErrUnknownCategory.
func (e *UnknownCategoryError) Is(target error) bool {
	return target == internalerr.ErrUnknownCategory
}

// Taxonomy maps category names to their pairs
type Taxonomy struct {
	names    map[string]CategoryPair
	branches []Branch
}

// New builds a taxonomy from an ordered hierarchy. A top-level name resolves
// to (top, "general") and a sub-level name to (owner, sub). When a name is
// declared more than once the first declaration wins.
func New(hierarchy []Branch) *Taxonomy {
	t := &Taxonomy{
		names:    make(map[string]CategoryPair),
		branches: make([]Branch, 0, len(hierarchy)),
	}
	for _, b := range hierarchy {
		top := strings.TrimSpace(b.Top)
		t.add(top, CategoryPair{Top: top, Sub: General})
		subs := make([]string, 0, len(b.Subs))
		for _, sub := range b.Subs {
			sub = strings.TrimSpace(sub)
			t.add(sub, CategoryPair{Top: top, Sub: sub})
			subs = append(subs, sub)
		}
		t.branches = append(t.branches, Branch{Top: top, Subs: subs})
	}
	return t
}

func (t *Taxonomy) add(name string, pair CategoryPair) {
	if _, ok := t.names[name]; ok {
		return
	}
	t.names[name] = pair
}

// Resolve returns the pair for a category name
func (t *Taxonomy) Resolve(name string) (CategoryPair, error) {
	pair, ok := t.names[name]
	if !ok {
		return CategoryPair{}, &UnknownCategoryError{Name: name}
	}
	return pair, nil
}

// ResolveUnder resolves a category name that is declared under top. The
// top-level name itself resolves to (top, "general").
func (t *Taxonomy) ResolveUnder(top, name string) (CategoryPair, error) {
	pair, err := t.Resolve(name)
	if err != nil {
		return CategoryPair{}, err
	}
	if pair.Top != top {
		return CategoryPair{}, &UnknownCategoryError{Name: top + "/" + name}
	}
	return pair, nil
}

// Branches returns the hierarchy in declaration order.
func (t *Taxonomy) Branches() []Branch {
	out := make([]Branch, len(t.branches))
	for i, b := range t.branches {
		out[i] = Branch{Top: b.Top, Subs: append([]string(nil), b.Subs...)}
	}
	return out
}

// Len returns the number of resolvable names.
func (t *Taxonomy) Len() int {
	return len(t.names)
}
