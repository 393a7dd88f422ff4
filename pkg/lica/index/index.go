// Package index builds the frozen lookup structures the classifier queries:
// taxonomy, keyword index, rule maps and stoplists.
package index

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/lica/pkg/lica/dataset"
	"github.com/cognicore/lica/pkg/lica/rules"
	"github.com/cognicore/lica/pkg/lica/stoplist"
	"github.com/cognicore/lica/pkg/lica/taxonomy"
	"github.com/cognicore/lica/pkg/lica/urlparts"
)

// Index is the immutable result of Build. Nothing mutates it after Build
// returns, so it may be shared by any number of goroutines.
type Index struct {
	Taxonomy *taxonomy.Taxonomy
	Keywords map[string]taxonomy.CategoryPair
	Ignore   rules.IgnoreSet
	Domains  rules.DomainRules
	Hosts    rules.HostTree
	Paths    rules.PathRules
	English  *stoplist.List
	Web      *stoplist.List

	// Collisions lists keywords declared under more than one category.
	Collisions []KeywordCollision
}

// KeywordCollision records a keyword whose later declaration was dropped
type KeywordCollision struct {
	Keyword string
	Kept    taxonomy.CategoryPair
	Dropped taxonomy.CategoryPair
}

// Stats summarizes the size of an index
type Stats struct {
	Categories  int
	Keywords    int
	Collisions  int
	Ignored     int
	DomainRules int
	HostRules   int
	PathRules   int
	English     int
	Web         int
}

// Options configures Build
type Options struct {
	// Decomposer splits rule keys. Defaults to the public suffix list.
	Decomposer *urlparts.Decomposer
}

// Build constructs an index from reference data. Unknown category names,
// conflicting host rules and rule keys that cannot be decomposed abort the
// build.
func Build(set dataset.Set, opts Options) (*Index, error) {
	dec := opts.Decomposer
	if dec == nil {
		dec = urlparts.New(nil)
	}

	tax := taxonomy.New(set.Hierarchy)
	idx := &Index{
		Taxonomy: tax,
		Keywords: make(map[string]taxonomy.CategoryPair),
		Ignore:   rules.IgnoreSet{},
		Domains:  rules.DomainRules{},
		Hosts:    rules.HostTree{},
		Paths:    rules.PathRules{},
		English:  stoplist.New(set.Stopwords.English),
		Web:      stoplist.New(set.Stopwords.Web),
	}

	if err := idx.buildKeywords(set.Payload.PositiveWords); err != nil {
		return nil, err
	}

	for domain, suffixes := range set.Payload.IgnoreDomains {
		for suffix, ignored := range suffixes {
			if ignored {
				idx.Ignore.Add(strings.ToLower(domain), strings.ToLower(suffix))
			}
		}
	}

	for _, domain := range sortedKeys(set.Rules.DomainRules) {
		pair, err := tax.Resolve(set.Rules.DomainRules[domain])
		if err != nil {
			return nil, fmt.Errorf("domain rule %q: %w", domain, err)
		}
		idx.Domains[strings.ToLower(domain)] = pair
	}

	for _, host := range sortedKeys(set.Rules.HostRules) {
		pair, err := tax.Resolve(set.Rules.HostRules[host])
		if err != nil {
			return nil, fmt.Errorf("host rule %q: %w", host, err)
		}
		parts, err := dec.Decompose(host)
		if err != nil {
			return nil, fmt.Errorf("host rule %q: %w", host, err)
		}
		if err := idx.Hosts.Add(parts.Domain, parts.Labels(), pair); err != nil {
			return nil, fmt.Errorf("host rule %q: %w", host, err)
		}
	}

	// Later keys overwrite earlier ones for the same (domain, segment).
	for _, key := range sortedKeys(set.Rules.PathRules) {
		pair, err := tax.Resolve(set.Rules.PathRules[key])
		if err != nil {
			return nil, fmt.Errorf("path rule %q: %w", key, err)
		}
		parts, err := dec.Decompose(key)
		if err != nil {
			return nil, fmt.Errorf("path rule %q: %w", key, err)
		}
		idx.Paths.Set(parts.Domain, parts.FirstSegment(), pair)
	}

	return idx, nil
}

// buildKeywords flattens top -> category -> keywords into keyword -> pair.
// Top levels are visited in hierarchy order and categories in taxonomy order
// (the top level's own "general" bucket first); the first declaration of a
// keyword wins.
func (idx *Index) buildKeywords(words map[string]map[string][]string) error {
	declared := make(map[string]bool)
	for _, b := range idx.Taxonomy.Branches() {
		declared[b.Top] = true
	}
	for _, top := range sortedKeys(words) {
		if !declared[top] {
			return fmt.Errorf("positive words: %w", &taxonomy.UnknownCategoryError{Name: top})
		}
		for _, cat := range sortedKeys(words[top]) {
			if _, err := idx.Taxonomy.ResolveUnder(top, cat); err != nil {
				return fmt.Errorf("positive words: %w", err)
			}
		}
	}

	for _, b := range idx.Taxonomy.Branches() {
		cats, ok := words[b.Top]
		if !ok {
			continue
		}
		for _, cat := range append([]string{b.Top}, b.Subs...) {
			pair, err := idx.Taxonomy.ResolveUnder(b.Top, cat)
			if err != nil {
				// Name declared earlier under another top level
				continue
			}
			for _, kw := range cats[cat] {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kept, ok := idx.Keywords[kw]; ok {
					if kept != pair {
						idx.Collisions = append(idx.Collisions, KeywordCollision{Keyword: kw, Kept: kept, Dropped: pair})
					}
					continue
				}
				idx.Keywords[kw] = pair
			}
		}
	}
	return nil
}

// Stats returns the size of each structure
func (idx *Index) Stats() Stats {
	return Stats{
		Categories:  idx.Taxonomy.Len(),
		Keywords:    len(idx.Keywords),
		Collisions:  len(idx.Collisions),
		Ignored:     idx.Ignore.Len(),
		DomainRules: len(idx.Domains),
		HostRules:   idx.Hosts.Len(),
		PathRules:   idx.Paths.Len(),
		English:     idx.English.Len(),
		Web:         idx.Web.Len(),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
