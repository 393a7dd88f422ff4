package lica

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cognicore/lica/pkg/lica/dataset"
	"github.com/cognicore/lica/pkg/lica/index"
	"github.com/cognicore/lica/pkg/lica/ingest"
	"github.com/cognicore/lica/pkg/lica/internalerr"
	"github.com/cognicore/lica/pkg/lica/taxonomy"
	"github.com/cognicore/lica/pkg/lica/urlparts"
)

// Step names the stage of the decision chain that produced a result
type Step string

const (
	StepIgnoredDomain Step = "ignored-domain"
	StepDomainRule    Step = "domain-rule"
	StepHostRule      Step = "host-rule"
	StepPathRule      Step = "path-rule"
	StepWebStoplist   Step = "web-stoplist"
	StepKeywords      Step = "keywords"
	StepNoMatch       Step = "no-match"
	StepNoConsensus   Step = "no-consensus"
)

// Classifier assigns pages to two-level categories. It is safe for
// concurrent use.
type Classifier struct {
	idx        *index.Index
	decomposer *urlparts.Decomposer
	tokenizer  *ingest.Tokenizer
	cache      *lru.Cache[cacheKey, Result]
}

// Options configures a Classifier
type Options struct {
	// Decomposer splits URLs. Defaults to the public suffix list.
	Decomposer *urlparts.Decomposer
	// CacheSize bounds the per-instance result cache; zero disables it.
	CacheSize int
	// FoldAccents strips diacritics before tokenizing.
	FoldAccents bool
}

type cacheKey struct {
	url   string
	title string
}

// Hit is the keyword hit count for one category
type Hit struct {
	Category taxonomy.CategoryPair
	Count    int
}

// Result explains a classification
type Result struct {
	Category taxonomy.CategoryPair
	Step     Step
	// Components is nil when no URL was given.
	Components *urlparts.Components
	// Matched lists the tokens that hit a keyword, in input order.
	Matched []string
	// StopToken is the web stoplist token that forced an ignored result.
	StopToken string
	// Hits are sorted by count, then category.
	Hits []Hit
}

func (r Result) clone() Result {
	out := r
	if r.Components != nil {
		parts := *r.Components
		out.Components = &parts
	}
	out.Matched = append([]string(nil), r.Matched...)
	out.Hits = append([]Hit(nil), r.Hits...)
	return out
}

// New creates a classifier over a built index
func New(idx *index.Index, opts Options) (*Classifier, error) {
	if idx == nil {
		return nil, errors.New("lica: nil index")
	}

	c := &Classifier{
		idx:        idx,
		decomposer: opts.Decomposer,
	}
	if c.decomposer == nil {
		c.decomposer = urlparts.New(nil)
	}

	if opts.FoldAccents {
		c.tokenizer = ingest.NewTokenizer(ingest.WithAccentFolding())
	} else {
		c.tokenizer = ingest.NewTokenizer()
	}

	if opts.CacheSize > 0 {
		cache, err := lru.New[cacheKey, Result](opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("lica: result cache: %w", err)
		}
		c.cache = cache
	}

	return c, nil
}

// Build loads reference data from loader, builds the index and returns a
// classifier over it.
func Build(ctx context.Context, loader dataset.Loader, opts Options) (*Classifier, error) {
	set, err := dataset.LoadSet(ctx, loader)
	if err != nil {
		return nil, err
	}
	idx, err := index.Build(set, index.Options{Decomposer: opts.Decomposer})
	if err != nil {
		return nil, err
	}
	return New(idx, opts)
}

// Index returns the frozen index the classifier queries
func (c *Classifier) Index() *index.Index {
	return c.idx
}

// Classify returns the category for a page. Either url or title may be empty,
// but not both.
func (c *Classifier) Classify(url, title string) (taxonomy.CategoryPair, error) {
	r, err := c.Explain(url, title)
	if err != nil {
		return taxonomy.CategoryPair{}, err
	}
	return r.Category, nil
}

// Explain classifies a page and reports how the decision was reached.
func (c *Classifier) Explain(url, title string) (Result, error) {
	if url == "" && title == "" {
		return Result{}, internalerr.ErrNoInput
	}

	key := cacheKey{url: url, title: title}
	if c.cache != nil {
		if r, ok := c.cache.Get(key); ok {
			return r.clone(), nil
		}
	}

	r, err := c.explain(url, title)
	if err != nil {
		return Result{}, err
	}

	if c.cache != nil {
		c.cache.Add(key, r.clone())
	}
	return r, nil
}

func (c *Classifier) explain(url, title string) (Result, error) {
	var r Result

	if url != "" {
		parts, err := c.decomposer.Decompose(url)
		if err != nil {
			return Result{}, fmt.Errorf("classify %q: %w", url, err)
		}
		r.Components = &parts

		if c.idx.Ignore.Contains(parts.Domain, parts.Suffix) {
			return r.with(taxonomy.IgnoredPair, StepIgnoredDomain), nil
		}
		if pair, ok := c.idx.Domains.Lookup(parts.Domain); ok {
			return r.with(pair, StepDomainRule), nil
		}
		if pair, ok := c.idx.Hosts.Lookup(parts.Domain, parts.Labels()); ok {
			return r.with(pair, StepHostRule), nil
		}
		if pair, ok := c.idx.Paths.Lookup(parts.Domain, parts.FirstSegment()); ok {
			return r.with(pair, StepPathRule), nil
		}
	}

	tokens := c.tokenizer.Tokenize(url + " " + title)
	if tok, ok := c.idx.Web.FirstStop(tokens); ok {
		r.StopToken = tok
		return r.with(taxonomy.IgnoredPair, StepWebStoplist), nil
	}

	counts := make(map[taxonomy.CategoryPair]int)
	for _, tok := range c.idx.English.Filter(tokens) {
		pair, ok := c.idx.Keywords[tok]
		if !ok {
			continue
		}
		counts[pair]++
		r.Matched = append(r.Matched, tok)
	}
	r.Hits = sortedHits(counts)

	pair, step := resolve(counts)
	return r.with(pair, step), nil
}

func (r Result) with(pair taxonomy.CategoryPair, step Step) Result {
	r.Category = pair
	r.Step = step
	return r
}

type ranked struct {
	name  string
	count int
}

// resolve picks the top level with the most hits, then joins the equally
// best sub-levels under it alphabetically with "/".
func resolve(counts map[taxonomy.CategoryPair]int) (taxonomy.CategoryPair, Step) {
	sums := make(map[string]int)
	for pair, n := range counts {
		sums[pair.Top] += n
	}

	ranking := make([]ranked, 0, len(sums))
	for top, n := range sums {
		ranking = append(ranking, ranked{name: top, count: n})
	}
	sortRanked(ranking)

	switch {
	case len(ranking) == 0:
		return taxonomy.UnknownPair, StepNoMatch
	case len(ranking) > 1 && ranking[0].count == ranking[1].count:
		return taxonomy.NoConsensusPair, StepNoConsensus
	}
	top := ranking[0].name

	byCount := make(map[int][]string)
	best := 0
	for pair, n := range counts {
		if pair.Top != top {
			continue
		}
		byCount[n] = append(byCount[n], pair.Sub)
		if n > best {
			best = n
		}
	}
	subs := byCount[best]
	sort.Strings(subs)

	return taxonomy.CategoryPair{Top: top, Sub: strings.Join(subs, "/")}, StepKeywords
}

func sortRanked(r []ranked) {
	sort.Slice(r, func(i, j int) bool {
		if r[i].count != r[j].count {
			return r[i].count > r[j].count
		}
		return r[i].name < r[j].name
	})
}

func sortedHits(counts map[taxonomy.CategoryPair]int) []Hit {
	if len(counts) == 0 {
		return nil
	}
	hits := make([]Hit, 0, len(counts))
	for pair, n := range counts {
		hits = append(hits, Hit{Category: pair, Count: n})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Count != hits[j].Count {
			return hits[i].Count > hits[j].Count
		}
		if hits[i].Category.Top != hits[j].Category.Top {
			return hits[i].Category.Top < hits[j].Category.Top
		}
		return hits[i].Category.Sub < hits[j].Category.Sub
	})
	return hits
}
