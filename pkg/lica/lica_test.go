package lica

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cognicore/lica/pkg/lica/dataset"
	"github.com/cognicore/lica/pkg/lica/index"
	"github.com/cognicore/lica/pkg/lica/internalerr"
	"github.com/cognicore/lica/pkg/lica/taxonomy"
)

func testSet() dataset.Set {
	return dataset.Set{
		Hierarchy: dataset.Hierarchy{
			{Top: "arts & entertainment", Subs: []string{"movies", "television"}},
			{Top: "hobbies & interests", Subs: []string{"coins", "currency", "stamps"}},
			{Top: "politics", Subs: []string{"elections"}},
			{Top: "sports", Subs: []string{"soccer", "tennis"}},
		},
		Payload: dataset.Payload{
			PositiveWords: map[string]map[string][]string{
				"hobbies & interests": {
					"coins":    {"coin", "coins", "dime", "penny"},
					"currency": {"banknote", "currency", "dollar"},
					"stamps":   {"stamps"},
				},
				"politics": {
					"politics":  {"senate", "congress", "senator"},
					"elections": {"ballot", "voters"},
				},
				"sports": {
					"soccer": {"fifa", "goalkeeper", "striker"},
					"tennis": {"wimbledon", "racket"},
				},
				"arts & entertainment": {
					"movies": {"film", "cinema"},
				},
			},
			IgnoreDomains: map[string]map[string]bool{
				"google.com": {"com": true},
			},
		},
		Rules: dataset.Rules{
			DomainRules: map[string]string{"imdb.com": "movies", "google.com": "soccer"},
			HostRules:   map[string]string{"au.movies.yahoo.com": "television"},
			PathRules:   map[string]string{"bbc.co.uk/sport": "sports", "google.com/finance": "currency"},
		},
		Stopwords: dataset.Stopwords{
			English: []string{"the", "http", "www", "com", "and"},
			Web:     []string{"login", "signup"},
		},
	}
}

func newTestClassifier(t *testing.T, opts Options) *Classifier {
	t.Helper()
	idx, err := index.Build(testSet(), index.Options{})
	if err != nil {
		t.Fatalf("Build index: %v", err)
	}
	c, err := New(idx, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func pair(top, sub string) taxonomy.CategoryPair {
	return taxonomy.CategoryPair{Top: top, Sub: sub}
}

func TestClassifyNoInput(t *testing.T) {
	c := newTestClassifier(t, Options{})

	if _, err := c.Classify("", ""); !errors.Is(err, internalerr.ErrNoInput) {
		t.Errorf("Expected ErrNoInput, got %v", err)
	}
}

func TestClassifyUnparseableURL(t *testing.T) {
	c := newTestClassifier(t, Options{})

	_, err := c.Classify("localhost", "coin dime penny")
	if !errors.Is(err, internalerr.ErrUnparseableURL) {
		t.Errorf("Expected ErrUnparseableURL, got %v", err)
	}
}

func TestClassifyDomainRuleWins(t *testing.T) {
	c := newTestClassifier(t, Options{})

	urls := []string{
		"imdb.com",
		"http://www.imdb.com/title/tt0111161/",
		"https://m.imdb.com/sport?q=coin",
	}
	for _, url := range urls {
		got, err := c.Classify(url, "coin coins dime penny wimbledon")
		if err != nil {
			t.Fatalf("Classify(%q): %v", url, err)
		}
		if got != pair("arts & entertainment", "movies") {
			t.Errorf("Classify(%q) = %v, want the domain rule", url, got)
		}
	}
}

func TestClassifyIgnoreDomainPrecedes(t *testing.T) {
	c := newTestClassifier(t, Options{})

	// google.com has a domain rule and a path rule, but is ignored first
	for _, url := range []string{"https://google.com/finance", "https://www.google.com/search?q=fifa"} {
		r, err := c.Explain(url, "")
		if err != nil {
			t.Fatalf("Explain(%q): %v", url, err)
		}
		if r.Category != taxonomy.IgnoredPair || r.Step != StepIgnoredDomain {
			t.Errorf("Explain(%q) = %v via %s, want ignored domain", url, r.Category, r.Step)
		}
	}
}

func TestClassifyHostRule(t *testing.T) {
	c := newTestClassifier(t, Options{})

	r, err := c.Explain("http://au.movies.yahoo.com/some/page", "")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if r.Category != pair("arts & entertainment", "television") || r.Step != StepHostRule {
		t.Errorf("Got %v via %s, want television via host rule", r.Category, r.Step)
	}

	// Partial host paths fall through to keywords
	r, _ = c.Explain("http://movies.yahoo.com/", "")
	if r.Step == StepHostRule {
		t.Error("movies.yahoo.com ends on an interior node and must not match")
	}
	r, _ = c.Explain("http://uk.au.movies.yahoo.com/", "")
	if r.Step == StepHostRule {
		t.Error("Labels beyond the leaf must not match")
	}
}

func TestClassifyPathRule(t *testing.T) {
	c := newTestClassifier(t, Options{})

	r, err := c.Explain("https://www.bbc.co.uk/sport/football/12345", "Senate votes")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if r.Category != pair("sports", taxonomy.General) || r.Step != StepPathRule {
		t.Errorf("Got %v via %s, want sports/general via path rule", r.Category, r.Step)
	}

	r, _ = c.Explain("https://www.bbc.co.uk/news/sport", "")
	if r.Step == StepPathRule {
		t.Error("Only the first path segment is matched")
	}
}

func TestClassifyKeywords(t *testing.T) {
	c := newTestClassifier(t, Options{})

	r, err := c.Explain("http://example.com/goalkeeper-and-striker", "FIFA final")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if r.Category != pair("sports", "soccer") || r.Step != StepKeywords {
		t.Errorf("Got %v via %s, want sports/soccer", r.Category, r.Step)
	}
	if len(r.Matched) != 3 {
		t.Errorf("Expected 3 matched tokens, got %v", r.Matched)
	}
	if len(r.Hits) != 1 || r.Hits[0].Count != 3 {
		t.Errorf("Unexpected hits %v", r.Hits)
	}
}

func TestClassifyTitleOnly(t *testing.T) {
	c := newTestClassifier(t, Options{})

	r, err := c.Explain("", "Wimbledon racket review")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if r.Category != pair("sports", "tennis") {
		t.Errorf("Got %v, want sports/tennis", r.Category)
	}
	if r.Components != nil {
		t.Error("No URL means no components")
	}
}

func TestClassifyNoConsensus(t *testing.T) {
	c := newTestClassifier(t, Options{})

	got, err := c.Classify("", "fifa goalkeeper senate congress")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != taxonomy.NoConsensusPair {
		t.Errorf("Tied top levels should give no consensus, got %v", got)
	}
}

func TestClassifyNoConsensusAtFive(t *testing.T) {
	c := newTestClassifier(t, Options{})

	title := "fifa fifa goalkeeper striker racket senate senate congress ballot voters"
	got, _ := c.Classify("", title)
	if got != taxonomy.NoConsensusPair {
		t.Errorf("sports 5 vs politics 5 should give no consensus, got %v", got)
	}
}

func TestClassifyTieBelowTopIsFine(t *testing.T) {
	c := newTestClassifier(t, Options{})

	// sports 3, politics 1, movies 1
	got, _ := c.Classify("", "fifa goalkeeper striker senate film")
	if got != pair("sports", "soccer") {
		t.Errorf("Got %v, want sports/soccer", got)
	}
}

func TestClassifyUnknown(t *testing.T) {
	c := newTestClassifier(t, Options{})

	r, err := c.Explain("http://example.com/the-and", "nothing relevant here")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if r.Category != taxonomy.UnknownPair || r.Step != StepNoMatch {
		t.Errorf("Got %v via %s, want unknown", r.Category, r.Step)
	}
}

func TestClassifyJoinedSubLevels(t *testing.T) {
	c := newTestClassifier(t, Options{})

	// coins 3, currency 3, stamps 1 -> the best group joined alphabetically
	got, err := c.Classify("", "currency dollar banknote coin penny dime stamps")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != pair("hobbies & interests", "coins/currency") {
		t.Errorf("Got %v, want hobbies & interests/coins/currency", got)
	}
}

func TestClassifyHighestSubGroupWins(t *testing.T) {
	c := newTestClassifier(t, Options{})

	// coins 1, currency 2: the higher group wins
	got, _ := c.Classify("", "coin dollar banknote")
	if got != pair("hobbies & interests", "currency") {
		t.Errorf("Got %v, want hobbies & interests/currency", got)
	}
}

func TestClassifyWebStoplist(t *testing.T) {
	c := newTestClassifier(t, Options{})

	r, err := c.Explain("http://example.com/login", "fifa goalkeeper striker coin dime")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if r.Category != taxonomy.IgnoredPair || r.Step != StepWebStoplist {
		t.Errorf("Got %v via %s, want ignored via web stoplist", r.Category, r.Step)
	}
	if r.StopToken != "login" {
		t.Errorf("StopToken = %q, want login", r.StopToken)
	}

	// Anywhere in the title counts too
	got, _ := c.Classify("", "fifa fifa fifa signup")
	if got != taxonomy.IgnoredPair {
		t.Errorf("Web stoplist in title should ignore, got %v", got)
	}
}

func TestClassifyEnglishStoplistSkipsKeywords(t *testing.T) {
	set := testSet()
	set.Stopwords.English = append(set.Stopwords.English, "coin")
	idx, err := index.Build(set, index.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	c, _ := New(idx, Options{})

	got, _ := c.Classify("", "coin coin coin senate")
	if got != pair("politics", taxonomy.General) {
		t.Errorf("Stopped keywords must not score, got %v", got)
	}
}

func TestClassifyIdempotent(t *testing.T) {
	for _, size := range []int{0, 16} {
		c := newTestClassifier(t, Options{CacheSize: size})

		first, err := c.Explain("http://example.com/coins", "dime penny")
		if err != nil {
			t.Fatalf("Explain: %v", err)
		}
		second, err := c.Explain("http://example.com/coins", "dime penny")
		if err != nil {
			t.Fatalf("Explain: %v", err)
		}
		if first.Category != second.Category || first.Step != second.Step {
			t.Errorf("cache %d: results differ %v vs %v", size, first.Category, second.Category)
		}
	}
}

func TestClassifyCacheReturnsCopies(t *testing.T) {
	c := newTestClassifier(t, Options{CacheSize: 4})

	first, _ := c.Explain("", "coin dime")
	first.Matched[0] = "mutated"
	first.Hits[0].Count = 99

	second, _ := c.Explain("", "coin dime")
	if second.Matched[0] != "coin" || second.Hits[0].Count != 2 {
		t.Errorf("Cached result was mutated through a returned copy: %+v", second)
	}
}

func TestClassifyCacheKeyedOnPair(t *testing.T) {
	c := newTestClassifier(t, Options{CacheSize: 4})

	got, err := c.Classify("", "coin dime")
	if err != nil || got != pair("hobbies & interests", "coins") {
		t.Fatalf("Got %v, %v", got, err)
	}

	// Same text as a URL is a different key and fails decomposition
	if _, err := c.Classify("coin dime", ""); !errors.Is(err, internalerr.ErrUnparseableURL) {
		t.Errorf("Expected ErrUnparseableURL, got %v", err)
	}
}

func TestClassifyConcurrent(t *testing.T) {
	c := newTestClassifier(t, Options{CacheSize: 8})
	want := pair("sports", "soccer")

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Classify("http://example.com/fifa", "goalkeeper")
			if err != nil {
				errs <- err
				return
			}
			if got != want {
				errs <- errors.New("unexpected category " + got.String())
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestNewNilIndex(t *testing.T) {
	if _, err := New(nil, Options{}); err == nil {
		t.Error("New(nil) should fail")
	}
}

func TestBuildPackagedCoinweek(t *testing.T) {
	c, err := Build(context.Background(), dataset.Embedded(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := c.Classify("http://www.coinweek.com/us-coins/the-marvelous-pogue-family-coin-collection-part-2-the-oliver-jung-1833-half-dime/", "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != pair("hobbies & interests", "coins") {
		t.Errorf("Got %v, want [hobbies & interests coins]", got)
	}
}

func TestBuildPackagedHostRule(t *testing.T) {
	c, err := Build(context.Background(), dataset.Embedded(), Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	got, err := c.Classify("http://au.movies.yahoo.com/", "")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got != pair("arts & entertainment", "television") {
		t.Errorf("Got %v, want arts & entertainment/television", got)
	}
}

func TestBuildResourceError(t *testing.T) {
	_, err := Build(context.Background(), dataset.Dir(t.TempDir()), Options{})
	if !errors.Is(err, internalerr.ErrResourceLoad) {
		t.Errorf("Expected ErrResourceLoad, got %v", err)
	}
}
