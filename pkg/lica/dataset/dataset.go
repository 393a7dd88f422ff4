// Package dataset defines the reference data the classifier index is built
// from, and the loaders that fetch it.
package dataset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lica/pkg/lica/taxonomy"
)

// Dataset names
const (
	HierarchyName = "hierarchy.json"
	PayloadName   = "payload.json"
	RulesName     = "domain_rules.json"
	StopwordsName = "stopwords.json"
)

// Names returns the datasets a classifier needs, in load order.
func Names() []string {
	return []string{HierarchyName, PayloadName, RulesName, StopwordsName}
}

// Loader fetches a raw dataset by name
type Loader interface {
	Load(ctx context.Context, name string) ([]byte, error)
}

// Hierarchy is the ordered topic hierarchy: top-level name -> sub-level names.
// Declaration order is kept because it decides keyword collisions.
type Hierarchy []taxonomy.Branch

// UnmarshalJSON decodes a JSON object while keeping key order.
func (h *Hierarchy) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("hierarchy: expected object, got %v", tok)
	}

	var out Hierarchy
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		top, ok := tok.(string)
		if !ok {
			return fmt.Errorf("hierarchy: expected key, got %v", tok)
		}
		var subs []string
		if err := dec.Decode(&subs); err != nil {
			return fmt.Errorf("hierarchy %q: %w", top, err)
		}
		out = append(out, taxonomy.Branch{Top: top, Subs: subs})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*h = out
	return nil
}

// UnmarshalYAML decodes a YAML mapping while keeping key order.
func (h *Hierarchy) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("hierarchy: expected mapping at line %d", value.Line)
	}

	out := make(Hierarchy, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, val := value.Content[i], value.Content[i+1]
		var subs []string
		if err := val.Decode(&subs); err != nil {
			return fmt.Errorf("hierarchy %q: %w", key.Value, err)
		}
		out = append(out, taxonomy.Branch{Top: key.Value, Subs: subs})
	}

	*h = out
	return nil
}

// Payload holds the keyword lists and the ignored domains
type Payload struct {
	// top level -> category -> keywords
	PositiveWords map[string]map[string][]string `json:"positive_words" yaml:"positive_words"`
	// registrable domain -> public suffix -> true
	IgnoreDomains map[string]map[string]bool `json:"ignore_domains" yaml:"ignore_domains"`
}

// Rules holds the domain, host and path overrides. Values are category names.
type Rules struct {
	DomainRules map[string]string `json:"domain_rules" yaml:"domain_rules"`
	HostRules   map[string]string `json:"host_rules" yaml:"host_rules"`
	PathRules   map[string]string `json:"path_rules" yaml:"path_rules"`
}

// Stopwords holds the english stoplist and the web kill list
type Stopwords struct {
	English []string `json:"english" yaml:"english"`
	Web     []string `json:"web" yaml:"web"`
}

// Set is everything the index is built from
type Set struct {
	Hierarchy Hierarchy
	Payload   Payload
	Rules     Rules
	Stopwords Stopwords
}

// Decode parses a dataset. Names ending in .yaml or .yml are read as YAML,
// anything else as JSON.
func Decode(name string, data []byte, v any) error {
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}

// LoadSet fetches, decodes and validates the four datasets from l.
func LoadSet(ctx context.Context, l Loader) (Set, error) {
	var set Set
	targets := []struct {
		name string
		v    any
	}{
		{HierarchyName, &set.Hierarchy},
		{PayloadName, &set.Payload},
		{RulesName, &set.Rules},
		{StopwordsName, &set.Stopwords},
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return Set{}, err
		}
		data, err := l.Load(ctx, target.name)
		if err != nil {
			return Set{}, &ResourceLoadError{Name: target.name, Err: err}
		}
		if err := Decode(target.name, data, target.v); err != nil {
			return Set{}, &ResourceLoadError{Name: target.name, Err: err}
		}
	}

	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate checks the schema constraints that decoding alone cannot.
func (s Set) Validate() error {
	if len(s.Hierarchy) == 0 {
		return &ResourceLoadError{Name: HierarchyName, Err: fmt.Errorf("empty hierarchy")}
	}
	for _, b := range s.Hierarchy {
		if strings.TrimSpace(b.Top) == "" {
			return &ResourceLoadError{Name: HierarchyName, Err: fmt.Errorf("empty top-level name")}
		}
		for _, sub := range b.Subs {
			if strings.TrimSpace(sub) == "" {
				return &ResourceLoadError{Name: HierarchyName, Err: fmt.Errorf("empty sub-level name under %q", b.Top)}
			}
		}
	}

	for top, cats := range s.Payload.PositiveWords {
		for cat, words := range cats {
			for _, w := range words {
				if strings.TrimSpace(w) == "" {
					return &ResourceLoadError{Name: PayloadName, Err: fmt.Errorf("empty keyword in %s/%s", top, cat)}
				}
			}
		}
	}

	for _, list := range [][]string{s.Stopwords.English, s.Stopwords.Web} {
		for _, w := range list {
			if strings.TrimSpace(w) == "" {
				return &ResourceLoadError{Name: StopwordsName, Err: fmt.Errorf("empty stopword")}
			}
		}
	}

	return nil
}
