// Package rules holds the override structures consulted before keyword
// scoring: ignored domains, whole-domain rules, host label trees and first
// path segment rules.
package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/lica/pkg/lica/internalerr"
	"github.com/cognicore/lica/pkg/lica/taxonomy"
)

// ConflictError reports two host rules that disagree at the same tree path
type ConflictError struct {
	Path []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting host rules at %q", strings.Join(e.Path, " > "))
}

// Is matches internalerr.ErrConflict.
func (e *ConflictError) Is(target error) bool {
	return target == internalerr.ErrConflict
}

// Node is a host rule tree node. A node is either a leaf holding a category
// or an interior node holding children, never both.
type Node struct {
	leaf     *taxonomy.CategoryPair
	children map[string]*Node
}

// NewLeaf creates a leaf node
func NewLeaf(pair taxonomy.CategoryPair) *Node {
	return &Node{leaf: &pair}
}

// NewInterior creates an empty interior node
func NewInterior() *Node {
	return &Node{children: make(map[string]*Node)}
}

// Chain builds the single-branch tree labels[0] > labels[1] > ... > leaf.
func Chain(labels []string, pair taxonomy.CategoryPair) *Node {
	node := NewLeaf(pair)
	for i := len(labels) - 1; i >= 0; i-- {
		parent := NewInterior()
		parent.children[labels[i]] = node
		node = parent
	}
	return node
}

// IsLeaf reports whether the node holds a category
func (n *Node) IsLeaf() bool {
	return n.leaf != nil
}

// Merge deep-merges other into n. Identical leaves at the same path are a
// no-op; differing leaves, or a leaf meeting a subtree, fail with a
// *ConflictError naming the path. On conflict n may be partially merged.
func (n *Node) Merge(other *Node) error {
	return merge(n, other, nil)
}

func merge(dst, src *Node, path []string) error {
	if dst.IsLeaf() || src.IsLeaf() {
		if dst.IsLeaf() && src.IsLeaf() && *dst.leaf == *src.leaf {
			return nil
		}
		return &ConflictError{Path: append([]string(nil), path...)}
	}

	for _, label := range sortedLabels(src.children) {
		child := src.children[label]
		existing, ok := dst.children[label]
		if !ok {
			dst.children[label] = child
			continue
		}
		if err := merge(existing, child, append(path, label)); err != nil {
			return err
		}
	}
	return nil
}

// Lookup walks labels from n. Only a walk that consumes every label and ends
// on a leaf matches.
func (n *Node) Lookup(labels []string) (taxonomy.CategoryPair, bool) {
	node := n
	for _, label := range labels {
		if node.IsLeaf() {
			return taxonomy.CategoryPair{}, false
		}
		next, ok := node.children[label]
		if !ok {
			return taxonomy.CategoryPair{}, false
		}
		node = next
	}
	if !node.IsLeaf() {
		return taxonomy.CategoryPair{}, false
	}
	return *node.leaf, true
}

// Leaves counts the leaves below n
func (n *Node) Leaves() int {
	if n.IsLeaf() {
		return 1
	}
	total := 0
	for _, child := range n.children {
		total += child.Leaves()
	}
	return total
}

func sortedLabels(children map[string]*Node) []string {
	labels := make([]string, 0, len(children))
	for label := range children {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// HostTree maps a registrable domain to its label tree
type HostTree map[string]*Node

// Add merges the rule domain > labels... > pair into the tree.
func (h HostTree) Add(domain string, labels []string, pair taxonomy.CategoryPair) error {
	if len(labels) == 0 {
		return fmt.Errorf("%w: host rule for %q has no subdomain", internalerr.ErrInvalidRule, domain)
	}
	root, ok := h[domain]
	if !ok {
		root = NewInterior()
		h[domain] = root
	}
	if err := root.Merge(Chain(labels, pair)); err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			conflict.Path = append([]string{domain}, conflict.Path...)
		}
		return err
	}
	return nil
}

// Lookup finds the category for labels (outer label first) under domain.
func (h HostTree) Lookup(domain string, labels []string) (taxonomy.CategoryPair, bool) {
	if len(labels) == 0 {
		return taxonomy.CategoryPair{}, false
	}
	root, ok := h[domain]
	if !ok {
		return taxonomy.CategoryPair{}, false
	}
	return root.Lookup(labels)
}

// Len counts all host rules in the tree
func (h HostTree) Len() int {
	total := 0
	for _, root := range h {
		total += root.Leaves()
	}
	return total
}

// DomainRules maps a registrable domain to the single topic of the site
type DomainRules map[string]taxonomy.CategoryPair

// Lookup returns the rule for domain
func (d DomainRules) Lookup(domain string) (taxonomy.CategoryPair, bool) {
	pair, ok := d[domain]
	return pair, ok
}

// PathRules maps registrable domain -> first path segment -> category
type PathRules map[string]map[string]taxonomy.CategoryPair

// Set stores a rule, replacing any earlier rule for the same segment.
func (p PathRules) Set(domain, segment string, pair taxonomy.CategoryPair) {
	segments, ok := p[domain]
	if !ok {
		segments = make(map[string]taxonomy.CategoryPair)
		p[domain] = segments
	}
	segments[segment] = pair
}

// Lookup returns the rule for domain and segment. An empty segment never matches.
func (p PathRules) Lookup(domain, segment string) (taxonomy.CategoryPair, bool) {
	if segment == "" {
		return taxonomy.CategoryPair{}, false
	}
	pair, ok := p[domain][segment]
	return pair, ok
}

// Len counts all path rules
func (p PathRules) Len() int {
	total := 0
	for _, segments := range p {
		total += len(segments)
	}
	return total
}

// IgnoreSet is a set of (registrable domain, public suffix) pairs
type IgnoreSet map[string]map[string]struct{}

// Add inserts a pair
func (s IgnoreSet) Add(domain, suffix string) {
	suffixes, ok := s[domain]
	if !ok {
		suffixes = make(map[string]struct{})
		s[domain] = suffixes
	}
	suffixes[suffix] = struct{}{}
}

// Contains reports whether the pair is ignored
func (s IgnoreSet) Contains(domain, suffix string) bool {
	_, ok := s[domain][suffix]
	return ok
}

// Len counts all pairs
func (s IgnoreSet) Len() int {
	total := 0
	for _, suffixes := range s {
		total += len(suffixes)
	}
	return total
}
