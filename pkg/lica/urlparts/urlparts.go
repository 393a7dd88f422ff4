// Package urlparts splits URLs into the pieces the rule index is keyed on:
// public suffix, registrable domain, subdomain remainder and path.
package urlparts

import (
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/cognicore/lica/pkg/lica/internalerr"
)

// SuffixResolver resolves public suffixes for a host name
type SuffixResolver interface {
	PublicSuffix(host string) (string, error)
	RegistrableDomain(host string) (string, error)
}

// PublicSuffixList resolves suffixes with the compiled-in Public Suffix List.
type PublicSuffixList struct{}

// PublicSuffix returns the public suffix of host, e.g. "co.uk".
func (PublicSuffixList) PublicSuffix(host string) (string, error) {
	suffix, _ := publicsuffix.PublicSuffix(host)
	if suffix == "" || suffix == host {
		return "", fmt.Errorf("no public suffix for %q", host)
	}
	return suffix, nil
}

// RegistrableDomain returns the eTLD+1 of host, e.g. "bbc.co.uk".
func (PublicSuffixList) RegistrableDomain(host string) (string, error) {
	return publicsuffix.EffectiveTLDPlusOne(host)
}

// Components are the parts of a decomposed URL
type Components struct {
	Suffix    string // co.uk
	Domain    string // bbc.co.uk
	Subdomain string // news.politics
	Path      string // thing/something
}

// Labels returns the subdomain labels ordered outer label first, so that
// "au.movies" yields ["movies", "au"]. A bare domain has no labels.
func (c Components) Labels() []string {
	if c.Subdomain == "" {
		return nil
	}
	labels := strings.Split(c.Subdomain, ".")
	for i, j := 0, len(labels)-1; i < j; i, j = i+1, j-1 {
		labels[i], labels[j] = labels[j], labels[i]
	}
	return labels
}

// FirstSegment returns the first "/"-delimited segment of the path.
func (c Components) FirstSegment() string {
	segment, _, _ := strings.Cut(c.Path, "/")
	return segment
}

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// Decomposer splits URL strings into Components
type Decomposer struct {
	resolver SuffixResolver
}

// New creates a decomposer. A nil resolver uses PublicSuffixList.
func New(resolver SuffixResolver) *Decomposer {
	if resolver == nil {
		resolver = PublicSuffixList{}
	}
	return &Decomposer{resolver: resolver}
}

// Decompose splits raw into its components. Strings without a scheme are
// treated as http URLs.
func (d *Decomposer) Decompose(raw string) (Components, error) {
	raw = strings.TrimSpace(raw)
	if !schemeRe.MatchString(raw) {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Components{}, fmt.Errorf("%w: %v", internalerr.ErrUnparseableURL, err)
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || !strings.Contains(host, ".") || net.ParseIP(host) != nil {
		return Components{}, fmt.Errorf("%w: bad host %q", internalerr.ErrUnparseableURL, host)
	}

	suffix, err := d.resolver.PublicSuffix(host)
	if err != nil {
		return Components{}, fmt.Errorf("%w: %v", internalerr.ErrUnparseableURL, err)
	}
	domain, err := d.resolver.RegistrableDomain(host)
	if err != nil {
		return Components{}, fmt.Errorf("%w: %v", internalerr.ErrUnparseableURL, err)
	}

	return Components{
		Suffix:    suffix,
		Domain:    domain,
		Subdomain: strings.TrimSuffix(strings.TrimSuffix(host, domain), "."),
		Path:      strings.TrimPrefix(u.EscapedPath(), "/"),
	}, nil
}
