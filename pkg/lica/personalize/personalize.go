// Package personalize picks, for each personalizable container on a page,
// the child block that best matches a reader's interests.
package personalize

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/cognicore/lica/pkg/lica/taxonomy"
)

// Classifier is the subset of *lica.Classifier used here.
type Classifier interface {
	Classify(url, title string) (taxonomy.CategoryPair, error)
}

// Block is one candidate child of a container
type Block struct {
	ID   string
	Text string
}

// Container is a div marked personalizable="true"
type Container struct {
	ID     string
	Blocks []Block
}

// Decision says which block of a container to show. Hide lists the others.
// Both are empty when no block is relevant.
type Decision struct {
	Container string   `json:"container"`
	Show      string   `json:"show"`
	Hide      []string `json:"hide"`
}

// Profile maps "top" or "top/sub" to an interest weight.
type Profile map[string]float64

// Relevance scores a category against the profile. A joined sub such as
// "coins/currency" scores the best of its parts.
func (p Profile) Relevance(pair taxonomy.CategoryPair) float64 {
	if pair.IsUncategorized() {
		return 0
	}
	score := p[pair.Top]

	var best float64
	for _, sub := range strings.Split(pair.Sub, "/") {
		if w, ok := p[pair.Top+"/"+sub]; ok && w > best {
			best = w
		}
	}
	return score + best
}

// Personalizer chooses blocks using a classifier and an interest profile
type Personalizer struct {
	Classifier Classifier
	Profile    Profile
}

// ChooseMostRelevant returns the id of the block with the highest positive
// relevance. The first block wins ties; "" means nothing was relevant.
func (p *Personalizer) ChooseMostRelevant(blocks []Block) string {
	bestID := ""
	bestScore := 0.0

	for _, b := range blocks {
		pair, err := p.Classifier.Classify("", b.Text)
		if err != nil {
			continue
		}
		if score := p.Profile.Relevance(pair); score > bestScore {
			bestScore = score
			bestID = b.ID
		}
	}

	return bestID
}

// Plan parses an HTML page and decides every personalizable container.
func (p *Personalizer) Plan(r io.Reader) ([]Decision, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	containers := Containers(doc)
	decisions := make([]Decision, 0, len(containers))
	for _, c := range containers {
		d := Decision{Container: c.ID, Hide: []string{}}
		if show := p.ChooseMostRelevant(c.Blocks); show != "" {
			d.Show = show
			for _, b := range c.Blocks {
				if b.ID != show {
					d.Hide = append(d.Hide, b.ID)
				}
			}
		}
		decisions = append(decisions, d)
	}

	return decisions, nil
}

// Containers finds every div with personalizable="true" in document order.
// Only element children with an id become blocks.
func Containers(doc *html.Node) []Container {
	var out []Container

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "div" && attr(n, "personalizable") == "true" {
			c := Container{ID: attr(n, "id")}
			for child := n.FirstChild; child != nil; child = child.NextSibling {
				if child.Type != html.ElementNode {
					continue
				}
				if id := attr(child, "id"); id != "" {
					c.Blocks = append(c.Blocks, Block{ID: id, Text: text(child)})
				}
			}
			out = append(out, c)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return out
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// text joins the text nodes under n, skipping script and style
func text(n *html.Node) string {
	var parts []string
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(n)
	return strings.Join(parts, " ")
}
