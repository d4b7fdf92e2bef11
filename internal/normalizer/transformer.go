package normalizer

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"feedqa/pkg/utils"
)

// Transformer converts article HTML into the forms used for display and
// question answering.
type Transformer struct {
	// dropped elements are removed with their subtree by Sanitize.
	dropped map[atom.Atom]bool
	// silent elements contribute no text to StripHTML.
	silent map[atom.Atom]bool
	// blocks are separated by whitespace in StripHTML output.
	blocks map[atom.Atom]bool
}

// NewTransformer creates a new transformer instance.
func NewTransformer() *Transformer {
	return &Transformer{
		dropped: atomSet(atom.Script, atom.Iframe, atom.Object, atom.Embed),
		silent:  atomSet(atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Object, atom.Embed, atom.Template),
		blocks: atomSet(
			atom.P, atom.Div, atom.Br, atom.Li, atom.Ul, atom.Ol, atom.Tr, atom.Td, atom.Th,
			atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
			atom.Blockquote, atom.Pre, atom.Section, atom.Article, atom.Figcaption, atom.Hr,
		),
	}
}

func atomSet(atoms ...atom.Atom) map[atom.Atom]bool {
	m := make(map[atom.Atom]bool, len(atoms))
	for _, a := range atoms {
		m[a] = true
	}

	return m
}

// parseFragment parses s as the children of a <div>, the way an HTML
// fragment assigned to an element is parsed.
func parseFragment(s string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}

	nodes, err := html.ParseFragment(strings.NewReader(s), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML fragment: %w", err)
	}

	return nodes, nil
}

// StripHTML returns the visible text of an HTML fragment with whitespace
// collapsed. Entities are decoded. Input that is not HTML is returned as
// normalized text.
func (t *Transformer) StripHTML(fragment string) string {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return utils.NormalizeWhitespace(fragment)
	}

	var sb strings.Builder
	for _, n := range nodes {
		t.writeText(n, &sb)
	}

	return utils.NormalizeWhitespace(sb.String())
}

func (t *Transformer) writeText(n *html.Node, sb *strings.Builder) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(n.Data)

		return
	case html.ElementNode:
		if t.silent[n.DataAtom] {
			return
		}
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && t.blocks[n.DataAtom]
	if block {
		sb.WriteByte(' ')
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		t.writeText(c, sb)
	}

	if block {
		sb.WriteByte(' ')
	}
}

// Sanitize removes script, iframe, object and embed elements from an HTML
// fragment and renders the rest back to HTML.
func (t *Transformer) Sanitize(fragment string) (string, error) {
	nodes, err := parseFragment(fragment)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	for _, n := range nodes {
		if t.isDropped(n) {
			continue
		}

		t.prune(n)

		if err := html.Render(&sb, n); err != nil {
			return "", fmt.Errorf("failed to render HTML: %w", err)
		}
	}

	return sb.String(), nil
}

func (t *Transformer) isDropped(n *html.Node) bool {
	return n.Type == html.ElementNode && t.dropped[n.DataAtom]
}

// prune detaches every dropped descendant of n.
func (t *Transformer) prune(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if t.isDropped(c) {
			n.RemoveChild(c)
		} else {
			t.prune(c)
		}
		c = next
	}
}
