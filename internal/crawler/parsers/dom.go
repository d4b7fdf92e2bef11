package parsers

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html/charset"
)

// Well-known RSS extension namespaces.
const (
	NamespaceContent = "http://purl.org/rss/1.0/modules/content/"
	NamespaceDC      = "http://purl.org/dc/elements/1.1/"
	NamespaceAtom    = "http://www.w3.org/2005/Atom"
)

var (
	errNoRootElement   = errors.New("no root element")
	errTrailingContent = errors.New("content after document element")
	errDuplicateAttr   = errors.New("duplicate attribute")
)

// Node is one element of a parsed XML document. Nodes are never modified
// after parsing, so lookups are free of side effects.
type Node struct {
	Name     xml.Name
	Attr     []xml.Attr
	Parent   *Node
	Children []*Node
	parts    []part
}

// part is either a run of character data or a child element, kept in
// document order so Text can rebuild the element's text content.
type part struct {
	child *Node
	text  string
}

// selector matches elements by local name, optionally restricted to a set
// of namespaces. An empty namespace set matches any namespace.
type selector struct {
	local  string
	spaces []string
}

func tag(local string) selector {
	return selector{local: local}
}

// nsTag matches local in one of the given namespaces. Callers pass both the
// namespace URI and the conventional prefix, since an undeclared prefix is
// left unresolved by the decoder.
func nsTag(local string, spaces ...string) selector {
	return selector{local: local, spaces: spaces}
}

func (s selector) matches(n *Node) bool {
	if n.Name.Local != s.local {
		return false
	}

	return len(s.spaces) == 0 || slices.Contains(s.spaces, n.Name.Space)
}

// parseDocument decodes raw into an element tree and returns the root.
func parseDocument(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var root, cur *Node

	closed := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if closed {
				return nil, fmt.Errorf("%w: %w", ErrMalformedXML, errTrailingContent)
			}

			if name, dup := duplicateAttr(t.Attr); dup {
				return nil, fmt.Errorf("%w: %w %q on <%s>", ErrMalformedXML, errDuplicateAttr, name, t.Name.Local)
			}

			n := &Node{Name: t.Name, Attr: t.Copy().Attr, Parent: cur}
			if cur == nil {
				root = n
			} else {
				cur.Children = append(cur.Children, n)
				cur.parts = append(cur.parts, part{child: n})
			}

			cur = n
		case xml.EndElement:
			cur = cur.Parent
			if cur == nil {
				closed = true
			}
		case xml.CharData:
			if cur == nil {
				if len(bytes.TrimSpace(t)) > 0 {
					return nil, fmt.Errorf("%w: text outside document element", ErrMalformedXML)
				}

				continue
			}

			cur.parts = append(cur.parts, part{text: string(t)})
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedXML, errNoRootElement)
	}

	return root, nil
}

// duplicateAttr reports the first attribute name that appears twice.
// The decoder itself does not check attribute uniqueness.
func duplicateAttr(attrs []xml.Attr) (string, bool) {
	seen := make(map[xml.Name]struct{}, len(attrs))

	for _, a := range attrs {
		if _, ok := seen[a.Name]; ok {
			if a.Name.Space != "" {
				return a.Name.Space + ":" + a.Name.Local, true
			}

			return a.Name.Local, true
		}

		seen[a.Name] = struct{}{}
	}

	return "", false
}

// Find returns the first descendant matching sel in document order.
func (n *Node) Find(sel selector) *Node {
	return n.FindFunc(sel.matches)
}

// FindFunc returns the first descendant for which match returns true.
func (n *Node) FindFunc(match func(*Node) bool) *Node {
	for _, c := range n.Children {
		if match(c) {
			return c
		}

		if found := c.FindFunc(match); found != nil {
			return found
		}
	}

	return nil
}

// FindAll returns every descendant matching sel in document order.
func (n *Node) FindAll(sel selector) []*Node {
	var out []*Node

	n.walk(func(c *Node) {
		if sel.matches(c) {
			out = append(out, c)
		}
	})

	return out
}

func (n *Node) walk(visit func(*Node)) {
	for _, c := range n.Children {
		visit(c)
		c.walk(visit)
	}
}

// Text returns the concatenated character data of the element and all of
// its descendants.
func (n *Node) Text() string {
	var sb strings.Builder
	n.writeText(&sb)

	return sb.String()
}

func (n *Node) writeText(sb *strings.Builder) {
	for _, p := range n.parts {
		if p.child != nil {
			p.child.writeText(sb)
		} else {
			sb.WriteString(p.text)
		}
	}
}

// AttrValue returns the value of the un-namespaced attribute local.
func (n *Node) AttrValue(local string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == local && a.Name.Space == "" {
			return a.Value, true
		}
	}

	return "", false
}

// findInDocument searches the root itself and then its descendants, the
// way a document-level query does.
func findInDocument(root *Node, sel selector) *Node {
	if sel.matches(root) {
		return root
	}

	return root.Find(sel)
}

func findAllInDocument(root *Node, sel selector) []*Node {
	var out []*Node
	if sel.matches(root) {
		out = append(out, root)
	}

	return append(out, root.FindAll(sel)...)
}
