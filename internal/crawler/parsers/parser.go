// Package parsers turns RSS 2.0 and Atom documents into normalized articles.
package parsers

import (
	"errors"
	"io"
	"strings"

	"feedqa/internal/models"
)

// Format names returned by DetectFormat.
const (
	FormatRSS  = "rss"
	FormatAtom = "atom"
)

// Parser errors.
var (
	ErrMalformedXML      = errors.New("invalid RSS/XML format")
	ErrInvalidFeedFormat = errors.New("invalid feed format: no RSS channel or Atom feed element found")
)

// Parser extracts articles from feed markup. It holds only the immutable
// field tables, so one Parser can be shared freely.
type Parser struct {
	rssItem   fieldTable
	atomEntry fieldTable
}

// NewParser creates a new parser instance.
func NewParser() *Parser {
	return &Parser{
		rssItem:   rssItemFields,
		atomEntry: atomEntryFields,
	}
}

// Parse parses raw feed markup.
func (p *Parser) Parse(raw string) ([]models.Article, error) {
	return p.ParseReader(strings.NewReader(raw))
}

// ParseReader parses feed markup read from r.
func (p *Parser) ParseReader(r io.Reader) ([]models.Article, error) {
	root, err := parseDocument(r)
	if err != nil {
		return nil, err
	}

	if isAtom(root) {
		return p.parseAtom(root), nil
	}

	return p.parseRSS(root)
}

// DetectFormat reports which branch Parse would take for raw.
func DetectFormat(raw string) (string, error) {
	root, err := parseDocument(strings.NewReader(raw))
	if err != nil {
		return "", err
	}

	if isAtom(root) {
		return FormatAtom, nil
	}

	if findInDocument(root, tag("channel")) == nil {
		return "", ErrInvalidFeedFormat
	}

	return FormatRSS, nil
}

func isAtom(root *Node) bool {
	return root.Name.Local == "feed"
}
