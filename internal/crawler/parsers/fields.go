package parsers

import (
	"strings"

	"feedqa/internal/models"
)

// extractor produces one candidate value for a field from an item or entry.
type extractor func(scope *Node) string

// chain is an ordered fallback list; the first non-empty candidate wins.
type chain []extractor

func (c chain) resolve(scope *Node) string {
	for _, ex := range c {
		if v := ex(scope); v != "" {
			return v
		}
	}

	return ""
}

// fieldRule binds one Article field to its fallback chain.
type fieldRule struct {
	set   func(a *models.Article, v string)
	name  string
	chain chain
}

// fieldTable lists the rules applied to every item of one feed format.
type fieldTable []fieldRule

func (t fieldTable) apply(scope *Node, a *models.Article) {
	for _, rule := range t {
		rule.set(a, rule.chain.resolve(scope))
	}
}

// text returns the trimmed text of the first descendant matching sel, or "".
func text(sel selector) extractor {
	return textWhere(sel.matches)
}

// textWhere is text for matches that a plain selector cannot express.
func textWhere(match func(*Node) bool) extractor {
	return func(scope *Node) string {
		el := scope.FindFunc(match)
		if el == nil {
			return ""
		}

		return strings.TrimSpace(el.Text())
	}
}

// constant always yields v; used as the last link of a chain to supply a default.
func constant(v string) extractor {
	return func(*Node) string { return v }
}

func setTitle(a *models.Article, v string)       { a.Title = v }
func setLink(a *models.Article, v string)        { a.Link = v }
func setDescription(a *models.Article, v string) { a.Description = v }
func setContent(a *models.Article, v string)     { a.Content = v }
func setPubDate(a *models.Article, v string)     { a.PubDate = v }
func setAuthor(a *models.Article, v string)      { a.Author = v }
func setGUID(a *models.Article, v string)        { a.GUID = v }

// feedTitleChain resolves the title of a channel or feed element.
var feedTitleChain = chain{text(tag("title")), constant(models.UntitledFeed)}
