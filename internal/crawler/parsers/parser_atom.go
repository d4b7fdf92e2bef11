package parsers

import "feedqa/internal/models"

// atomEntryFields holds the fallback chain of every article field for Atom entries.
var atomEntryFields = fieldTable{
	{name: "title", set: setTitle, chain: chain{text(tag("title")), constant(models.UntitledArticle)}},
	{name: "link", set: setLink, chain: chain{atomLink}},
	{name: "description", set: setDescription, chain: chain{text(tag("summary"))}},
	{name: "content", set: setContent, chain: chain{text(tag("content")), text(tag("summary"))}},
	{name: "pubDate", set: setPubDate, chain: chain{text(tag("published")), text(tag("updated"))}},
	{name: "author", set: setAuthor, chain: chain{textWhere(isAuthorName)}},
	{name: "guid", set: setGUID, chain: chain{text(tag("id")), atomLink}},
}

// atomLink resolves an entry's URL: the href of the first link with
// rel="alternate", otherwise the href of the first link.
func atomLink(entry *Node) string {
	el := entry.FindFunc(func(n *Node) bool {
		if n.Name.Local != "link" {
			return false
		}

		rel, _ := n.AttrValue("rel")

		return rel == "alternate"
	})
	if el == nil {
		el = entry.Find(tag("link"))
	}

	if el == nil {
		return ""
	}

	href, _ := el.AttrValue("href")

	return href
}

// isAuthorName matches a name element directly under author.
func isAuthorName(n *Node) bool {
	return n.Name.Local == "name" && n.Parent != nil && n.Parent.Name.Local == "author"
}

func (p *Parser) parseAtom(root *Node) []models.Article {
	feedTitle := feedTitleChain.resolve(root)
	entries := root.FindAll(tag("entry"))

	articles := make([]models.Article, 0, len(entries))
	for _, entry := range entries {
		a := models.Article{FeedTitle: feedTitle}
		p.atomEntry.apply(entry, &a)
		articles = append(articles, a)
	}

	return articles
}
