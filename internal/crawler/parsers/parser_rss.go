package parsers

import "feedqa/internal/models"

var (
	contentEncoded = nsTag("encoded", NamespaceContent, "content")
	dcDate         = nsTag("date", NamespaceDC, "dc")
	dcCreator      = nsTag("creator", NamespaceDC, "dc")
)

// rssItemFields holds the fallback chain of every article field for RSS items.
var rssItemFields = fieldTable{
	{name: "title", set: setTitle, chain: chain{text(tag("title")), constant(models.UntitledArticle)}},
	{name: "link", set: setLink, chain: chain{text(tag("link"))}},
	{name: "description", set: setDescription, chain: chain{text(tag("description"))}},
	{name: "content", set: setContent, chain: chain{
		text(contentEncoded),
		text(tag("content")),
		text(tag("description")),
	}},
	{name: "pubDate", set: setPubDate, chain: chain{text(tag("pubDate")), text(dcDate)}},
	{name: "author", set: setAuthor, chain: chain{text(tag("author")), text(dcCreator)}},
	{name: "guid", set: setGUID, chain: chain{text(tag("guid")), text(tag("link"))}},
}

// parseRSS extracts every item of an RSS document. Items are collected
// document-wide so RDF-style feeds with items outside the channel work too.
func (p *Parser) parseRSS(root *Node) ([]models.Article, error) {
	channel := findInDocument(root, tag("channel"))
	if channel == nil {
		return nil, ErrInvalidFeedFormat
	}

	feedTitle := feedTitleChain.resolve(channel)
	items := findAllInDocument(root, tag("item"))

	articles := make([]models.Article, 0, len(items))
	for _, item := range items {
		a := models.Article{FeedTitle: feedTitle}
		p.rssItem.apply(item, &a)
		articles = append(articles, a)
	}

	return articles, nil
}
