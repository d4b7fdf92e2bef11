// Package models defines data structures shared by the crawler, parser and reader.
package models

// Default titles used when a feed or entry carries none.
const (
	UntitledFeed    = "Untitled Feed"
	UntitledArticle = "Untitled"
)

// Article is the normalized form of one RSS item or Atom entry.
// Every field is always set; absence is represented by the empty string.
type Article struct {
	FeedTitle   string `json:"feedTitle"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
	Content     string `json:"content"`
	PubDate     string `json:"pubDate"`
	Author      string `json:"author"`
	GUID        string `json:"guid"`
}

// Body returns the article body, falling back to the description.
func (a *Article) Body() string {
	if a.Content != "" {
		return a.Content
	}

	return a.Description
}
