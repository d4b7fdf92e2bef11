package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrArticleIndexOutOfRange is returned when an article index does not exist in a feed.
var ErrArticleIndexOutOfRange = errors.New("article index out of range")

// Feed is a subscribed feed together with the articles parsed from it.
type Feed struct {
	AddedAt  time.Time `json:"addedAt"`
	ID       string    `json:"id"`
	URL      string    `json:"url"`
	Title    string    `json:"title"`
	Articles []Article `json:"articles"`
}

// NewFeed builds a feed record. The title is taken from the first article,
// or defaults to UntitledFeed when the feed has no articles.
func NewFeed(id, url string, articles []Article, addedAt time.Time) *Feed {
	title := UntitledFeed
	if len(articles) > 0 && articles[0].FeedTitle != "" {
		title = articles[0].FeedTitle
	}

	if articles == nil {
		articles = []Article{}
	}

	return &Feed{
		ID:       id,
		URL:      url,
		Title:    title,
		Articles: articles,
		AddedAt:  addedAt,
	}
}

// Article returns the article at index.
func (f *Feed) Article(index int) (*Article, error) {
	if index < 0 || index >= len(f.Articles) {
		return nil, fmt.Errorf("%w: %d (feed has %d articles)", ErrArticleIndexOutOfRange, index, len(f.Articles))
	}

	return &f.Articles[index], nil
}
