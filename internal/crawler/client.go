package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"feedqa/internal/crawler/parsers"
	"feedqa/internal/logger"
	"feedqa/internal/models"
)

// Client runs the fetch-then-parse pipeline for one feed.
type Client struct {
	scraper *Scraper
	parser  *parsers.Parser
	log     *logger.Logger
	now     func() time.Time
}

// NewClient creates a new crawler client with default dependencies.
func NewClient() *Client {
	return NewClientWithDeps(NewScraper(), parsers.NewParser(), logger.Nop())
}

// NewClientWithDeps creates a new crawler client with injected dependencies.
func NewClientWithDeps(scraper *Scraper, parser *parsers.Parser, l *logger.Logger) *Client {
	if l == nil {
		l = logger.Nop()
	}

	return &Client{
		scraper: scraper,
		parser:  parser,
		log:     l,
		now:     time.Now,
	}
}

// CrawlFeed fetches and parses the feed at url into a new Feed record.
func (c *Client) CrawlFeed(ctx context.Context, url string) (*models.Feed, error) {
	content, plan, err := c.scraper.FetchFeedWithPlan(ctx, url)
	if err != nil {
		return nil, err
	}

	via, _ := plan.Succeeded()

	articles, err := c.parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", url, err)
	}

	feed := models.NewFeed(uuid.NewString(), url, articles, c.now())
	c.log.Info("feed crawled", "url", url, "via", string(via), "title", feed.Title, "articles", len(feed.Articles))

	return feed, nil
}

// ParseFile reads and parses a feed document from a local file.
func (c *Client) ParseFile(filePath string) ([]models.Article, error) {
	content, err := c.scraper.ReadLocalFile(filePath)
	if err != nil {
		return nil, err
	}

	articles, err := c.parser.Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	return articles, nil
}

// DetectFileFormat reports whether a local file holds an RSS or Atom feed.
func (c *Client) DetectFileFormat(filePath string) (string, error) {
	content, err := c.scraper.ReadLocalFile(filePath)
	if err != nil {
		return "", err
	}

	format, err := parsers.DetectFormat(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	return format, nil
}
