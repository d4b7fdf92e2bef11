// Package reader wires feed retrieval, storage and question answering into
// the operations exposed by the CLI and HTTP API.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"feedqa/internal/logger"
	"feedqa/internal/models"
	"feedqa/internal/normalizer"
	"feedqa/internal/qa"
	"feedqa/internal/store"
)

// DefaultMaxParallelFetches bounds concurrent feed fetches in AddFeeds.
const DefaultMaxParallelFetches = 4

// ErrNoURLs is returned by AddFeeds when called without URLs.
var ErrNoURLs = errors.New("no feed URLs given")

// Message roles in the chat history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the chat history of an article.
type Message struct {
	At      time.Time `json:"at"`
	Role    string    `json:"role"`
	Content string    `json:"content"`
}

// Crawler fetches and parses a feed.
type Crawler interface {
	CrawlFeed(ctx context.Context, url string) (*models.Feed, error)
}

// Reader is the single-user feed reader. Questions are answered one at a
// time by one lazily created model session.
type Reader struct {
	crawler     Crawler
	repo        store.Repository
	loader      qa.Loader
	processor   *normalizer.Processor
	log         *logger.Logger
	sem         *semaphore.Weighted
	session     *qa.Session
	history     map[string][]Message
	modelName   string
	maxContext  int
	maxParallel int
	mu          sync.Mutex
}

// Option customizes a Reader.
type Option func(*Reader)

// WithLogger sets the reader logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Reader) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMaxContext sets the context length passed to new sessions.
func WithMaxContext(n int) Option {
	return func(r *Reader) {
		r.maxContext = n
	}
}

// WithMaxParallelFetches bounds concurrent fetches in AddFeeds.
func WithMaxParallelFetches(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxParallel = n
		}
	}
}

// New creates a reader. Sessions for modelName are created with loader on
// the first question.
func New(crawler Crawler, repo store.Repository, loader qa.Loader, modelName string, opts ...Option) *Reader {
	r := &Reader{
		crawler:     crawler,
		repo:        repo,
		loader:      loader,
		modelName:   modelName,
		processor:   normalizer.NewProcessor(),
		log:         logger.Nop(),
		sem:         semaphore.NewWeighted(1),
		history:     make(map[string][]Message),
		maxContext:  qa.DefaultMaxContext,
		maxParallel: DefaultMaxParallelFetches,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// AddFeed fetches, parses and stores the feed at url.
func (r *Reader) AddFeed(ctx context.Context, url string) (*models.Feed, error) {
	feed, err := r.crawler.CrawlFeed(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := r.repo.SaveFeed(ctx, feed); err != nil {
		return nil, fmt.Errorf("failed to save feed: %w", err)
	}

	r.log.Info("feed added", "id", feed.ID, "title", feed.Title, "articles", len(feed.Articles))

	return feed, nil
}

// AddFeeds adds several feeds concurrently. Feeds that were added are
// returned in argument order; failures are joined into the error.
func (r *Reader) AddFeeds(ctx context.Context, urls ...string) ([]*models.Feed, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	feeds := make([]*models.Feed, len(urls))
	errs := make([]error, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.maxParallel)

	for i, url := range urls {
		g.Go(func() error {
			feed, err := r.AddFeed(gctx, url)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", url, err)

				return nil
			}

			feeds[i] = feed

			return nil
		})
	}

	_ = g.Wait()

	added := make([]*models.Feed, 0, len(feeds))
	for _, f := range feeds {
		if f != nil {
			added = append(added, f)
		}
	}

	return added, errors.Join(errs...)
}

// Feeds returns every stored feed in the order they were added.
func (r *Reader) Feeds(ctx context.Context) ([]*models.Feed, error) {
	return r.repo.ListFeeds(ctx)
}

// Feed returns one stored feed.
func (r *Reader) Feed(ctx context.Context, id string) (*models.Feed, error) {
	return r.repo.GetFeed(ctx, id)
}

// Article returns one article of a stored feed.
func (r *Reader) Article(ctx context.Context, feedID string, index int) (*models.Article, error) {
	feed, err := r.repo.GetFeed(ctx, feedID)
	if err != nil {
		return nil, err
	}

	return feed.Article(index)
}

// ArticleHTML returns the sanitized body of an article for display.
func (r *Reader) ArticleHTML(ctx context.Context, feedID string, index int) (string, error) {
	article, err := r.Article(ctx, feedID, index)
	if err != nil {
		return "", err
	}

	return r.processor.DisplayHTML(article)
}

// RemoveFeed deletes a feed and the chat history of its articles.
func (r *Reader) RemoveFeed(ctx context.Context, id string) error {
	feed, err := r.repo.GetFeed(ctx, id)
	if err != nil {
		return err
	}

	if err := r.repo.DeleteFeed(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	for i := range feed.Articles {
		delete(r.history, historyKey(id, i))
	}
	r.mu.Unlock()

	r.log.Info("feed removed", "id", id)

	return nil
}

// Ask answers question about one article; an empty feedID means no article
// is selected. The model is loaded on first use, and a session whose load
// failed is replaced so the load is retried. Questions are answered one at
// a time.
func (r *Reader) Ask(ctx context.Context, feedID string, index int, question string) (qa.Answer, error) {
	var article *models.Article

	if feedID != "" {
		a, err := r.Article(ctx, feedID, index)
		if err != nil {
			return qa.Answer{}, err
		}

		article = a
	}

	passage, err := r.processor.Prepare(question, article)
	if err != nil {
		return qa.Answer{}, err
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return qa.Answer{}, err
	}
	defer r.sem.Release(1)

	key := historyKey(feedID, index)
	r.record(key, RoleUser, question)

	answer, err := r.ask(ctx, passage, question)
	if err != nil {
		r.record(key, RoleAssistant, "Error: "+err.Error())

		return qa.Answer{}, err
	}

	r.record(key, RoleAssistant, answer.String())

	return answer, nil
}

func (r *Reader) ask(ctx context.Context, passage, question string) (qa.Answer, error) {
	session := r.currentSession()
	if err := session.Initialize(ctx); err != nil {
		return qa.Answer{}, err
	}

	return session.AskQuestion(ctx, passage, question)
}

// InitModel loads the model ahead of the first question.
func (r *Reader) InitModel(ctx context.Context) error {
	return r.currentSession().Initialize(ctx)
}

// PlainText returns the article body with markup removed.
func (r *Reader) PlainText(a *models.Article) string {
	return r.processor.Text(a)
}

// currentSession returns the live session, creating one when there is
// none or the previous one failed.
func (r *Reader) currentSession() *qa.Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil || r.session.State() == qa.StateFailed {
		r.session = qa.NewSession(r.loader, r.modelName,
			qa.WithMaxContext(r.maxContext),
			qa.WithLogger(r.log.With("component", "qa")),
		)
	}

	return r.session
}

// ModelStatus describes the current model session.
func (r *Reader) ModelStatus() qa.Status {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()

	if session == nil {
		return qa.Status{ModelName: r.modelName, State: qa.StateUninitialized.String()}
	}

	return session.Status()
}

// History returns the chat history of one article.
func (r *Reader) History(feedID string, index int) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	msgs := r.history[historyKey(feedID, index)]
	out := make([]Message, len(msgs))
	copy(out, msgs)

	return out
}

func (r *Reader) record(key, role, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.history[key] = append(r.history[key], Message{At: time.Now(), Role: role, Content: content})
}

func historyKey(feedID string, index int) string {
	return feedID + "#" + strconv.Itoa(index)
}
