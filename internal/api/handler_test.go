package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedqa/internal/crawler"
	"feedqa/internal/crawler/parsers"
	"feedqa/internal/logger"
	"feedqa/internal/models"
	"feedqa/internal/normalizer"
	"feedqa/internal/qa"
	"feedqa/internal/reader"
	"feedqa/internal/store"
)

// fakeService keeps feeds in memory and answers with a fixed answer.
type fakeService struct {
	feeds    map[string]*models.Feed
	addErr   error
	askErr   error
	answer   qa.Answer
	question string
}

func newFakeService() *fakeService {
	return &fakeService{
		feeds: map[string]*models.Feed{
			"f1": models.NewFeed("f1", "https://a.test/feed", []models.Article{
				{FeedTitle: "Feed A", Title: "Alpha", Content: "<p>ok</p><script>x()</script>"},
			}, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		},
		answer: qa.Answer{Text: "Alpha", Score: 0.75},
	}
}

func (s *fakeService) AddFeed(_ context.Context, url string) (*models.Feed, error) {
	if s.addErr != nil {
		return nil, s.addErr
	}

	f := models.NewFeed("new", url, []models.Article{{FeedTitle: "New Feed", Title: "N"}}, time.Now())
	s.feeds[f.ID] = f

	return f, nil
}

func (s *fakeService) Feeds(context.Context) ([]*models.Feed, error) {
	out := make([]*models.Feed, 0, len(s.feeds))
	for _, f := range s.feeds {
		out = append(out, f)
	}

	return out, nil
}

func (s *fakeService) Feed(_ context.Context, id string) (*models.Feed, error) {
	f, ok := s.feeds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrFeedNotFound, id)
	}

	return f, nil
}

func (s *fakeService) RemoveFeed(ctx context.Context, id string) error {
	if _, err := s.Feed(ctx, id); err != nil {
		return err
	}

	delete(s.feeds, id)

	return nil
}

func (s *fakeService) Article(ctx context.Context, feedID string, index int) (*models.Article, error) {
	f, err := s.Feed(ctx, feedID)
	if err != nil {
		return nil, err
	}

	return f.Article(index)
}

func (s *fakeService) ArticleHTML(ctx context.Context, feedID string, index int) (string, error) {
	a, err := s.Article(ctx, feedID, index)
	if err != nil {
		return "", err
	}

	return normalizer.NewTransformer().Sanitize(a.Body())
}

func (s *fakeService) Ask(ctx context.Context, feedID string, index int, question string) (qa.Answer, error) {
	s.question = question

	if _, err := s.Article(ctx, feedID, index); err != nil {
		return qa.Answer{}, err
	}

	if err := normalizer.NewValidator().ValidateQuestion(question, &models.Article{}); err != nil {
		return qa.Answer{}, err
	}

	if s.askErr != nil {
		return qa.Answer{}, s.askErr
	}

	return s.answer, nil
}

func (s *fakeService) History(string, int) []reader.Message {
	return []reader.Message{{Role: reader.RoleUser, Content: s.question}}
}

func (s *fakeService) ModelStatus() qa.Status {
	return qa.Status{ModelName: "test-model", State: "ready", IsReady: true}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

func newTestRouter(svc Service) http.Handler {
	return NewRouter(NewHandler(svc, logger.Nop()), []string{"*"})
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))

	return v
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, map[string]string{"foo": "bar"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, map[string]string{"foo": "bar"}, decode[map[string]string](t, w))
}

func TestHandler_ListFeeds(t *testing.T) {
	w := do(t, newTestRouter(newFakeService()), http.MethodGet, "/api/feeds", "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[[]feedSummary](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, "Feed A", got[0].Title)
	assert.Equal(t, 1, got[0].ArticleCount)
}

func TestHandler_AddFeed(t *testing.T) {
	svc := newFakeService()
	h := newTestRouter(svc)

	w := do(t, h, http.MethodPost, "/api/feeds", `{"url":"https://new.test/rss"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	got := decode[models.Feed](t, w)
	assert.Equal(t, "New Feed", got.Title)
	assert.Equal(t, "https://new.test/rss", got.URL)
}

func TestHandler_AddFeed_Errors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"bad json", nil, `{"url":`, http.StatusBadRequest},
		{"unknown field", nil, `{"link":"x"}`, http.StatusBadRequest},
		{"invalid url", fmt.Errorf("%w: %q", crawler.ErrInvalidURL, "x"), `{"url":"x"}`, http.StatusBadRequest},
		{"fetch failed", &crawler.FetchError{Proxy: errors.New("proxy down")}, `{"url":"https://a.test"}`, http.StatusBadGateway},
		{"malformed", fmt.Errorf("parse: %w", parsers.ErrMalformedXML), `{"url":"https://a.test"}`, http.StatusUnprocessableEntity},
		{"not a feed", parsers.ErrInvalidFeedFormat, `{"url":"https://a.test"}`, http.StatusUnprocessableEntity},
		{"storage", errors.New("disk full"), `{"url":"https://a.test"}`, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.addErr = tt.err

			w := do(t, newTestRouter(svc), http.MethodPost, "/api/feeds", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode[map[string]string](t, w)["error"])
		})
	}
}

func TestHandler_GetAndDeleteFeed(t *testing.T) {
	h := newTestRouter(newFakeService())

	w := do(t, h, http.MethodGet, "/api/feeds/f1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.Feed](t, w).Articles, 1)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/feeds/f1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/feeds/f1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/feeds/f1", "").Code)
}

func TestHandler_GetArticle(t *testing.T) {
	h := newTestRouter(newFakeService())

	w := do(t, h, http.MethodGet, "/api/feeds/f1/articles/0", "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[articleResponse](t, w)
	assert.Equal(t, "Alpha", got.Article.Title)
	assert.Equal(t, "<p>ok</p>", got.HTML)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/feeds/f1/articles/3", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/feeds/f1/articles/-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/feeds/f1/articles/abc", "").Code)
}

func TestHandler_Ask(t *testing.T) {
	svc := newFakeService()
	h := newTestRouter(svc)

	w := do(t, h, http.MethodPost, "/api/feeds/f1/articles/0/ask", `{"question":"Who?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[askResponse](t, w)
	assert.Equal(t, "Alpha", got.Answer)
	assert.InDelta(t, 0.75, got.Score, 1e-9)
	assert.Equal(t, "Alpha\n\n(Confidence: 75.0%)", got.Formatted)
	assert.Equal(t, "Who?", svc.question)

	w = do(t, h, http.MethodGet, "/api/feeds/f1/articles/0/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]reader.Message](t, w), 1)
}

func TestHandler_Ask_Errors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		askErr error
		status int
	}{
		{"empty question", "/api/feeds/f1/articles/0/ask", `{"question":""}`, nil, http.StatusBadRequest},
		{"unknown feed", "/api/feeds/nope/articles/0/ask", `{"question":"q"}`, nil, http.StatusNotFound},
		{"bad index", "/api/feeds/f1/articles/x/ask", `{"question":"q"}`, nil, http.StatusBadRequest},
		{"model load", "/api/feeds/f1/articles/0/ask", `{"question":"q"}`, fmt.Errorf("%w: dial", qa.ErrNetworkFailure), http.StatusServiceUnavailable},
		{"query failed", "/api/feeds/f1/articles/0/ask", `{"question":"q"}`, fmt.Errorf("%w: boom", qa.ErrQueryFailed), http.StatusServiceUnavailable},
		{"timeout", "/api/feeds/f1/articles/0/ask", `{"question":"q"}`, context.DeadlineExceeded, http.StatusGatewayTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			svc.askErr = tt.askErr

			w := do(t, newTestRouter(svc), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestHandler_ModelStatus(t *testing.T) {
	w := do(t, newTestRouter(newFakeService()), http.MethodGet, "/api/model/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	got := decode[qa.Status](t, w)
	assert.Equal(t, "test-model", got.ModelName)
	assert.True(t, got.IsReady)
}

func TestRouter_HealthAndCORS(t *testing.T) {
	h := newTestRouter(newFakeService())

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/feeds", nil)
	req.Header.Set("Origin", "https://app.test")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.test", w.Header().Get("Access-Control-Allow-Origin"))
}
