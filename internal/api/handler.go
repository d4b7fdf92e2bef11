// Package api provides HTTP handlers for the feed reader.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"feedqa/internal/crawler"
	"feedqa/internal/crawler/parsers"
	"feedqa/internal/logger"
	"feedqa/internal/middleware"
	"feedqa/internal/models"
	"feedqa/internal/normalizer"
	"feedqa/internal/qa"
	"feedqa/internal/reader"
	"feedqa/internal/store"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// Service is the reader functionality exposed over HTTP.
type Service interface {
	AddFeed(ctx context.Context, url string) (*models.Feed, error)
	Feeds(ctx context.Context) ([]*models.Feed, error)
	Feed(ctx context.Context, id string) (*models.Feed, error)
	RemoveFeed(ctx context.Context, id string) error
	Article(ctx context.Context, feedID string, index int) (*models.Article, error)
	ArticleHTML(ctx context.Context, feedID string, index int) (string, error)
	Ask(ctx context.Context, feedID string, index int, question string) (qa.Answer, error)
	History(feedID string, index int) []reader.Message
	ModelStatus() qa.Status
}

var _ Service = (*reader.Reader)(nil)

// Handler serves the feed reader API.
type Handler struct {
	svc Service
	log *logger.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc Service, l *logger.Logger) *Handler {
	if l == nil {
		l = logger.Nop()
	}

	return &Handler{svc: svc, log: l}
}

// NewRouter builds the full HTTP handler with global middleware.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(h.log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(allowedOrigins))

	h.RegisterRoutes(r)

	return r
}

// RegisterRoutes mounts the API routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/feeds", h.listFeeds)
		r.Post("/feeds", h.addFeed)
		r.Get("/feeds/{id}", h.getFeed)
		r.Delete("/feeds/{id}", h.deleteFeed)
		r.Get("/feeds/{id}/articles/{index}", h.getArticle)
		r.Get("/feeds/{id}/articles/{index}/history", h.getHistory)
		r.Post("/feeds/{id}/articles/{index}/ask", h.ask)
		r.Get("/model/status", h.modelStatus)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// StatusFor maps reader errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, crawler.ErrInvalidURL),
		errors.Is(err, normalizer.ErrEmptyQuestion),
		errors.Is(err, normalizer.ErrNoArticleSelected):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrFeedNotFound),
		errors.Is(err, models.ErrArticleIndexOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, parsers.ErrMalformedXML),
		errors.Is(err, parsers.ErrInvalidFeedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, crawler.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, qa.ErrNotReady),
		errors.Is(err, qa.ErrNetworkFailure),
		errors.Is(err, qa.ErrUnsupportedRuntime),
		errors.Is(err, qa.ErrInitializationFailure),
		errors.Is(err, qa.ErrQueryFailed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}

	Error(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}

	return nil
}

func articleIndex(r *http.Request) (int, error) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		return 0, fmt.Errorf("%w: article index must be a non-negative integer", errBadRequest)
	}

	return index, nil
}

// feedSummary is a feed without its articles.
type feedSummary struct {
	AddedAt      time.Time `json:"addedAt"`
	ID           string    `json:"id"`
	URL          string    `json:"url"`
	Title        string    `json:"title"`
	ArticleCount int       `json:"articleCount"`
}

func (h *Handler) listFeeds(w http.ResponseWriter, r *http.Request) {
	feeds, err := h.svc.Feeds(r.Context())
	if err != nil {
		h.fail(w, r, err)

		return
	}

	out := make([]feedSummary, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, feedSummary{
			AddedAt:      f.AddedAt,
			ID:           f.ID,
			URL:          f.URL,
			Title:        f.Title,
			ArticleCount: len(f.Articles),
		})
	}

	JSON(w, http.StatusOK, out)
}

type addFeedRequest struct {
	URL string `json:"url"`
}

func (h *Handler) addFeed(w http.ResponseWriter, r *http.Request) {
	var req addFeedRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)

		return
	}

	feed, err := h.svc.AddFeed(r.Context(), req.URL)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	JSON(w, http.StatusCreated, feed)
}

func (h *Handler) getFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := h.svc.Feed(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)

		return
	}

	JSON(w, http.StatusOK, feed)
}

func (h *Handler) deleteFeed(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveFeed(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type articleResponse struct {
	Article *models.Article `json:"article"`
	HTML    string          `json:"html"`
}

func (h *Handler) getArticle(w http.ResponseWriter, r *http.Request) {
	index, err := articleIndex(r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	id := chi.URLParam(r, "id")

	article, err := h.svc.Article(r.Context(), id, index)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	html, err := h.svc.ArticleHTML(r.Context(), id, index)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	JSON(w, http.StatusOK, articleResponse{Article: article, HTML: html})
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	index, err := articleIndex(r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	JSON(w, http.StatusOK, h.svc.History(chi.URLParam(r, "id"), index))
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Answer    string  `json:"answer"`
	Formatted string  `json:"formatted"`
	Score     float64 `json:"score"`
}

func (h *Handler) ask(w http.ResponseWriter, r *http.Request) {
	index, err := articleIndex(r)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	var req askRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.fail(w, r, err)

		return
	}

	answer, err := h.svc.Ask(r.Context(), chi.URLParam(r, "id"), index, req.Question)
	if err != nil {
		h.fail(w, r, err)

		return
	}

	JSON(w, http.StatusOK, askResponse{Answer: answer.Text, Formatted: answer.String(), Score: answer.Score})
}

func (h *Handler) modelStatus(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.svc.ModelStatus())
}
