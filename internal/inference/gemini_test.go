package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedqa/internal/qa"
)

// fakeGemini serves the two endpoints the loader uses: model lookup (GET)
// and content generation (POST).
type fakeGemini struct {
	actions  []string
	answer   string
	lastBody map[string]any
	getCode  int
	mu       sync.Mutex
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodGet:
		if f.getCode != 0 {
			w.WriteHeader(f.getCode)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"model not found","status":"NOT_FOUND"}}`))

			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"name":                       "models/gemini-test",
			"displayName":                "Gemini Test",
			"supportedGenerationMethods": f.actions,
		})
	case http.MethodPost:
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		f.lastBody = body
		f.mu.Unlock()

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": f.answer}},
					},
				},
			},
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func startFake(t *testing.T, f *fakeGemini) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	return srv
}

func TestGeminiLoader_LoadAndAnswer(t *testing.T) {
	fake := &fakeGemini{
		actions: []string{"generateContent", "countTokens"},
		answer:  `{"answer": " Paris ", "score": 0.91}`,
	}
	srv := startFake(t, fake)

	model, err := NewGeminiLoader("test-key", WithBaseURL(srv.URL)).Load(context.Background(), "gemini-test")
	require.NoError(t, err)

	res, err := model.Answer(context.Background(), "What is the capital?", "The capital of France is Paris.")
	require.NoError(t, err)
	assert.Equal(t, qa.Result{Answer: "Paris", Score: 0.91}, res)

	fake.mu.Lock()
	defer fake.mu.Unlock()

	raw, err := json.Marshal(fake.lastBody)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "The capital of France is Paris.")
	assert.Contains(t, string(raw), "What is the capital?")
	assert.Contains(t, string(raw), "application/json")
}

func TestGeminiLoader_WorksThroughSession(t *testing.T) {
	srv := startFake(t, &fakeGemini{actions: []string{"generateContent"}, answer: `{"answer":"42","score":0.5}`})

	s := qa.NewSession(NewGeminiLoader("k", WithBaseURL(srv.URL)), "gemini-test")
	require.NoError(t, s.Initialize(context.Background()))

	answer, err := s.AskQuestion(context.Background(), "The answer is 42.", "What is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "42\n\n(Confidence: 50.0%)", answer.String())
}

func TestGeminiLoader_MissingKey(t *testing.T) {
	_, err := NewGeminiLoader("").Load(context.Background(), "gemini-test")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestGeminiLoader_UnsupportedModel(t *testing.T) {
	srv := startFake(t, &fakeGemini{actions: []string{"embedContent"}})

	_, err := NewGeminiLoader("k", WithBaseURL(srv.URL)).Load(context.Background(), "gemini-test")
	assert.ErrorIs(t, err, qa.ErrUnsupportedRuntime)
}

func TestGeminiLoader_ModelNotFound(t *testing.T) {
	srv := startFake(t, &fakeGemini{getCode: http.StatusNotFound})

	s := qa.NewSession(NewGeminiLoader("k", WithBaseURL(srv.URL)), "gemini-missing")
	err := s.Initialize(context.Background())
	require.ErrorIs(t, err, qa.ErrInitializationFailure)
	assert.Contains(t, err.Error(), "404")
}

func TestGeminiLoader_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGeminiLoader("k", WithBaseURL(url)).Load(context.Background(), "gemini-test")
	assert.ErrorIs(t, err, qa.ErrNetworkFailure)
}

func TestGeminiModel_EmptyResponse(t *testing.T) {
	srv := startFake(t, &fakeGemini{actions: []string{"generateContent"}, answer: ""})

	model, err := NewGeminiLoader("k", WithBaseURL(srv.URL)).Load(context.Background(), "gemini-test")
	require.NoError(t, err)

	_, err = model.Answer(context.Background(), "q", "c")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestParseResult(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    qa.Result
		wantErr bool
	}{
		{"plain", `{"answer":"x","score":0.25}`, qa.Result{Answer: "x", Score: 0.25}, false},
		{"fenced", "```json\n{\"answer\":\"y\",\"score\":1}\n```", qa.Result{Answer: "y", Score: 1}, false},
		{"clamped high", `{"answer":"z","score":7}`, qa.Result{Answer: "z", Score: 1}, false},
		{"clamped low", `{"answer":"z","score":-0.5}`, qa.Result{Answer: "z", Score: 0}, false},
		{"empty answer", `{"answer":"","score":0.1}`, qa.Result{Answer: "", Score: 0.1}, false},
		{"missing score", `{"answer":"z"}`, qa.Result{}, true},
		{"not json", `Paris`, qa.Result{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseResult(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPayload)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("Who?", "Ada wrote it.")
	assert.True(t, strings.HasPrefix(p, "Context:\nAda wrote it."))
	assert.True(t, strings.HasSuffix(p, "Question:\nWho?"))
}
