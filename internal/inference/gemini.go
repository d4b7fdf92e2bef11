// Package inference provides question-answering models backed by hosted
// language model APIs.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"

	"google.golang.org/genai"

	"feedqa/internal/logger"
	"feedqa/internal/qa"
)

// Gemini errors.
var (
	ErrMissingAPIKey  = errors.New("inference API key is not set")
	ErrEmptyResponse  = errors.New("no response from gemini")
	ErrInvalidPayload = errors.New("gemini returned an invalid answer payload")
)

// generateAction is the model capability needed to answer questions.
const generateAction = "generateContent"

const systemInstruction = `You are an extractive question answering model.
Answer the question using only the given context.
The answer must be the shortest span copied verbatim from the context that answers the question.
If the context does not contain the answer, return the most relevant span and a low score.
score is your confidence between 0 and 1 that the span answers the question.`

// answerSchema constrains the model output to {"answer": string, "score": number}.
var answerSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"answer": {Type: genai.TypeString, Description: "Span of the context that answers the question."},
		"score": {
			Type:        genai.TypeNumber,
			Description: "Confidence between 0 and 1.",
			Minimum:     genai.Ptr(0.0),
			Maximum:     genai.Ptr(1.0),
		},
	},
	Required: []string{"answer", "score"},
}

// GeminiLoader loads Gemini models as extractive question-answering models.
type GeminiLoader struct {
	httpClient *http.Client
	log        *logger.Logger
	apiKey     string
	baseURL    string
}

// GeminiOption customizes a GeminiLoader.
type GeminiOption func(*GeminiLoader)

// WithBaseURL points the client at a different API endpoint.
func WithBaseURL(url string) GeminiOption {
	return func(l *GeminiLoader) {
		l.baseURL = url
	}
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(l *GeminiLoader) {
		l.httpClient = c
	}
}

// WithLogger sets the loader logger.
func WithLogger(log *logger.Logger) GeminiOption {
	return func(l *GeminiLoader) {
		l.log = log
	}
}

// NewGeminiLoader creates a loader authenticating with apiKey. An empty key
// is reported when a model is loaded.
func NewGeminiLoader(apiKey string, opts ...GeminiOption) *GeminiLoader {
	l := &GeminiLoader{
		apiKey: apiKey,
		log:    logger.Nop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load checks that the model exists and can generate content.
func (l *GeminiLoader) Load(ctx context.Context, model string) (qa.Model, error) {
	if l.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      l.apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  l.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: l.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	info, err := client.Models.Get(ctx, model, nil)
	if err != nil {
		return nil, loadError(model, err)
	}

	if len(info.SupportedActions) > 0 && !slices.Contains(info.SupportedActions, generateAction) {
		return nil, fmt.Errorf("%w: model %s does not support %s", qa.ErrUnsupportedRuntime, model, generateAction)
	}

	l.log.Debug("gemini model available", "model", model, "display_name", info.DisplayName)

	return &geminiModel{client: client, name: model}, nil
}

// loadError marks transport failures as network failures.
func loadError(model string, err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", qa.ErrNetworkFailure, err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("failed to load model %s (HTTP %d %s): %w", model, apiErr.Code, apiErr.Status, err)
	}

	return fmt.Errorf("failed to load model %s: %w", model, err)
}

// geminiModel answers questions through GenerateContent with a JSON schema.
type geminiModel struct {
	client *genai.Client
	name   string
}

func (m *geminiModel) Answer(ctx context.Context, question, passage string) (qa.Result, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.name, genai.Text(buildPrompt(question, passage)), generateConfig())
	if err != nil {
		return qa.Result{}, fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return qa.Result{}, ErrEmptyResponse
	}

	return parseResult(text)
}

func generateConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    answerSchema,
	}
}

func buildPrompt(question, passage string) string {
	var sb strings.Builder

	sb.WriteString("Context:\n")
	sb.WriteString(passage)
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(question)

	return sb.String()
}

type answerPayload struct {
	Score  *float64 `json:"score"`
	Answer string   `json:"answer"`
}

// parseResult decodes the model's JSON answer. The score is clamped to [0, 1].
func parseResult(text string) (qa.Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var p answerPayload
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &p); err != nil {
		return qa.Result{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	if p.Score == nil {
		return qa.Result{}, fmt.Errorf("%w: missing score", ErrInvalidPayload)
	}

	return qa.Result{Answer: strings.TrimSpace(p.Answer), Score: clampScore(*p.Score)}, nil
}

func clampScore(s float64) float64 {
	return min(max(s, 0), 1)
}
