package qa

import (
	"context"
	"fmt"
)

// State is the lifecycle state of a Session.
type State int

// Session states.
const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is the raw output of an extractive question-answering model:
// a span of the context and a confidence in [0, 1].
type Result struct {
	Answer string
	Score  float64
}

// Model answers one question against one context.
type Model interface {
	Answer(ctx context.Context, question, passage string) (Result, error)
}

// Loader loads a named question-answering model.
type Loader interface {
	Load(ctx context.Context, model string) (Model, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, model string) (Model, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, model string) (Model, error) {
	return f(ctx, model)
}

// Answer is a formatted model answer.
type Answer struct {
	Text  string  `json:"answer"`
	Score float64 `json:"score"`
}

// Confidence returns the score as a percentage.
func (a Answer) Confidence() float64 {
	return a.Score * 100
}

// String renders the answer followed by its confidence with one decimal.
func (a Answer) String() string {
	return fmt.Sprintf("%s\n\n(Confidence: %.1f%%)", a.Text, a.Confidence())
}

// Status describes a session for display.
type Status struct {
	ModelName string `json:"modelName"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
	IsReady   bool   `json:"isReady"`
	IsLoading bool   `json:"isLoading"`
}
