// Package qa manages the lifecycle of a question-answering model session.
package qa

import (
	"context"
	"fmt"
	"sync"

	"feedqa/internal/logger"
	"feedqa/pkg/utils"
)

// DefaultMaxContext is the number of characters of context sent to the model.
const DefaultMaxContext = 2000

// Session lazily loads one model and answers questions with it.
// A failed session stays failed; callers replace it to retry.
type Session struct {
	loader     Loader
	model      Model
	err        error
	log        *logger.Logger
	modelName  string
	maxContext int
	state      State
	mu         sync.Mutex
}

// Option customizes a Session.
type Option func(*Session)

// WithMaxContext sets the context length, in characters, above which
// context is truncated.
func WithMaxContext(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.maxContext = n
		}
	}
}

// WithLogger sets the session logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSession creates an uninitialized session for the named model.
func NewSession(loader Loader, modelName string, opts ...Option) *Session {
	s := &Session{
		loader:     loader,
		modelName:  modelName,
		maxContext: DefaultMaxContext,
		log:        logger.Nop(),
		state:      StateUninitialized,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Initialize loads the model. It returns nil at once when the session is
// ready or another call is already loading, and the recorded failure when
// an earlier load failed.
func (s *Session) Initialize(ctx context.Context) error {
	s.mu.Lock()

	switch s.state {
	case StateReady:
		s.mu.Unlock()
		s.log.Debug("model already initialized", "model", s.modelName)

		return nil
	case StateLoading:
		s.mu.Unlock()
		s.log.Debug("model is already loading", "model", s.modelName)

		return nil
	case StateFailed:
		err := s.err
		s.mu.Unlock()

		return err
	}

	s.state = StateLoading
	s.mu.Unlock()

	s.log.Info("loading model", "model", s.modelName)

	model, err := s.loader.Load(ctx, s.modelName)
	if err == nil && model == nil {
		err = ErrNilModel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.err = classify(err)
		s.state = StateFailed
		s.log.Error("failed to load model", "model", s.modelName, "error", s.err)

		return s.err
	}

	s.model = model
	s.state = StateReady
	s.log.Info("model loaded", "model", s.modelName)

	return nil
}

// AskQuestion answers question against passage. A passage longer than the
// configured maximum is cut and marked with an ellipsis. A model failure
// leaves the session ready.
func (s *Session) AskQuestion(ctx context.Context, passage, question string) (Answer, error) {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()

		return Answer{}, ErrNotReady
	}

	model := s.model
	s.mu.Unlock()

	s.log.Debug("processing question", "question", question)

	res, err := model.Answer(ctx, question, utils.TruncateRunes(passage, s.maxContext))
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrQueryFailed, err)
	}

	return Answer{Text: res.Answer, Score: res.Score}, nil
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Err returns the recorded load failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// IsLoading reports whether a load is in progress.
func (s *Session) IsLoading() bool {
	return s.State() == StateLoading
}

// IsReady reports whether questions can be asked.
func (s *Session) IsReady() bool {
	return s.State() == StateReady
}

// ModelName returns the name of the model the session loads.
func (s *Session) ModelName() string {
	return s.modelName
}

// Status returns a snapshot for display.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		ModelName: s.modelName,
		State:     s.state.String(),
		IsReady:   s.state == StateReady,
		IsLoading: s.state == StateLoading,
	}
	if s.err != nil {
		st.Error = s.err.Error()
	}

	return st
}
