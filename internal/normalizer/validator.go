package normalizer

import (
	"errors"
	"strings"

	"feedqa/internal/models"
)

// Validation errors.
var (
	ErrEmptyQuestion     = errors.New("question must not be empty")
	ErrNoArticleSelected = errors.New("no article selected")
)

// Validator checks user input before it reaches the model.
type Validator struct{}

// NewValidator creates a new validator instance.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateQuestion rejects blank questions and a missing article.
func (v *Validator) ValidateQuestion(question string, article *models.Article) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}

	if article == nil {
		return ErrNoArticleSelected
	}

	return nil
}
