// Package normalizer turns parsed articles into the plain-text context and
// sanitized HTML used by the reader.
package normalizer

import (
	"feedqa/internal/models"
)

// Processor builds question-answering context from articles.
type Processor struct {
	validator   *Validator
	transformer *Transformer
}

// NewProcessor creates a new processor instance.
func NewProcessor() *Processor {
	return &Processor{
		validator:   NewValidator(),
		transformer: NewTransformer(),
	}
}

// Context returns the article title, a blank line, and the plain text of
// the article body. The result is not truncated here.
func (p *Processor) Context(article *models.Article) string {
	return article.Title + "\n\n" + p.Text(article)
}

// Text returns the article body as plain text.
func (p *Processor) Text(article *models.Article) string {
	return p.transformer.StripHTML(article.Body())
}

// Prepare validates a question against the selected article and returns
// the context to ask it against.
func (p *Processor) Prepare(question string, article *models.Article) (string, error) {
	if err := p.validator.ValidateQuestion(question, article); err != nil {
		return "", err
	}

	return p.Context(article), nil
}

// DisplayHTML returns the article body with dangerous elements removed.
func (p *Processor) DisplayHTML(article *models.Article) (string, error) {
	return p.transformer.Sanitize(article.Body())
}
