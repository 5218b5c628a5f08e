package ai

import (
	"context"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model answers without any text.
	ErrEmptyResponse = errors.New("model returned empty response")
	// ErrUnauthorized is returned when the provider rejects the credential.
	ErrUnauthorized = errors.New("model provider rejected the api key")
)

const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// Generator sends one prompt with a system instruction to a language model and
// returns its text answer.
type Generator interface {
	GenerateContent(ctx context.Context, system, prompt string) (string, error)
	Model() string
}
