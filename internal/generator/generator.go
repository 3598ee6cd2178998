// Package generator produces the final answer from a question and its
// retrieved context. Two implementations exist: a live chat-completions
// model and a template fallback for keyless setups. The choice is made
// once at construction, never per call site.
package generator

import (
	"context"
	"os"

	"handbookrag/pkg/models"
)

// Generator answers a question given the assembled context and its
// citations.
type Generator interface {
	// Name identifies the implementation ("live" or "fallback").
	Name() string

	Answer(ctx context.Context, question, contextText string, citations []models.Citation) (string, error)
}

// Config holds generator configuration.
type Config struct {
	Enabled    bool
	BaseURL    string
	SocketPath string
	APIKeyEnv  string
	Model      string
	MaxTokens  int
}

// New selects the generator implementation from configuration: the live
// model when enabled and reachable, the template fallback otherwise.
func New(config Config) (Generator, error) {
	if !config.Enabled {
		return NewFallback(), nil
	}
	if config.SocketPath == "" && config.APIKeyEnv != "" && os.Getenv(config.APIKeyEnv) == "" {
		// No credentials: degrade gracefully instead of failing every query.
		return NewFallback(), nil
	}
	return NewLive(config)
}
