// Package embedding adapts hosted and local embedding models to a single
// Client interface.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Providers.
const (
	ProviderAzure  = "azure"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"
)

var ErrUnknownProvider = errors.New("embedding: unknown provider")

// Client embeds texts into fixed-dimension vectors, one per input, in order.
type Client interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// Config selects and configures a provider. Only the fields of the selected
// provider are read.
type Config struct {
	Provider string
	Model    string

	// azure / openai
	APIKey     string
	Endpoint   string
	APIVersion string
	Deployment string

	// ollama
	BaseURL string
}

// New builds the Client for cfg.Provider.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case ProviderAzure:
		return NewAzure(cfg.APIKey, cfg.Endpoint, cfg.APIVersion, cfg.Deployment, cfg.Model), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model), nil
	case ProviderOllama:
		return NewOllama(cfg.BaseURL, cfg.Model, http.DefaultClient)
	case ProviderGemini:
		return NewGemini(ctx, cfg.APIKey, cfg.Model)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownProvider, cfg.Provider)
}

// checkCount guards against providers returning fewer vectors than inputs.
func checkCount(provider string, got, want int) error {
	if got != want {
		return fmt.Errorf("embedding: %s returned %d vectors for %d inputs", provider, got, want)
	}
	return nil
}
