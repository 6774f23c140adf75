package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
)

type ollamaAPI interface {
	Embed(ctx context.Context, req *api.EmbedRequest) (*api.EmbedResponse, error)
}

// Ollama embeds with a local Ollama server.
type Ollama struct {
	api   ollamaAPI
	model string
}

// NewOllama connects to the Ollama server at baseURL.
func NewOllama(baseURL, model string, hc *http.Client) (*Ollama, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("embedding: ollama url %q: %w", baseURL, err)
	}
	return &Ollama{api: api.NewClient(u, hc), model: model}, nil
}

func (c *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.Embed(ctx, &api.EmbedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("embedding: ollama: %w", err)
	}
	if err := checkCount("ollama", len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}
	return resp.Embeddings, nil
}

func (c *Ollama) Close() error { return nil }
