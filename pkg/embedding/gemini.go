package embedding

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type geminiAPI interface {
	NewBatch() *genai.EmbeddingBatch
	BatchEmbedContents(ctx context.Context, b *genai.EmbeddingBatch) (*genai.BatchEmbedContentsResponse, error)
}

// Gemini embeds with Google's Gemini embedding models.
type Gemini struct {
	client *genai.Client
	api    geminiAPI
}

// NewGemini creates a Gemini client for model (e.g. "text-embedding-004").
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("embedding: gemini client: %w", err)
	}
	return &Gemini{client: client, api: client.EmbeddingModel(model)}, nil
}

func (c *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	batch := c.api.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}
	resp, err := c.api.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("embedding: gemini: %w", err)
	}
	if err := checkCount("gemini", len(resp.Embeddings), len(texts)); err != nil {
		return nil, err
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e.Values
	}
	return out, nil
}

func (c *Gemini) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}
