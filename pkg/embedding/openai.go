package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type embeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// OpenAI embeds through the OpenAI API or an Azure OpenAI deployment.
type OpenAI struct {
	api   embeddingsAPI
	model string
}

// NewOpenAI uses the public OpenAI API.
func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{api: openai.NewClient(apiKey), model: model}
}

// NewAzure uses an Azure OpenAI resource. Every model name is routed to
// deployment when it is set.
func NewAzure(apiKey, endpoint, apiVersion, deployment, model string) *OpenAI {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	if deployment != "" {
		cfg.AzureModelMapperFunc = func(string) string { return deployment }
	}
	return &OpenAI{api: openai.NewClientWithConfig(cfg), model: model}
}

func (c *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: openai: %w", err)
	}
	if err := checkCount("openai", len(resp.Data), len(texts)); err != nil {
		return nil, err
	}
	// Data carries its input index; don't rely on response order.
	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding: openai: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (c *OpenAI) Close() error { return nil }
