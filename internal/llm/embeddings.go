package llm

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingsClient wraps an OpenAI-compatible embeddings API. Vectors
// are validated against the configured dimension so that a model change
// cannot silently mix vector lengths within one collection.
type EmbeddingsClient struct {
	api       *openai.Client
	model     string
	dimension int
	timeout   time.Duration
}

// NewEmbeddingsClient creates an embeddings client from the given options.
func NewEmbeddingsClient(opts Options) *EmbeddingsClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	return &EmbeddingsClient{
		api:       openai.NewClientWithConfig(cfg),
		model:     opts.EmbeddingModel,
		dimension: opts.Dimension,
		timeout:   defaultRequestTimeout,
	}
}

// Dimension returns the configured vector length, 0 when unchecked.
func (c *EmbeddingsClient) Dimension() int {
	return c.dimension
}

// EmbedTexts embeds a batch of texts, preserving input order.
func (c *EmbeddingsClient) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, datum := range resp.Data {
		if c.dimension > 0 && len(datum.Embedding) != c.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", c.dimension, len(datum.Embedding))
		}
		vectors[i] = datum.Embedding
	}
	return vectors, nil
}

// EmbedText embeds a single text.
func (c *EmbeddingsClient) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return vectors[0], nil
}
