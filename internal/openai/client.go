package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
)

var (
	// ErrNoTexts is returned when the input batch is empty
	ErrNoTexts = errors.New("texts cannot be empty")
	// ErrWrongDimensions is returned when an embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions")
	// ErrCountMismatch is returned when the provider returns a different
	// number of vectors than inputs
	ErrCountMismatch = errors.New("provider returned wrong number of embeddings")
)

// EmbeddingAPI defines the provider contract: one vector per input, in order.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Client wraps an embedding provider with count and dimension validation.
type Client struct {
	api        EmbeddingAPI
	dimensions int
}

// OpenAIAdapter calls the OpenAI embeddings endpoint.
type OpenAIAdapter struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

func NewOpenAIAdapter(apiKey string, model openai.EmbeddingModel) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// CreateEmbeddings issues a single batched request to the OpenAI API.
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: a.model,
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}

type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// NewClient creates a client using defaults for the given API key.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.APIKey, cfg.EmbeddingModel),
		dimensions: dimensions,
	}
}

// CreateEmbeddings generates one embedding per input text, preserving order.
// Any provider error, count mismatch, or dimension mismatch fails the whole
// batch; callers never receive partial results.
func (c *Client) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrNoTexts
	}

	vectors, err := c.api.CreateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d for %d inputs", ErrCountMismatch, len(vectors), len(texts))
	}

	for i, v := range vectors {
		if len(v) != c.dimensions {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				ErrWrongDimensions, i, len(v), c.dimensions)
		}
	}

	return vectors, nil
}

// Factory builds clients bound to a bot's own API key. The ingestion
// orchestrator resolves the key per run; there is never a shared fallback key.
type Factory struct {
	Model      openai.EmbeddingModel
	Dimensions int
}

// New returns a Client for the given API key.
func (f *Factory) New(apiKey string) *Client {
	return NewClientWithConfig(Config{
		APIKey:              apiKey,
		EmbeddingModel:      f.Model,
		EmbeddingDimensions: f.Dimensions,
	})
}
