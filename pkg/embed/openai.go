package embed

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
)

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey    string
	Model     string
	Dimension int
	Retry     RetryPolicy
}

// DefaultOpenAIModel matches OpenAI's current small embedding model.
const DefaultOpenAIModel = "text-embedding-3-small"

// DefaultOpenAIConfig returns sensible defaults; APIKey must still be set.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{Model: DefaultOpenAIModel, Retry: DefaultRetryPolicy()}
}

// OpenAIClient embeds text via the OpenAI embeddings API.
type OpenAIClient struct {
	client    openai.Client
	model     string
	dimension int
	retry     RetryPolicy
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient constructs a client for OpenAI's hosted embeddings API.
func NewOpenAIClient(ctx context.Context, cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, appErrors.New(appErrors.KindEmbeddingError, "embed: openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}

	c := &OpenAIClient{
		client:    openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		retry:     cfg.Retry,
	}

	if c.dimension == 0 {
		vecs, err := c.doEmbed(ctx, []string{"dimension probe"})
		if err != nil {
			return nil, fmt.Errorf("embed: probing openai embedding dimension: %w", err)
		}
		c.dimension = len(vecs[0])
	}

	return c, nil
}

func (c *OpenAIClient) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, withStatus(apiErr.StatusCode, err)
		}
		return nil, withStatus(0, err)
	}

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for j, v := range d.Embedding {
			vec[j] = float32(v)
		}
		vectors[int(d.Index)] = vec
	}
	return vectors, nil
}

// Embed implements Client.
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{PreprocessText(text)})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch implements Client.
func (c *OpenAIClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	preprocessed := make([]string, len(texts))
	for i, t := range texts {
		preprocessed[i] = PreprocessText(t)
	}

	var vectors [][]float32
	err := withRetry(ctx, c.retry, func() error {
		v, err := c.doEmbed(ctx, preprocessed)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimension implements Client.
func (c *OpenAIClient) Dimension() int { return c.dimension }

// Close implements Client. The OpenAI SDK's HTTP client has no explicit
// teardown; nothing to release here.
func (c *OpenAIClient) Close() error { return nil }
