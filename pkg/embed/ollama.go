package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	Host      string
	Model     string
	Dimension int // 0 triggers dimension auto-detection from the first embed call
	Timeout   time.Duration
	Retry     RetryPolicy
}

// DefaultOllamaHost is Ollama's default local listener.
const DefaultOllamaHost = "http://localhost:11434"

// DefaultOllamaConfig returns sensible defaults for a local Ollama daemon.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:    DefaultOllamaHost,
		Model:   "nomic-embed-text",
		Timeout: 30 * time.Second,
		Retry:   DefaultRetryPolicy(),
	}
}

// OllamaClient embeds text via Ollama's HTTP embeddings API.
type OllamaClient struct {
	httpClient *http.Client
	transport  *http.Transport
	host       string
	model      string
	dimension  int
	retry      RetryPolicy
}

var _ Client = (*OllamaClient)(nil)

// NewOllamaClient constructs a client for an Ollama daemon at cfg.Host.
// Dimension is probed with a single embed call if cfg.Dimension is zero.
func NewOllamaClient(ctx context.Context, cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.Host == "" {
		cfg.Host = DefaultOllamaHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}

	transport := &http.Transport{
		MaxIdleConns:        8,
		MaxIdleConnsPerHost: 8,
		IdleConnTimeout:     10 * time.Second,
	}

	c := &OllamaClient{
		httpClient: &http.Client{Transport: transport},
		transport:  transport,
		host:       cfg.Host,
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		retry:      cfg.Retry,
	}

	if c.dimension == 0 {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
		vec, err := c.doEmbed(probeCtx, "dimension probe")
		if err != nil {
			transport.CloseIdleConnections()
			return nil, fmt.Errorf("embed: probing ollama embedding dimension: %w", err)
		}
		c.dimension = len(vec)
	}

	return c, nil
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *OllamaClient) doEmbed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: c.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.host+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, withStatus(0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, withStatus(resp.StatusCode, fmt.Errorf("ollama embeddings: %s: %s", resp.Status, string(respBody)))
	}

	var result ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return result.Embedding, nil
}

// Embed implements Client.
func (c *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = PreprocessText(text)
	var vec []float32
	err := withRetry(ctx, c.retry, func() error {
		v, err := c.doEmbed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vec, nil
}

// EmbedBatch implements Client. Ollama's embeddings endpoint takes one
// prompt per call, so a batch is a sequence of calls retried as a single
// unit: a mid-batch failure after retries fails the whole call, letting
// the caller fall back to per-item embedding (spec §4.9).
func (c *OllamaClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	err := withRetry(ctx, c.retry, func() error {
		for i, text := range texts {
			vec, err := c.doEmbed(ctx, PreprocessText(text))
			if err != nil {
				return err
			}
			results[i] = vec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Dimension implements Client.
func (c *OllamaClient) Dimension() int { return c.dimension }

// Close implements Client.
func (c *OllamaClient) Close() error {
	c.transport.CloseIdleConnections()
	return nil
}
