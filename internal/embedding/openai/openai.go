// Package openai implements the Embedder interface against an
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

// Client is an OpenAI-compatible embeddings client.
// It does not retry failed requests; the caller owns retry policy.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	maxBatchSize int
	client       *http.Client
}

// Config configures the embeddings client. APIKeyEnv names the environment
// variable holding the bearer credential; the key itself is never stored in
// configuration files.
type Config struct {
	BaseURL      string
	APIKeyEnv    string
	Model        string
	Timeout      time.Duration
	MaxBatchSize int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	mb := cfg.MaxBatchSize
	if mb == 0 {
		mb = 50
	}
	return &Client{
		baseURL:      cfg.BaseURL,
		apiKey:       key,
		model:        cfg.Model,
		maxBatchSize: mb,
		client:       &http.Client{Timeout: t},
	}, nil
}

// Model returns the embedding model name.
func (c *Client) Model() string { return c.model }

// MaxBatchSize returns the largest batch a single EmbedBatch call accepts.
func (c *Client) MaxBatchSize() int { return c.maxBatchSize }

// Embed returns an embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per input text, in input order. Batches
// larger than MaxBatchSize are rejected; splitting is the caller's job.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if len(texts) > c.maxBatchSize {
		return nil, fmt.Errorf("batch of %d texts exceeds maximum of %d", len(texts), c.maxBatchSize)
	}
	body, _ := json.Marshal(struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}{Input: texts, Model: c.model})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: embeddings request: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: embeddings: %s", domain.ErrAuth, resp.Status)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: embeddings: %s", domain.ErrServiceUnavailable, resp.Status)
	}

	var out struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode embeddings response: %v", domain.ErrServiceUnavailable, err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", domain.ErrServiceUnavailable, len(texts), len(out.Data))
	}
	vecs := make([][]float64, len(texts))
	for _, d := range out.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrServiceUnavailable, d.Index)
		}
		vecs[d.Index] = d.Embedding
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty embedding for input %d", domain.ErrServiceUnavailable, i)
		}
	}
	return vecs, nil
}

var _ domain.Embedder = (*Client)(nil)
