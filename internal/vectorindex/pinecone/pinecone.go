// Package pinecone is a minimal REST client for a Pinecone serverless index.
// Backend match shapes are converted to domain types at this boundary so the
// rest of the pipeline never depends on the wire format.
package pinecone

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

// Index is a client bound to one Pinecone index host.
type Index struct {
	host   string
	apiKey string
	client *http.Client
}

// Config configures the Pinecone client. Host is the index host URL
// (https://<index>-<project>.svc.<region>.pinecone.io).
type Config struct {
	Host      string
	APIKeyEnv string
	Timeout   time.Duration
}

// New creates a client for the configured index host.
func New(cfg Config) (*Index, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("pinecone host is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Index{
		host:   cfg.Host,
		apiKey: key,
		client: &http.Client{Timeout: timeout},
	}, nil
}

type upsertVector struct {
	ID       string                `json:"id"`
	Values   []float64             `json:"values"`
	Metadata domain.RecordMetadata `json:"metadata"`
}

// Upsert inserts or overwrites records keyed by id and returns the count the
// backend accepted. Re-upserting an id replaces its vector and metadata,
// which is how document updates propagate.
func (x *Index) Upsert(ctx context.Context, records []domain.IndexRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	vectors := make([]upsertVector, len(records))
	for i, r := range records {
		vectors[i] = upsertVector{ID: r.ID, Values: r.Vector, Metadata: r.Metadata}
	}
	var resp struct {
		UpsertedCount int `json:"upsertedCount"`
	}
	body := map[string]any{"vectors": vectors}
	if err := x.postJSON(ctx, "/vectors/upsert", body, &resp); err != nil {
		return 0, err
	}
	return resp.UpsertedCount, nil
}

// Query returns up to topK matches ordered by descending score. Ties keep
// the backend's arrival order.
func (x *Index) Query(ctx context.Context, vector []float64, topK int) ([]domain.RetrievedSource, error) {
	if topK <= 0 {
		topK = 3
	}
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []struct {
			ID       string                `json:"id"`
			Score    float64               `json:"score"`
			Metadata domain.RecordMetadata `json:"metadata"`
		} `json:"matches"`
	}
	if err := x.postJSON(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}
	sources := make([]domain.RetrievedSource, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		sources = append(sources, domain.RetrievedSource{
			SourceID: m.Metadata.SourceID,
			Text:     m.Metadata.Text,
			Score:    m.Score,
		})
	}
	return sources, nil
}

// Stats returns the total record count, used for pre/post ingestion reporting.
func (x *Index) Stats(ctx context.Context) (domain.IndexStats, error) {
	var resp struct {
		TotalVectorCount int `json:"totalVectorCount"`
	}
	if err := x.postJSON(ctx, "/describe_index_stats", map[string]any{}, &resp); err != nil {
		return domain.IndexStats{}, err
	}
	return domain.IndexStats{TotalVectorCount: resp.TotalVectorCount}, nil
}

func (x *Index) postJSON(ctx context.Context, path string, body any, out any) error {
	data, _ := json.Marshal(body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.host+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", x.apiKey)
	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: pinecone %s: %v", domain.ErrConnection, path, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: pinecone %s: %s", domain.ErrAuth, path, resp.Status)
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: pinecone %s: %s", domain.ErrServiceUnavailable, path, resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode pinecone %s response: %v", domain.ErrServiceUnavailable, path, err)
		}
	}
	return nil
}

var _ domain.VectorIndex = (*Index)(nil)
