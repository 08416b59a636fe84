package pinecone

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) *Index {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_PINECONE_KEY", "pc-test")
	x, err := New(Config{Host: srv.URL, APIKeyEnv: "TEST_PINECONE_KEY"})
	require.NoError(t, err)
	return x
}

func TestNew_RequiresHostAndKey(t *testing.T) {
	t.Setenv("TEST_PINECONE_KEY", "")
	_, err := New(Config{Host: "https://example.test", APIKeyEnv: "TEST_PINECONE_KEY"})
	assert.Error(t, err)

	t.Setenv("TEST_PINECONE_KEY", "pc-test")
	_, err = New(Config{APIKeyEnv: "TEST_PINECONE_KEY"})
	assert.Error(t, err)
}

func TestUpsert(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/vectors/upsert", r.URL.Path)
		assert.Equal(t, "pc-test", r.Header.Get("Api-Key"))

		var req struct {
			Vectors []struct {
				ID       string                `json:"id"`
				Values   []float64             `json:"values"`
				Metadata domain.RecordMetadata `json:"metadata"`
			} `json:"vectors"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Vectors, 2)
		assert.Equal(t, "doc_a.pdf_0", req.Vectors[0].ID)
		assert.Equal(t, "a.pdf", req.Vectors[0].Metadata.SourceID)

		json.NewEncoder(w).Encode(map[string]int{"upsertedCount": 2})
	})

	records := []domain.IndexRecord{
		{ID: "doc_a.pdf_0", Vector: []float64{1, 2}, Metadata: domain.RecordMetadata{SourceID: "a.pdf", Text: "first"}},
		{ID: "doc_a.pdf_1", Vector: []float64{3, 4}, Metadata: domain.RecordMetadata{SourceID: "a.pdf", Text: "second", SequenceIndex: 1}},
	}
	n, err := x.Upsert(context.Background(), records)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpsert_EmptyIsNoop(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty upsert")
	})
	n, err := x.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuery_ConvertsMatches(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)

		var req struct {
			Vector          []float64 `json:"vector"`
			TopK            int       `json:"topK"`
			IncludeMetadata bool      `json:"includeMetadata"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 3, req.TopK)
		assert.True(t, req.IncludeMetadata)

		json.NewEncoder(w).Encode(map[string]any{
			"matches": []map[string]any{
				{"id": "doc_x.pdf_4", "score": 0.92, "metadata": map[string]any{"source": "x.pdf", "text": "best passage"}},
				{"id": "doc_y.pdf_0", "score": 0.71, "metadata": map[string]any{"source": "y.pdf", "text": "next passage"}},
			},
		})
	})

	results, err := x.Query(context.Background(), []float64{0.5, 0.5}, 3)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.RetrievedSource{SourceID: "x.pdf", Text: "best passage", Score: 0.92}, results[0])
	assert.Equal(t, "y.pdf", results[1].SourceID)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestStats(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/describe_index_stats", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int{"totalVectorCount": 1234})
	})

	stats, err := x.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1234, stats.TotalVectorCount)
}

func TestAuthError(t *testing.T) {
	x := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := x.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestUnreachableHostIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // nothing listens here anymore
	t.Setenv("TEST_PINECONE_KEY", "pc-test")
	x, err := New(Config{Host: srv.URL, APIKeyEnv: "TEST_PINECONE_KEY"})
	require.NoError(t, err)

	_, err = x.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrConnection)
}
