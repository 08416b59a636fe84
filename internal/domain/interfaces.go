package domain

import "context"

// Embedder converts text into fixed-dimensionality numeric vectors via a
// remote embedding service. Both forms preserve input order. Implementations
// do not retry; the caller owns retry policy.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
	MaxBatchSize() int
}

// VectorIndex persists embedded chunks and answers nearest-neighbor queries.
type VectorIndex interface {
	// Upsert inserts or overwrites records keyed by id and returns the
	// number accepted by the backend.
	Upsert(ctx context.Context, records []IndexRecord) (int, error)
	// Query returns up to topK matches ordered by descending score.
	Query(ctx context.Context, vector []float64, topK int) ([]RetrievedSource, error)
	Stats(ctx context.Context) (IndexStats, error)
}

// Completer sends an assembled message list to a chat-completion service and
// returns the generated text.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
