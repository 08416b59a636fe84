// Package memory provides an in-process vector index using brute-force
// cosine similarity. It backs local mode and the test suite.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/AbdulwahidHusein/LawChat/internal/domain"
)

// Index stores records in memory. Upsert is keyed by record id, matching the
// overwrite semantics of the hosted backend.
type Index struct {
	mu      sync.RWMutex
	byID    map[string]int
	records []domain.IndexRecord
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{byID: make(map[string]int)}
}

// Upsert inserts new records and overwrites existing ids in place.
func (x *Index) Upsert(_ context.Context, records []domain.IndexRecord) (int, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, r := range records {
		if i, ok := x.byID[r.ID]; ok {
			x.records[i] = r
			continue
		}
		x.byID[r.ID] = len(x.records)
		x.records = append(x.records, r)
	}
	return len(records), nil
}

// Query scores every record against the query vector and returns the topK
// best matches in descending score order. Ties keep insertion order.
func (x *Index) Query(_ context.Context, vector []float64, topK int) ([]domain.RetrievedSource, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if topK <= 0 {
		topK = 3
	}
	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(x.records))
	for i, r := range x.records {
		scores[i] = scored{idx: i, score: cosine(r.Vector, vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if topK > len(scores) {
		topK = len(scores)
	}
	out := make([]domain.RetrievedSource, 0, topK)
	for _, s := range scores[:topK] {
		md := x.records[s.idx].Metadata
		out = append(out, domain.RetrievedSource{
			SourceID: md.SourceID,
			Text:     md.Text,
			Score:    s.score,
		})
	}
	return out, nil
}

// Stats returns the current record count.
func (x *Index) Stats(_ context.Context) (domain.IndexStats, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return domain.IndexStats{TotalVectorCount: len(x.records)}, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var _ domain.VectorIndex = (*Index)(nil)
