package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdulwahidHusein/LawChat/internal/chunker"
	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/vectorindex/memory"
)

// stubEmbedder produces fixed-size vectors derived from text length. failOn
// makes any batch containing a text with that substring fail, for exercising
// partial-failure handling.
type stubEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float64, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	out := make([][]float64, len(texts))
	for i, t := range texts {
		if e.failOn != "" && strings.Contains(t, e.failOn) {
			return nil, fmt.Errorf("%w: embedding backend down", domain.ErrServiceUnavailable)
		}
		out[i] = []float64{float64(len(t)), 1, 0}
	}
	return out, nil
}

func (e *stubEmbedder) Model() string     { return "stub" }
func (e *stubEmbedder) MaxBatchSize() int { return 50 }

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestPipeline(t *testing.T, emb domain.Embedder, idx domain.VectorIndex, batchSize int) (*Pipeline, string) {
	t.Helper()
	tmp := t.TempDir()
	p := New(Options{
		Chunker:   chunker.New(chunker.WithSize(40), chunker.WithOverlap(10), chunker.WithMinLength(10)),
		Embedder:  emb,
		Index:     idx,
		Tracker:   NewTracker(filepath.Join(tmp, "processed_files.json")),
		BatchSize: batchSize,
		Workers:   2,
	})
	return p, tmp
}

func TestRun_IndexesSupportedFiles(t *testing.T) {
	idx := memory.New()
	emb := &stubEmbedder{}
	p, _ := newTestPipeline(t, emb, idx, 50)

	docs := t.TempDir()
	writeDoc(t, docs, "a.txt", strings.Repeat("civil law provisions apply here. ", 5))
	writeDoc(t, docs, "b.md", strings.Repeat("criminal law provisions apply. ", 5))
	writeDoc(t, docs, "ignored.docx", "unsupported format")

	report, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	assert.Equal(t, 2, report.FilesProcessed)
	assert.Equal(t, 0, report.FilesSkipped)
	assert.Positive(t, report.ChunksCreated)
	assert.Equal(t, report.ChunksCreated, report.VectorsUpserted)
	assert.Equal(t, 0, report.VectorsBefore)
	assert.Equal(t, report.ChunksCreated, report.VectorsAfter)
}

func TestRun_Idempotent(t *testing.T) {
	idx := memory.New()
	p, _ := newTestPipeline(t, &stubEmbedder{}, idx, 50)

	docs := t.TempDir()
	writeDoc(t, docs, "a.txt", strings.Repeat("family law provisions apply here. ", 5))

	first, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	require.Equal(t, 1, first.FilesProcessed)

	second, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 0, second.FilesProcessed, "unchanged files are skipped")
	assert.Equal(t, 1, second.FilesSkipped)
	assert.Equal(t, 0, second.ChunksCreated)
	assert.Equal(t, first.VectorsAfter, second.VectorsAfter, "no new vectors on the second run")
}

func TestRun_ChangeDetection(t *testing.T) {
	idx := memory.New()
	p, _ := newTestPipeline(t, &stubEmbedder{}, idx, 50)

	docs := t.TempDir()
	path := writeDoc(t, docs, "a.txt", strings.Repeat("original content of the statute. ", 5))

	_, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	// Rewrite with different content and a different mtime.
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("amended content of the statute!! ", 5)), 0o644))
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	report, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed, "modified file must be reprocessed")
	assert.Equal(t, 0, report.FilesSkipped)
}

func TestRun_ReingestOverwritesVectors(t *testing.T) {
	idx := memory.New()
	p, _ := newTestPipeline(t, &stubEmbedder{}, idx, 50)

	docs := t.TempDir()
	content := strings.Repeat("identical deterministic content. ", 5)
	path := writeDoc(t, docs, "a.txt", content)

	first, err := p.Run(context.Background(), docs)
	require.NoError(t, err)

	// Same content, new mtime: the file is reprocessed but ids repeat, so
	// upserts overwrite instead of duplicating.
	later := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, second.FilesProcessed)
	assert.Equal(t, first.VectorsAfter, second.VectorsAfter, "identical ids must not grow the index")
}

// shortCountIndex silently drops the last record of every upsert, modeling a
// backend that accepts fewer records than submitted.
type shortCountIndex struct {
	domain.VectorIndex
}

func (s shortCountIndex) Upsert(ctx context.Context, records []domain.IndexRecord) (int, error) {
	return s.VectorIndex.Upsert(ctx, records[:len(records)-1])
}

func TestRun_ReportsBackendUpsertCount(t *testing.T) {
	idx := shortCountIndex{memory.New()}
	p, _ := newTestPipeline(t, &stubEmbedder{}, idx, 50)

	docs := t.TempDir()
	writeDoc(t, docs, "a.txt", strings.Repeat("civil law provisions apply here. ", 5))

	report, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	require.Positive(t, report.ChunksCreated)
	assert.Equal(t, report.ChunksCreated-1, report.VectorsUpserted, "report reflects what the backend accepted")
	assert.Equal(t, report.VectorsUpserted, report.VectorsAfter)
}

func TestRun_PartialBatchFailure(t *testing.T) {
	idx := memory.New()
	emb := &stubEmbedder{failOn: "POISON"}
	// Batch size 1 keeps the two files in separate batches.
	p, _ := newTestPipeline(t, emb, idx, 1)

	docs := t.TempDir()
	writeDoc(t, docs, "bad.txt", "POISON "+strings.Repeat("x", 30))
	writeDoc(t, docs, "good.txt", strings.Repeat("perfectly fine clause text. ", 2))

	report, err := p.Run(context.Background(), docs)
	require.NoError(t, err, "one failing batch must not abort the run")
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 1, report.FilesFailed)

	// The failed file keeps no record, so the next run retries it while the
	// good file is skipped.
	emb.failOn = ""
	second, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, second.FilesProcessed, "previously failed file is retried")
	assert.Equal(t, 1, second.FilesSkipped)
}

func TestRun_ExtractionFailureIsIsolated(t *testing.T) {
	idx := memory.New()
	p, _ := newTestPipeline(t, &stubEmbedder{}, idx, 50)
	p.extractor = NewExtractorWithRunner(failRunner{})

	docs := t.TempDir()
	writeDoc(t, docs, "broken.pdf", "%PDF-1.4 pretend")
	writeDoc(t, docs, "fine.txt", strings.Repeat("readable clause text here. ", 3))

	report, err := p.Run(context.Background(), docs)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FilesProcessed)
	assert.Equal(t, 1, report.FilesFailed)
}

type failRunner struct{}

func (failRunner) Run(context.Context, string, ...string) ([]byte, error) {
	return nil, fmt.Errorf("pdftotext exited with status 1")
}

func TestRun_EmptyDirectory(t *testing.T) {
	p, _ := newTestPipeline(t, &stubEmbedder{}, memory.New(), 50)

	report, err := p.Run(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Zero(t, report.FilesProcessed)
	assert.Zero(t, report.ChunksCreated)
}
