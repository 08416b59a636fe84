// Package ingest turns source documents into embedded, indexed chunks. Runs
// are idempotent: files whose size and modification time are unchanged since
// their last ProcessedFileRecord are skipped, and vector ids are derived from
// (source, sequence index) so reprocessing overwrites rather than duplicates.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AbdulwahidHusein/LawChat/internal/chunker"
	"github.com/AbdulwahidHusein/LawChat/internal/domain"
	"github.com/AbdulwahidHusein/LawChat/internal/logger"
)

// Pipeline orchestrates chunking, embedding and upserting over a document
// directory.
type Pipeline struct {
	chunker   *chunker.Chunker
	embedder  domain.Embedder
	index     domain.VectorIndex
	tracker   *Tracker
	extractor *Extractor
	batchSize int
	workers   int
}

// Options configures a Pipeline.
type Options struct {
	Chunker   *chunker.Chunker
	Embedder  domain.Embedder
	Index     domain.VectorIndex
	Tracker   *Tracker
	Extractor *Extractor
	// BatchSize caps how many chunks are embedded and upserted per batch.
	// It must not exceed the embedder's maximum batch size.
	BatchSize int
	// Workers bounds how many batches are embedded concurrently.
	Workers int
}

// New creates an ingestion pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		chunker:   opts.Chunker,
		embedder:  opts.Embedder,
		index:     opts.Index,
		tracker:   opts.Tracker,
		extractor: opts.Extractor,
		batchSize: opts.BatchSize,
		workers:   opts.Workers,
	}
	if p.chunker == nil {
		p.chunker = chunker.New()
	}
	if p.extractor == nil {
		p.extractor = NewExtractor()
	}
	if p.batchSize <= 0 || p.batchSize > p.embedder.MaxBatchSize() {
		p.batchSize = p.embedder.MaxBatchSize()
	}
	if p.workers <= 0 {
		p.workers = 1
	}
	return p
}

// fileChunks keeps the chunks of one source file together so batch failures
// can be attributed back to the owning file.
type fileChunks struct {
	name   string
	size   int64
	mtime  time.Time
	chunks []domain.Chunk
}

// batch is one embed+upsert unit plus the set of files it contains chunks of.
type batch struct {
	chunks []domain.Chunk
	files  map[string]struct{}
}

// Run ingests every supported file under dir and returns a report. One
// failing batch does not abort the run; files touched by a failed batch keep
// their previous tracking record so the next run reprocesses them.
func (p *Pipeline) Run(ctx context.Context, dir string) (domain.IngestReport, error) {
	var report domain.IngestReport

	tracked, err := p.tracker.Load()
	if err != nil {
		return report, err
	}

	before, err := p.index.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("index stats before ingest: %w", err)
	}
	report.VectorsBefore = before.TotalVectorCount

	entries, err := os.ReadDir(dir)
	if err != nil {
		return report, fmt.Errorf("read document directory: %w", err)
	}

	var toProcess []os.DirEntry
	for _, entry := range entries {
		if entry.IsDir() || !p.extractor.Supported(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return report, err
		}
		if rec, ok := tracked[entry.Name()]; ok &&
			rec.Size == info.Size() && rec.ModTime == info.ModTime().Unix() {
			report.FilesSkipped++
			logger.Debug("skipping unchanged file %s", entry.Name())
			continue
		}
		toProcess = append(toProcess, entry)
	}
	sort.Slice(toProcess, func(i, j int) bool { return toProcess[i].Name() < toProcess[j].Name() })

	var files []fileChunks
	for _, entry := range toProcess {
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			return report, err
		}
		text, err := p.extractor.Extract(ctx, path)
		if err != nil {
			logger.Warn("extract failed for %s: %v", entry.Name(), err)
			report.FilesFailed++
			continue
		}
		chunks := p.chunker.Chunk(text, entry.Name())
		logger.Info("extracted %d chunks from %s", len(chunks), entry.Name())
		report.ChunksCreated += len(chunks)
		files = append(files, fileChunks{
			name:   entry.Name(),
			size:   info.Size(),
			mtime:  info.ModTime(),
			chunks: chunks,
		})
	}

	batches := p.prepareBatches(files)

	// Batches are disjoint in vector id, so they can be embedded and
	// upserted concurrently without racing.
	var mu sync.Mutex
	failedFiles := map[string]struct{}{}
	var g errgroup.Group
	g.SetLimit(p.workers)
	for i := range batches {
		b := batches[i]
		num := i + 1
		g.Go(func() error {
			upserted, err := p.processBatch(ctx, b)
			if err != nil {
				logger.Warn("batch %d/%d failed: %v", num, len(batches), err)
				mu.Lock()
				for name := range b.files {
					failedFiles[name] = struct{}{}
				}
				mu.Unlock()
				return nil
			}
			mu.Lock()
			report.VectorsUpserted += upserted
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	now := time.Now()
	for _, f := range files {
		if _, failed := failedFiles[f.name]; failed {
			report.FilesFailed++
			continue
		}
		tracked[f.name] = domain.ProcessedFileRecord{
			Size:        f.size,
			ModTime:     f.mtime.Unix(),
			ChunkCount:  len(f.chunks),
			ProcessedAt: now,
		}
		report.FilesProcessed++
	}
	if err := p.tracker.Save(tracked); err != nil {
		return report, err
	}

	after, err := p.index.Stats(ctx)
	if err != nil {
		return report, fmt.Errorf("index stats after ingest: %w", err)
	}
	report.VectorsAfter = after.TotalVectorCount
	return report, nil
}

// prepareBatches splits the accumulated chunks of all files into groups of
// at most batchSize, recording which files each group touches.
func (p *Pipeline) prepareBatches(files []fileChunks) []batch {
	var batches []batch
	current := batch{files: map[string]struct{}{}}
	for _, f := range files {
		for _, ch := range f.chunks {
			current.chunks = append(current.chunks, ch)
			current.files[f.name] = struct{}{}
			if len(current.chunks) == p.batchSize {
				batches = append(batches, current)
				current = batch{files: map[string]struct{}{}}
			}
		}
	}
	if len(current.chunks) > 0 {
		batches = append(batches, current)
	}
	return batches
}

// processBatch embeds and upserts one batch, returning the count the index
// reports as upserted.
func (p *Pipeline) processBatch(ctx context.Context, b batch) (int, error) {
	texts := make([]string, len(b.chunks))
	for i, ch := range b.chunks {
		texts[i] = ch.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	records := make([]domain.IndexRecord, len(b.chunks))
	for i, ch := range b.chunks {
		records[i] = domain.IndexRecord{
			ID:     ch.VectorID(),
			Vector: vectors[i],
			Metadata: domain.RecordMetadata{
				SourceID:      ch.SourceID,
				Text:          ch.Text,
				SequenceIndex: ch.SequenceIndex,
				CharStart:     ch.CharStart,
				CharEnd:       ch.CharEnd,
			},
		}
	}
	return p.index.Upsert(ctx, records)
}
