// Package chunker splits raw document text into overlapping fixed-size
// passages with positional metadata.
package chunker

import "github.com/AbdulwahidHusein/LawChat/internal/domain"

// DefaultSize is the default number of characters per chunk.
const DefaultSize = 1000

// DefaultOverlap is the default number of overlapping characters between
// consecutive chunks.
const DefaultOverlap = 200

// DefaultMinLength is the shortest window still worth indexing. Trailing
// fragments below this are discarded.
const DefaultMinLength = 50

// Chunker slides a fixed-size window over document text.
type Chunker struct {
	size      int
	overlap   int
	minLength int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithSize sets the chunk size in characters.
func WithSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithMinLength sets the minimum viable chunk length.
func WithMinLength(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.minLength = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		size:      DefaultSize,
		overlap:   DefaultOverlap,
		minLength: DefaultMinLength,
	}
	for _, opt := range opts {
		opt(c)
	}
	// Overlap must leave the window some forward progress.
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Chunk splits text into overlapping windows. Windows start at offset 0 and
// advance by size-overlap until the window start reaches the end of the text.
// Sizes and offsets are in runes so multi-byte scripts are never split
// mid-character. Windows shorter than the minimum viable length are
// discarded; sequence indices are dense over emitted chunks only. Identical
// input always yields an identical chunk sequence, so re-ingesting an
// unchanged document produces the same vector ids.
func (c *Chunker) Chunk(text, sourceID string) []domain.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		window := runes[start:end]
		if len(window) < c.minLength {
			continue
		}
		chunks = append(chunks, domain.Chunk{
			Text:          string(window),
			SourceID:      sourceID,
			SequenceIndex: len(chunks),
			CharStart:     start,
			CharEnd:       end,
		})
	}
	return chunks
}
