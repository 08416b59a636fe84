package domain

import (
	"fmt"
	"time"
)

// Chunk is a contiguous slice of a source document produced during ingestion.
// Chunks are immutable once created; a changed document is re-chunked and its
// old vectors are replaced by upsert under the same ids.
type Chunk struct {
	Text          string
	SourceID      string
	SequenceIndex int
	CharStart     int
	CharEnd       int
}

// VectorID returns the deterministic index id for this chunk. The same
// document reprocessed with unchanged content yields identical ids, which is
// what makes re-ingestion an overwrite rather than a duplication.
func (c Chunk) VectorID() string {
	return fmt.Sprintf("doc_%s_%d", c.SourceID, c.SequenceIndex)
}

// IndexRecord is the persisted unit in the vector index.
type IndexRecord struct {
	ID       string
	Vector   []float64
	Metadata RecordMetadata
}

// RecordMetadata travels with each vector so retrieval can surface the
// originating passage without a second lookup.
type RecordMetadata struct {
	SourceID      string `json:"source"`
	Text          string `json:"text"`
	SequenceIndex int    `json:"chunk_index"`
	CharStart     int    `json:"char_start"`
	CharEnd       int    `json:"char_end"`
}

// IndexStats reports the total number of records in the vector index.
type IndexStats struct {
	TotalVectorCount int
}

// RetrievedSource is one ranked passage returned by a similarity query.
// Score is the backend's native similarity measure (cosine, higher is more
// relevant) and is not clamped to any range.
type RetrievedSource struct {
	SourceID string
	Text     string
	Score    float64
}

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single entry in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProcessedFileRecord is the ingestion bookkeeping entry for one source file.
// A file is skipped on the next run iff both Size and ModTime are unchanged.
type ProcessedFileRecord struct {
	Size        int64     `json:"size"`
	ModTime     int64     `json:"mtime"`
	ChunkCount  int       `json:"chunks"`
	ProcessedAt time.Time `json:"processed_at"`
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	FilesProcessed  int
	FilesSkipped    int
	FilesFailed     int
	ChunksCreated   int
	VectorsUpserted int
	VectorsBefore   int
	VectorsAfter    int
}
