package storage

import "time"

// Review statuses a chunk can hold. Only approved chunks (manually or
// automatically) are eligible for retrieval.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusModified = "modified"
)

// DocumentRecord is an ingested source document.
type DocumentRecord struct {
	ID        string // UUID
	Title     string
	Hash      string // SHA256 hex of raw content, used to skip re-ingestion
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChunkRecord is a persisted chunk with its review state and the
// metadata computed at chunking time. Embeddings live in the vector
// store, keyed by the same ID; this table never holds vectors.
type ChunkRecord struct {
	ID           string // UUID (same as the vector store point ID)
	DocumentID   string
	ChunkIndex   int
	Content      string
	QualityScore int
	Status       string
	AutoApproved bool
	IsActive     bool

	// Structural metadata from boundary detection.
	HasHeader   bool
	IsQAPair    bool
	IsTable     bool
	IsList      bool
	StartOffset int
	EndOffset   int

	// Late-chunking metadata.
	PoolingStrategy    string
	SourceSegmentCount int
	EstimatedTokens    int
	DocumentSimilarity float64

	CreatedAt time.Time
	UpdatedAt time.Time
}
