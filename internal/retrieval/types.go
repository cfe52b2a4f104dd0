package retrieval

import "context"

// Candidate is a chunk reference produced for one query. DenseScore is the
// vector index's native cosine similarity in [-1, 1] and is the only score
// comparable across queries; Score is the fused RRF value used for ordering
// within one query and must never back a confidence threshold.
type Candidate struct {
	ChunkID     string
	Content     string
	DenseScore  float32
	SparseScore float32
	Score       float64
}

// SparseIndex is the lexical retrieval collaborator.
type SparseIndex interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}

// DenseIndex is the vector retrieval collaborator. Scores returned in
// DenseScore are cosine similarities.
type DenseIndex interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Candidate, error)
}

// Embedder embeds query text for the dense search path.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
