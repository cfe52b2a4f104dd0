package vectorstore

import (
	"context"
	"fmt"

	"kbchat/internal/retrieval"
)

// DenseSearcher adapts a VectorStore collection to the retriever's dense
// index contract. Searches are restricted to active points, and the
// chunk content travels in the point payload so the retriever never
// needs a database round-trip per candidate.
type DenseSearcher struct {
	store      VectorStore
	collection string
}

// NewDenseSearcher creates a dense index over the given collection.
func NewDenseSearcher(store VectorStore, collection string) *DenseSearcher {
	return &DenseSearcher{store: store, collection: collection}
}

// Search returns the closest active points to the query vector as
// retrieval candidates. The store's native cosine similarity becomes
// the candidate's DenseScore.
func (d *DenseSearcher) Search(ctx context.Context, vector []float32, limit int) ([]retrieval.Candidate, error) {
	results, err := d.store.Search(ctx, d.collection, vector, limit, map[string]any{"active": true})
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}

	candidates := make([]retrieval.Candidate, 0, len(results))
	for _, r := range results {
		content, _ := r.Meta["content"].(string)
		candidates = append(candidates, retrieval.Candidate{
			ChunkID:    r.PointID,
			Content:    content,
			DenseScore: r.Score,
		})
	}
	return candidates, nil
}
