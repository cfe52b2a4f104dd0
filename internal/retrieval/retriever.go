package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"kbchat/internal/contextutil"
)

// Config holds the retriever's tunables.
type Config struct {
	// RRFK is the reciprocal-rank fusion constant.
	RRFK int
	// SourceLimit is how many candidates each source contributes before
	// fusion.
	SourceLimit int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		RRFK:        DefaultRRFK,
		SourceLimit: 20,
	}
}

// HybridRetriever combines a sparse (lexical) and a dense (embedding)
// index into one fused ranking.
type HybridRetriever struct {
	embedder Embedder
	sparse   SparseIndex
	dense    DenseIndex
	cfg      Config
	logger   *slog.Logger
}

// NewHybridRetriever creates a hybrid retriever over the two indexes.
func NewHybridRetriever(embedder Embedder, sparse SparseIndex, dense DenseIndex, cfg Config) *HybridRetriever {
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	if cfg.SourceLimit <= 0 {
		cfg.SourceLimit = DefaultConfig().SourceLimit
	}
	return &HybridRetriever{
		embedder: embedder,
		sparse:   sparse,
		dense:    dense,
		cfg:      cfg,
		logger:   slog.Default(),
	}
}

// Retrieve runs both sources in parallel and fuses their rankings.
// A single failing source degrades to the other source's ranking; the
// call only fails when neither source produced anything.
func (r *HybridRetriever) Retrieve(ctx context.Context, query string, limit int) ([]Candidate, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if limit <= 0 {
		limit = r.cfg.SourceLimit
	}

	var sparseResults, denseResults []Candidate
	var sparseErr, denseErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sparseResults, sparseErr = r.sparse.Search(gctx, query, r.cfg.SourceLimit)
		return nil
	})
	g.Go(func() error {
		denseResults, denseErr = r.denseSearch(gctx, query)
		return nil
	})
	_ = g.Wait()

	if sparseErr != nil {
		logger.WarnContext(ctx, "sparse search failed, continuing dense-only", "error", sparseErr)
	}
	if denseErr != nil {
		logger.WarnContext(ctx, "dense search failed, continuing sparse-only", "error", denseErr)
	}
	if sparseErr != nil && denseErr != nil {
		return nil, fmt.Errorf("both retrieval sources failed: %w", denseErr)
	}

	fusedList := FuseRRF(sparseResults, denseResults, r.cfg.RRFK)
	if len(fusedList) > limit {
		fusedList = fusedList[:limit]
	}

	logger.InfoContext(ctx, "hybrid retrieval completed",
		"sparse", len(sparseResults),
		"dense", len(denseResults),
		"fused", len(fusedList),
	)
	return fusedList, nil
}

func (r *HybridRetriever) denseSearch(ctx context.Context, query string) ([]Candidate, error) {
	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return r.dense.Search(ctx, vectors[0], r.cfg.SourceLimit)
}
