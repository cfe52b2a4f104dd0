// Package latechunk implements late chunking: a document is embedded once
// at full-document granularity, then per-chunk vectors are derived by
// pooling the segment embeddings each chunk overlaps. Each chunk vector
// therefore retains whole-document context instead of being embedded in
// isolation.
package latechunk

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks kbchat/internal/latechunk Embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"kbchat/internal/boundary"
	"kbchat/internal/contextutil"
	"kbchat/internal/quality"
	"kbchat/internal/textseg"
	"kbchat/internal/vecmath"
)

// Embedder generates embeddings for texts. Vectors must share one fixed
// dimension per model. This is the engine's sole hard-failure dependency.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// BoundaryDetector returns candidate chunk spans for document text.
type BoundaryDetector interface {
	DetectSpans(content string) []boundary.Span
}

// Config holds the engine's tunables with their documented defaults.
type Config struct {
	// Pooling selects how segment vectors collapse into a chunk vector.
	Pooling vecmath.PoolingStrategy
	// ValidateWithEmbedding enables quality-score adjustment from the
	// chunk's similarity to the whole-document embedding.
	ValidateWithEmbedding bool
	// MaxSegmentTokens bounds each document segment fed to the embedder.
	MaxSegmentTokens int
	// EmbedBatchSize is the number of segments per embedding call.
	// Batches are issued concurrently.
	EmbedBatchSize int
	// Quality configures the structural scorer and validation blend.
	Quality quality.Config
}

// DefaultConfig returns the documented defaults: weighted pooling with
// embedding validation enabled.
func DefaultConfig() Config {
	return Config{
		Pooling:               vecmath.PoolingWeighted,
		ValidateWithEmbedding: true,
		MaxSegmentTokens:      textseg.DefaultTokenLimit,
		EmbedBatchSize:        16,
		Quality:               quality.DefaultConfig(),
	}
}

// Engine turns raw document text into quality-scored chunks with pooled
// embeddings.
type Engine struct {
	embedder Embedder
	detector BoundaryDetector
	cfg      Config
	logger   *slog.Logger
}

// NewEngine creates an engine, validating the configuration up front so
// bad pooling strategies fail at setup rather than at request time.
func NewEngine(embedder Embedder, detector BoundaryDetector, cfg Config) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if detector == nil {
		return nil, fmt.Errorf("boundary detector is required")
	}
	if _, err := vecmath.ParsePoolingStrategy(string(cfg.Pooling)); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if cfg.MaxSegmentTokens <= 0 {
		cfg.MaxSegmentTokens = textseg.DefaultTokenLimit
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultConfig().EmbedBatchSize
	}
	return &Engine{
		embedder: embedder,
		detector: detector,
		cfg:      cfg,
		logger:   slog.Default(),
	}, nil
}

// LateChunk chunks a document with document-context-preserving embeddings.
// Empty or whitespace-only input is a success with no chunks, not an error.
func (e *Engine) LateChunk(ctx context.Context, content string) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	// Embed first, at document granularity. Chunk boundaries come second;
	// inverting this order would discard the whole-document context.
	segments := textseg.SplitByTokenLimit(content, e.cfg.MaxSegmentTokens)
	segmentVectors, err := e.embedSegments(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document segments: %w", err)
	}

	documentVector, err := vecmath.Mean(segmentVectors)
	if err != nil {
		return nil, fmt.Errorf("failed to compute document embedding: %w", err)
	}

	segmentSpans := locateSegments(content, segments)
	spans := e.detector.DetectSpans(content)

	chunks := make([]Chunk, 0, len(spans))
	for _, span := range spans {
		chunk, err := e.buildChunk(span, content, segmentSpans, segmentVectors, documentVector)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}

	logger.InfoContext(ctx, "late chunking completed",
		"segments", len(segments),
		"chunks", len(chunks),
		"pooling", string(e.cfg.Pooling),
	)
	return chunks, nil
}

// AddEmbeddings re-embeds previously produced, embedding-less chunks
// against the original document content. Every other field of the input
// chunks (content, index, quality score, metadata) is preserved; only
// Embedding and LateChunking are filled in.
func (e *Engine) AddEmbeddings(ctx context.Context, chunks []Chunk, content string) ([]Chunk, error) {
	if len(chunks) == 0 || strings.TrimSpace(content) == "" {
		return chunks, nil
	}

	segments := textseg.SplitByTokenLimit(content, e.cfg.MaxSegmentTokens)
	segmentVectors, err := e.embedSegments(ctx, segments)
	if err != nil {
		return nil, fmt.Errorf("failed to embed document segments: %w", err)
	}

	documentVector, err := vecmath.Mean(segmentVectors)
	if err != nil {
		return nil, fmt.Errorf("failed to compute document embedding: %w", err)
	}

	segmentSpans := locateSegments(content, segments)

	result := make([]Chunk, len(chunks))
	cursor := 0
	for i, chunk := range chunks {
		start, end := locateChunk(content, chunk, &cursor)

		vectors, weights := overlappingSegments(start, end, segmentSpans, segmentVectors)
		pooled, err := vecmath.Pool(e.cfg.Pooling, vectors, weights)
		if err != nil {
			return nil, fmt.Errorf("failed to pool chunk %d: %w", chunk.Index, err)
		}

		similarity, err := vecmath.CosineSimilarity(pooled, documentVector)
		if err != nil {
			return nil, fmt.Errorf("failed to compute document similarity for chunk %d: %w", chunk.Index, err)
		}

		out := chunk
		out.Embedding = pooled
		out.LateChunking = Metadata{
			PoolingStrategy:    e.cfg.Pooling,
			SourceSegmentCount: len(vectors),
			EstimatedTokens:    textseg.EstimateTokenCount(chunk.Content),
			DocumentSimilarity: similarity,
		}
		result[i] = out
	}

	return result, nil
}

func (e *Engine) buildChunk(
	span boundary.Span,
	content string,
	segmentSpans []segmentSpan,
	segmentVectors [][]float32,
	documentVector []float32,
) (Chunk, error) {
	vectors, weights := overlappingSegments(span.Start, span.End, segmentSpans, segmentVectors)

	pooled, err := vecmath.Pool(e.cfg.Pooling, vectors, weights)
	if err != nil {
		return Chunk{}, fmt.Errorf("failed to pool chunk %d: %w", span.Index, err)
	}

	similarity, err := vecmath.CosineSimilarity(pooled, documentVector)
	if err != nil {
		return Chunk{}, fmt.Errorf("failed to compute document similarity for chunk %d: %w", span.Index, err)
	}

	score := quality.ScoreStructural(span.Content, span.Structure)
	if e.cfg.ValidateWithEmbedding {
		score = quality.ApplyEmbeddingValidation(score, similarity, e.cfg.Quality)
	}

	return Chunk{
		Index:        span.Index,
		Content:      span.Content,
		Embedding:    pooled,
		QualityScore: score,
		Metadata:     chunkMetadataFromSpan(span),
		LateChunking: Metadata{
			PoolingStrategy:    e.cfg.Pooling,
			SourceSegmentCount: len(vectors),
			EstimatedTokens:    textseg.EstimateTokenCount(span.Content),
			DocumentSimilarity: similarity,
		},
	}, nil
}

// embedSegments embeds all document segments, issuing batches concurrently.
// Results keep segment order; a chunk is never pooled from a partial set
// because pooling only starts after every batch has returned.
func (e *Engine) embedSegments(ctx context.Context, segments []string) ([][]float32, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no segments to embed")
	}

	if len(segments) <= e.cfg.EmbedBatchSize {
		return e.embedAndValidate(ctx, segments)
	}

	type batch struct {
		start int
		texts []string
	}
	var batches []batch
	for start := 0; start < len(segments); start += e.cfg.EmbedBatchSize {
		end := min(start+e.cfg.EmbedBatchSize, len(segments))
		batches = append(batches, batch{start: start, texts: segments[start:end]})
	}

	vectors := make([][]float32, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, b := range batches {
		g.Go(func() error {
			vecs, err := e.embedder.EmbedTexts(gctx, b.texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(b.texts) {
				return fmt.Errorf("expected %d embeddings, got %d", len(b.texts), len(vecs))
			}
			copy(vectors[b.start:], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return validateDimensions(vectors)
}

func (e *Engine) embedAndValidate(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}
	return validateDimensions(vectors)
}

func validateDimensions(vectors [][]float32) ([][]float32, error) {
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("%w: empty embedding", vecmath.ErrDimensionMismatch)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("%w: segment %d has %d dimensions, expected %d",
				vecmath.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return vectors, nil
}
