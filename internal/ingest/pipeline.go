package ingest

//go:generate go run go.uber.org/mock/mockgen@latest -source=pipeline.go -destination=mocks/mock_chunker.go -package=mocks

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"kbchat/internal/latechunk"
	"kbchat/internal/lexical"
	"kbchat/internal/quality"
	"kbchat/internal/storage"
	"kbchat/internal/vectorstore"
)

// ErrInvalidStatus is returned when a review decision names an unknown status.
var ErrInvalidStatus = errors.New("invalid review status")

// Chunker produces late chunks for a document.
type Chunker interface {
	LateChunk(ctx context.Context, content string) ([]latechunk.Chunk, error)
}

// Result summarizes one ingestion run.
type Result struct {
	DocumentID   string `json:"document_id"`
	ChunkCount   int    `json:"chunk_count"`
	AutoApproved int    `json:"auto_approved"`
	Skipped      bool   `json:"skipped"`
}

// Pipeline orchestrates document ingestion: late chunking, quality-based
// auto-approval, and storage across SQLite, the vector store and the
// lexical index.
type Pipeline struct {
	documents   storage.DocumentStore
	chunks      storage.ChunkStore
	chunker     Chunker
	vectorStore vectorstore.VectorStore
	lexical     *lexical.Index
	collection  string
	qualityCfg  quality.Config
	logger      *slog.Logger
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(
	documents storage.DocumentStore,
	chunks storage.ChunkStore,
	chunker Chunker,
	vectorStore vectorstore.VectorStore,
	lexicalIndex *lexical.Index,
	collection string,
	qualityCfg quality.Config,
) *Pipeline {
	return &Pipeline{
		documents:   documents,
		chunks:      chunks,
		chunker:     chunker,
		vectorStore: vectorStore,
		lexical:     lexicalIndex,
		collection:  collection,
		qualityCfg:  qualityCfg,
		logger:      slog.Default(),
	}
}

// IngestDocument chunks and stores a document under its title. An
// unchanged document (same content hash) is skipped. Re-ingesting a
// changed document replaces all of its chunks; any prior review
// decisions on them are lost with the old content they applied to.
func (p *Pipeline) IngestDocument(ctx context.Context, title, content string) (*Result, error) {
	hash := sha256.Sum256([]byte(content))
	hashHex := fmt.Sprintf("%x", hash)

	existing, err := p.documents.GetByTitle(ctx, title)
	if err != nil && err != storage.ErrNotFound {
		return nil, fmt.Errorf("failed to check existing document: %w", err)
	}

	if existing != nil && existing.Hash == hashHex {
		p.logger.DebugContext(ctx, "skipping unchanged document", "title", title, "hash", hashHex)
		return &Result{DocumentID: existing.ID, Skipped: true}, nil
	}

	chunks, err := p.chunker.LateChunk(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to chunk document: %w", err)
	}

	documentID := uuid.New().String()
	if existing != nil {
		documentID = existing.ID
		if err := p.documents.UpdateHash(ctx, documentID, hashHex); err != nil {
			return nil, fmt.Errorf("failed to update document: %w", err)
		}
		if err := p.removeOldChunks(ctx, documentID); err != nil {
			return nil, err
		}
	} else {
		doc := &storage.DocumentRecord{ID: documentID, Title: title, Hash: hashHex}
		if err := p.documents.Insert(ctx, doc); err != nil {
			return nil, fmt.Errorf("failed to insert document: %w", err)
		}
	}

	if len(chunks) == 0 {
		p.logger.WarnContext(ctx, "no chunks generated", "title", title)
		return &Result{DocumentID: documentID}, nil
	}

	records := make([]*storage.ChunkRecord, len(chunks))
	points := make([]vectorstore.Point, len(chunks))
	autoApproved := 0

	for i, chunk := range chunks {
		chunkID := uuid.New().String()

		status := storage.StatusPending
		approved := quality.Eligible(chunk.QualityScore, p.qualityCfg)
		if approved {
			status = storage.StatusApproved
			autoApproved++
		}

		records[i] = &storage.ChunkRecord{
			ID:                 chunkID,
			DocumentID:         documentID,
			ChunkIndex:         chunk.Index,
			Content:            chunk.Content,
			QualityScore:       chunk.QualityScore,
			Status:             status,
			AutoApproved:       approved,
			IsActive:           true,
			HasHeader:          chunk.Metadata.HasHeader,
			IsQAPair:           chunk.Metadata.IsQAPair,
			IsTable:            chunk.Metadata.IsTable,
			IsList:             chunk.Metadata.IsList,
			StartOffset:        chunk.Metadata.StartOffset,
			EndOffset:          chunk.Metadata.EndOffset,
			PoolingStrategy:    string(chunk.LateChunking.PoolingStrategy),
			SourceSegmentCount: chunk.LateChunking.SourceSegmentCount,
			EstimatedTokens:    chunk.LateChunking.EstimatedTokens,
			DocumentSimilarity: float64(chunk.LateChunking.DocumentSimilarity),
		}

		points[i] = vectorstore.Point{
			ID:  chunkID,
			Vec: chunk.Embedding,
			Meta: map[string]any{
				"document_id":    documentID,
				"document_title": title,
				"chunk_index":    chunk.Index,
				"content":        chunk.Content,
				"quality_score":  chunk.QualityScore,
				"active":         approved,
			},
		}
	}

	for _, record := range records {
		if err := p.chunks.Insert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := p.vectorStore.Upsert(ctx, p.collection, points); err != nil {
		return nil, fmt.Errorf("failed to upsert vectors: %w", err)
	}

	for _, record := range records {
		if record.Status == storage.StatusApproved {
			p.lexical.Add(record.ID, record.Content)
		}
	}

	p.logger.InfoContext(ctx, "ingested document",
		"title", title,
		"chunks", len(chunks),
		"auto_approved", autoApproved,
	)
	return &Result{
		DocumentID:   documentID,
		ChunkCount:   len(chunks),
		AutoApproved: autoApproved,
	}, nil
}

func (p *Pipeline) removeOldChunks(ctx context.Context, documentID string) error {
	oldIDs, err := p.chunks.ListIDsByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to list old chunk IDs: %w", err)
	}
	if len(oldIDs) == 0 {
		return nil
	}

	// New points overwrite anyway, so a vector store hiccup here is not
	// fatal.
	if err := p.vectorStore.Delete(ctx, p.collection, oldIDs); err != nil {
		p.logger.WarnContext(ctx, "failed to delete old vectors", "error", err, "count", len(oldIDs))
	}

	if err := p.chunks.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete old chunks: %w", err)
	}

	for _, id := range oldIDs {
		p.lexical.Remove(id)
	}
	return nil
}

// ReviewChunk applies a manual review decision to a chunk and keeps the
// vector store payload and lexical index in step. A nil content keeps
// the existing text; non-nil content marks an edited chunk.
func (p *Pipeline) ReviewChunk(ctx context.Context, chunkID, status string, content *string) error {
	switch status {
	case storage.StatusApproved, storage.StatusRejected, storage.StatusModified, storage.StatusPending:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if err := p.chunks.SetReview(ctx, chunkID, status, content); err != nil {
		return err
	}

	chunk, err := p.chunks.GetByID(ctx, chunkID)
	if err != nil {
		return err
	}

	active := status == storage.StatusApproved || status == storage.StatusModified
	payload := map[string]any{"active": active}
	if content != nil {
		payload["content"] = *content
	}
	if err := p.vectorStore.SetPayload(ctx, p.collection, []string{chunkID}, payload); err != nil {
		p.logger.WarnContext(ctx, "failed to update vector payload", "chunk_id", chunkID, "error", err)
	}

	if active {
		p.lexical.Add(chunkID, chunk.Content)
	} else {
		p.lexical.Remove(chunkID)
	}

	p.logger.InfoContext(ctx, "chunk reviewed", "chunk_id", chunkID, "status", status)
	return nil
}

// RebuildLexical reloads the lexical index from every retrievable chunk.
// Called at startup, since the index lives in memory.
func (p *Pipeline) RebuildLexical(ctx context.Context) (int, error) {
	chunks, err := p.chunks.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active chunks: %w", err)
	}

	for _, chunk := range chunks {
		p.lexical.Add(chunk.ID, chunk.Content)
	}

	p.logger.InfoContext(ctx, "lexical index rebuilt", "chunks", len(chunks))
	return len(chunks), nil
}
