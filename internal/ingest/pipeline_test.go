package ingest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"go.uber.org/mock/gomock"

	ingest_mocks "kbchat/internal/ingest/mocks"
	"kbchat/internal/latechunk"
	"kbchat/internal/lexical"
	"kbchat/internal/quality"
	"kbchat/internal/storage"
	storage_mocks "kbchat/internal/storage/mocks"
	"kbchat/internal/vectorstore"
	vectorstore_mocks "kbchat/internal/vectorstore/mocks"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type pipelineMocks struct {
	documents   *storage_mocks.MockDocumentStore
	chunks      *storage_mocks.MockChunkStore
	chunker     *ingest_mocks.MockChunker
	vectorStore *vectorstore_mocks.MockVectorStore
	lexical     *lexical.Index
}

func newTestPipeline(t *testing.T) (*Pipeline, pipelineMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := pipelineMocks{
		documents:   storage_mocks.NewMockDocumentStore(ctrl),
		chunks:      storage_mocks.NewMockChunkStore(ctrl),
		chunker:     ingest_mocks.NewMockChunker(ctrl),
		vectorStore: vectorstore_mocks.NewMockVectorStore(ctrl),
		lexical:     lexical.NewIndex(),
	}

	p := NewPipeline(m.documents, m.chunks, m.chunker, m.vectorStore, m.lexical, "chunks", quality.DefaultConfig())
	return p, m
}

func testChunks(scores ...int) []latechunk.Chunk {
	chunks := make([]latechunk.Chunk, len(scores))
	for i, score := range scores {
		chunks[i] = latechunk.Chunk{
			Index:        i,
			Content:      fmt.Sprintf("chunk content %d", i),
			Embedding:    []float32{1, 0, 0},
			QualityScore: score,
			LateChunking: latechunk.Metadata{PoolingStrategy: "weighted", SourceSegmentCount: 1},
		}
	}
	return chunks
}

func TestIngestDocument_New(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.documents.EXPECT().GetByTitle(ctx, "Guide").Return(nil, storage.ErrNotFound)
	m.chunker.EXPECT().LateChunk(ctx, "document body").Return(testChunks(90, 60), nil)
	m.documents.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	m.chunks.EXPECT().Insert(ctx, gomock.Any()).Times(2).Return(nil)

	var gotPoints []vectorstore.Point
	m.vectorStore.EXPECT().Upsert(ctx, "chunks", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, points []vectorstore.Point) error {
			gotPoints = points
			return nil
		})

	result, err := p.IngestDocument(ctx, "Guide", "document body")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}

	if result.ChunkCount != 2 || result.AutoApproved != 1 || result.Skipped {
		t.Errorf("result = %+v", result)
	}
	if result.DocumentID == "" {
		t.Error("result missing document ID")
	}

	if len(gotPoints) != 2 {
		t.Fatalf("expected 2 points, got %d", len(gotPoints))
	}
	if active, _ := gotPoints[0].Meta["active"].(bool); !active {
		t.Error("auto-approved chunk's point should be active")
	}
	if active, _ := gotPoints[1].Meta["active"].(bool); active {
		t.Error("pending chunk's point should not be active")
	}
	if content, _ := gotPoints[0].Meta["content"].(string); content != "chunk content 0" {
		t.Errorf("point payload missing content, got %q", content)
	}

	// Only the auto-approved chunk lands in the lexical index.
	if m.lexical.Len() != 1 {
		t.Errorf("lexical index has %d entries, want 1", m.lexical.Len())
	}
}

func TestIngestDocument_SkipsUnchanged(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	content := "unchanged body"
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))

	m.documents.EXPECT().GetByTitle(ctx, "Guide").
		Return(&storage.DocumentRecord{ID: "doc-1", Title: "Guide", Hash: hash}, nil)
	// No chunker, storage or vector store calls: the pipeline must stop
	// at the hash check.

	result, err := p.IngestDocument(ctx, "Guide", content)
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if !result.Skipped || result.DocumentID != "doc-1" {
		t.Errorf("result = %+v", result)
	}
}

func TestIngestDocument_ReplacesChangedDocument(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.lexical.Add("old-chunk", "stale content")

	m.documents.EXPECT().GetByTitle(ctx, "Guide").
		Return(&storage.DocumentRecord{ID: "doc-1", Title: "Guide", Hash: "oldhash"}, nil)
	m.chunker.EXPECT().LateChunk(ctx, "new body").Return(testChunks(95), nil)
	m.documents.EXPECT().UpdateHash(ctx, "doc-1", gomock.Any()).Return(nil)
	m.chunks.EXPECT().ListIDsByDocument(ctx, "doc-1").Return([]string{"old-chunk"}, nil)
	m.vectorStore.EXPECT().Delete(ctx, "chunks", []string{"old-chunk"}).Return(nil)
	m.chunks.EXPECT().DeleteByDocument(ctx, "doc-1").Return(nil)
	m.chunks.EXPECT().Insert(ctx, gomock.Any()).Return(nil)
	m.vectorStore.EXPECT().Upsert(ctx, "chunks", gomock.Any()).Return(nil)

	result, err := p.IngestDocument(ctx, "Guide", "new body")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if result.DocumentID != "doc-1" || result.ChunkCount != 1 {
		t.Errorf("result = %+v", result)
	}

	// Old chunk left the lexical index, replacement entered it.
	if got, _ := m.lexical.Search(ctx, "stale", 10); len(got) != 0 {
		t.Error("stale chunk still searchable after re-ingestion")
	}
	if m.lexical.Len() != 1 {
		t.Errorf("lexical index has %d entries, want 1", m.lexical.Len())
	}
}

func TestIngestDocument_ChunkerFailure(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.documents.EXPECT().GetByTitle(ctx, "Guide").Return(nil, storage.ErrNotFound)
	m.chunker.EXPECT().LateChunk(ctx, "body").Return(nil, errors.New("embedding provider down"))

	if _, err := p.IngestDocument(ctx, "Guide", "body"); err == nil {
		t.Error("chunker failure must fail ingestion")
	}
}

func TestIngestDocument_EmptyContentYieldsNoChunks(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.documents.EXPECT().GetByTitle(ctx, "Empty").Return(nil, storage.ErrNotFound)
	m.chunker.EXPECT().LateChunk(ctx, "   ").Return(nil, nil)
	m.documents.EXPECT().Insert(ctx, gomock.Any()).Return(nil)

	result, err := p.IngestDocument(ctx, "Empty", "   ")
	if err != nil {
		t.Fatalf("IngestDocument() error = %v", err)
	}
	if result.ChunkCount != 0 {
		t.Errorf("expected 0 chunks, got %d", result.ChunkCount)
	}
}

func TestReviewChunk_Reject(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.lexical.Add("chunk-1", "some approved content")

	m.chunks.EXPECT().SetReview(ctx, "chunk-1", storage.StatusRejected, nil).Return(nil)
	m.chunks.EXPECT().GetByID(ctx, "chunk-1").
		Return(&storage.ChunkRecord{ID: "chunk-1", Content: "some approved content"}, nil)
	m.vectorStore.EXPECT().SetPayload(ctx, "chunks", []string{"chunk-1"}, map[string]any{"active": false}).Return(nil)

	if err := p.ReviewChunk(ctx, "chunk-1", storage.StatusRejected, nil); err != nil {
		t.Fatalf("ReviewChunk() error = %v", err)
	}
	if m.lexical.Len() != 0 {
		t.Error("rejected chunk should leave the lexical index")
	}
}

func TestReviewChunk_ModifyWithContent(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	edited := "edited chunk text"
	m.chunks.EXPECT().SetReview(ctx, "chunk-1", storage.StatusModified, &edited).Return(nil)
	m.chunks.EXPECT().GetByID(ctx, "chunk-1").
		Return(&storage.ChunkRecord{ID: "chunk-1", Content: edited, Status: storage.StatusModified}, nil)
	m.vectorStore.EXPECT().SetPayload(ctx, "chunks", []string{"chunk-1"},
		map[string]any{"active": true, "content": edited}).Return(nil)

	if err := p.ReviewChunk(ctx, "chunk-1", storage.StatusModified, &edited); err != nil {
		t.Fatalf("ReviewChunk() error = %v", err)
	}

	got, _ := m.lexical.Search(ctx, "edited", 10)
	if len(got) != 1 {
		t.Error("modified chunk should be searchable with its new content")
	}
}

func TestReviewChunk_InvalidStatus(t *testing.T) {
	p, _ := newTestPipeline(t)

	err := p.ReviewChunk(context.Background(), "chunk-1", "archived", nil)
	if !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("want ErrInvalidStatus before any storage call, got %v", err)
	}
}

func TestReviewChunk_NotFound(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.chunks.EXPECT().SetReview(ctx, "missing", storage.StatusApproved, nil).Return(storage.ErrNotFound)

	if err := p.ReviewChunk(ctx, "missing", storage.StatusApproved, nil); err != storage.ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRebuildLexical(t *testing.T) {
	p, m := newTestPipeline(t)
	ctx := context.Background()

	m.chunks.EXPECT().ListActive(ctx).Return([]storage.ChunkRecord{
		{ID: "chunk-1", Content: "kubernetes deployment"},
		{ID: "chunk-2", Content: "database pooling"},
	}, nil)

	count, err := p.RebuildLexical(ctx)
	if err != nil {
		t.Fatalf("RebuildLexical() error = %v", err)
	}
	if count != 2 || m.lexical.Len() != 2 {
		t.Errorf("count = %d, index size = %d, want 2/2", count, m.lexical.Len())
	}
}
