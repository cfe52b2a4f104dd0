package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/mock/gomock"

	"kbchat/internal/handlers/mocks"
	"kbchat/internal/ingest"
	"kbchat/internal/storage"
)

// withURLParam attaches a chi route parameter to the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestDocumentsHandler_Ingest(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingestor := mocks.NewMockIngestor(ctrl)
	handler := NewDocumentsHandler(ingestor, mocks.NewMockChunkLister(ctrl))

	ingestor.EXPECT().
		IngestDocument(gomock.Any(), "FAQ", "# FAQ\n\nQ: What?\nA: That.").
		Return(&ingest.Result{DocumentID: "doc-1", ChunkCount: 2, AutoApproved: 1}, nil)

	body := bytes.NewBufferString(`{"title":"FAQ","content":"# FAQ\n\nQ: What?\nA: That."}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusCreated)
	}
	var result ingest.Result
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.DocumentID != "doc-1" || result.ChunkCount != 2 {
		t.Errorf("result = %+v", result)
	}
}

func TestDocumentsHandler_IngestSkipped(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingestor := mocks.NewMockIngestor(ctrl)
	handler := NewDocumentsHandler(ingestor, mocks.NewMockChunkLister(ctrl))

	ingestor.EXPECT().
		IngestDocument(gomock.Any(), "FAQ", "unchanged").
		Return(&ingest.Result{DocumentID: "doc-1", Skipped: true}, nil)

	body := bytes.NewBufferString(`{"title":"FAQ","content":"unchanged"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	// An unchanged document is not re-created.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestDocumentsHandler_IngestMissingTitle(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewDocumentsHandler(mocks.NewMockIngestor(ctrl), mocks.NewMockChunkLister(ctrl))

	body := bytes.NewBufferString(`{"title":"  ","content":"text"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestDocumentsHandler_IngestFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ingestor := mocks.NewMockIngestor(ctrl)
	handler := NewDocumentsHandler(ingestor, mocks.NewMockChunkLister(ctrl))

	ingestor.EXPECT().
		IngestDocument(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("embedding service unavailable"))

	body := bytes.NewBufferString(`{"title":"FAQ","content":"text"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	rec := httptest.NewRecorder()

	handler.Ingest(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}

func TestDocumentsHandler_ListChunks(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockChunkLister(ctrl)
	handler := NewDocumentsHandler(mocks.NewMockIngestor(ctrl), lister)

	lister.EXPECT().
		ListByDocument(gomock.Any(), "doc-1").
		Return([]storage.ChunkRecord{
			{ID: "chunk-1", DocumentID: "doc-1", ChunkIndex: 0, Content: "first", QualityScore: 90, Status: storage.StatusApproved, AutoApproved: true, IsActive: true, EstimatedTokens: 12},
			{ID: "chunk-2", DocumentID: "doc-1", ChunkIndex: 1, Content: "second", QualityScore: 60, Status: storage.StatusPending, IsActive: true},
		}, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/chunks", nil), "id", "doc-1")
	rec := httptest.NewRecorder()

	handler.ListChunks(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp ChunkListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.DocumentID != "doc-1" || len(resp.Chunks) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Chunks[0].Status != storage.StatusApproved || !resp.Chunks[0].AutoApproved {
		t.Errorf("first chunk = %+v", resp.Chunks[0])
	}
	if resp.Chunks[1].Status != storage.StatusPending {
		t.Errorf("second chunk = %+v", resp.Chunks[1])
	}
}

func TestDocumentsHandler_ListChunksFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	lister := mocks.NewMockChunkLister(ctrl)
	handler := NewDocumentsHandler(mocks.NewMockIngestor(ctrl), lister)

	lister.EXPECT().
		ListByDocument(gomock.Any(), "doc-1").
		Return(nil, errors.New("db closed"))

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/documents/doc-1/chunks", nil), "id", "doc-1")
	rec := httptest.NewRecorder()

	handler.ListChunks(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
