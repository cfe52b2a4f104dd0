package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kbchat/internal/contextutil"
	"kbchat/internal/ingest"
	"kbchat/internal/storage"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=documents.go -destination=mocks/mock_ingestor.go -package=mocks

// Ingestor runs the document ingestion pipeline.
type Ingestor interface {
	IngestDocument(ctx context.Context, title, content string) (*ingest.Result, error)
}

// ChunkLister reads chunks persisted for a document.
type ChunkLister interface {
	ListByDocument(ctx context.Context, documentID string) ([]storage.ChunkRecord, error)
}

// DocumentsHandler handles HTTP requests for document ingestion and chunk listing.
type DocumentsHandler struct {
	ingestor Ingestor
	chunks   ChunkLister
}

// NewDocumentsHandler creates a new DocumentsHandler.
func NewDocumentsHandler(ingestor Ingestor, chunks ChunkLister) *DocumentsHandler {
	return &DocumentsHandler{
		ingestor: ingestor,
		chunks:   chunks,
	}
}

// IngestRequest represents the HTTP request payload for document ingestion.
type IngestRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChunkView is the HTTP representation of a stored chunk.
type ChunkView struct {
	ID              string  `json:"id"`
	DocumentID      string  `json:"document_id"`
	ChunkIndex      int     `json:"chunk_index"`
	Content         string  `json:"content"`
	QualityScore    int     `json:"quality_score"`
	Status          string  `json:"status"`
	AutoApproved    bool    `json:"auto_approved"`
	IsActive        bool    `json:"is_active"`
	EstimatedTokens int     `json:"estimated_tokens"`
	DocSimilarity   float64 `json:"document_similarity"`
}

// ChunkListResponse represents the chunk listing response.
type ChunkListResponse struct {
	DocumentID string      `json:"document_id"`
	Chunks     []ChunkView `json:"chunks"`
}

// Ingest handles POST requests to ingest a document.
func (h *DocumentsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "Title is required")
		return
	}

	result, err := h.ingestor.IngestDocument(ctx, req.Title, req.Content)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to ingest document")
		return
	}

	status := http.StatusCreated
	if result.Skipped {
		status = http.StatusOK
	}
	writeJSON(w, r, status, result)
}

// ListChunks handles GET requests listing the chunks of a document.
func (h *DocumentsHandler) ListChunks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	documentID := chi.URLParam(r, "id")
	if documentID == "" {
		writeError(w, http.StatusBadRequest, "Document ID is required")
		return
	}

	records, err := h.chunks.ListByDocument(ctx, documentID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list chunks", "document_id", documentID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list chunks")
		return
	}

	resp := ChunkListResponse{
		DocumentID: documentID,
		Chunks:     make([]ChunkView, 0, len(records)),
	}
	for _, rec := range records {
		resp.Chunks = append(resp.Chunks, ChunkView{
			ID:              rec.ID,
			DocumentID:      rec.DocumentID,
			ChunkIndex:      rec.ChunkIndex,
			Content:         rec.Content,
			QualityScore:    rec.QualityScore,
			Status:          rec.Status,
			AutoApproved:    rec.AutoApproved,
			IsActive:        rec.IsActive,
			EstimatedTokens: rec.EstimatedTokens,
			DocSimilarity:   rec.DocumentSimilarity,
		})
	}

	writeJSON(w, r, http.StatusOK, resp)
}
