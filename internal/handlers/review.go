package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kbchat/internal/contextutil"
	"kbchat/internal/storage"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=review.go -destination=mocks/mock_reviewer.go -package=mocks

// Reviewer applies a review decision to a stored chunk.
type Reviewer interface {
	ReviewChunk(ctx context.Context, chunkID, status string, content *string) error
}

// ReviewHandler handles HTTP requests for chunk review decisions.
type ReviewHandler struct {
	reviewer Reviewer
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewer Reviewer) *ReviewHandler {
	return &ReviewHandler{
		reviewer: reviewer,
	}
}

// ReviewRequest represents the HTTP request payload for a review decision.
// Content is only honored when the status is "modified".
type ReviewRequest struct {
	Status  string  `json:"status"`
	Content *string `json:"content,omitempty"`
}

// ReviewResponse represents the review decision response.
type ReviewResponse struct {
	ChunkID string `json:"chunk_id"`
	Status  string `json:"status"`
}

// ServeHTTP handles POST requests applying a review decision to a chunk.
func (h *ReviewHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	chunkID := chi.URLParam(r, "id")
	if chunkID == "" {
		writeError(w, http.StatusBadRequest, "Chunk ID is required")
		return
	}

	var req ReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.reviewer.ReviewChunk(ctx, chunkID, req.Status, req.Content); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Chunk not found")
			return
		}
		handleServiceError(w, ctx, err, "Failed to review chunk")
		return
	}

	writeJSON(w, r, http.StatusOK, ReviewResponse{
		ChunkID: chunkID,
		Status:  req.Status,
	})
}
