package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"kbchat/internal/chat"
	"kbchat/internal/contextutil"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=chat.go -destination=mocks/mock_chat_service.go -package=mocks

// ChatService answers user messages, consulting the knowledge base when needed.
type ChatService interface {
	HandleMessage(ctx context.Context, req chat.Request) (chat.Response, error)
}

// ChatHandler handles HTTP requests for chat.
type ChatHandler struct {
	chatService ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

// ChatRequest represents the HTTP request payload for chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ServeHTTP handles HTTP requests for chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.chatService.HandleMessage(ctx, chat.Request{Message: req.Message})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process chat request")
		return
	}

	writeJSON(w, r, http.StatusOK, resp)
}
