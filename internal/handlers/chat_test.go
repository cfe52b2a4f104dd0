package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/mock/gomock"

	"kbchat/internal/chat"
	"kbchat/internal/handlers/mocks"
	"kbchat/internal/storage"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestChatHandler_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockChatService(ctrl)
	handler := NewChatHandler(svc)

	svc.EXPECT().
		HandleMessage(gomock.Any(), chat.Request{Message: "how do I reset my password?"}).
		Return(chat.Response{
			Answer:  "Use the reset link on the login page.",
			Intent:  "domain_query",
			UsedRAG: true,
			Sources: []chat.Source{{ChunkID: "chunk-1", Score: 0.91}},
		}, nil)

	body := bytes.NewBufferString(`{"message":"how do I reset my password?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp chat.Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Answer != "Use the reset link on the login page." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if !resp.UsedRAG || len(resp.Sources) != 1 {
		t.Errorf("used_rag = %v, sources = %d", resp.UsedRAG, len(resp.Sources))
	}
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewChatHandler(mocks.NewMockChatService(ctrl))

	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestChatHandler_InvalidBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := NewChatHandler(mocks.NewMockChatService(ctrl))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "validation error",
			err:        &chat.ValidationError{Field: "message", Message: "message is required"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "external service failure",
			err:        fmt.Errorf("%w: answer generation failed", chat.ErrExternalService),
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "not found",
			err:        storage.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unexpected error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			svc := mocks.NewMockChatService(ctrl)
			handler := NewChatHandler(svc)

			svc.EXPECT().
				HandleMessage(gomock.Any(), gomock.Any()).
				Return(chat.Response{}, tt.err)

			req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"message":"hi"}`))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var errResp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&errResp); err != nil {
				t.Fatalf("decode error response: %v", err)
			}
			if errResp.Error == "" {
				t.Error("error message should not be empty")
			}
		})
	}
}
