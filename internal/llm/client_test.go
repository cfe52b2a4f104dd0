package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// chatResponse mirrors the OpenAI chat completion wire format.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func chatServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(server.Close)
	return server
}

func respondWithContent(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	var resp chatResponse
	resp.Choices = make([]struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	}, 1)
	resp.Choices[0].Message.Role = RoleAssistant
	resp.Choices[0].Message.Content = content
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestClient_Generate(t *testing.T) {
	var gotBody struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		respondWithContent(t, w, "hello there")
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	reply, err := client.Generate(context.Background(), []Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
	})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if reply != "hello there" {
		t.Errorf("Generate() = %q", reply)
	}
	if gotBody.Model != "test-model" || len(gotBody.Messages) != 2 {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.Messages[0].Role != RoleSystem || gotBody.Messages[1].Content != "hi" {
		t.Errorf("messages = %+v", gotBody.Messages)
	}
}

func TestClient_GenerateNoChoices(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	if _, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Error("Generate() should fail when the API returns no choices")
	}
}

func TestClient_GenerateServerError(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	if _, err := client.Generate(context.Background(), []Message{{Role: RoleUser, Content: "hi"}}); err == nil {
		t.Error("Generate() should propagate server errors")
	}
}

func TestClient_Complete(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Messages) != 1 || body.Messages[0].Role != RoleUser {
			t.Errorf("Complete should send a single user message, got %+v", body.Messages)
		}
		respondWithContent(t, w, "done")
	})

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"})

	reply, err := client.Complete(context.Background(), "score these")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if reply != "done" {
		t.Errorf("Complete() = %q", reply)
	}
}
