package chat

//go:generate go run go.uber.org/mock/mockgen@latest -source=types.go -destination=mocks/mock_collaborators.go -package=mocks

import (
	"context"

	"kbchat/internal/retrieval"
	"kbchat/internal/router"
)

// IntentClassifier decides what kind of message this is.
type IntentClassifier interface {
	Classify(ctx context.Context, message string) (router.IntentResult, error)
}

// Retriever produces ranked evidence for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]retrieval.Candidate, error)
}

// Reranker optionally reorders retrieved evidence.
type Reranker interface {
	ShouldRerank(candidates []retrieval.Candidate) bool
	Rerank(ctx context.Context, query string, candidates []retrieval.Candidate) []retrieval.Candidate
}

// AnswerGenerator produces the final user-facing text.
type AnswerGenerator interface {
	// Answer generates a grounded answer from the retrieved evidence.
	Answer(ctx context.Context, message string, evidence []retrieval.Candidate) (string, error)
	// SmallTalk generates a conversational reply with no evidence.
	SmallTalk(ctx context.Context, message string) (string, error)
}

// Request is one chat turn from the user.
type Request struct {
	Message string `json:"message"`
}

// Source is a piece of evidence that backed an answer.
type Source struct {
	ChunkID string  `json:"chunk_id"`
	Score   float32 `json:"score"`
}

// Response is the service's reply for one chat turn.
type Response struct {
	Answer     string   `json:"answer"`
	Intent     string   `json:"intent"`
	Confidence float32  `json:"confidence"`
	UsedRAG    bool     `json:"used_rag"`
	Reasoning  string   `json:"reasoning"`
	Sources    []Source `json:"sources,omitempty"`
}
