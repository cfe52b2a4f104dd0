package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"

	"kbchat/internal/chat/mocks"
	"kbchat/internal/retrieval"
	"kbchat/internal/router"
)

func init() {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type serviceMocks struct {
	classifier *mocks.MockIntentClassifier
	retriever  *mocks.MockRetriever
	reranker   *mocks.MockReranker
	generator  *mocks.MockAnswerGenerator
}

func newTestService(t *testing.T) (*Service, serviceMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)

	m := serviceMocks{
		classifier: mocks.NewMockIntentClassifier(ctrl),
		retriever:  mocks.NewMockRetriever(ctrl),
		reranker:   mocks.NewMockReranker(ctrl),
		generator:  mocks.NewMockAnswerGenerator(ctrl),
	}

	svc, err := NewService(m.classifier, m.retriever, m.reranker, m.generator, DefaultConfig())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc, m
}

func TestNewServiceRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Router.ChitchatThreshold = 2.0

	if _, err := NewService(nil, nil, nil, nil, cfg); err == nil {
		t.Error("out-of-range threshold must fail at construction")
	}
}

func TestHandleMessage_EmptyMessage(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.HandleMessage(context.Background(), Request{Message: "   "})
	if err == nil {
		t.Fatal("empty message should fail validation")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}

func TestHandleMessage_RuleMatchedChitchatSkipsRetrieval(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.classifier.EXPECT().Classify(ctx, "hello").Return(router.IntentResult{
		Intent:     router.IntentChitchat,
		Confidence: 0.9,
		RulesMatch: true,
	}, nil)
	// No Retrieve expectation: confident chitchat must not touch retrieval.

	resp, err := svc.HandleMessage(ctx, Request{Message: "hello"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.UsedRAG {
		t.Error("chitchat must not use RAG")
	}
	if resp.Answer != router.TemplateFor("hello") {
		t.Errorf("expected chitchat template, got %q", resp.Answer)
	}
	if resp.Intent != string(router.IntentChitchat) {
		t.Errorf("Intent = %s", resp.Intent)
	}
}

func TestHandleMessage_SmallTalkFallsBackToTemplate(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.classifier.EXPECT().Classify(ctx, "howdy partner").Return(router.IntentResult{
		Intent:     router.IntentChitchat,
		Confidence: 0.95,
	}, nil)
	m.generator.EXPECT().SmallTalk(ctx, "howdy partner").Return("", errors.New("llm down"))

	resp, err := svc.HandleMessage(ctx, Request{Message: "howdy partner"})
	if err != nil {
		t.Fatalf("small talk failure must not fail the turn: %v", err)
	}
	if resp.Answer == "" {
		t.Error("expected template fallback answer")
	}
}

func TestHandleMessage_OutOfScopeOverriddenByEvidence(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	candidates := []retrieval.Candidate{
		{ChunkID: "chunk-1", Content: "relevant text", DenseScore: 0.6},
	}

	m.classifier.EXPECT().Classify(ctx, "what is the refund policy").Return(router.IntentResult{
		Intent:     router.IntentOutOfScope,
		Confidence: 0.9,
	}, nil)
	m.retriever.EXPECT().Retrieve(ctx, "what is the refund policy", 20).Return(candidates, nil)
	m.reranker.EXPECT().ShouldRerank(candidates).Return(false)
	m.generator.EXPECT().Answer(ctx, "what is the refund policy", candidates).Return("The policy is...", nil)

	resp, err := svc.HandleMessage(ctx, Request{Message: "what is the refund policy"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !resp.UsedRAG {
		t.Error("retrieval evidence should override out_of_scope")
	}
	if resp.Intent != string(router.IntentDomain) {
		t.Errorf("Intent = %s, want domain_query", resp.Intent)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].ChunkID != "chunk-1" {
		t.Errorf("Sources = %+v", resp.Sources)
	}
}

func TestHandleMessage_OutOfScopeConfirmedDeclines(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.classifier.EXPECT().Classify(ctx, "best pizza in town").Return(router.IntentResult{
		Intent:     router.IntentOutOfScope,
		Confidence: 0.95,
	}, nil)
	m.retriever.EXPECT().Retrieve(ctx, "best pizza in town", 20).
		Return([]retrieval.Candidate{{ChunkID: "a", DenseScore: 0.1}}, nil)

	resp, err := svc.HandleMessage(ctx, Request{Message: "best pizza in town"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.UsedRAG || resp.Answer != declineResponse {
		t.Errorf("expected decline, got %+v", resp)
	}
}

func TestHandleMessage_DomainQueryNoEvidence(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.classifier.EXPECT().Classify(ctx, "what is the vacation policy").Return(router.IntentResult{
		Intent:     router.IntentDomain,
		Confidence: 0.8,
	}, nil)
	m.retriever.EXPECT().Retrieve(ctx, "what is the vacation policy", 20).Return(nil, nil)

	resp, err := svc.HandleMessage(ctx, Request{Message: "what is the vacation policy"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if resp.UsedRAG || resp.Answer != noInformationResponse {
		t.Errorf("expected no-information response, got %+v", resp)
	}
	if !strings.Contains(resp.Reasoning, "0.30") {
		t.Errorf("reasoning should mention the decline threshold, got %q", resp.Reasoning)
	}
}

func TestHandleMessage_RerankBeforeGeneration(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	fused := make([]retrieval.Candidate, 8)
	for i := range fused {
		fused[i] = retrieval.Candidate{ChunkID: string(rune('a' + i)), DenseScore: 0.7}
	}
	reranked := fused[:5]

	m.classifier.EXPECT().Classify(ctx, "query").Return(router.IntentResult{
		Intent: router.IntentDomain, Confidence: 0.9,
	}, nil)
	m.retriever.EXPECT().Retrieve(ctx, "query", 20).Return(fused, nil)
	m.reranker.EXPECT().ShouldRerank(fused).Return(true)
	m.reranker.EXPECT().Rerank(ctx, "query", fused).Return(reranked)
	m.generator.EXPECT().Answer(ctx, "query", reranked).Return("answer", nil)

	resp, err := svc.HandleMessage(ctx, Request{Message: "query"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if len(resp.Sources) != 5 {
		t.Errorf("expected 5 reranked sources, got %d", len(resp.Sources))
	}
}

func TestHandleMessage_ClassifierFailureDegradesToDomainQuery(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	candidates := []retrieval.Candidate{{ChunkID: "a", Content: "text", DenseScore: 0.8}}

	m.classifier.EXPECT().Classify(ctx, "some question").Return(router.IntentResult{}, errors.New("classifier down"))
	m.retriever.EXPECT().Retrieve(ctx, "some question", 20).Return(candidates, nil)
	m.reranker.EXPECT().ShouldRerank(candidates).Return(false)
	m.generator.EXPECT().Answer(ctx, "some question", candidates).Return("answer", nil)

	resp, err := svc.HandleMessage(ctx, Request{Message: "some question"})
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if !resp.UsedRAG {
		t.Error("classifier failure should fall through to the retrieval path")
	}
}

func TestHandleMessage_RetrievalFailureDeclines(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.classifier.EXPECT().Classify(ctx, "question").Return(router.IntentResult{
		Intent: router.IntentDomain, Confidence: 0.9,
	}, nil)
	m.retriever.EXPECT().Retrieve(ctx, "question", 20).Return(nil, errors.New("both sources down"))

	resp, err := svc.HandleMessage(ctx, Request{Message: "question"})
	if err != nil {
		t.Fatalf("retrieval failure must not fail the turn: %v", err)
	}
	if resp.Answer != noInformationResponse {
		t.Errorf("expected no-information response, got %q", resp.Answer)
	}
}

func TestHandleMessage_GenerationFailureIsExternalError(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	candidates := []retrieval.Candidate{{ChunkID: "a", DenseScore: 0.9}}

	m.classifier.EXPECT().Classify(ctx, "question").Return(router.IntentResult{
		Intent: router.IntentDomain, Confidence: 0.9,
	}, nil)
	m.retriever.EXPECT().Retrieve(ctx, "question", 20).Return(candidates, nil)
	m.reranker.EXPECT().ShouldRerank(candidates).Return(false)
	m.generator.EXPECT().Answer(ctx, "question", candidates).Return("", errors.New("llm down"))

	_, err := svc.HandleMessage(ctx, Request{Message: "question"})
	if !errors.Is(err, ErrExternalService) {
		t.Errorf("error = %v, want ErrExternalService", err)
	}
}
