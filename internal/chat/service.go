package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kbchat/internal/contextutil"
	"kbchat/internal/retrieval"
	"kbchat/internal/router"
)

const (
	declineResponse = "That seems to be outside what this knowledge base covers, so I'd rather not guess. Is there something else I can help with?"

	noInformationResponse = "I couldn't find any relevant information in the knowledge base to answer that."
)

// Config holds the chat service's tunables alongside the router's
// thresholds.
type Config struct {
	Router router.Config
	// RetrieveLimit is how many fused candidates to pull per query.
	RetrieveLimit int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Router:        router.DefaultConfig(),
		RetrieveLimit: 20,
	}
}

// Service routes chat messages: classify, optionally retrieve, decide,
// generate.
type Service struct {
	classifier IntentClassifier
	retriever  Retriever
	reranker   Reranker
	generator  AnswerGenerator
	cfg        Config
	logger     *slog.Logger
}

// NewService creates a chat service. The config is validated once here;
// an invalid threshold never surfaces at message time.
func NewService(
	classifier IntentClassifier,
	retriever Retriever,
	reranker Reranker,
	generator AnswerGenerator,
	cfg Config,
) (*Service, error) {
	if err := cfg.Router.Validate(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}
	if cfg.RetrieveLimit <= 0 {
		cfg.RetrieveLimit = DefaultConfig().RetrieveLimit
	}
	return &Service{
		classifier: classifier,
		retriever:  retriever,
		reranker:   reranker,
		generator:  generator,
		cfg:        cfg,
		logger:     slog.Default(),
	}, nil
}

// HandleMessage runs one chat turn end to end.
func (s *Service) HandleMessage(ctx context.Context, req Request) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, &ValidationError{Field: "message", Message: "must not be empty"}
	}

	intent, err := s.classifier.Classify(ctx, message)
	if err != nil {
		// A broken classifier must not break chat: treat the message as a
		// domain query and let retrieval evidence decide.
		logger.WarnContext(ctx, "intent classification failed, assuming domain query", "error", err)
		intent = router.IntentResult{Intent: router.IntentDomain}
	}

	var candidates []retrieval.Candidate
	if router.Plan(intent, s.cfg.Router) {
		candidates, err = s.retriever.Retrieve(ctx, message, s.cfg.RetrieveLimit)
		if err != nil {
			logger.WarnContext(ctx, "retrieval failed, deciding on empty evidence", "error", err)
			candidates = nil
		}
	}

	evidence := router.Evidence{
		HasCandidates: len(candidates) > 0,
		TopDenseScore: retrieval.TopDenseScore(candidates),
	}
	decision := router.Decide(intent, evidence, s.cfg.Router)

	logger.InfoContext(ctx, "message routed",
		"intent", decision.Intent,
		"kind", decision.Kind,
		"use_rag", decision.ShouldUseRAG,
		"top_dense", evidence.TopDenseScore,
	)

	answer, sources, err := s.respond(ctx, message, decision, candidates)
	if err != nil {
		return Response{}, err
	}

	return Response{
		Answer:     answer,
		Intent:     string(decision.Intent),
		Confidence: decision.Confidence,
		UsedRAG:    decision.ShouldUseRAG,
		Reasoning:  decision.Reasoning,
		Sources:    sources,
	}, nil
}

func (s *Service) respond(ctx context.Context, message string, decision router.Result, candidates []retrieval.Candidate) (string, []Source, error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch decision.Kind {
	case router.KindTemplate:
		return router.TemplateFor(message), nil, nil

	case router.KindSmallTalk:
		reply, err := s.generator.SmallTalk(ctx, message)
		if err != nil {
			// Template fallback keeps chitchat from ever failing.
			logger.WarnContext(ctx, "small talk generation failed, using template", "error", err)
			return router.TemplateFor(message), nil, nil
		}
		return reply, nil, nil

	case router.KindDecline:
		return declineResponse, nil, nil

	case router.KindNoInformation:
		return noInformationResponse, nil, nil

	case router.KindRAG:
		if s.reranker.ShouldRerank(candidates) {
			candidates = s.reranker.Rerank(ctx, message, candidates)
		}
		answer, err := s.generator.Answer(ctx, message, candidates)
		if err != nil {
			return "", nil, fmt.Errorf("%w: answer generation failed: %v", ErrExternalService, err)
		}
		sources := make([]Source, len(candidates))
		for i, c := range candidates {
			sources[i] = Source{ChunkID: c.ChunkID, Score: c.DenseScore}
		}
		return answer, sources, nil

	default:
		return "", nil, fmt.Errorf("unknown decision kind %q", decision.Kind)
	}
}
