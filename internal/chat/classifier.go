package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"kbchat/internal/contextutil"
	"kbchat/internal/router"
)

// Completer is the LLM collaborator behind the fallback classifier.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// chitchatTriggers are messages a deterministic rule can classify
// without an LLM round-trip.
var chitchatTriggers = []string{
	"hello", "hi", "hey", "good morning", "good afternoon", "good evening",
	"thanks", "thank you", "bye", "goodbye", "how are you",
}

// RuleClassifier classifies obvious small talk deterministically.
// Anything it cannot place is returned with zero confidence so a
// downstream classifier takes over.
type RuleClassifier struct{}

// Classify matches the trimmed message against known chitchat triggers.
func (RuleClassifier) Classify(_ context.Context, message string) (router.IntentResult, error) {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.TrimRight(normalized, "!.?, ")

	for _, trigger := range chitchatTriggers {
		if normalized == trigger || strings.HasPrefix(normalized, trigger+" ") {
			return router.IntentResult{
				Intent:     router.IntentChitchat,
				Confidence: 0.95,
				RulesMatch: true,
			}, nil
		}
	}
	return router.IntentResult{Intent: router.IntentDomain, Confidence: 0}, nil
}

// LLMClassifier tries deterministic rules first and falls back to an LLM
// judgment. Malformed LLM output degrades to a low-confidence domain
// query instead of failing the turn.
type LLMClassifier struct {
	rules     RuleClassifier
	completer Completer
	logger    *slog.Logger
}

// NewLLMClassifier creates the two-stage classifier.
func NewLLMClassifier(completer Completer) *LLMClassifier {
	return &LLMClassifier{
		completer: completer,
		logger:    slog.Default(),
	}
}

const classifyPromptFormat = `Classify the user message into exactly one intent:
- "chitchat": greetings, small talk, social pleasantries
- "out_of_scope": unrelated to the knowledge base domain
- "domain_query": a question the knowledge base could answer

Respond with ONLY a JSON object: {"intent": "<intent>", "confidence": <0.0-1.0>}

Message: %s`

// Classify returns the rule verdict when one fires, otherwise asks the
// LLM.
func (c *LLMClassifier) Classify(ctx context.Context, message string) (router.IntentResult, error) {
	if result, _ := c.rules.Classify(ctx, message); result.RulesMatch {
		return result, nil
	}

	raw, err := c.completer.Complete(ctx, fmt.Sprintf(classifyPromptFormat, message))
	if err != nil {
		return router.IntentResult{}, fmt.Errorf("classification call failed: %w", err)
	}

	return c.parse(ctx, raw), nil
}

func (c *LLMClassifier) parse(ctx context.Context, raw string) router.IntentResult {
	logger := contextutil.LoggerFromContext(ctx)

	fallback := router.IntentResult{Intent: router.IntentDomain, Confidence: 0.5}

	body := extractJSONObject(raw)
	if body == "" {
		logger.WarnContext(ctx, "classifier returned no JSON, assuming domain query")
		return fallback
	}

	var parsed struct {
		Intent     string  `json:"intent"`
		Confidence float32 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		logger.WarnContext(ctx, "classifier JSON unparseable, assuming domain query", "error", err)
		return fallback
	}

	intent := router.Intent(parsed.Intent)
	switch intent {
	case router.IntentChitchat, router.IntentOutOfScope, router.IntentDomain:
	default:
		logger.WarnContext(ctx, "classifier returned unknown intent, assuming domain query", "intent", parsed.Intent)
		return fallback
	}

	confidence := parsed.Confidence
	if confidence < 0 || confidence > 1 {
		logger.WarnContext(ctx, "classifier confidence out of range, clamping", "confidence", confidence)
		if confidence < 0 {
			confidence = 0
		} else {
			confidence = 1
		}
	}

	return router.IntentResult{Intent: intent, Confidence: confidence}
}

// extractJSONObject returns the first balanced {...} substring of raw,
// or "" when none exists.
func extractJSONObject(raw string) string {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
