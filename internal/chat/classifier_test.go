package chat

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"kbchat/internal/rerank/mocks"
	"kbchat/internal/router"
)

func TestRuleClassifier(t *testing.T) {
	tests := []struct {
		message    string
		wantIntent router.Intent
		wantRules  bool
	}{
		{"hello", router.IntentChitchat, true},
		{"Hello!", router.IntentChitchat, true},
		{"thanks a lot", router.IntentChitchat, true},
		{"  good morning  ", router.IntentChitchat, true},
		{"how do I configure retries", router.IntentDomain, false},
		{"hibernate configuration", router.IntentDomain, false}, // "hi" must not prefix-match inside a word
	}

	c := RuleClassifier{}
	for _, tt := range tests {
		got, err := c.Classify(context.Background(), tt.message)
		if err != nil {
			t.Fatalf("Classify(%q) error = %v", tt.message, err)
		}
		if got.Intent != tt.wantIntent || got.RulesMatch != tt.wantRules {
			t.Errorf("Classify(%q) = %+v, want intent=%s rules=%v", tt.message, got, tt.wantIntent, tt.wantRules)
		}
	}
}

func TestLLMClassifierUsesRulesFirst(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockJudge(ctrl)
	// No Complete expectation: the rule must short-circuit the LLM.

	c := NewLLMClassifier(completer)
	got, err := c.Classify(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !got.RulesMatch || got.Intent != router.IntentChitchat {
		t.Errorf("Classify() = %+v", got)
	}
}

func TestLLMClassifierParsesResponse(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantIntent     router.Intent
		wantConfidence float32
	}{
		{
			name:           "clean json",
			response:       `{"intent": "out_of_scope", "confidence": 0.92}`,
			wantIntent:     router.IntentOutOfScope,
			wantConfidence: 0.92,
		},
		{
			name:           "prose wrapped",
			response:       `Sure: {"intent": "chitchat", "confidence": 0.88} is my verdict.`,
			wantIntent:     router.IntentChitchat,
			wantConfidence: 0.88,
		},
		{
			name:           "no json falls back to domain query",
			response:       "this is definitely a domain question",
			wantIntent:     router.IntentDomain,
			wantConfidence: 0.5,
		},
		{
			name:           "unknown intent falls back",
			response:       `{"intent": "banter", "confidence": 0.9}`,
			wantIntent:     router.IntentDomain,
			wantConfidence: 0.5,
		},
		{
			name:           "confidence clamped",
			response:       `{"intent": "domain_query", "confidence": 1.7}`,
			wantIntent:     router.IntentDomain,
			wantConfidence: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			completer := mocks.NewMockJudge(ctrl)
			completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return(tt.response, nil)

			c := NewLLMClassifier(completer)
			got, err := c.Classify(context.Background(), "what about the thing")
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if got.Intent != tt.wantIntent {
				t.Errorf("Intent = %s, want %s", got.Intent, tt.wantIntent)
			}
			if got.Confidence != tt.wantConfidence {
				t.Errorf("Confidence = %f, want %f", got.Confidence, tt.wantConfidence)
			}
			if got.RulesMatch {
				t.Error("LLM verdicts must not claim a rules match")
			}
		})
	}
}

func TestLLMClassifierPropagatesCallFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := mocks.NewMockJudge(ctrl)
	completer.EXPECT().Complete(gomock.Any(), gomock.Any()).Return("", errors.New("timeout"))

	c := NewLLMClassifier(completer)
	if _, err := c.Classify(context.Background(), "what about the thing"); err == nil {
		t.Error("call failure should propagate so the service can degrade")
	}
}
