package router

import (
	"fmt"
)

// Intent is the classifier's verdict for one message.
type Intent string

const (
	IntentChitchat   Intent = "chitchat"
	IntentOutOfScope Intent = "out_of_scope"
	IntentDomain     Intent = "domain_query"
)

// IntentResult is what the upstream classifier produced for a message.
// RulesMatch reports that a deterministic rule decided the intent without
// consulting the LLM.
type IntentResult struct {
	Intent     Intent
	Confidence float32
	RulesMatch bool
}

// Config holds the router's decision thresholds. All values are
// validated at construction, never at message time.
type Config struct {
	// ChitchatThreshold: at or above this confidence a chitchat intent is
	// answered directly without retrieval.
	ChitchatThreshold float32
	// OutOfScopeThreshold: at or above this confidence an out-of-scope
	// intent triggers reverification against retrieval.
	OutOfScopeThreshold float32
	// ReverifyThreshold: a top dense score at or above this overrides an
	// out-of-scope classification.
	ReverifyThreshold float32
	// DeclineThreshold: a top dense score below this declines a domain
	// query as having no relevant information.
	DeclineThreshold float32
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		ChitchatThreshold:   0.85,
		OutOfScopeThreshold: 0.85,
		ReverifyThreshold:   0.5,
		DeclineThreshold:    0.3,
	}
}

// Validate reports the first out-of-range threshold.
func (c Config) Validate() error {
	check := func(name string, v float32) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("threshold %s must be in [0,1], got %v", name, v)
		}
		return nil
	}
	if err := check("chitchat", c.ChitchatThreshold); err != nil {
		return err
	}
	if err := check("out_of_scope", c.OutOfScopeThreshold); err != nil {
		return err
	}
	if err := check("reverify", c.ReverifyThreshold); err != nil {
		return err
	}
	return check("decline", c.DeclineThreshold)
}

// Kind names the response-generation path a decision selected.
type Kind string

const (
	// KindTemplate: answer with a canned chitchat template.
	KindTemplate Kind = "template"
	// KindSmallTalk: answer with LLM-generated small talk.
	KindSmallTalk Kind = "small_talk"
	// KindDecline: polite out-of-scope decline.
	KindDecline Kind = "decline"
	// KindNoInformation: retrieval found nothing relevant enough.
	KindNoInformation Kind = "no_information"
	// KindRAG: generate over retrieved evidence.
	KindRAG Kind = "rag"
)

// Evidence is the retrieval signal a decision may consult. TopDenseScore
// is meaningless when HasCandidates is false.
type Evidence struct {
	HasCandidates bool
	TopDenseScore float32
}

// Result is the router's terminal decision for one message.
type Result struct {
	ShouldUseRAG bool
	Kind         Kind
	Intent       Intent
	Confidence   float32
	Reasoning    string
}

// Plan reports whether retrieval must run before Decide can be called.
// Only a confident chitchat classification skips retrieval; both the
// out-of-scope reverification path and the domain path need evidence.
func Plan(intent IntentResult, cfg Config) bool {
	return !(intent.Intent == IntentChitchat && intent.Confidence >= cfg.ChitchatThreshold)
}

// Decide maps a classification plus retrieval evidence to a terminal
// routing decision. It is a pure function of its arguments: the same
// (intent, evidence, config) triple always yields the same Result, which
// the Reasoning string documents.
func Decide(intent IntentResult, evidence Evidence, cfg Config) Result {
	if intent.Intent == IntentChitchat && intent.Confidence >= cfg.ChitchatThreshold {
		kind := KindSmallTalk
		reason := fmt.Sprintf("chitchat at confidence %.2f (>= %.2f), answering without retrieval", intent.Confidence, cfg.ChitchatThreshold)
		if intent.RulesMatch {
			kind = KindTemplate
			reason = fmt.Sprintf("chitchat matched a deterministic rule at confidence %.2f, answering from template", intent.Confidence)
		}
		return Result{
			Kind:       kind,
			Intent:     IntentChitchat,
			Confidence: intent.Confidence,
			Reasoning:  reason,
		}
	}

	if intent.Intent == IntentOutOfScope && intent.Confidence >= cfg.OutOfScopeThreshold {
		if evidence.HasCandidates && evidence.TopDenseScore >= cfg.ReverifyThreshold {
			return Result{
				ShouldUseRAG: true,
				Kind:         KindRAG,
				Intent:       IntentDomain,
				Confidence:   evidence.TopDenseScore,
				Reasoning: fmt.Sprintf("out_of_scope overridden: top dense score %.2f >= reverify threshold %.2f, retrieval evidence wins",
					evidence.TopDenseScore, cfg.ReverifyThreshold),
			}
		}
		return Result{
			Kind:       KindDecline,
			Intent:     IntentOutOfScope,
			Confidence: intent.Confidence,
			Reasoning: fmt.Sprintf("out_of_scope confirmed at confidence %.2f, retrieval evidence below reverify threshold %.2f",
				intent.Confidence, cfg.ReverifyThreshold),
		}
	}

	// Domain query or a low-confidence classification of any kind.
	if !evidence.HasCandidates || evidence.TopDenseScore < cfg.DeclineThreshold {
		return Result{
			Kind:       KindNoInformation,
			Intent:     IntentDomain,
			Confidence: evidence.TopDenseScore,
			Reasoning: fmt.Sprintf("no candidate cleared the decline threshold %.2f (top dense score %.2f), declining to answer from evidence",
				cfg.DeclineThreshold, evidence.TopDenseScore),
		}
	}
	return Result{
		ShouldUseRAG: true,
		Kind:         KindRAG,
		Intent:       IntentDomain,
		Confidence:   evidence.TopDenseScore,
		Reasoning: fmt.Sprintf("domain query with top dense score %.2f >= %.2f, generating over retrieved evidence",
			evidence.TopDenseScore, cfg.DeclineThreshold),
	}
}
