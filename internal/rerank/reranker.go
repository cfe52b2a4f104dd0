package rerank

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"kbchat/internal/contextutil"
	"kbchat/internal/retrieval"
)

//go:generate go run go.uber.org/mock/mockgen@latest -source=reranker.go -destination=mocks/mock_judge.go -package=mocks

// Judge is the LLM collaborator that scores candidate relevance. It
// receives the full prompt and returns the raw completion text.
type Judge interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Config holds the reranker's tunables.
type Config struct {
	// TopK is how many candidates survive reranking.
	TopK int
	// SnippetChars bounds how much of each candidate's content goes into
	// the judge prompt.
	SnippetChars int
	// WeakDenseThreshold: below this top dense score the evidence is
	// considered weak and reranking is recommended.
	WeakDenseThreshold float32
	// MinSpread: when the fused scores of the top candidates are closer
	// together than this, the fusion is not discriminating and reranking
	// is recommended.
	MinSpread float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		TopK:               5,
		SnippetChars:       300,
		WeakDenseThreshold: 0.5,
		MinSpread:          0.005,
	}
}

// Reranker re-scores a short candidate list with an LLM relevance
// judgment. It can only improve a ranking, never fail it: any judge or
// parse failure falls back to the original fused order.
type Reranker struct {
	judge  Judge
	cfg    Config
	logger *slog.Logger
}

// NewReranker creates a reranker backed by the given judge.
func NewReranker(judge Judge, cfg Config) *Reranker {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.SnippetChars <= 0 {
		cfg.SnippetChars = DefaultConfig().SnippetChars
	}
	return &Reranker{
		judge:  judge,
		cfg:    cfg,
		logger: slog.Default(),
	}
}

// ShouldRerank reports whether reranking is likely to help: either the
// top dense score is weak (a good match may be buried), or the fused
// scores of the leading candidates are too close for the fusion order to
// mean much.
func (r *Reranker) ShouldRerank(candidates []retrieval.Candidate) bool {
	if len(candidates) <= r.cfg.TopK {
		return false
	}
	if retrieval.TopDenseScore(candidates) < r.cfg.WeakDenseThreshold {
		return true
	}

	top := candidates
	if len(top) > r.cfg.TopK {
		top = top[:r.cfg.TopK]
	}
	spread := top[0].Score - top[len(top)-1].Score
	return spread < r.cfg.MinSpread
}

// Rerank asks the judge to score each candidate's relevance to the query
// and reorders accordingly, truncated to TopK. Lists already at or below
// TopK pass through unchanged. Judge failure and unparseable output both
// fall back to the original order truncated to TopK — a soft condition,
// logged but never surfaced.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []retrieval.Candidate) []retrieval.Candidate {
	logger := contextutil.LoggerFromContext(ctx)

	if len(candidates) <= r.cfg.TopK {
		return candidates
	}

	prompt := r.buildPrompt(query, candidates)
	raw, err := r.judge.Complete(ctx, prompt)
	if err != nil {
		logger.WarnContext(ctx, "rerank judge call failed, keeping fused order", "error", err)
		return candidates[:r.cfg.TopK]
	}

	scores, ok := parseScores(raw, len(candidates))
	if !ok {
		logger.WarnContext(ctx, "rerank response unparseable, keeping fused order")
		return candidates[:r.cfg.TopK]
	}

	reordered := make([]retrieval.Candidate, len(candidates))
	copy(reordered, candidates)
	sort.SliceStable(reordered, func(i, j int) bool {
		return scoreFor(scores, indexOf(candidates, reordered[i])) > scoreFor(scores, indexOf(candidates, reordered[j]))
	})

	logger.InfoContext(ctx, "reranked candidates", "in", len(candidates), "out", r.cfg.TopK)
	return reordered[:r.cfg.TopK]
}

func (r *Reranker) buildPrompt(query string, candidates []retrieval.Candidate) string {
	var b strings.Builder
	b.WriteString("Score each passage's relevance to the question on a scale of 1 to 10.\n")
	b.WriteString("Respond with ONLY a JSON array of {\"index\": <n>, \"score\": <1-10>} objects, no prose.\n\n")
	fmt.Fprintf(&b, "Question: %s\n\nPassages:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "[%d] %s\n", i, truncateRunes(c.Content, r.cfg.SnippetChars))
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func indexOf(candidates []retrieval.Candidate, target retrieval.Candidate) int {
	for i, c := range candidates {
		if c.ChunkID == target.ChunkID {
			return i
		}
	}
	return -1
}

func scoreFor(scores map[int]int, index int) int {
	if s, ok := scores[index]; ok {
		return s
	}
	return missingScoreDefault
}
