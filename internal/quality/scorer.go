// Package quality assigns 0-100 quality scores to retrieval chunks from
// structural heuristics, optionally adjusted by embedding-similarity
// validation against the parent document.
package quality

import (
	"math"
	"strings"
	"unicode/utf8"

	"kbchat/internal/boundary"
)

const (
	baseScore = 50

	qaPairBonus      = 10
	fullLengthBonus  = 15
	partLengthBonus  = 8
	punctuationBonus = 5

	fullBandMin = 100
	fullBandMax = 500
	partBandMin = 50
	partBandMax = 800
)

// Config holds the scorer's tunables. The blend coefficients are
// configuration, not constants: the similarity blend is a heuristic
// contract, not a fixed formula.
type Config struct {
	// MinQualityScore is the auto-approval bar: chunks scoring at or
	// above it skip human review.
	MinQualityScore int
	// LowSimilarityThreshold is the document similarity below which the
	// structural score gets nudged toward the semantic signal.
	LowSimilarityThreshold float32
	// BlendWeight is the share of the similarity-derived score mixed into
	// the structural score when similarity is low.
	BlendWeight float64
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		MinQualityScore:        85,
		LowSimilarityThreshold: 0.5,
		BlendWeight:            0.35,
	}
}

// ScoreStructural computes a purely structural quality score in [0, 100].
// The base of 50 is adjusted by bounded deltas for Q&A shape, favorable
// answer length and well-formed punctuation.
func ScoreStructural(content string, structure boundary.Structure) int {
	score := baseScore

	question, answer := boundary.SplitQA(content)
	if structure.IsQAPair && question != "" && answer != "" {
		score += qaPairBonus
		score += lengthBandBonus(answer)
		if strings.HasSuffix(question, "?") || strings.HasSuffix(question, "？") {
			score += punctuationBonus
		}
		if endsWithTerminalPunctuation(answer) {
			score += punctuationBonus
		}
	} else {
		score += lengthBandBonus(content)
		if endsWithTerminalPunctuation(strings.TrimSpace(content)) {
			score += punctuationBonus
		}
	}

	return clampScore(score)
}

// ApplyEmbeddingValidation adjusts a structural score using the chunk's
// cosine similarity to its parent document. When similarity is very low
// the structural heuristics disagree with semantic coherence, so the
// score is nudged toward the similarity-derived value. The result is
// always clamped to [0, 100] regardless of inputs.
func ApplyEmbeddingValidation(base int, documentSimilarity float32, cfg Config) int {
	if documentSimilarity >= cfg.LowSimilarityThreshold {
		return clampScore(base)
	}

	// Map similarity from [-1, 1] onto the score scale.
	simScore := (float64(documentSimilarity) + 1) / 2 * 100
	blended := float64(base)*(1-cfg.BlendWeight) + simScore*cfg.BlendWeight
	return clampScore(int(math.Round(blended)))
}

// Eligible reports whether a score clears the auto-approval bar.
func Eligible(score int, cfg Config) bool {
	return score >= cfg.MinQualityScore
}

func lengthBandBonus(text string) int {
	n := utf8.RuneCountInString(text)
	switch {
	case n >= fullBandMin && n <= fullBandMax:
		return fullLengthBonus
	case n >= partBandMin && n <= partBandMax:
		return partLengthBonus
	default:
		return 0
	}
}

func endsWithTerminalPunctuation(text string) bool {
	if text == "" {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text)
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
