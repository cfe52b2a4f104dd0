package textseg

import (
	"math"
	"strings"
	"unicode"
)

// DefaultTokenLimit is the embedding call token budget a segment must fit in.
const DefaultTokenLimit = 8191

const (
	cjkCharsPerToken   = 1.5
	latinCharsPerToken = 4.0
)

// EstimateTokenCount estimates the token count of mixed-script text without a
// real tokenizer. CJK characters weigh roughly one token per 1.5 characters,
// everything else roughly one token per 4 characters. The estimate is
// monotonic: a longer text never yields fewer tokens. Empty input yields 0.
func EstimateTokenCount(text string) int {
	if text == "" {
		return 0
	}

	var cjk, other int
	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
	}

	tokens := int(math.Ceil(float64(cjk)/cjkCharsPerToken)) +
		int(math.Ceil(float64(other)/latinCharsPerToken))
	return tokens
}

// ExceedsTokenLimit reports whether text is estimated to exceed the limit.
// A non-positive limit falls back to DefaultTokenLimit.
func ExceedsTokenLimit(text string, limit int) bool {
	if limit <= 0 {
		limit = DefaultTokenLimit
	}
	return EstimateTokenCount(text) > limit
}

// SplitByTokenLimit splits text into segments that each fit the token limit.
// Policy, in priority order: the whole text if it already fits; paragraph
// boundaries (blank-line-delimited), accumulating while the next paragraph
// still fits; sentence boundaries within an oversized paragraph; and finally
// a hard character split for a single oversized sentence. Each level is only
// tried when the one above fails to produce a compliant segment.
func SplitByTokenLimit(text string, limit int) []string {
	if limit <= 0 {
		limit = DefaultTokenLimit
	}

	if EstimateTokenCount(text) <= limit {
		return []string{text}
	}

	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, paragraph := range splitParagraphs(text) {
		if EstimateTokenCount(paragraph) > limit {
			flush()
			segments = append(segments, splitOversizedParagraph(paragraph, limit)...)
			continue
		}

		if current.Len() == 0 {
			current.WriteString(paragraph)
			continue
		}

		candidate := current.String() + "\n\n" + paragraph
		if EstimateTokenCount(candidate) > limit {
			flush()
			current.WriteString(paragraph)
		} else {
			current.Reset()
			current.WriteString(candidate)
		}
	}
	flush()

	return segments
}

// splitOversizedParagraph splits one paragraph that exceeds the limit on
// sentence boundaries, force-splitting any single sentence that still
// does not fit.
func splitOversizedParagraph(paragraph string, limit int) []string {
	var segments []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
		}
	}

	for _, sentence := range splitSentences(paragraph) {
		if EstimateTokenCount(sentence) > limit {
			flush()
			segments = append(segments, forceSplit(sentence, limit)...)
			continue
		}

		if current.Len() == 0 {
			current.WriteString(sentence)
			continue
		}

		candidate := current.String() + " " + sentence
		if EstimateTokenCount(candidate) > limit {
			flush()
			current.WriteString(sentence)
		} else {
			current.Reset()
			current.WriteString(candidate)
		}
	}
	flush()

	return segments
}

// splitParagraphs splits text on blank-line boundaries, dropping
// whitespace-only paragraphs.
func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) == "" {
			continue
		}
		paragraphs = append(paragraphs, strings.Trim(p, "\n"))
	}
	return paragraphs
}

// splitSentences splits a paragraph on terminal punctuation followed by
// whitespace or end of input. CJK terminal punctuation needs no trailing
// whitespace.
func splitSentences(paragraph string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(paragraph)
	for i, r := range runes {
		current.WriteRune(r)

		boundary := false
		switch r {
		case '.', '!', '?':
			boundary = i+1 >= len(runes) || unicode.IsSpace(runes[i+1])
		case '。', '！', '？':
			boundary = true
		}

		if boundary {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

// forceSplit cuts text at hard character boundaries so each piece fits the
// limit. Estimation is heuristic, so pieces are cut as soon as the running
// estimate reaches the limit.
func forceSplit(text string, limit int) []string {
	var segments []string
	var current strings.Builder
	var cjk, other int

	cut := func() {
		if current.Len() > 0 {
			segments = append(segments, current.String())
			current.Reset()
			cjk, other = 0, 0
		}
	}

	for _, r := range text {
		if isCJK(r) {
			cjk++
		} else {
			other++
		}
		current.WriteRune(r)

		estimate := int(math.Ceil(float64(cjk)/cjkCharsPerToken)) +
			int(math.Ceil(float64(other)/latinCharsPerToken))
		if estimate >= limit {
			cut()
		}
	}
	cut()

	return segments
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}
