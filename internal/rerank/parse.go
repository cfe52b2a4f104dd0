package rerank

import (
	"encoding/json"
	"strings"
)

// missingScoreDefault is assigned to a candidate the judge forgot to
// score; low enough to fall behind anything the judge did rate.
const missingScoreDefault = 3

type judgedScore struct {
	Index int `json:"index"`
	Score int `json:"score"`
}

// parseScores extracts relevance scores from a judge response. The
// response is expected to be a JSON array of {index, score} objects, but
// real model output arrives wrapped in prose or code fences, so the
// parser takes the first array-shaped substring it can find. Entries with
// out-of-range indexes or scores outside [1,10] are dropped. Returns ok
// false only when no valid entry could be recovered at all.
func parseScores(raw string, candidateCount int) (map[int]int, bool) {
	body := extractJSONArray(raw)
	if body == "" {
		return nil, false
	}

	var entries []judgedScore
	if err := json.Unmarshal([]byte(body), &entries); err != nil {
		return nil, false
	}

	scores := make(map[int]int, len(entries))
	for _, e := range entries {
		if e.Index < 0 || e.Index >= candidateCount {
			continue
		}
		if e.Score < 1 || e.Score > 10 {
			continue
		}
		scores[e.Index] = e.Score
	}
	if len(scores) == 0 {
		return nil, false
	}
	return scores, true
}

// extractJSONArray returns the first balanced [...] substring of raw, or
// "" when none exists.
func extractJSONArray(raw string) string {
	start := strings.IndexByte(raw, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	for i := start; i < len(raw); i++ {
		switch raw[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
