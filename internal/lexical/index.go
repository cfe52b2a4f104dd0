package lexical

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"kbchat/internal/retrieval"
)

const lengthScale = float32(10.0)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "but": {}, "by": {},
	"for": {}, "from": {}, "has": {}, "have": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {},
	"or": {}, "the": {}, "to": {}, "was": {}, "were": {}, "with": {},
}

type entry struct {
	content string
	freq    map[string]int
	tokens  int
}

// Index is an in-memory lexical index over chunk contents. Scores are
// normalized term-frequency matches, bounded so they can sit alongside
// vector scores in fused rankings. Safe for concurrent use; queries take
// a read lock only.
type Index struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewIndex creates an empty lexical index.
func NewIndex() *Index {
	return &Index{entries: make(map[string]entry)}
}

// Add indexes a chunk's content under its ID, replacing any previous
// entry for the same ID.
func (idx *Index) Add(chunkID, content string) {
	tokens := tokenize(content)
	freq := make(map[string]int, len(tokens))
	for _, token := range tokens {
		freq[token]++
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[chunkID] = entry{content: content, freq: freq, tokens: len(tokens)}
}

// Remove drops a chunk from the index. Removing an unknown ID is a no-op.
func (idx *Index) Remove(chunkID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, chunkID)
}

// Len returns the number of indexed chunks.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Search ranks indexed chunks by lexical overlap with the query and
// returns up to limit candidates, best first. Chunks with no overlap are
// omitted. An empty query matches nothing.
func (idx *Index) Search(_ context.Context, query string, limit int) ([]retrieval.Candidate, error) {
	queryTokens := filterStopwords(tokenize(query))
	if len(queryTokens) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]retrieval.Candidate, 0, len(idx.entries))
	for id, e := range idx.entries {
		if e.tokens == 0 {
			continue
		}
		var matches int
		for _, token := range queryTokens {
			matches += e.freq[token]
		}
		if matches == 0 {
			continue
		}
		score := (float32(matches) / (1 + float32(e.tokens))) * lengthScale
		results = append(results, retrieval.Candidate{
			ChunkID:     id,
			Content:     e.content,
			SparseScore: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].SparseScore != results[j].SparseScore {
			return results[i].SparseScore > results[j].SparseScore
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func tokenize(text string) []string {
	if text == "" {
		return nil
	}

	var builder strings.Builder
	builder.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	return strings.Fields(builder.String())
}

func filterStopwords(tokens []string) []string {
	filtered := tokens[:0]
	for _, token := range tokens {
		if _, ok := stopwords[token]; !ok {
			filtered = append(filtered, token)
		}
	}
	return filtered
}
