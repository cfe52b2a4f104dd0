package retrieval

import "sort"

// DefaultRRFK is the standard reciprocal-rank fusion constant; it damps
// the advantage of early ranks.
const DefaultRRFK = 60

// FuseRRF combines a sparse and a dense ranking into one list using
// reciprocal-rank fusion: each candidate's fused score is the sum of
// 1/(k+rank) over every ranking it appears in, ranks 1-based. Candidates
// appearing in both rankings accumulate both contributions. Raw dense and
// sparse scores survive fusion so callers can still apply absolute
// thresholds to DenseScore.
//
// Output ordering: descending fused score, ties broken by descending
// DenseScore.
func FuseRRF(sparse, dense []Candidate, k int) []Candidate {
	if k <= 0 {
		k = DefaultRRFK
	}

	fused := make(map[string]*Candidate, len(sparse)+len(dense))

	merge := func(c Candidate, rank int, fromDense bool) {
		existing, ok := fused[c.ChunkID]
		if !ok {
			copied := c
			copied.Score = 0
			fused[c.ChunkID] = &copied
			existing = fused[c.ChunkID]
		}
		existing.Score += 1 / float64(k+rank)
		if fromDense {
			existing.DenseScore = c.DenseScore
		} else {
			existing.SparseScore = c.SparseScore
		}
		if existing.Content == "" {
			existing.Content = c.Content
		}
	}

	for i, c := range sparse {
		merge(c, i+1, false)
	}
	for i, c := range dense {
		merge(c, i+1, true)
	}

	result := make([]Candidate, 0, len(fused))
	for _, c := range fused {
		result = append(result, *c)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].DenseScore > result[j].DenseScore
	})

	return result
}

// TopDenseScore returns the highest dense score among candidates, which is
// the signal confidence thresholds operate on. Returns 0 when empty — the
// caller must check for emptiness separately.
func TopDenseScore(candidates []Candidate) float32 {
	var top float32
	for i, c := range candidates {
		if i == 0 || c.DenseScore > top {
			top = c.DenseScore
		}
	}
	return top
}
