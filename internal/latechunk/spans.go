package latechunk

import "strings"

// segmentSpan is the byte range a document segment occupies in the
// original content.
type segmentSpan struct {
	start int
	end   int
}

// locateSegments maps each segment back to a byte range in the original
// content. Segments come out of the splitter in document order, so a
// forward scan suffices; when a segment's text cannot be found verbatim
// (whitespace was normalized during sentence splitting), the remaining
// content is apportioned proportionally so every segment still owns a
// contiguous, non-overlapping range.
func locateSegments(content string, segments []string) []segmentSpan {
	spans := make([]segmentSpan, len(segments))
	cursor := 0

	for i, seg := range segments {
		probe := strings.TrimSpace(seg)
		if probe == "" {
			spans[i] = segmentSpan{start: cursor, end: cursor}
			continue
		}

		if idx := strings.Index(content[cursor:], probe); idx >= 0 {
			start := cursor + idx
			end := start + len(probe)
			spans[i] = segmentSpan{start: start, end: end}
			cursor = end
			continue
		}

		// Fallback: apportion what's left across the remaining segments
		// by their relative lengths.
		remainingBytes := len(content) - cursor
		var remainingSegBytes int
		for _, rest := range segments[i:] {
			remainingSegBytes += len(rest)
		}
		for j := i; j < len(segments); j++ {
			share := remainingBytes
			if remainingSegBytes > 0 {
				share = remainingBytes * len(segments[j]) / remainingSegBytes
			}
			end := min(cursor+share, len(content))
			if j == len(segments)-1 {
				end = len(content)
			}
			spans[j] = segmentSpan{start: cursor, end: end}
			cursor = end
		}
		break
	}

	return spans
}

// overlappingSegments returns the vectors of all segments whose range
// overlaps [start, end), with each segment's overlap proportion of the
// chunk as its weight. If nothing overlaps (degenerate offsets), every
// segment contributes equally rather than leaving the chunk vectorless.
func overlappingSegments(start, end int, spans []segmentSpan, vectors [][]float32) ([][]float32, []float64) {
	chunkLen := end - start
	if chunkLen <= 0 {
		chunkLen = 1
	}

	var overlapVecs [][]float32
	var weights []float64
	for i, span := range spans {
		overlap := min(end, span.end) - max(start, span.start)
		if overlap <= 0 {
			continue
		}
		overlapVecs = append(overlapVecs, vectors[i])
		weights = append(weights, float64(overlap)/float64(chunkLen))
	}

	if len(overlapVecs) == 0 {
		weights = make([]float64, len(vectors))
		for i := range weights {
			weights[i] = 1
		}
		return vectors, weights
	}

	return overlapVecs, weights
}

// locateChunk finds the byte range of a chunk's content in the document.
// Chunks arrive in document order; the cursor advances monotonically so
// repeated content resolves to successive occurrences. Chunks with valid
// recorded offsets short-circuit the search.
func locateChunk(content string, chunk Chunk, cursor *int) (int, int) {
	if chunk.Metadata.EndOffset > chunk.Metadata.StartOffset &&
		chunk.Metadata.EndOffset <= len(content) {
		*cursor = chunk.Metadata.EndOffset
		return chunk.Metadata.StartOffset, chunk.Metadata.EndOffset
	}

	probe := strings.TrimSpace(chunk.Content)
	if probe != "" {
		if idx := strings.Index(content[*cursor:], probe); idx >= 0 {
			start := *cursor + idx
			end := start + len(probe)
			*cursor = end
			return start, end
		}
	}

	// Unlocatable content falls back to the whole document, so pooling
	// degrades to the document embedding instead of failing.
	return 0, len(content)
}
