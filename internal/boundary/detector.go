// Package boundary detects structural chunk boundaries in document text.
// It parses the document with goldmark and returns candidate chunk spans
// annotated with structural flags (headers, lists, tables, Q&A shape) and
// byte offsets into the original text. It never embeds anything; embedding
// and pooling belong to the late-chunking engine.
package boundary

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const (
	defaultMinSpanRunes = 50
	defaultMaxSpanRunes = 2000
)

// Structure holds the structural flags detected for a span.
type Structure struct {
	HasHeader bool
	IsQAPair  bool
	IsTable   bool
	IsList    bool
}

// Span is a candidate chunk span within a document.
// Start and End are byte offsets into the original text.
type Span struct {
	Index   int
	Start   int
	End     int
	Content string
	Structure
}

// Detector finds structural chunk spans using goldmark AST parsing.
type Detector struct {
	parser       goldmark.Markdown
	minSpanRunes int
	maxSpanRunes int
}

// NewDetector creates a detector with default size constraints.
func NewDetector() *Detector {
	return &Detector{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
		minSpanRunes: defaultMinSpanRunes,
		maxSpanRunes: defaultMaxSpanRunes,
	}
}

// DetectSpans returns candidate chunk spans for the document, in order.
// Spans start at headings; content before the first heading forms its own
// span. Tiny spans are merged into their predecessor and oversized spans
// are split, preferring paragraph boundaries.
func (d *Detector) DetectSpans(content string) []Span {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	source := []byte(content)
	doc := d.parser.Parser().Parse(text.NewReader(source))

	var spans []Span
	var current *Span

	flush := func() {
		if current != nil && current.End > current.Start {
			current.Content = content[current.Start:current.End]
			if strings.TrimSpace(current.Content) != "" {
				spans = append(spans, *current)
			}
		}
		current = nil
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		start, end, ok := blockRange(n, source)
		if !ok {
			continue
		}

		if _, isHeading := n.(*ast.Heading); isHeading {
			flush()
			current = &Span{Start: lineStart(content, start), End: end}
			current.HasHeader = true
			continue
		}

		if current == nil {
			current = &Span{Start: lineStart(content, start), End: end}
		} else if end > current.End {
			current.End = end
		}

		switch n.(type) {
		case *ast.List:
			current.IsList = true
		default:
			if strings.Contains(n.Kind().String(), "Table") {
				current.IsTable = true
			}
		}
	}
	flush()

	spans = d.applySizeConstraints(content, spans)

	for i := range spans {
		spans[i].Index = i
		spans[i].IsQAPair = DetectQAPair(spans[i].Content)
	}

	return spans
}

// applySizeConstraints merges spans below the minimum size into their
// predecessor and splits spans above the maximum. Merged spans keep the
// invariant that Content equals the slice between their offsets.
func (d *Detector) applySizeConstraints(content string, spans []Span) []Span {
	if len(spans) == 0 {
		return spans
	}

	merged := make([]Span, 0, len(spans))
	for _, s := range spans {
		runes := utf8.RuneCountInString(s.Content)
		if runes < d.minSpanRunes && len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if utf8.RuneCountInString(prev.Content)+runes <= d.maxSpanRunes {
				prev.End = s.End
				prev.Content = content[prev.Start:prev.End]
				prev.IsList = prev.IsList || s.IsList
				prev.IsTable = prev.IsTable || s.IsTable
				prev.HasHeader = prev.HasHeader || s.HasHeader
				continue
			}
		}
		merged = append(merged, s)
	}

	result := make([]Span, 0, len(merged))
	for _, s := range merged {
		result = append(result, d.splitSpan(s)...)
	}
	return result
}

// splitSpan splits a span exceeding maxSpanRunes, preferring paragraph
// boundaries, then line boundaries, then sentence boundaries, mirroring
// the segmenter's cascade at a smaller granularity.
func (d *Detector) splitSpan(s Span) []Span {
	if utf8.RuneCountInString(s.Content) <= d.maxSpanRunes {
		return []Span{s}
	}

	var out []Span
	body := s.Content
	offset := 0

	for offset < len(body) {
		remaining := body[offset:]
		if utf8.RuneCountInString(remaining) <= d.maxSpanRunes {
			out = append(out, subSpan(s, offset, len(body)))
			break
		}

		window := remaining[:byteIndexOfRune(remaining, d.maxSpanRunes)]
		cut := len(window)
		if p := strings.LastIndex(window, "\n\n"); p > 0 {
			cut = p + 2
		} else if p := strings.LastIndex(window, "\n"); p > 0 {
			cut = p + 1
		} else if p := strings.LastIndex(window, ". "); p > 0 {
			cut = p + 2
		}

		out = append(out, subSpan(s, offset, offset+cut))
		offset += cut
	}

	return out
}

func subSpan(parent Span, from, to int) Span {
	return Span{
		Start:     parent.Start + from,
		End:       parent.Start + to,
		Content:   parent.Content[from:to],
		Structure: parent.Structure,
	}
}

// byteIndexOfRune returns the byte index just after the n-th rune of s.
func byteIndexOfRune(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}

// blockRange returns the byte range covered by a block node and its
// descendants, using the source line segments goldmark records.
func blockRange(n ast.Node, source []byte) (int, int, bool) {
	start, end := -1, -1

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Type() == ast.TypeBlock {
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				if start == -1 || seg.Start < start {
					start = seg.Start
				}
				if seg.Stop > end {
					end = seg.Stop
				}
			}
		}
		// Table cells record no block lines; their text lives in inline
		// segments.
		if txt, ok := node.(*ast.Text); ok {
			seg := txt.Segment
			if start == -1 || seg.Start < start {
				start = seg.Start
			}
			if seg.Stop > end {
				end = seg.Stop
			}
		}
		return ast.WalkContinue, nil
	})

	if start == -1 || end <= start || end > len(source) {
		return 0, 0, false
	}
	return start, end, true
}

// lineStart walks back from a byte offset to the start of its line, so a
// heading span includes its "#" markers.
func lineStart(content string, offset int) int {
	if offset > len(content) {
		offset = len(content)
	}
	for offset > 0 && content[offset-1] != '\n' {
		offset--
	}
	return offset
}

var qaPrefix = regexp.MustCompile(`(?im)^\s*(q|question)\s*[:.)]`)

// DetectQAPair reports whether content has question-and-answer shape:
// either an explicit Q:/Question: marker, or a question mark followed by
// enough text to count as an answer.
func DetectQAPair(content string) bool {
	if qaPrefix.MatchString(content) {
		return true
	}
	for i, r := range content {
		if r == '?' || r == '？' {
			answer := strings.TrimSpace(content[i+utf8.RuneLen(r):])
			return utf8.RuneCountInString(answer) >= 20
		}
	}
	return false
}

// SplitQA splits Q&A-shaped content at the first question mark. The
// question includes its terminal punctuation. If no question mark exists,
// the whole content is returned as the answer.
func SplitQA(content string) (question, answer string) {
	for i, r := range content {
		if r == '?' || r == '？' {
			cut := i + utf8.RuneLen(r)
			return strings.TrimSpace(content[:cut]), strings.TrimSpace(content[cut:])
		}
	}
	return "", strings.TrimSpace(content)
}
