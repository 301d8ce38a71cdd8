// Package segmenter splits non-atomic blocks into sentence-level units and
// prices each unit in tokens. Atomic blocks, headings, and list items pass
// through as single units.
package segmenter

import (
	"strings"
	"unicode"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"smartchunk/chunk"
	"smartchunk/pkg/tokenizer"
)

// abbreviations that end with a period but do not terminate a sentence.
var abbreviations = map[string]struct{}{
	"e.g.": {}, "i.e.": {}, "etc.": {}, "cf.": {}, "vs.": {},
	"dr.": {}, "mr.": {}, "mrs.": {}, "ms.": {}, "prof.": {},
	"fig.": {}, "no.": {}, "st.": {}, "jr.": {}, "sr.": {},
	"approx.": {}, "dept.": {}, "est.": {}, "vol.": {},
}

type Segmenter struct {
	counter   tokenizer.Counter
	sentences *sentences.DefaultSentenceTokenizer
}

func New(counter tokenizer.Counter) *Segmenter {
	st, _ := english.NewSentenceTokenizer(nil)
	return &Segmenter{
		counter:   counter,
		sentences: st,
	}
}

// Segment produces the ordered unit sequence for the document. Unit texts
// slice their block text contiguously, so concatenating a block's units
// reproduces the block. Token-count failures degrade to a word-based
// estimate and are reported as warnings, never errors.
func (s *Segmenter) Segment(doc *chunk.Document) ([]chunk.Unit, []chunk.Warning) {
	var units []chunk.Unit
	var warnings []chunk.Warning

	for bi := range doc.Blocks {
		b := &doc.Blocks[bi]
		if b.Text == "" {
			continue
		}

		var spans [][2]int
		if b.Atomic || b.Kind == chunk.Heading || b.Kind == chunk.ListItem {
			spans = [][2]int{{0, len(b.Text)}}
		} else {
			spans = s.sentenceSpans(b.Text)
		}

		for _, sp := range spans {
			text := b.Text[sp[0]:sp[1]]
			if strings.TrimSpace(text) == "" {
				continue
			}

			tokens, err := s.counter.Count(text)
			if err != nil {
				tokens = estimateTokens(text)
				warnings = append(warnings, chunk.Warning{
					Kind:    chunk.WarnTokenEstimate,
					Message: "token counter failed, using word-based estimate: " + err.Error(),
					Offset:  b.SourceOffset(sp[0]),
				})
			}

			units = append(units, chunk.Unit{
				Text:   text,
				Tokens: tokens,
				Block:  bi,
				Pos:    len(units),
				Start:  b.SourceOffset(sp[0]),
				End:    b.SourceOffset(sp[1]),
			})
		}
	}

	return units, warnings
}

// sentenceSpans returns contiguous [start,end) spans over text, one per
// sentence after abbreviation-aware merging. The spans tile the whole
// text: each sentence keeps its trailing separator.
func (s *Segmenter) sentenceSpans(text string) [][2]int {
	raw := s.sentences.Tokenize(text)
	if len(raw) == 0 {
		return [][2]int{{0, len(text)}}
	}

	// Locate each sentence with a moving cursor, then stretch spans so
	// they tile the text with no gaps.
	var spans [][2]int
	cursor := 0
	for _, sent := range raw {
		st := sent.Text
		if strings.TrimSpace(st) == "" {
			continue
		}
		idx := strings.Index(text[cursor:], st)
		if idx < 0 {
			continue
		}
		start := cursor
		end := cursor + idx + len(st)
		spans = append(spans, [2]int{start, end})
		cursor = end
	}
	if len(spans) == 0 {
		return [][2]int{{0, len(text)}}
	}
	spans[len(spans)-1][1] = len(text)

	return mergeAbbreviations(text, spans)
}

// mergeAbbreviations joins a sentence to its successor when the split
// point is a known abbreviation or the next sentence starts lowercase.
func mergeAbbreviations(text string, spans [][2]int) [][2]int {
	merged := spans[:0]
	for _, sp := range spans {
		if len(merged) > 0 && shouldMerge(text, merged[len(merged)-1], sp) {
			merged[len(merged)-1][1] = sp[1]
			continue
		}
		merged = append(merged, sp)
	}
	return merged
}

func shouldMerge(text string, prev, next [2]int) bool {
	prevText := strings.TrimSpace(text[prev[0]:prev[1]])
	if prevText == "" {
		return true
	}

	fields := strings.Fields(prevText)
	last := strings.ToLower(fields[len(fields)-1])
	if _, ok := abbreviations[last]; ok {
		return true
	}

	for _, r := range strings.TrimSpace(text[next[0]:next[1]]) {
		return unicode.IsLower(r)
	}
	return false
}

// estimateTokens approximates a token count when the counter is
// unavailable, mirroring the usual ~3/4 words-per-token ratio.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 1
	}
	return words * 4 / 3
}
