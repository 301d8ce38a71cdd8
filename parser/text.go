package parser

import (
	"regexp"
	"strings"

	"smartchunk/chunk"
)

var listLineRe = regexp.MustCompile(`^\s*(?:[-*+]\s+|\d+[.)]\s+)`)

// parseText treats blank-line-delimited paragraphs as blocks with empty
// heading paths. A paragraph of list-looking lines becomes one list_item
// block per line; a run of 4-space (or tab) indented lines is code and
// stays atomic.
func parseText(source string) (*chunk.Document, []chunk.Warning) {
	doc := &chunk.Document{Source: source}

	var para []lineSpan
	flush := func() {
		if len(para) == 0 {
			return
		}
		doc.Blocks = append(doc.Blocks, textBlocks(source, para)...)
		para = para[:0]
	}

	for _, ln := range splitLines(source) {
		if strings.TrimSpace(ln.text) == "" {
			flush()
			continue
		}
		para = append(para, ln)
	}
	flush()

	return doc, nil
}

type lineSpan struct {
	start, end int
	text       string
}

func splitLines(source string) []lineSpan {
	var lines []lineSpan
	pos := 0
	for pos <= len(source) {
		end := lineEnd(source, pos)
		lines = append(lines, lineSpan{start: pos, end: end, text: source[pos:end]})
		if end >= len(source) {
			break
		}
		pos = end + 1
	}
	return lines
}

func textBlocks(source string, para []lineSpan) []chunk.Block {
	allList := true
	allIndented := true
	for _, ln := range para {
		if !listLineRe.MatchString(ln.text) {
			allList = false
		}
		if !strings.HasPrefix(ln.text, "    ") && !strings.HasPrefix(ln.text, "\t") {
			allIndented = false
		}
	}

	start := para[0].start
	end := para[len(para)-1].end

	switch {
	case allList:
		blocks := make([]chunk.Block, 0, len(para))
		for _, ln := range para {
			blocks = append(blocks, chunk.Block{
				Kind:  chunk.ListItem,
				Text:  source[ln.start:ln.end],
				Start: ln.start,
				End:   ln.end,
			})
		}
		return blocks
	case allIndented:
		return []chunk.Block{{
			Kind:   chunk.CodeFence,
			Atomic: true,
			Text:   source[start:end],
			Start:  start,
			End:    end,
		}}
	default:
		return []chunk.Block{{
			Kind:  chunk.Paragraph,
			Text:  source[start:end],
			Start: start,
			End:   end,
		}}
	}
}
