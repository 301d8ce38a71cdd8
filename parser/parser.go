// Package parser turns raw document text into an ordered sequence of typed
// structural blocks with heading-path context. Parsing is a pure function
// of its input; recoverable problems (an unterminated code fence, a failed
// HTML extraction) come back as warnings, never errors.
package parser

import (
	"fmt"
	"strings"

	"smartchunk/chunk"
)

type Mode string

const (
	Markdown Mode = "markdown"
	HTML     Mode = "html"
	Text     Mode = "text"
)

// Parse builds the block sequence for source under the given mode. The
// returned document carries the working source all block and unit offsets
// refer to; for HTML inputs that is the markdown conversion, not the raw
// HTML.
func Parse(source string, mode Mode) (*chunk.Document, []chunk.Warning, error) {
	switch mode {
	case Markdown:
		doc, warns := parseMarkdown(source)
		return doc, warns, nil
	case HTML:
		return parseHTML(source)
	case Text:
		doc, warns := parseText(source)
		return doc, warns, nil
	default:
		return nil, nil, fmt.Errorf("unsupported parse mode %q", mode)
	}
}

// lineStart returns the offset of the first byte of the line containing i.
func lineStart(source string, i int) int {
	if i > len(source) {
		i = len(source)
	}
	j := strings.LastIndexByte(source[:i], '\n')
	return j + 1
}

// lineEnd returns the offset one past the last byte of the line containing
// i, excluding the newline itself.
func lineEnd(source string, i int) int {
	if i >= len(source) {
		return len(source)
	}
	j := strings.IndexByte(source[i:], '\n')
	if j < 0 {
		return len(source)
	}
	return i + j
}

// expandToLines widens [start,end) to full line bounds so markers the AST
// drops (heading hashes, list bullets, quote angles, table pipes) stay in
// the block text.
func expandToLines(source string, start, end int) (int, int) {
	return lineStart(source, start), lineEnd(source, end)
}

type headingFrame struct {
	level int
	title string
}

// headingStack tracks the ancestor headings of the current position. Each
// block gets a snapshot, not a live reference.
type headingStack struct {
	frames []headingFrame
}

func (h *headingStack) push(level int, title string) {
	for len(h.frames) > 0 && h.frames[len(h.frames)-1].level >= level {
		h.frames = h.frames[:len(h.frames)-1]
	}
	h.frames = append(h.frames, headingFrame{level: level, title: title})
}

func (h *headingStack) path() []string {
	if len(h.frames) == 0 {
		return nil
	}
	p := make([]string, len(h.frames))
	for i, f := range h.frames {
		p[i] = f.title
	}
	return p
}
