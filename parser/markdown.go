package parser

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"smartchunk/chunk"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

func parseMarkdown(source string) (*chunk.Document, []chunk.Warning) {
	src := []byte(source)
	root := markdown.Parser().Parse(text.NewReader(src))

	w := &mdWalker{source: source, src: src}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.visit(n)
	}

	return &chunk.Document{Source: source, Blocks: w.blocks}, w.warnings
}

type mdWalker struct {
	source   string
	src      []byte
	stack    headingStack
	blocks   []chunk.Block
	warnings []chunk.Warning
}

func (w *mdWalker) visit(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		start, end, ok := nodeSpan(n)
		if !ok {
			return
		}
		start, end = expandToLines(w.source, start, end)
		title := plainText(n, w.src)
		w.stack.push(node.Level, title)
		w.append(chunk.Block{
			Kind:  chunk.Heading,
			Level: node.Level,
			Start: start,
			End:   end,
		})

	case *ast.FencedCodeBlock:
		w.visitFence(node)

	case *ast.CodeBlock:
		// Indented code: expanding to line bounds keeps the indentation.
		start, end, ok := nodeSpan(n)
		if !ok {
			return
		}
		start, end = expandToLines(w.source, start, end)
		w.append(chunk.Block{Kind: chunk.CodeFence, Atomic: true, Start: start, End: end})

	case *extast.Table:
		// The span over all cell segments covers the separator row too,
		// since it sits between the header and the first data row.
		start, end, ok := nodeSpan(n)
		if !ok {
			return
		}
		start, end = expandToLines(w.source, start, end)
		w.append(chunk.Block{Kind: chunk.Table, Atomic: true, Start: start, End: end})

	case *ast.List:
		for item := n.FirstChild(); item != nil; item = item.NextSibling() {
			start, end, ok := nodeSpan(item)
			if !ok {
				continue
			}
			start, end = expandToLines(w.source, start, end)
			w.append(chunk.Block{Kind: chunk.ListItem, Start: start, End: end})
		}

	case *ast.Blockquote:
		start, end, ok := nodeSpan(n)
		if !ok {
			return
		}
		start, end = expandToLines(w.source, start, end)
		w.append(chunk.Block{Kind: chunk.Quote, Start: start, End: end})

	case *ast.ThematicBreak:
		// No indexable text.

	default:
		start, end, ok := nodeSpan(n)
		if !ok {
			return
		}
		w.append(chunk.Block{Kind: chunk.Paragraph, Start: start, End: end})
	}
}

// visitFence locates the fence lines around the content segments so the
// block text carries the fence verbatim. A fence with no closing line is
// treated as atomic through end-of-document and reported as a warning.
func (w *mdWalker) visitFence(n *ast.FencedCodeBlock) {
	lines := n.Lines()

	var contentStart, contentEnd int
	switch {
	case lines.Len() > 0:
		contentStart = lines.At(0).Start
		contentEnd = lines.At(0).Stop
		for i := 1; i < lines.Len(); i++ {
			if s := lines.At(i).Stop; s > contentEnd {
				contentEnd = s
			}
		}
	case n.Info != nil:
		// Empty fence with an info string: the info segment sits on the
		// opening fence line.
		contentStart = lineEnd(w.source, n.Info.Segment.Start)
		if contentStart < len(w.source) {
			contentStart++ // past the newline
		}
		contentEnd = contentStart
	default:
		// Empty fence with no info string leaves no locatable segment.
		return
	}

	start := contentStart
	if contentStart > 0 {
		start = lineStart(w.source, contentStart-1)
	}

	end, terminated := fenceClose(w.source, contentEnd)
	if !terminated {
		w.warnings = append(w.warnings, chunk.Warning{
			Kind:    chunk.WarnUnterminatedFence,
			Message: "unterminated code fence, treated as atomic through end of document",
			Offset:  start,
		})
	}

	w.append(chunk.Block{Kind: chunk.CodeFence, Atomic: true, Start: start, End: end})
}

// fenceClose looks for a closing fence on the line at offset i or the one
// after it (content segments may or may not include the final newline). It
// returns the block end offset and whether a closing fence was found.
func fenceClose(source string, i int) (int, bool) {
	for step := 0; step < 2; step++ {
		if i >= len(source) {
			return len(source), false
		}
		le := lineEnd(source, i)
		line := strings.TrimSpace(source[i:le])
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			return le, true
		}
		i = le + 1
	}
	return len(source), false
}

func (w *mdWalker) append(b chunk.Block) {
	b.Text = w.source[b.Start:b.End]
	b.HeadingPath = w.stack.path()
	w.blocks = append(w.blocks, b)
}

// nodeSpan returns the byte span covered by the node's subtree: line
// segments of block descendants plus segments of inline text nodes (table
// cells only carry the latter).
func nodeSpan(n ast.Node) (int, int, bool) {
	start, end := -1, -1
	grow := func(s, e int) {
		if start == -1 || s < start {
			start = s
		}
		if e > end {
			end = e
		}
	}

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Type() == ast.TypeBlock {
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				grow(seg.Start, seg.Stop)
			}
		}
		if t, ok := node.(*ast.Text); ok {
			grow(t.Segment.Start, t.Segment.Stop)
		}
		return ast.WalkContinue, nil
	})

	return start, end, start != -1
}

// plainText flattens the inline text of a node, used for heading titles.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
