// Package filter removes boilerplate blocks and normalizes whitespace
// ahead of segmentation. Removing a block is irreversible for the run.
package filter

import (
	"strings"

	"smartchunk/chunk"
)

// NormalizeWhitespace collapses whitespace runs to single spaces inside
// non-atomic blocks, keeping a byte map back to the source so unit offsets
// stay faithful to the retrieved text. Atomic block interiors (code
// indentation, table layout) are preserved verbatim beyond edge trimming.
func NormalizeWhitespace(doc *chunk.Document) {
	for i := range doc.Blocks {
		b := &doc.Blocks[i]
		if b.Atomic {
			trimEdges(b)
			continue
		}
		norm, offsets := collapse(b)
		b.SetText(norm, offsets)
	}
}

// collapse rewrites the block text with single-space whitespace runs and
// returns the offset of every normalized byte in the source. ASCII
// whitespace bytes never occur inside multi-byte UTF-8 sequences, so a
// byte scan is safe.
func collapse(b *chunk.Block) (string, []int) {
	text := b.Text
	var sb strings.Builder
	sb.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)

	inSpace := false
	for i := 0; i < len(text); i++ {
		c := text[i]
		if isSpace(c) {
			if !inSpace {
				sb.WriteByte(' ')
				offsets = append(offsets, b.SourceOffset(i))
			}
			inSpace = true
			continue
		}
		inSpace = false
		sb.WriteByte(c)
		offsets = append(offsets, b.SourceOffset(i))
	}

	norm := sb.String()

	// Trim a single leading/trailing space left by edge whitespace.
	if strings.HasPrefix(norm, " ") {
		norm = norm[1:]
		offsets = offsets[1:]
	}
	if strings.HasSuffix(norm, " ") {
		norm = norm[:len(norm)-1]
		offsets = offsets[:len(offsets)-1]
	}

	offsets = append(offsets, b.SourceOffset(len(text)))
	return norm, offsets
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\f', '\v':
		return true
	}
	return false
}

// trimEdges drops whole blank lines at the edges of an atomic block,
// adjusting the source span. Indentation on a content line is part of the
// block body and is never touched.
func trimEdges(b *chunk.Block) {
	text := b.Text

	lead := 0
	for lead < len(text) {
		nl := strings.IndexByte(text[lead:], '\n')
		if nl < 0 {
			break
		}
		if strings.TrimSpace(text[lead:lead+nl]) != "" {
			break
		}
		lead += nl + 1
	}

	tail := len(text)
	for tail > lead {
		nl := strings.LastIndexByte(text[lead:tail], '\n')
		if nl < 0 {
			break
		}
		if strings.TrimSpace(text[lead+nl+1:tail]) != "" {
			break
		}
		tail = lead + nl
	}

	if lead == 0 && tail == len(text) {
		return
	}
	b.Text = text[lead:tail]
	b.Start += lead
	b.End = b.Start + (tail - lead)
}

// RemoveBoilerplate drops blocks whose normalized text recurs verbatim in
// a majority of the given same-template pages (repeated headers, footers,
// navigation chrome). It needs at least two pages to act.
func RemoveBoilerplate(pages []*chunk.Document) {
	if len(pages) < 2 {
		return
	}

	// Count the pages each normalized block text appears in.
	seenIn := make(map[string]int)
	for _, page := range pages {
		onPage := make(map[string]struct{})
		for i := range page.Blocks {
			key := boilerplateKey(&page.Blocks[i])
			if key == "" {
				continue
			}
			if _, ok := onPage[key]; ok {
				continue
			}
			onPage[key] = struct{}{}
			seenIn[key]++
		}
	}

	for _, page := range pages {
		kept := page.Blocks[:0]
		for i := range page.Blocks {
			key := boilerplateKey(&page.Blocks[i])
			if key != "" && seenIn[key]*2 > len(pages) {
				continue
			}
			kept = append(kept, page.Blocks[i])
		}
		page.Blocks = kept
	}
}

func boilerplateKey(b *chunk.Block) string {
	return strings.Join(strings.Fields(b.Text), " ")
}
