// Package baseline provides structure-blind chunkers for comparison runs:
// a fixed-width character splitter and a recursive-character splitter.
// They demonstrate the failure modes the engine exists to avoid.
package baseline

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"smartchunk/chunk"
)

// Naive splits text into fixed-width character chunks with no structural
// awareness.
func Naive(text string, maxChars int) []chunk.Chunk {
	if maxChars <= 0 || text == "" {
		return nil
	}

	var chunks []chunk.Chunk
	for i := 0; i < len(text); i += maxChars {
		end := i + maxChars
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, chunk.Chunk{
			ID:    len(chunks) + 1,
			Text:  text[i:end],
			Start: i,
			End:   end,
		})
	}
	return chunks
}

// Recursive splits text with langchaingo's recursive character splitter
// (paragraph, line, word separators in order). Offsets are recovered by
// cursor search; overlapping chunks rewind the cursor by the overlap.
func Recursive(text string, chunkSize, overlap int) ([]chunk.Chunk, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)

	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	var chunks []chunk.Chunk
	cursor := 0
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		from := cursor - overlap - len(part)
		if from < 0 {
			from = 0
		}
		idx := strings.Index(text[from:], part)
		start := 0
		if idx >= 0 {
			start = from + idx
		}
		end := start + len(part)
		chunks = append(chunks, chunk.Chunk{
			ID:    len(chunks) + 1,
			Text:  part,
			Start: start,
			End:   end,
		})
		if end > cursor {
			cursor = end
		}
	}
	return chunks, nil
}
