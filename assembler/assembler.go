// Package assembler packs units into chunks under a token budget,
// preferring semantic split points and never crossing structural
// boundaries. Output order is strictly document order; ids are sequential.
package assembler

import (
	"strings"

	"smartchunk/chunk"
	"smartchunk/pkg/embedding"
)

const defaultLookback = 5

type Config struct {
	MaxTokens     int
	OverlapTokens int
	Lookback      int // close-point search window, in units
}

type Assembler struct {
	cfg Config
}

func New(cfg Config) *Assembler {
	if cfg.Lookback < 1 {
		cfg.Lookback = defaultLookback
	}
	return &Assembler{cfg: cfg}
}

// Assemble runs a single forward pass over the unit sequence. A chunk
// closes when the next unit would exceed the budget or the next position
// is structural; within the lookback window a semantic candidate wins over
// closing exactly at the ceiling. An atomic unit larger than the budget
// becomes its own chunk, flagged oversized rather than truncated.
func (a *Assembler) Assemble(doc *chunk.Document, units []chunk.Unit, bounds []chunk.Boundary) []chunk.Chunk {
	if len(units) == 0 {
		return nil
	}

	structural := make([]bool, len(units))
	semantic := make([]bool, len(units))
	for _, b := range bounds {
		switch b.Strength {
		case chunk.Structural:
			structural[b.After] = true
		case chunk.Semantic:
			semantic[b.After] = true
		}
	}

	var chunks []chunk.Chunk
	start := 0
	for start < len(units) {
		end, total := a.grow(units, structural, start)

		// Stopped at the token ceiling with no boundary at the close
		// point: pull the close back to the nearest semantic valley.
		atCeiling := end+1 < len(units) && !structural[end] &&
			total+units[end+1].Tokens > a.cfg.MaxTokens
		if atCeiling && !semantic[end] {
			if p := a.lookback(semantic, start, end); p >= 0 {
				end = p
			}
		}

		chunks = append(chunks, a.build(doc, units, len(chunks)+1, start, end))

		if end+1 >= len(units) {
			break
		}
		start = a.nextStart(units, structural, start, end)
	}

	return chunks
}

func (a *Assembler) grow(units []chunk.Unit, structural []bool, start int) (int, int) {
	end := start
	total := units[start].Tokens
	for end+1 < len(units) {
		if structural[end] {
			break
		}
		if total+units[end+1].Tokens > a.cfg.MaxTokens {
			break
		}
		end++
		total += units[end].Tokens
	}
	return end, total
}

// lookback returns the closest semantic close point before end within the
// window, or -1.
func (a *Assembler) lookback(semantic []bool, start, end int) int {
	lo := end - a.cfg.Lookback
	if lo < start {
		lo = start
	}
	for p := end - 1; p >= lo; p-- {
		if semantic[p] {
			return p
		}
	}
	return -1
}

// nextStart rewinds from the close point by up to OverlapTokens worth of
// trailing units. The overlap never re-crosses a structural boundary
// backward and never eats the room the next unit needs to fit the budget.
func (a *Assembler) nextStart(units []chunk.Unit, structural []bool, start, end int) int {
	ns := end + 1
	if a.cfg.OverlapTokens <= 0 || structural[end] {
		return ns
	}

	budget := a.cfg.OverlapTokens
	if room := a.cfg.MaxTokens - units[end+1].Tokens; room < budget {
		budget = room
	}

	tok := 0
	for ns-1 > start {
		cand := ns - 1
		if structural[cand] {
			break
		}
		if tok+units[cand].Tokens > budget {
			break
		}
		tok += units[cand].Tokens
		ns = cand
	}
	return ns
}

func (a *Assembler) build(doc *chunk.Document, units []chunk.Unit, id, start, end int) chunk.Chunk {
	var sb strings.Builder
	total := 0
	for i := start; i <= end; i++ {
		if i > start && units[i].Block != units[i-1].Block {
			sb.WriteString("\n\n")
		}
		sb.WriteString(units[i].Text)
		total += units[i].Tokens
	}

	firstBlock := &doc.Blocks[units[start].Block]
	return chunk.Chunk{
		ID:          id,
		Text:        sb.String(),
		Tokens:      total,
		Start:       units[start].Start,
		End:         units[end].End,
		HeadingPath: firstBlock.HeadingPath,
		Coherence:   coherence(units[start : end+1]),
		Oversized:   total > a.cfg.MaxTokens,
		FirstUnit:   start,
		LastUnit:    end,
	}
}

// coherence is the mean pairwise similarity among the chunk's embedded
// units. It is diagnostic only and never gates admission.
func coherence(units []chunk.Unit) float32 {
	var embedded [][]float32
	for i := range units {
		if len(units[i].Embedding) > 0 {
			embedded = append(embedded, units[i].Embedding)
		}
	}
	if len(embedded) == 0 {
		return 0
	}
	if len(embedded) == 1 {
		return 1
	}

	var sum float64
	var pairs int
	for i := 0; i < len(embedded); i++ {
		for j := i + 1; j < len(embedded); j++ {
			sum += float64(embedding.CosineSimilarity(embedded[i], embedded[j]))
			pairs++
		}
	}
	return float32(sum / float64(pairs))
}
