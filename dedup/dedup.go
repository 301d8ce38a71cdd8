// Package dedup collapses near-duplicate chunks. The earlier chunk always
// survives; the survivor's span is never widened to cover a dropped one.
package dedup

import (
	"hash/fnv"
	"strings"

	"github.com/kljensen/snowball"

	"smartchunk/chunk"
	"smartchunk/pkg/embedding"
)

const (
	defaultWindow = 8
	shingleSize   = 3
)

type Collapser struct {
	threshold float64
	window    int // retained chunks compared against, bounding the pass
}

func New(threshold float64, window int) *Collapser {
	if window < 1 {
		window = defaultWindow
	}
	return &Collapser{threshold: threshold, window: window}
}

type fingerprint struct {
	vec      []float32
	shingles map[uint64]struct{}
	norm     string
}

// Collapse drops chunks that duplicate an earlier chunk within the sliding
// neighborhood. Exact duplicates always collapse; near-duplicates collapse
// at or above the configured threshold.
func (c *Collapser) Collapse(chunks []chunk.Chunk, units []chunk.Unit) ([]chunk.Chunk, []chunk.Dropped) {
	if len(chunks) < 2 {
		return chunks, nil
	}

	kept := make([]chunk.Chunk, 0, len(chunks))
	keptPrints := make([]fingerprint, 0, len(chunks))
	var dropped []chunk.Dropped

	for _, ch := range chunks {
		fp := c.fingerprint(&ch, units)

		lo := len(kept) - c.window
		if lo < 0 {
			lo = 0
		}

		dup := false
		for i := len(kept) - 1; i >= lo; i-- {
			sim := similarity(&keptPrints[i], &fp)
			if fp.norm == keptPrints[i].norm || float64(sim) >= c.threshold {
				dropped = append(dropped, chunk.Dropped{
					ID:          ch.ID,
					DuplicateOf: kept[i].ID,
					Similarity:  sim,
				})
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		kept = append(kept, ch)
		keptPrints = append(keptPrints, fp)
	}

	return kept, dropped
}

// fingerprint prefers the mean unit embedding; without embeddings it falls
// back to a shingled hash of stemmed word trigrams.
func (c *Collapser) fingerprint(ch *chunk.Chunk, units []chunk.Unit) fingerprint {
	var vectors [][]float32
	for i := ch.FirstUnit; i <= ch.LastUnit && i < len(units); i++ {
		vectors = append(vectors, units[i].Embedding)
	}

	return fingerprint{
		vec:      embedding.Mean(vectors),
		shingles: shingleSet(ch.Text),
		norm:     strings.Join(strings.Fields(ch.Text), " "),
	}
}

func similarity(a, b *fingerprint) float32 {
	if len(a.vec) > 0 && len(b.vec) > 0 {
		return embedding.CosineSimilarity(a.vec, b.vec)
	}
	return jaccard(a.shingles, b.shingles)
}

func jaccard(a, b map[uint64]struct{}) float32 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for s := range small {
		if _, ok := large[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float32(inter) / float32(union)
}

// shingleSet hashes stemmed word trigrams, so trivially reworded
// duplicates still land on the same shingles.
func shingleSet(text string) map[uint64]struct{} {
	words := strings.Fields(strings.ToLower(text))
	stems := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?\"'():;[]{}#*`|")
		if w == "" {
			continue
		}
		if stemmed, err := snowball.Stem(w, "english", false); err == nil {
			w = stemmed
		}
		stems = append(stems, w)
	}

	set := make(map[uint64]struct{})
	if len(stems) == 0 {
		return set
	}
	if len(stems) < shingleSize {
		set[hashShingle(stems)] = struct{}{}
		return set
	}
	for i := 0; i+shingleSize <= len(stems); i++ {
		set[hashShingle(stems[i:i+shingleSize])] = struct{}{}
	}
	return set
}

func hashShingle(words []string) uint64 {
	h := fnv.New64a()
	for _, w := range words {
		h.Write([]byte(w))
		h.Write([]byte{0})
	}
	return h.Sum64()
}
