// Package boundary turns the unit sequence into a set of candidate split
// points: structural boundaries at heading and atomic-block edges, and
// semantic boundaries at similarity valleys between adjacent units.
package boundary

import (
	"context"

	"go.uber.org/zap"

	"smartchunk/chunk"
	"smartchunk/pkg/embedding"
)

type Scorer struct {
	embed        embedding.Client
	batchSize    int
	minSim       float64
	valleyWindow int
	logger       *zap.Logger
}

func NewScorer(embed embedding.Client, minSim float64, valleyWindow, batchSize int, logger *zap.Logger) *Scorer {
	if valleyWindow < 1 {
		valleyWindow = 1
	}
	if batchSize < 1 {
		batchSize = 32
	}
	return &Scorer{
		embed:        embed,
		batchSize:    batchSize,
		minSim:       minSim,
		valleyWindow: valleyWindow,
		logger:       logger,
	}
}

// Score computes the boundary set for the unit sequence and the number of
// units whose semantic scores had to be degraded to structural-only.
// Embeddings are written back onto the units, cached for the run.
func (s *Scorer) Score(ctx context.Context, doc *chunk.Document, units []chunk.Unit) ([]chunk.Boundary, int) {
	degraded := s.embedUnits(ctx, doc, units)

	var bounds []chunk.Boundary
	structural := make([]bool, maxInt(len(units)-1, 0))
	for i := 0; i+1 < len(units); i++ {
		if isStructural(doc, &units[i], &units[i+1]) {
			structural[i] = true
			bounds = append(bounds, chunk.Boundary{After: i, Strength: chunk.Structural})
		}
	}

	// Similarity curve over adjacent embedded pairs. A missing embedding
	// leaves the position boundary-agnostic.
	sims := make([]float32, maxInt(len(units)-1, 0))
	valid := make([]bool, len(sims))
	for i := range sims {
		if structural[i] {
			continue
		}
		a, b := units[i].Embedding, units[i+1].Embedding
		if len(a) == 0 || len(b) == 0 {
			continue
		}
		sims[i] = embedding.CosineSimilarity(a, b)
		valid[i] = true
	}

	for i := range sims {
		if !valid[i] || float64(sims[i]) >= s.minSim {
			continue
		}
		if !s.isValley(sims, valid, i) {
			continue
		}
		bounds = append(bounds, chunk.Boundary{After: i, Strength: chunk.Semantic, Score: sims[i]})
	}

	return bounds, degraded
}

// isStructural reports whether the position between a and b can never be
// crossed by a chunk: a heading starts, or an atomic block starts or ends.
func isStructural(doc *chunk.Document, a, b *chunk.Unit) bool {
	if a.Block == b.Block {
		return false
	}
	blockA := &doc.Blocks[a.Block]
	blockB := &doc.Blocks[b.Block]
	return blockB.Kind == chunk.Heading || blockA.Atomic || blockB.Atomic
}

// isValley reports whether sims[i] is a local minimum among its valid
// neighbors within the window.
func (s *Scorer) isValley(sims []float32, valid []bool, i int) bool {
	for d := 1; d <= s.valleyWindow; d++ {
		if j := i - d; j >= 0 && valid[j] && sims[j] < sims[i] {
			return false
		}
		if j := i + d; j < len(sims) && valid[j] && sims[j] < sims[i] {
			return false
		}
	}
	return true
}

// embedUnits fills unit embeddings in batches, skipping atomic-block units
// and units already embedded. A failed batch degrades its units to
// structural-only boundaries; the run continues.
func (s *Scorer) embedUnits(ctx context.Context, doc *chunk.Document, units []chunk.Unit) int {
	var pending []int
	for i := range units {
		if doc.Blocks[units[i].Block].Atomic {
			continue
		}
		if units[i].Embedding != nil {
			continue
		}
		pending = append(pending, i)
	}

	degraded := 0
	for start := 0; start < len(pending); start += s.batchSize {
		end := start + s.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = units[idx].Text
		}

		vectors, err := s.embed.GetEmbeddings(ctx, texts)
		if err != nil || len(vectors) != len(batch) {
			degraded += len(batch)
			s.logger.Warn("embedding batch failed, degrading to structural boundaries",
				zap.Int("start", start),
				zap.Int("end", end),
				zap.Error(err))
			continue
		}

		for j, idx := range batch {
			units[idx].Embedding = vectors[j]
		}
	}

	return degraded
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
