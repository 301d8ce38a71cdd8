package assembler

import (
	"strings"
	"testing"

	"smartchunk/chunk"
)

func paragraphDoc() *chunk.Document {
	return &chunk.Document{Blocks: []chunk.Block{{Kind: chunk.Paragraph}}}
}

func flatUnits(tokens ...int) []chunk.Unit {
	units := make([]chunk.Unit, len(tokens))
	pos := 0
	for i, n := range tokens {
		units[i] = chunk.Unit{
			Text:   strings.Repeat("w ", n-1) + "w",
			Tokens: n,
			Block:  0,
			Pos:    i,
			Start:  pos,
			End:    pos + n,
		}
		pos += n
	}
	return units
}

func TestAssembleRespectsTokenBudget(t *testing.T) {
	units := flatUnits(100, 100, 100, 100, 100, 100)
	asm := New(Config{MaxTokens: 250})

	chunks := asm.Assemble(paragraphDoc(), units, nil)

	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	for _, c := range chunks {
		if c.Tokens > 250 {
			t.Errorf("chunk %d has %d tokens, budget 250", c.ID, c.Tokens)
		}
		if c.Oversized {
			t.Errorf("chunk %d flagged oversized within budget", c.ID)
		}
	}

	// Every unit appears exactly once, in order, with no overlap.
	next := 0
	for _, c := range chunks {
		if c.FirstUnit != next {
			t.Fatalf("chunk %d starts at unit %d, want %d", c.ID, c.FirstUnit, next)
		}
		next = c.LastUnit + 1
	}
	if next != len(units) {
		t.Fatalf("chunks cover %d units, want %d", next, len(units))
	}
}

func TestAssemblePrefersSemanticClosePoint(t *testing.T) {
	// The budget runs out mid-topic; the close point pulls back to the
	// semantic valley after unit 1 instead of splitting arbitrarily.
	units := flatUnits(400, 400, 150, 400)
	bounds := []chunk.Boundary{{After: 1, Strength: chunk.Semantic, Score: 0.2}}
	asm := New(Config{MaxTokens: 1000, Lookback: 5})

	chunks := asm.Assemble(paragraphDoc(), units, bounds)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].LastUnit != 1 {
		t.Errorf("first chunk closes at unit %d, want 1 (the semantic valley)", chunks[0].LastUnit)
	}
	if chunks[1].FirstUnit != 2 || chunks[1].LastUnit != 3 {
		t.Errorf("second chunk spans [%d,%d], want [2,3]", chunks[1].FirstUnit, chunks[1].LastUnit)
	}
}

func TestAssembleNeverCrossesStructural(t *testing.T) {
	units := flatUnits(50, 50, 50, 50)
	bounds := []chunk.Boundary{{After: 1, Strength: chunk.Structural}}
	asm := New(Config{MaxTokens: 1000})

	chunks := asm.Assemble(paragraphDoc(), units, bounds)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].LastUnit != 1 || chunks[1].FirstUnit != 2 {
		t.Errorf("chunks span [%d,%d] and [%d,%d], structural boundary after 1 was crossed",
			chunks[0].FirstUnit, chunks[0].LastUnit, chunks[1].FirstUnit, chunks[1].LastUnit)
	}
}

func TestAssembleOversizedAtomicEmittedWhole(t *testing.T) {
	doc := &chunk.Document{Blocks: []chunk.Block{
		{Kind: chunk.Paragraph},
		{Kind: chunk.CodeFence, Atomic: true},
		{Kind: chunk.Paragraph},
	}}
	units := []chunk.Unit{
		{Text: "intro", Tokens: 100, Block: 0, Pos: 0},
		{Text: "giant fence body", Tokens: 3000, Block: 1, Pos: 1},
		{Text: "outro", Tokens: 100, Block: 2, Pos: 2},
	}
	bounds := []chunk.Boundary{
		{After: 0, Strength: chunk.Structural},
		{After: 1, Strength: chunk.Structural},
	}
	asm := New(Config{MaxTokens: 1000, OverlapTokens: 50})

	chunks := asm.Assemble(doc, units, bounds)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	fence := chunks[1]
	if !fence.Oversized {
		t.Error("fence chunk not flagged oversized")
	}
	if fence.Tokens != 3000 {
		t.Errorf("fence chunk tokens = %d, want 3000 (never truncated)", fence.Tokens)
	}
	if fence.Text != "giant fence body" {
		t.Errorf("fence chunk text = %q", fence.Text)
	}
	if chunks[0].Oversized || chunks[2].Oversized {
		t.Error("neighbor chunks wrongly flagged oversized")
	}
}

func TestAssembleOverlapRepeatsTrailingUnits(t *testing.T) {
	units := flatUnits(50, 50, 50, 50, 50, 50)
	asm := New(Config{MaxTokens: 200, OverlapTokens: 50})

	chunks := asm.Assemble(paragraphDoc(), units, nil)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	if chunks[1].FirstUnit != chunks[0].LastUnit {
		t.Errorf("second chunk starts at unit %d, want %d (one overlapping unit)",
			chunks[1].FirstUnit, chunks[0].LastUnit)
	}
	for _, c := range chunks {
		if c.Tokens > 200 {
			t.Errorf("chunk %d exceeds budget with overlap: %d tokens", c.ID, c.Tokens)
		}
	}
}

func TestAssembleOverlapStopsAtStructural(t *testing.T) {
	units := flatUnits(50, 50, 50, 50)
	bounds := []chunk.Boundary{{After: 1, Strength: chunk.Structural}}
	asm := New(Config{MaxTokens: 100, OverlapTokens: 50})

	chunks := asm.Assemble(paragraphDoc(), units, bounds)

	// The overlap never rewinds across the structural boundary after
	// unit 1, so the chunk following it starts fresh at unit 2.
	for i := 1; i < len(chunks); i++ {
		if chunks[i-1].LastUnit == 1 && chunks[i].FirstUnit != 2 {
			t.Errorf("chunk %d starts at unit %d, overlap crossed a structural boundary",
				chunks[i].ID, chunks[i].FirstUnit)
		}
	}
}

func TestAssembleJoinsBlocksWithBlankLine(t *testing.T) {
	doc := &chunk.Document{Blocks: []chunk.Block{
		{Kind: chunk.Paragraph},
		{Kind: chunk.Paragraph},
	}}
	units := []chunk.Unit{
		{Text: "First block.", Tokens: 2, Block: 0, Pos: 0},
		{Text: "Second block.", Tokens: 2, Block: 1, Pos: 1},
	}
	asm := New(Config{MaxTokens: 100})

	chunks := asm.Assemble(doc, units, nil)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != "First block.\n\nSecond block." {
		t.Errorf("chunk text = %q", chunks[0].Text)
	}
}

func TestAssembleCarriesHeadingPath(t *testing.T) {
	doc := &chunk.Document{Blocks: []chunk.Block{
		{Kind: chunk.Paragraph, HeadingPath: []string{"Guide", "Install"}},
	}}
	units := []chunk.Unit{{Text: "Run the installer.", Tokens: 3, Block: 0, Pos: 0}}

	chunks := New(Config{MaxTokens: 100}).Assemble(doc, units, nil)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	got := chunks[0].HeadingPath
	if len(got) != 2 || got[0] != "Guide" || got[1] != "Install" {
		t.Errorf("heading path = %v, want [Guide Install]", got)
	}
}

func TestAssembleSequentialIDsAndOffsets(t *testing.T) {
	units := flatUnits(10, 10, 10)
	chunks := New(Config{MaxTokens: 15}).Assemble(paragraphDoc(), units, nil)

	for i, c := range chunks {
		if c.ID != i+1 {
			t.Errorf("chunk %d has id %d", i, c.ID)
		}
		if c.Start != units[c.FirstUnit].Start || c.End != units[c.LastUnit].End {
			t.Errorf("chunk %d offsets [%d,%d] do not match its units", c.ID, c.Start, c.End)
		}
	}
}

func TestAssembleEmptyInput(t *testing.T) {
	if got := New(Config{MaxTokens: 100}).Assemble(paragraphDoc(), nil, nil); got != nil {
		t.Errorf("expected nil for empty unit sequence, got %v", got)
	}
}
