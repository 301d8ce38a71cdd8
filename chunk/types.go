package chunk

type BlockKind string

const (
	Heading   BlockKind = "heading"
	Paragraph BlockKind = "paragraph"
	ListItem  BlockKind = "list_item"
	Table     BlockKind = "table"
	CodeFence BlockKind = "code_fence"
	Quote     BlockKind = "quote"
)

// Block is a maximal structural unit of the working source. Blocks are
// created once, in document order, and only the noise filter may rewrite
// their text or remove them.
type Block struct {
	Kind        BlockKind
	Level       int      // heading depth, 0 for non-headings
	Text        string   // raw text; whitespace-normalized by the noise filter
	HeadingPath []string // snapshot of ancestor heading texts at creation
	Atomic      bool     // tables and code fences are never subdivided
	Start       int      // byte offset into Document.Source
	End         int

	// offsetMap maps byte i of Text back to its offset in Document.Source.
	// Nil means identity: offset = Start + i. The noise filter installs a
	// map when normalization changes byte positions.
	offsetMap []int
}

// SourceOffset returns the source offset of byte i of the block text.
func (b *Block) SourceOffset(i int) int {
	if b.offsetMap == nil {
		return b.Start + i
	}
	return b.offsetMap[i]
}

// SetText replaces the block text with a rewritten form and the offset map
// tying each byte of it back to the source. len(offsets) must be
// len(text)+1, the final entry being the offset one past the last byte.
func (b *Block) SetText(text string, offsets []int) {
	b.Text = text
	b.offsetMap = offsets
}

// Unit is a sentence-or-clause-level span inside one block. A unit never
// spans two blocks; an atomic block is exactly one unit.
type Unit struct {
	Text      string
	Tokens    int
	Block     int // index into Document.Blocks
	Pos       int // monotonic index within the full unit sequence
	Start     int // source offsets
	End       int
	Embedding []float32 // set once by the boundary scorer, cached for the run
}

type Strength string

const (
	Structural Strength = "structural"
	Semantic   Strength = "semantic"
)

// Boundary marks the position between unit After and unit After+1 as a
// candidate split point. Structural boundaries cannot be crossed.
type Boundary struct {
	After    int
	Strength Strength
	Score    float32 // adjacent-unit similarity for semantic boundaries
}

// Chunk is an ordered, contiguous run of units. Once emitted it is
// immutable.
type Chunk struct {
	ID          int      `json:"id"`
	Text        string   `json:"text"`
	Tokens      int      `json:"token_count"` // recomputed sum of unit counts
	Start       int      `json:"start_offset"`
	End         int      `json:"end_offset"`
	HeadingPath []string `json:"heading_path"`
	Coherence   float32  `json:"coherence_score"` // mean pairwise unit similarity
	Oversized   bool     `json:"oversized"`

	FirstUnit int `json:"-"`
	LastUnit  int `json:"-"`
}

// Document is the parsed working form of one input. Source is the text all
// offsets refer to; for HTML inputs it is the converted markdown.
type Document struct {
	Source string
	Blocks []Block
}

// Warning is a recoverable condition collected during a run.
type Warning struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Offset  int    `json:"offset"`
}

const (
	WarnUnterminatedFence = "unterminated_fence"
	WarnExtractionFail    = "extraction_fallback"
	WarnTokenEstimate     = "token_count_estimated"
)

// Dropped records a chunk removed by the dedup collapser.
type Dropped struct {
	ID          int     `json:"id"`
	DuplicateOf int     `json:"duplicate_of"`
	Similarity  float32 `json:"similarity"`
}

// Report carries every non-fatal condition of a run so the caller can
// decide how to react.
type Report struct {
	Warnings      []Warning `json:"warnings,omitempty"`
	DegradedUnits int       `json:"degraded_units"` // units without semantic scores
	Oversized     []int     `json:"oversized,omitempty"`
	Dropped       []Dropped `json:"dropped,omitempty"`
}
