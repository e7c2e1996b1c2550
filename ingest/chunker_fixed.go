package ingest

import rag "github.com/asedra/arketic-rag"

// FixedChunker implements the fixed-size strategy: split on the most
// specific separator present, pack fragments into chunks up to maxSize, and
// carry an overlap suffix from each chunk into the next so boundary context
// is not lost. Chunk offsets always mark the owned region of the source;
// overlap text is prepended to Content but never extends the offsets, so
// concatenating chunks by offset reconstructs the input exactly.
type FixedChunker struct {
	cfg chunkerConfig
}

var _ Chunker = (*FixedChunker)(nil)

// NewFixedChunker creates a fixed-size chunker.
func NewFixedChunker(opts ...ChunkerOption) (*FixedChunker, error) {
	cfg := defaultChunkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &FixedChunker{cfg: cfg}, nil
}

// Chunk splits text into overlapping fixed-size chunks. Empty or
// whitespace-only input yields no chunks.
func (f *FixedChunker) Chunk(text string) []rag.Chunk {
	if isBlank(text) {
		return nil
	}

	sep := f.pickSeparator(text)
	fragments := splitSpans(text, span{0, len(text)}, sep)
	fragments = mergeBlankSpans(text, fragments)

	// Oversized fragments are hard-split so packing can always make progress.
	var atoms []span
	for _, fr := range fragments {
		if f.cfg.length(fr.text(text)) > f.cfg.maxSize {
			atoms = append(atoms, forceSplitSpan(text, fr, f.cfg.maxSize, f.cfg.length)...)
		} else {
			atoms = append(atoms, fr)
		}
	}

	groups := packSpans(text, atoms, f.cfg.maxSize, f.cfg.length)

	chunks := make([]rag.Chunk, 0, len(groups))
	var prevTail string
	for _, g := range groups {
		c := makeChunk(text, g, StrategyFixed.String(), 0, f.cfg.length)
		if prevTail != "" {
			c.Content = prevTail + c.Content
			c.Size = f.cfg.length(c.Content)
		}
		f.flagSize(&c)
		chunks = append(chunks, c)
		prevTail = suffixByLength(g.text(text), f.cfg.overlap, f.cfg.length)
	}
	return number(chunks)
}

// pickSeparator returns the most specific configured separator that occurs
// in the text, falling back to the finest one.
func (f *FixedChunker) pickSeparator(text string) string {
	for _, sep := range f.cfg.separators {
		if sep != "" && containsSep(text, sep) {
			return sep
		}
	}
	return f.cfg.separators[len(f.cfg.separators)-1]
}

func (f *FixedChunker) flagSize(c *rag.Chunk) {
	flagChunkSize(c, f.cfg)
}
