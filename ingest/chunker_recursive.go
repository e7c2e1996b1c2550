package ingest

import (
	"regexp"

	rag "github.com/asedra/arketic-rag"
)

// headingPattern matches ATX markdown headings at line start.
var headingPattern = regexp.MustCompile(`(?m)^#{1,6} `)

// RecursiveChunker implements the recursive strategy: split on the coarsest
// separator first, keep fragments that fit, descend one separator level for
// fragments that do not, and merge adjacent small fragments back together so
// chunks stay close to the target size. Markdown input splits on headings
// before any separator so section boundaries are never crossed.
//
// Chunk metadata records how each chunk was produced: "leaf" for a fragment
// kept whole, "combined" for merged fragments, "final" for the trailing
// flush, and "forced" for a word-level split after separator exhaustion.
type RecursiveChunker struct {
	cfg chunkerConfig
}

var _ Chunker = (*RecursiveChunker)(nil)

// NewRecursiveChunker creates a recursive chunker.
func NewRecursiveChunker(opts ...ChunkerOption) (*RecursiveChunker, error) {
	cfg := defaultChunkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RecursiveChunker{cfg: cfg}, nil
}

// Chunk splits text recursively. Empty or whitespace-only input yields no
// chunks. The returned chunks partition the input: their offset ranges are
// contiguous and cover it end to end.
func (r *RecursiveChunker) Chunk(text string) []rag.Chunk {
	if isBlank(text) {
		return nil
	}
	chunks := r.recurse(text, span{0, len(text)}, 0)
	chunks = r.mergeTrailing(text, chunks)
	for i := range chunks {
		flagChunkSize(&chunks[i], r.cfg)
	}
	return number(chunks)
}

func (r *RecursiveChunker) recurse(src string, sp span, depth int) []rag.Chunk {
	if r.cfg.length(sp.text(src)) <= r.cfg.maxSize {
		c := makeChunk(src, sp, StrategyRecursive.String(), depth, r.cfg.length)
		c.Meta = &rag.ChunkMeta{Kind: "leaf"}
		return []rag.Chunk{c}
	}
	if depth >= r.cfg.maxDepth {
		return r.forceSplit(src, sp, depth)
	}

	fragments := r.split(src, sp, depth)
	if len(fragments) <= 1 {
		// Separator made no progress; descend to a finer one.
		return r.recurse(src, sp, depth+1)
	}

	var chunks []rag.Chunk
	var group span
	groupN := 0
	flush := func(kind string) {
		if groupN == 0 {
			return
		}
		if groupN == 1 {
			kind = "leaf"
		}
		c := makeChunk(src, group, StrategyRecursive.String(), depth, r.cfg.length)
		c.Meta = &rag.ChunkMeta{Kind: kind}
		chunks = append(chunks, c)
		groupN = 0
	}
	for _, fr := range fragments {
		l := r.cfg.length(fr.text(src))
		if l > r.cfg.maxSize {
			flush("combined")
			chunks = append(chunks, r.recurse(src, fr, depth+1)...)
			continue
		}
		if groupN > 0 && r.cfg.length(src[group.start:fr.end]) <= r.cfg.maxSize {
			group.end = fr.end
			groupN++
			continue
		}
		flush("combined")
		group = fr
		groupN = 1
	}
	flush("final")
	return chunks
}

// split returns the fragments of sp for the given depth. Markdown headings
// take priority at depth 0; otherwise the first configured separator at or
// after the depth that actually occurs in the fragment is used.
func (r *RecursiveChunker) split(src string, sp span, depth int) []span {
	text := sp.text(src)
	if depth == 0 && headingPattern.MatchString(text) {
		if spans := splitHeadingSpans(src, sp); len(spans) > 1 {
			return spans
		}
	}
	for d := depth; d < len(r.cfg.separators); d++ {
		sep := r.cfg.separators[d]
		if containsSep(text, sep) {
			return mergeBlankSpans(src, splitSpans(src, sp, sep))
		}
	}
	return []span{sp}
}

// splitHeadingSpans splits sp at each heading line, keeping every heading
// with the section it opens.
func splitHeadingSpans(src string, sp span) []span {
	text := sp.text(src)
	locs := headingPattern.FindAllStringIndex(text, -1)
	var out []span
	start := 0
	for _, loc := range locs {
		if loc[0] == start || loc[0] == 0 {
			continue
		}
		out = append(out, span{sp.start + start, sp.start + loc[0]})
		start = loc[0]
	}
	out = append(out, span{sp.start + start, sp.end})
	return mergeBlankSpans(src, out)
}

// forceSplit handles separator exhaustion with a word-level split. Pieces
// are capped well under maxSize so the bounded-size guarantee holds even
// for inputs with no separators at all.
func (r *RecursiveChunker) forceSplit(src string, sp span, depth int) []rag.Chunk {
	target := r.cfg.maxSize
	if target > 5 {
		target = r.cfg.maxSize * 4 / 5
	}
	pieces := forceSplitSpan(src, sp, target, r.cfg.length)
	chunks := make([]rag.Chunk, 0, len(pieces))
	for _, p := range pieces {
		c := makeChunk(src, p, StrategyRecursive.String(), depth, r.cfg.length)
		c.Meta = &rag.ChunkMeta{Kind: "forced"}
		chunks = append(chunks, c)
	}
	r.cfg.logger.Warn("separator exhaustion forced a word-level split",
		"depth", depth, "pieces", len(pieces))
	return chunks
}

// mergeTrailing folds a trailing chunk below minSize into its predecessor
// when the merge stays within the oversize ceiling.
func (r *RecursiveChunker) mergeTrailing(src string, chunks []rag.Chunk) []rag.Chunk {
	if len(chunks) < 2 {
		return chunks
	}
	last := &chunks[len(chunks)-1]
	prev := &chunks[len(chunks)-2]
	if last.Size >= r.cfg.minSize {
		return chunks
	}
	if prev.EndOffset != last.StartOffset {
		return chunks
	}
	merged := src[prev.StartOffset:last.EndOffset]
	if r.cfg.length(merged) > r.cfg.maxSize+r.cfg.maxSize/5 {
		return chunks
	}
	prev.Content = merged
	prev.EndOffset = last.EndOffset
	prev.Size = r.cfg.length(merged)
	if prev.Meta == nil {
		prev.Meta = &rag.ChunkMeta{}
	}
	prev.Meta.Kind = "combined"
	return chunks[:len(chunks)-1]
}
