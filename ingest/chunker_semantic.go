package ingest

import (
	"context"
	"fmt"

	rag "github.com/asedra/arketic-rag"
)

// SemanticChunker implements the semantic strategy: sentences are grouped
// into overlapping windows, each window is embedded, and consecutive windows
// whose embeddings stay similar to the running chunk centroid are absorbed
// into one chunk. A similarity drop closes the chunk and opens a new one at
// the topical boundary.
//
// Embedding is an external call, so the strategy is exposed through
// ChunkContext and fails with the provider's error rather than degrading
// silently. Chunk delegates to the recursive strategy, which needs no
// network access.
type SemanticChunker struct {
	cfg      chunkerConfig
	embed    EmbedFunc
	fallback *RecursiveChunker
}

var _ ContextChunker = (*SemanticChunker)(nil)

// NewSemanticChunker creates a semantic chunker backed by the given
// embedding function.
func NewSemanticChunker(embed EmbedFunc, opts ...ChunkerOption) (*SemanticChunker, error) {
	if embed == nil {
		return nil, &ConfigError{Field: "embed", Reason: "must not be nil"}
	}
	cfg := defaultChunkerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	fallback, err := NewRecursiveChunker(opts...)
	if err != nil {
		return nil, err
	}
	return &SemanticChunker{cfg: cfg, embed: embed, fallback: fallback}, nil
}

// Chunk splits text without network access by delegating to the recursive
// strategy. Use ChunkContext for true semantic chunking.
func (s *SemanticChunker) Chunk(text string) []rag.Chunk {
	return s.fallback.Chunk(text)
}

// ChunkContext splits text at topical boundaries detected through embedding
// similarity. All sentence windows are embedded in one batched call before
// any boundary decision is made.
func (s *SemanticChunker) ChunkContext(ctx context.Context, text string) ([]rag.Chunk, error) {
	if isBlank(text) {
		return nil, nil
	}

	sentences := splitSentenceSpans(text)
	windows := s.windows(len(sentences))
	if len(windows) <= 1 {
		c := makeChunk(text, span{sentences[0].start, sentences[len(sentences)-1].end},
			StrategySemantic.String(), 0, s.cfg.length)
		c.Meta = &rag.ChunkMeta{Similarity: 1}
		flagChunkSize(&c, s.cfg)
		return number([]rag.Chunk{c}), nil
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = text[sentences[w.lo].start:sentences[w.hi-1].end]
	}
	embeddings, err := s.embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("ingest: semantic chunking: embed windows: %w", err)
	}
	if len(embeddings) != len(windows) {
		return nil, fmt.Errorf("ingest: semantic chunking: provider returned %d embeddings for %d windows",
			len(embeddings), len(windows))
	}

	var chunks []rag.Chunk

	// Running chunk state: sentence range [lo, hi), centroid over absorbed
	// windows, and the weakest similarity that was still accepted.
	lo, hi := windows[0].lo, windows[0].hi
	centroid := combineEmbedding(nil, 0, embeddings[0])
	absorbed := 1
	minSim := float32(1)

	close := func() {
		sp := span{sentences[lo].start, sentences[hi-1].end}
		c := makeChunk(text, sp, StrategySemantic.String(), 0, s.cfg.length)
		c.Meta = &rag.ChunkMeta{Similarity: minSim}
		if c.Size < s.cfg.minSize {
			s.cfg.logger.Debug("dropping semantic chunk below minimum size",
				"size", c.Size, "min", s.cfg.minSize)
			return
		}
		flagChunkSize(&c, s.cfg)
		chunks = append(chunks, c)
	}

	for i := 1; i < len(windows); i++ {
		w := windows[i]
		sim := cosineSimilarity(centroid, embeddings[i])

		grown := text[sentences[lo].start:sentences[w.hi-1].end]
		fits := s.cfg.length(grown) <= s.cfg.maxSize

		if sim >= s.cfg.similarityThreshold && fits {
			if w.hi > hi {
				hi = w.hi
			}
			centroid = combineEmbedding(centroid, absorbed, embeddings[i])
			absorbed++
			if sim < minSim {
				minSim = sim
			}
			continue
		}

		close()
		prevHi := hi
		lo, hi = w.lo, w.hi
		// Skip sentences already emitted with the previous chunk so no
		// sentence lands in two chunks.
		if lo < prevHi && prevHi < hi {
			lo = prevHi
		}
		centroid = combineEmbedding(nil, 0, embeddings[i])
		absorbed = 1
		minSim = 1
	}
	close()

	return number(chunks), nil
}

// window is a half-open range of sentence indexes.
type window struct {
	lo, hi int
}

// windows produces overlapping sentence windows of the configured group
// size, stepping by half the group so adjacent windows share context.
func (s *SemanticChunker) windows(n int) []window {
	size := s.cfg.sentenceGroupSize
	step := size / 2
	if step < 1 {
		step = 1
	}
	var out []window
	for i := 0; i < n; i += step {
		hi := i + size
		if hi > n {
			hi = n
		}
		out = append(out, window{i, hi})
		if hi == n {
			break
		}
	}
	return out
}
