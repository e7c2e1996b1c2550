package ingest

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	rag "github.com/asedra/arketic-rag"
)

// Chunker splits normalized text into bounded chunks with provenance
// metadata (offsets, strategy tag, depth). Implementations fill Content,
// Size, Strategy, offsets, and strategy-specific metadata; document identity
// and IDs are assigned by the Ingestor.
type Chunker interface {
	Chunk(text string) []rag.Chunk
}

// EmbedFunc embeds texts into vectors. Matches the EmbeddingProvider.Embed
// method signature so provider.Embed can be passed directly.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// ContextChunker extends Chunker with context-aware chunking.
// Implementations that call external services (embedding APIs) should
// implement this interface. The Ingestor uses ChunkContext when available,
// falling back to Chunk otherwise.
type ContextChunker interface {
	Chunker
	ChunkContext(ctx context.Context, text string) ([]rag.Chunk, error)
}

// LengthFunc measures text in the configured length unit.
type LengthFunc func(string) int

// TokenLength approximates the model token count of s: one token per four
// characters of each whitespace-delimited field, minimum one per field.
// This is the default length unit.
func TokenLength(s string) int {
	n := 0
	for _, f := range strings.Fields(s) {
		n += (len(f) + 3) / 4
	}
	return n
}

// CharLength measures text in bytes. The fallback unit when token
// approximation is not wanted (text length / 4 relates the two).
func CharLength(s string) int { return len(s) }

// --- Chunker configuration ---

// ChunkerOption configures a chunker implementation.
type ChunkerOption func(*chunkerConfig)

type chunkerConfig struct {
	maxSize             int // length units
	minSize             int
	overlap             int
	maxDepth            int
	separators          []string
	similarityThreshold float32
	sentenceGroupSize   int
	length              LengthFunc
	logger              *slog.Logger
}

// defaultSeparators is ordered coarsest to finest for the recursive strategy
// and most-specific first for the fixed-size strategy.
var defaultSeparators = []string{"\n\n\n", "\n\n", "\n", ". ", ", ", " "}

func defaultChunkerConfig() chunkerConfig {
	return chunkerConfig{
		maxSize:             512,
		minSize:             32,
		overlap:             50,
		maxDepth:            5,
		separators:          defaultSeparators,
		similarityThreshold: 0.5,
		sentenceGroupSize:   3,
		length:              TokenLength,
		logger:              slog.New(slog.DiscardHandler),
	}
}

// validate fails fast on invalid strategy parameters so misconfiguration
// surfaces at construction time, never mid-chunk.
func (c chunkerConfig) validate() error {
	switch {
	case c.maxSize <= 0:
		return &ConfigError{Field: "maxSize", Reason: "must be positive"}
	case c.minSize < 0:
		return &ConfigError{Field: "minSize", Reason: "must not be negative"}
	case c.minSize > c.maxSize:
		return &ConfigError{Field: "minSize", Reason: "must not exceed maxSize"}
	case c.overlap < 0:
		return &ConfigError{Field: "overlap", Reason: "must not be negative"}
	case c.overlap >= c.maxSize:
		return &ConfigError{Field: "overlap", Reason: "must be smaller than maxSize"}
	case c.maxDepth <= 0:
		return &ConfigError{Field: "maxDepth", Reason: "must be positive"}
	case len(c.separators) == 0:
		return &ConfigError{Field: "separators", Reason: "must not be empty"}
	case c.sentenceGroupSize <= 0:
		return &ConfigError{Field: "sentenceGroupSize", Reason: "must be positive"}
	case c.similarityThreshold < -1 || c.similarityThreshold > 1:
		return &ConfigError{Field: "similarityThreshold", Reason: "must be within [-1, 1]"}
	}
	return nil
}

// ConfigError reports an invalid chunker parameter.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "ingest: invalid " + e.Field + ": " + e.Reason
}

// WithMaxSize sets the maximum chunk size in length units (default 512).
func WithMaxSize(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.maxSize = n }
}

// WithMinSize sets the minimum chunk size in length units (default 32).
// The semantic strategy discards closing chunks below it; the recursive
// strategy merges trailing fragments below it into the previous chunk.
func WithMinSize(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.minSize = n }
}

// WithOverlap sets the overlap carried between consecutive fixed-size chunks,
// in length units (default 50).
func WithOverlap(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.overlap = n }
}

// WithMaxDepth sets the recursion depth limit for the recursive strategy
// (default 5).
func WithMaxDepth(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.maxDepth = n }
}

// WithSeparators sets the ordered separator list: coarsest to finest for the
// recursive strategy, most-specific first for the fixed-size strategy.
func WithSeparators(seps ...string) ChunkerOption {
	return func(c *chunkerConfig) { c.separators = seps }
}

// WithSimilarityThreshold sets the cosine similarity required to absorb a
// sentence window into the running semantic chunk (default 0.5).
func WithSimilarityThreshold(t float32) ChunkerOption {
	return func(c *chunkerConfig) { c.similarityThreshold = t }
}

// WithSentenceGroupSize sets how many sentences form one semantic window
// (default 3). Windows step by half the group size so adjacent windows
// share context.
func WithSentenceGroupSize(n int) ChunkerOption {
	return func(c *chunkerConfig) { c.sentenceGroupSize = n }
}

// WithLengthFunc sets the length unit (default TokenLength).
func WithLengthFunc(fn LengthFunc) ChunkerOption {
	return func(c *chunkerConfig) { c.length = fn }
}

// WithChunkerLogger sets the structured logger for advisory size warnings.
func WithChunkerLogger(l *slog.Logger) ChunkerOption {
	return func(c *chunkerConfig) { c.logger = l }
}

// --- Shared span plumbing ---

// span marks a half-open byte range [start, end) in the source text.
// Offsets are carried through every splitting step, so chunk positions are
// exact even when chunk text repeats in the source.
type span struct {
	start, end int
}

func (s span) text(src string) string { return src[s.start:s.end] }

// makeChunk builds a chunk record for a span of src.
func makeChunk(src string, sp span, strategy string, depth int, length LengthFunc) rag.Chunk {
	content := sp.text(src)
	return rag.Chunk{
		Content:     content,
		Size:        length(content),
		Strategy:    strategy,
		Depth:       depth,
		StartOffset: sp.start,
		EndOffset:   sp.end,
	}
}

// number assigns sequential indexes and the total count.
func number(chunks []rag.Chunk) []rag.Chunk {
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Total = len(chunks)
	}
	return chunks
}

// --- Sentence boundary detection ---

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// isAbbreviation checks if the text ending at position dotPos (the '.')
// is a common abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	// Walk backward to find the start of the word before the dot.
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot checks if the dot at dotPos is part of a number (e.g. 3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prevByte := text[dotPos-1]
	nextByte := text[dotPos+1]
	return prevByte >= '0' && prevByte <= '9' && nextByte >= '0' && nextByte <= '9'
}

// findSentenceBoundaries returns byte positions suitable for splitting text
// at sentence boundaries. Handles ASCII punctuation (.!?) with abbreviation
// and decimal number awareness, plus CJK sentence-ending punctuation (。！？).
func findSentenceBoundaries(text string) []int {
	var boundaries []int
	runes := []rune(text)
	n := len(runes)

	// Build a byte-offset map for rune positions.
	byteOffsets := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]

		// CJK sentence-ending punctuation — always a boundary after.
		if r == '。' || r == '！' || r == '？' {
			boundaries = append(boundaries, byteOffsets[i+1])
			continue
		}

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		dotBytePos := byteOffsets[i]

		// Skip decimal numbers like 3.14.
		if r == '.' && isDecimalDot(text, dotBytePos) {
			continue
		}

		// Skip abbreviations like Mr., Dr., etc.
		if r == '.' && isAbbreviation(text, dotBytePos) {
			continue
		}

		// Need whitespace or newline after punctuation.
		if i+1 < n && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			if runes[i+1] == '\n' {
				boundaries = append(boundaries, byteOffsets[i+1])
			} else if i+2 < n && unicode.IsUpper(runes[i+2]) {
				boundaries = append(boundaries, byteOffsets[i+2])
			} else if i+2 >= n {
				boundaries = append(boundaries, byteOffsets[n])
			}
		}
	}
	return boundaries
}

// splitSentenceSpans splits text into sentence spans. Whitespace between
// sentences stays attached to the preceding span so spans are contiguous.
func splitSentenceSpans(text string) []span {
	boundaries := findSentenceBoundaries(text)
	var spans []span
	start := 0
	for _, b := range boundaries {
		if strings.TrimSpace(text[start:b]) == "" {
			continue
		}
		spans = append(spans, span{start, b})
		start = b
	}
	if start < len(text) && strings.TrimSpace(text[start:]) != "" {
		spans = append(spans, span{start, len(text)})
	}
	if len(spans) == 0 && strings.TrimSpace(text) != "" {
		spans = []span{{0, len(text)}}
	}
	return spans
}

// --- Vector helpers ---

// cosineSimilarity computes cosine similarity between two vectors.
// A zero-norm vector yields 0, never a division error.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

// combineEmbedding folds the next vector into a running mean of n vectors,
// returning a new slice. Keeping the reducer immutable makes each merge step
// auditable in isolation.
func combineEmbedding(mean []float32, n int, next []float32) []float32 {
	if len(mean) != len(next) || n <= 0 {
		out := make([]float32, len(next))
		copy(out, next)
		return out
	}
	out := make([]float32, len(mean))
	fn := float32(n)
	for i := range mean {
		out[i] = (mean[i]*fn + next[i]) / (fn + 1)
	}
	return out
}
