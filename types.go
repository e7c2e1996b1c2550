package rag

// --- Domain types (database records) ---

// Document is an ingested unit of source content. A document is immutable
// once chunked: re-ingesting the same source produces a new document with a
// new chunk set rather than mutating the old one.
type Document struct {
	ID              string `json:"id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	Title           string `json:"title"`
	Author          string `json:"author,omitempty"`
	Source          string `json:"source"`
	Content         string `json:"content"`
	PageCount       int    `json:"page_count,omitempty"`
	WordCount       int    `json:"word_count"`
	CreatedAt       int64  `json:"created_at"`
}

// Chunk is a contiguous (or recombined) span of a document's text prepared
// for embedding and retrieval. Chunks are never mutated after creation;
// re-chunking supersedes the old set.
type Chunk struct {
	ID              string     `json:"id"`
	DocumentID      string     `json:"document_id"`
	KnowledgeBaseID string     `json:"knowledge_base_id"`
	Content         string     `json:"content"`
	Index           int        `json:"chunk_index"`
	Total           int        `json:"total_chunks"`
	Size            int        `json:"size"`
	Strategy        string     `json:"strategy"`
	Depth           int        `json:"depth,omitempty"`
	StartOffset     int        `json:"start_offset"`
	EndOffset       int        `json:"end_offset"`
	Embedding       []float32  `json:"-"`
	Meta            *ChunkMeta `json:"metadata,omitempty"`
}

// ChunkMeta carries strategy-specific chunk metadata.
type ChunkMeta struct {
	// Similarity is the lowest cosine similarity accepted while merging
	// sentence windows into this chunk (semantic strategy only).
	Similarity float32 `json:"similarity,omitempty"`
	// Kind tags how the recursive strategy produced this chunk:
	// "leaf", "combined", "final", or "forced".
	Kind string `json:"kind,omitempty"`
	// Oversized/Undersized are advisory size flags; they never block emission.
	Oversized  bool `json:"oversized,omitempty"`
	Undersized bool `json:"undersized,omitempty"`
}

// ScoredChunk pairs a chunk with a similarity score from a store search.
type ScoredChunk struct {
	Chunk
	Score         float32 `json:"score"`
	DocumentTitle string  `json:"document_title"`
}

// --- Retrieval types (ephemeral, per query) ---

// Scope constrains retrieval to a subset of knowledge bases and/or documents.
// The zero value is unscoped: the search covers the full corpus visible to
// the caller.
type Scope struct {
	KnowledgeBaseIDs []string `json:"knowledge_base_ids,omitempty"`
	DocumentIDs      []string `json:"document_ids,omitempty"`
}

// IsEmpty reports whether the scope carries no constraints.
func (s Scope) IsEmpty() bool {
	return len(s.KnowledgeBaseIDs) == 0 && len(s.DocumentIDs) == 0
}

// RetrievalResult is a scored piece of content from a knowledge base search.
// Score is in [0, 1]; higher means more relevant. Results are recomputed per
// query and never persisted.
type RetrievalResult struct {
	Content       string  `json:"content"`
	Score         float32 `json:"score"`
	ChunkID       string  `json:"chunk_id"`
	ChunkIndex    int     `json:"chunk_index"`
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
}

// Citation records, per chunk that contributed to an augmented context, the
// human-readable source label and the similarity score. This is the system's
// only answer-traceability mechanism and is preserved verbatim for display.
type Citation struct {
	SourceLabel string  `json:"source_label"`
	Score       float32 `json:"score"`
}

// --- LLM protocol types ---

type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
}

type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// --- ChatMessage constructors ---

func UserMessage(text string) ChatMessage {
	return ChatMessage{Role: "user", Content: text}
}

func SystemMessage(text string) ChatMessage {
	return ChatMessage{Role: "system", Content: text}
}

func AssistantMessage(text string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: text}
}
