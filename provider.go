package rag

import (
	"context"
	"log/slog"
)

// Provider abstracts the generation backend. The pipeline's only obligation
// toward it is producing the instructions string; everything past that is
// the provider's business.
type Provider interface {
	// Chat sends a request and returns a complete response.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
	// ChatStream streams text deltas into ch, then returns the final
	// response with usage stats. ch is closed before returning.
	ChatStream(ctx context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error)
	// Name returns the provider name (e.g. "openai").
	Name() string
}

// EmbeddingProvider abstracts text embedding. Dimensionality is constant for
// a given provider instance; mixing dimensions within one retrieval scope is
// a caller error.
type EmbeddingProvider interface {
	// Embed returns one embedding vector per input text, in order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding vector size.
	Dimensions() int
	// Name returns the provider name.
	Name() string
}

// Store persists documents, chunks, and their embeddings, and exposes the
// similarity-search primitive the retrieval service wraps. A document owns
// its chunks and a chunk owns its embedding: deletes cascade.
type Store interface {
	// StoreDocument inserts a document and all its chunks atomically.
	StoreDocument(ctx context.Context, doc Document, chunks []Chunk) error
	// GetDocument returns a document by ID.
	GetDocument(ctx context.Context, id string) (Document, error)
	// ListDocuments returns documents in a knowledge base, newest first.
	// An empty knowledgeBaseID lists across all knowledge bases.
	ListDocuments(ctx context.Context, knowledgeBaseID string, limit int) ([]Document, error)
	// DeleteDocument removes a document and cascades to its chunks.
	DeleteDocument(ctx context.Context, id string) error
	// SearchChunks returns up to topK chunks within scope ranked by
	// similarity to embedding, scores in [0, 1].
	SearchChunks(ctx context.Context, embedding []float32, topK int, scope Scope) ([]ScoredChunk, error)
	// GetChunksByIDs returns chunks matching the given IDs.
	GetChunksByIDs(ctx context.Context, ids []string) ([]Chunk, error)
	// Close releases store resources.
	Close() error
}

// nopLogger discards all log records. Used wherever a logger was not injected.
var nopLogger = slog.New(slog.DiscardHandler)
