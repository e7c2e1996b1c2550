// Package rag is a document ingestion and retrieval-augmented generation
// pipeline: it turns raw documents into bounded, overlap-aware chunks,
// embeds them, retrieves the most relevant chunks for a query under
// similarity and scope constraints, and assembles them into a bounded
// context block for a downstream generator.
//
// # Quick Start
//
//	emb := rag.WithEmbeddingRetry(openaicompat.NewEmbeddingProvider(apiKey, model, baseURL, 1536))
//	store := sqlite.New("arketic.db")
//
//	ing, err := ingest.NewIngestor(store, emb)
//	doc, err := ing.IngestText(ctx, kbID, "Notes", text)
//
//	retriever := rag.NewVectorRetriever(store, emb, rag.WithMinScore(0.5))
//	orch := rag.NewOrchestrator(retriever, openaicompat.NewProvider(apiKey, chatModel, baseURL))
//	answer, err := orch.Answer(ctx, "You are a helpful assistant.", query, rag.Scope{})
//
// # Core Interfaces
//
// The root package defines the contracts all components implement:
//
//   - [EmbeddingProvider] — text-to-vector embedding, batch-first
//   - [Store] — document/chunk persistence with similarity search
//   - [Retriever] — scoped, thresholded, deterministic ranking
//   - [Provider] — generation backend (chat + streaming)
//
// # Included Implementations
//
// Chunking: ingest (fixed-size, semantic, recursive strategies plus a
// structure analyzer that steers separator selection).
// Providers: provider/openaicompat (OpenAI-compatible embedding + chat APIs).
// Storage: store/postgres (pgvector), store/sqlite (local, brute-force scan).
// Observability: observer (OpenTelemetry wrappers).
package rag
