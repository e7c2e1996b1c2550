// Package postgres implements rag.Store using PostgreSQL with pgvector for
// native vector similarity search.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	rag "github.com/asedra/arketic-rag"
)

// Store implements rag.Store backed by PostgreSQL with pgvector. Vector
// search uses an HNSW index with cosine distance.
type Store struct {
	pool *pgxpool.Pool
	cfg  pgConfig
}

type pgConfig struct {
	embeddingDimension int // 0 = untyped vector column
	hnswM              int // 0 = pgvector default (16)
	hnswEFConstruction int // 0 = pgvector default (64)
	hnswEFSearch       int // 0 = pgvector default (40)
}

// Option configures a PostgreSQL Store.
type Option func(*pgConfig)

// WithEmbeddingDimension sets the vector column dimension (e.g. 1536, 768).
// When set, CREATE TABLE uses vector(N) instead of untyped vector, catching
// dimension mismatches at insert time. Only affects new table creation.
func WithEmbeddingDimension(dim int) Option {
	return func(c *pgConfig) { c.embeddingDimension = dim }
}

// WithHNSWM sets the HNSW m parameter (max connections per node). Higher
// values improve recall at the cost of memory. Default: pgvector's 16.
func WithHNSWM(m int) Option {
	return func(c *pgConfig) { c.hnswM = m }
}

// WithEFConstruction sets the HNSW ef_construction parameter. Higher values
// improve index quality at the cost of slower builds. Default: 64.
func WithEFConstruction(ef int) Option {
	return func(c *pgConfig) { c.hnswEFConstruction = ef }
}

// WithEFSearch sets the HNSW ef_search parameter (query-time candidate list
// size). Higher values improve recall at the cost of latency. Default: 40.
// Applied during Init.
func WithEFSearch(ef int) Option {
	return func(c *pgConfig) { c.hnswEFSearch = ef }
}

var _ rag.Store = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool. The caller owns the
// pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	var cfg pgConfig
	for _, o := range opts {
		o(&cfg)
	}
	return &Store{pool: pool, cfg: cfg}
}

func (s *Store) vectorType() string {
	if s.cfg.embeddingDimension > 0 {
		return fmt.Sprintf("vector(%d)", s.cfg.embeddingDimension)
	}
	return "vector"
}

func (s *Store) hnswWithClause() string {
	var parts []string
	if s.cfg.hnswM > 0 {
		parts = append(parts, fmt.Sprintf("m = %d", s.cfg.hnswM))
	}
	if s.cfg.hnswEFConstruction > 0 {
		parts = append(parts, fmt.Sprintf("ef_construction = %d", s.cfg.hnswEFConstruction))
	}
	if len(parts) == 0 {
		return ""
	}
	return " WITH (" + strings.Join(parts, ", ") + ")"
}

// Init creates the pgvector extension, tables, and indexes. Safe to call
// multiple times; all statements are idempotent.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			knowledge_base_id TEXT NOT NULL,
			title TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL
		)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			knowledge_base_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			size INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			depth INTEGER NOT NULL DEFAULT 0,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			embedding %s,
			metadata JSONB
		)`, s.vectorType()),

		`CREATE INDEX IF NOT EXISTS documents_kb_idx ON documents (knowledge_base_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS chunks_document_idx ON chunks (document_id)`,
		`CREATE INDEX IF NOT EXISTS chunks_kb_idx ON chunks (knowledge_base_id)`,
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS chunks_embedding_idx ON chunks USING hnsw (embedding vector_cosine_ops)%s`, s.hnswWithClause()),
		`CREATE INDEX IF NOT EXISTS chunks_fts_idx ON chunks USING gin(to_tsvector('english', content))`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: init: %w", err)
		}
	}
	if s.cfg.hnswEFSearch > 0 {
		if _, err := s.pool.Exec(ctx, fmt.Sprintf("SET hnsw.ef_search = %d", s.cfg.hnswEFSearch)); err != nil {
			return fmt.Errorf("postgres: set ef_search: %w", err)
		}
	}
	return nil
}

// StoreDocument inserts a document and all its chunks in one transaction.
func (s *Store) StoreDocument(ctx context.Context, doc rag.Document, chunks []rag.Chunk) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO documents (id, knowledge_base_id, title, author, source, content, page_count, word_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			knowledge_base_id = EXCLUDED.knowledge_base_id,
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			source = EXCLUDED.source,
			content = EXCLUDED.content,
			page_count = EXCLUDED.page_count,
			word_count = EXCLUDED.word_count`,
		doc.ID, doc.KnowledgeBaseID, doc.Title, doc.Author, doc.Source,
		doc.Content, doc.PageCount, doc.WordCount, doc.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert document: %w", err)
	}

	for _, chunk := range chunks {
		var embStr *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embStr = &v
		}
		var metaJSON []byte
		if chunk.Meta != nil {
			metaJSON, _ = json.Marshal(chunk.Meta)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, knowledge_base_id, content, chunk_index, total_chunks,
				size, strategy, depth, start_offset, end_offset, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::vector, $13)
			 ON CONFLICT (id) DO NOTHING`,
			chunk.ID, chunk.DocumentID, chunk.KnowledgeBaseID, chunk.Content,
			chunk.Index, chunk.Total, chunk.Size, chunk.Strategy, chunk.Depth,
			chunk.StartOffset, chunk.EndOffset, embStr, metaJSON,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert chunk %s: %w", chunk.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (rag.Document, error) {
	var doc rag.Document
	err := s.pool.QueryRow(ctx,
		`SELECT id, knowledge_base_id, title, author, source, content, page_count, word_count, created_at
		 FROM documents WHERE id = $1`, id,
	).Scan(&doc.ID, &doc.KnowledgeBaseID, &doc.Title, &doc.Author, &doc.Source,
		&doc.Content, &doc.PageCount, &doc.WordCount, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return rag.Document{}, fmt.Errorf("postgres: document %s not found", id)
	}
	if err != nil {
		return rag.Document{}, fmt.Errorf("postgres: get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns documents newest first. An empty knowledgeBaseID
// lists across all knowledge bases.
func (s *Store) ListDocuments(ctx context.Context, knowledgeBaseID string, limit int) ([]rag.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT id, knowledge_base_id, title, author, source, content, page_count, word_count, created_at
		FROM documents`
	args := []any{}
	if knowledgeBaseID != "" {
		q += ` WHERE knowledge_base_id = $1 ORDER BY created_at DESC, id LIMIT $2`
		args = append(args, knowledgeBaseID, limit)
	} else {
		q += ` ORDER BY created_at DESC, id LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	defer rows.Close()

	var docs []rag.Document
	for rows.Next() {
		var doc rag.Document
		if err := rows.Scan(&doc.ID, &doc.KnowledgeBaseID, &doc.Title, &doc.Author, &doc.Source,
			&doc.Content, &doc.PageCount, &doc.WordCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; chunks cascade via the foreign key.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete document: %w", err)
	}
	return nil
}

// SearchChunks ranks embedded chunks within scope by cosine similarity,
// scores clamped to [0, 1]. Ties break on chunk index, then chunk ID, so
// repeated searches return identical orderings.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, scope rag.Scope) ([]rag.ScoredChunk, error) {
	if topK <= 0 {
		return nil, nil
	}
	embStr := serializeEmbedding(embedding)
	where, args := scopeFilter(scope, 3) // $1=embedding, $2=topK

	q := `SELECT c.id, c.document_id, c.knowledge_base_id, c.content, c.chunk_index, c.total_chunks,
			c.size, c.strategy, c.depth, c.start_offset, c.end_offset, c.metadata, d.title,
			1 - (c.embedding <=> $1::vector) AS score
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL` + where + `
		ORDER BY c.embedding <=> $1::vector, c.chunk_index, c.id
		LIMIT $2`

	allArgs := append([]any{embStr, topK}, args...)
	rows, err := s.pool.Query(ctx, q, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search chunks: %w", err)
	}
	defer rows.Close()

	var results []rag.ScoredChunk
	for rows.Next() {
		var c rag.Chunk
		var metaJSON []byte
		var title string
		var score float32
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KnowledgeBaseID, &c.Content, &c.Index, &c.Total,
			&c.Size, &c.Strategy, &c.Depth, &c.StartOffset, &c.EndOffset, &metaJSON, &title, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if metaJSON != nil {
			c.Meta = &rag.ChunkMeta{}
			_ = json.Unmarshal(metaJSON, c.Meta)
		}
		results = append(results, rag.ScoredChunk{Chunk: c, Score: clampScore(score), DocumentTitle: title})
	}
	return results, rows.Err()
}

// SearchKeyword ranks chunks within scope by full-text relevance using
// tsvector/tsquery with a GIN index. It complements SearchChunks for queries
// where exact terms matter more than meaning (identifiers, error strings).
// Not part of the rag.Store contract.
func (s *Store) SearchKeyword(ctx context.Context, query string, topK int, scope rag.Scope) ([]rag.ScoredChunk, error) {
	if topK <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}
	where, args := scopeFilter(scope, 3) // $1=query, $2=topK

	q := `SELECT c.id, c.document_id, c.knowledge_base_id, c.content, c.chunk_index, c.total_chunks,
			c.size, c.strategy, c.depth, c.start_offset, c.end_offset, c.metadata, d.title,
			ts_rank(to_tsvector('english', c.content), plainto_tsquery('english', $1)) AS score
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE to_tsvector('english', c.content) @@ plainto_tsquery('english', $1)` + where + `
		ORDER BY score DESC, c.chunk_index, c.id
		LIMIT $2`

	allArgs := append([]any{query, topK}, args...)
	rows, err := s.pool.Query(ctx, q, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("postgres: keyword search: %w", err)
	}
	defer rows.Close()

	var results []rag.ScoredChunk
	for rows.Next() {
		var c rag.Chunk
		var metaJSON []byte
		var title string
		var score float32
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KnowledgeBaseID, &c.Content, &c.Index, &c.Total,
			&c.Size, &c.Strategy, &c.Depth, &c.StartOffset, &c.EndOffset, &metaJSON, &title, &score); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if metaJSON != nil {
			c.Meta = &rag.ChunkMeta{}
			_ = json.Unmarshal(metaJSON, c.Meta)
		}
		results = append(results, rag.ScoredChunk{Chunk: c, Score: clampScore(score), DocumentTitle: title})
	}
	return results, rows.Err()
}

// GetChunksByIDs returns chunks matching the given IDs, in chunk order.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]rag.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, document_id, knowledge_base_id, content, chunk_index, total_chunks,
			size, strategy, depth, start_offset, end_offset, embedding::text, metadata
		 FROM chunks WHERE id = ANY($1) ORDER BY document_id, chunk_index`, ids)
	if err != nil {
		return nil, fmt.Errorf("postgres: get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var c rag.Chunk
		var embStr *string
		var metaJSON []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KnowledgeBaseID, &c.Content, &c.Index, &c.Total,
			&c.Size, &c.Strategy, &c.Depth, &c.StartOffset, &c.EndOffset, &embStr, &metaJSON); err != nil {
			return nil, fmt.Errorf("postgres: scan chunk: %w", err)
		}
		if embStr != nil {
			c.Embedding, _ = deserializeEmbedding(*embStr)
		}
		if metaJSON != nil {
			c.Meta = &rag.ChunkMeta{}
			_ = json.Unmarshal(metaJSON, c.Meta)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// scopeFilter builds the WHERE fragment for a retrieval scope using
// positional parameters starting at argOffset.
func scopeFilter(scope rag.Scope, argOffset int) (string, []any) {
	var sb strings.Builder
	var args []any
	n := argOffset
	if len(scope.KnowledgeBaseIDs) > 0 {
		sb.WriteString(fmt.Sprintf(` AND c.knowledge_base_id = ANY($%d)`, n))
		args = append(args, scope.KnowledgeBaseIDs)
		n++
	}
	if len(scope.DocumentIDs) > 0 {
		sb.WriteString(fmt.Sprintf(` AND c.document_id = ANY($%d)`, n))
		args = append(args, scope.DocumentIDs)
	}
	return sb.String(), args
}

func clampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// serializeEmbedding renders a vector in pgvector's text format.
func serializeEmbedding(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'f', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func deserializeEmbedding(s string) ([]float32, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse embedding: %w", err)
		}
		out[i] = float32(v)
	}
	return out, nil
}
