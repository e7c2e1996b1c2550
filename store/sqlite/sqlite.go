// Package sqlite implements rag.Store using pure-Go SQLite with in-process
// brute-force vector search. Zero CGO required; suitable for local corpora
// up to a few hundred thousand chunks.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	rag "github.com/asedra/arketic-rag"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. When set, the store
// emits debug logs for every operation including timing and row counts.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements rag.Store backed by a local SQLite file. Embeddings are
// stored as JSON text; similarity search scans candidate rows and ranks them
// in-process.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ rag.Store = (*Store)(nil)

var nopLogger = slog.New(slog.DiscardHandler)

// New creates a Store using a local SQLite file at dbPath. A single shared
// connection serializes all goroutines through one writer, eliminating
// SQLITE_BUSY errors from concurrent ingestion workers.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the documents and chunks tables. Safe to call repeatedly.
func (s *Store) Init(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			knowledge_base_id TEXT NOT NULL,
			title TEXT NOT NULL,
			author TEXT,
			source TEXT NOT NULL,
			content TEXT NOT NULL,
			page_count INTEGER NOT NULL DEFAULT 0,
			word_count INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			knowledge_base_id TEXT NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			size INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			depth INTEGER NOT NULL DEFAULT 0,
			start_offset INTEGER NOT NULL,
			end_offset INTEGER NOT NULL,
			embedding TEXT,
			metadata TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_kb ON documents(knowledge_base_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_kb ON chunks(knowledge_base_id)`,
	}
	for _, ddl := range tables {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("sqlite: create table: %w", err)
		}
	}
	return nil
}

// StoreDocument inserts a document and all its chunks in one transaction.
func (s *Store) StoreDocument(ctx context.Context, doc rag.Document, chunks []rag.Chunk) error {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO documents
		 (id, knowledge_base_id, title, author, source, content, page_count, word_count, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.KnowledgeBaseID, doc.Title, doc.Author, doc.Source,
		doc.Content, doc.PageCount, doc.WordCount, doc.CreatedAt,
	)
	if err != nil {
		s.logger.Error("sqlite: insert document failed", "id", doc.ID, "error", err)
		return fmt.Errorf("sqlite: insert document: %w", err)
	}

	for _, chunk := range chunks {
		var embJSON *string
		if len(chunk.Embedding) > 0 {
			v := serializeEmbedding(chunk.Embedding)
			embJSON = &v
		}
		var metaJSON *string
		if chunk.Meta != nil {
			data, _ := json.Marshal(chunk.Meta)
			v := string(data)
			metaJSON = &v
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO chunks
			 (id, document_id, knowledge_base_id, content, chunk_index, total_chunks,
			  size, strategy, depth, start_offset, end_offset, embedding, metadata)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			chunk.ID, chunk.DocumentID, chunk.KnowledgeBaseID, chunk.Content,
			chunk.Index, chunk.Total, chunk.Size, chunk.Strategy, chunk.Depth,
			chunk.StartOffset, chunk.EndOffset, embJSON, metaJSON,
		)
		if err != nil {
			s.logger.Error("sqlite: insert chunk failed", "chunk_id", chunk.ID, "doc_id", doc.ID, "error", err)
			return fmt.Errorf("sqlite: insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	s.logger.Debug("sqlite: store document ok", "id", doc.ID, "chunks", len(chunks), "duration", time.Since(start))
	return nil
}

// GetDocument returns a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (rag.Document, error) {
	var doc rag.Document
	var author sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, knowledge_base_id, title, author, source, content, page_count, word_count, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.KnowledgeBaseID, &doc.Title, &author, &doc.Source,
		&doc.Content, &doc.PageCount, &doc.WordCount, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return rag.Document{}, fmt.Errorf("sqlite: document %s not found", id)
	}
	if err != nil {
		return rag.Document{}, fmt.Errorf("sqlite: get document: %w", err)
	}
	doc.Author = author.String
	return doc, nil
}

// ListDocuments returns documents newest first. An empty knowledgeBaseID
// lists across all knowledge bases.
func (s *Store) ListDocuments(ctx context.Context, knowledgeBaseID string, limit int) ([]rag.Document, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, knowledge_base_id, title, author, source, content, page_count, word_count, created_at
		FROM documents`
	args := []any{}
	if knowledgeBaseID != "" {
		query += ` WHERE knowledge_base_id = ?`
		args = append(args, knowledgeBaseID)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	defer rows.Close()

	var docs []rag.Document
	for rows.Next() {
		var doc rag.Document
		var author sql.NullString
		if err := rows.Scan(&doc.ID, &doc.KnowledgeBaseID, &doc.Title, &author, &doc.Source,
			&doc.Content, &doc.PageCount, &doc.WordCount, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan document: %w", err)
		}
		doc.Author = author.String
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and cascades to its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	s.logger.Debug("sqlite: document deleted", "id", id)
	return nil
}

// SearchChunks ranks embedded chunks within scope by cosine similarity.
// Scores are clamped to [0, 1]. Ties break on chunk index, then chunk ID,
// so repeated searches return identical orderings.
func (s *Store) SearchChunks(ctx context.Context, embedding []float32, topK int, scope rag.Scope) ([]rag.ScoredChunk, error) {
	start := time.Now()
	if topK <= 0 {
		return nil, nil
	}

	where, args := scopeFilter(scope)
	query := `SELECT c.id, c.document_id, c.knowledge_base_id, c.content, c.chunk_index,
			c.total_chunks, c.size, c.strategy, c.depth, c.start_offset, c.end_offset,
			c.embedding, c.metadata, d.title
		FROM chunks c JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL` + where

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search chunks: %w", err)
	}
	defer rows.Close()

	var results []rag.ScoredChunk
	scanned := 0
	for rows.Next() {
		var c rag.Chunk
		var embJSON string
		var metaJSON sql.NullString
		var title string
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KnowledgeBaseID, &c.Content, &c.Index,
			&c.Total, &c.Size, &c.Strategy, &c.Depth, &c.StartOffset, &c.EndOffset,
			&embJSON, &metaJSON, &title); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		scanned++
		if metaJSON.Valid {
			c.Meta = &rag.ChunkMeta{}
			_ = json.Unmarshal([]byte(metaJSON.String), c.Meta)
		}
		stored, err := deserializeEmbedding(embJSON)
		if err != nil {
			continue
		}
		results = append(results, rag.ScoredChunk{
			Chunk:         c,
			Score:         clampScore(cosineSimilarity(embedding, stored)),
			DocumentTitle: title,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate chunks: %w", err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Index != results[j].Index {
			return results[i].Index < results[j].Index
		}
		return results[i].ID < results[j].ID
	})
	if len(results) > topK {
		results = results[:topK]
	}
	s.logger.Debug("sqlite: search chunks ok", "scanned", scanned, "returned", len(results), "duration", time.Since(start))
	return results, nil
}

// GetChunksByIDs returns chunks matching the given IDs, in chunk order.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]rag.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, knowledge_base_id, content, chunk_index, total_chunks,
			size, strategy, depth, start_offset, end_offset, embedding, metadata
		 FROM chunks WHERE id IN (`+placeholders+`) ORDER BY document_id, chunk_index`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: get chunks: %w", err)
	}
	defer rows.Close()

	var chunks []rag.Chunk
	for rows.Next() {
		var c rag.Chunk
		var embJSON, metaJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.KnowledgeBaseID, &c.Content, &c.Index,
			&c.Total, &c.Size, &c.Strategy, &c.Depth, &c.StartOffset, &c.EndOffset,
			&embJSON, &metaJSON); err != nil {
			return nil, fmt.Errorf("sqlite: scan chunk: %w", err)
		}
		if embJSON.Valid {
			c.Embedding, _ = deserializeEmbedding(embJSON.String)
		}
		if metaJSON.Valid {
			c.Meta = &rag.ChunkMeta{}
			_ = json.Unmarshal([]byte(metaJSON.String), c.Meta)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for callers that need raw SQL access.
func (s *Store) DB() *sql.DB { return s.db }

// scopeFilter builds the WHERE fragment for a retrieval scope. Both
// constraints combine with AND; an empty scope adds nothing.
func scopeFilter(scope rag.Scope) (string, []any) {
	var sb strings.Builder
	var args []any
	if len(scope.KnowledgeBaseIDs) > 0 {
		sb.WriteString(` AND c.knowledge_base_id IN (` + placeholdersFor(len(scope.KnowledgeBaseIDs)) + `)`)
		for _, id := range scope.KnowledgeBaseIDs {
			args = append(args, id)
		}
	}
	if len(scope.DocumentIDs) > 0 {
		sb.WriteString(` AND c.document_id IN (` + placeholdersFor(len(scope.DocumentIDs)) + `)`)
		for _, id := range scope.DocumentIDs {
			args = append(args, id)
		}
	}
	return sb.String(), args
}

func placeholdersFor(n int) string {
	s := strings.Repeat("?,", n)
	return s[:len(s)-1]
}

func clampScore(sim float32) float32 {
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

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

// serializeEmbedding converts []float32 to a JSON array string.
func serializeEmbedding(embedding []float32) string {
	data, _ := json.Marshal(embedding)
	return string(data)
}

func deserializeEmbedding(s string) ([]float32, error) {
	var v []float32
	err := json.Unmarshal([]byte(s), &v)
	return v, err
}
