package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	rag "github.com/asedra/arketic-rag"
)

// Ingestor runs the full document pipeline: extract text, normalize it,
// chunk it, embed the chunks, and persist document and chunks through the
// store. One Ingestor is safe for concurrent use.
type Ingestor struct {
	store     rag.Store
	embedding rag.EmbeddingProvider
	chunker   Chunker

	extractors  map[ContentType]Extractor
	concurrency int
	batchSize   int
	cache       *embedCache
	logger      *slog.Logger
}

// NewIngestor creates an ingestor. The chunker defaults to the recursive
// strategy; extractors for plain text, markdown, HTML, CSV, and JSON are
// registered out of the box.
func NewIngestor(store rag.Store, embedding rag.EmbeddingProvider, opts ...IngestorOption) (*Ingestor, error) {
	if store == nil {
		return nil, fmt.Errorf("ingest: store is required")
	}
	if embedding == nil {
		return nil, fmt.Errorf("ingest: embedding provider is required")
	}
	ing := &Ingestor{
		store:     store,
		embedding: embedding,
		extractors: map[ContentType]Extractor{
			TypePlainText: PlainTextExtractor{},
			TypeMarkdown:  MarkdownExtractor{},
			TypeHTML:      NewHTMLExtractor(),
			TypeCSV:       NewCSVExtractor(),
			TypeJSON:      NewJSONExtractor(),
		},
		concurrency: 3,
		batchSize:   64,
		cache:       newEmbedCache(),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(ing)
	}
	if ing.chunker == nil {
		chunker, err := NewRecursiveChunker(WithChunkerLogger(ing.logger))
		if err != nil {
			return nil, err
		}
		ing.chunker = chunker
	}
	if ing.concurrency <= 0 {
		return nil, fmt.Errorf("ingest: concurrency must be positive")
	}
	if ing.batchSize <= 0 {
		return nil, fmt.Errorf("ingest: batch size must be positive")
	}
	return ing, nil
}

// IngestText ingests already-extracted text under the given knowledge base.
// It returns the stored document with WordCount filled in.
func (ing *Ingestor) IngestText(ctx context.Context, kbID, title, text string) (rag.Document, error) {
	return ing.ingest(ctx, kbID, title, "", text, 0)
}

// IngestFile reads, extracts, and ingests a single file. The extractor is
// selected by file extension.
func (ing *Ingestor) IngestFile(ctx context.Context, kbID, path string) (rag.Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return rag.Document{}, fmt.Errorf("ingest: read %s: %w", path, err)
	}
	ct := ContentTypeFromExtension(filepath.Ext(path))
	extractor, ok := ing.extractors[ct]
	if !ok {
		return rag.Document{}, fmt.Errorf("ingest: no extractor registered for %s", ct)
	}

	pages := 0
	var text string
	if pe, ok := extractor.(PageExtractor); ok {
		text, pages, err = pe.ExtractPages(content)
	} else {
		text, err = extractor.Extract(content)
	}
	if err != nil {
		return rag.Document{}, fmt.Errorf("ingest: extract %s: %w", path, err)
	}

	title := filepath.Base(path)
	return ing.ingest(ctx, kbID, title, path, text, pages)
}

// IngestAll ingests multiple files concurrently, up to the configured
// concurrency limit. The first failure cancels the remaining work.
func (ing *Ingestor) IngestAll(ctx context.Context, kbID string, paths ...string) ([]rag.Document, error) {
	docs := make([]rag.Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(ing.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			doc, err := ing.IngestFile(ctx, kbID, path)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (ing *Ingestor) ingest(ctx context.Context, kbID, title, source, text string, pages int) (rag.Document, error) {
	text = normalizeText(text)
	if text == "" {
		return rag.Document{}, fmt.Errorf("ingest: %s: %w", title, rag.ErrEmptyText)
	}

	start := time.Now()
	chunks, err := ing.chunk(ctx, text)
	if err != nil {
		return rag.Document{}, fmt.Errorf("ingest: %s: %w", title, err)
	}
	if len(chunks) == 0 {
		return rag.Document{}, fmt.Errorf("ingest: %s: %w", title, rag.ErrEmptyText)
	}

	if err := ing.embedChunks(ctx, chunks); err != nil {
		return rag.Document{}, fmt.Errorf("ingest: %s: %w", title, err)
	}

	doc := rag.Document{
		ID:              rag.NewID(),
		KnowledgeBaseID: kbID,
		Title:           title,
		Source:          source,
		Content:         text,
		PageCount:       pages,
		WordCount:       len(strings.Fields(text)),
		CreatedAt:       rag.NowUnix(),
	}
	for i := range chunks {
		chunks[i].ID = rag.NewID()
		chunks[i].DocumentID = doc.ID
		chunks[i].KnowledgeBaseID = kbID
	}

	if err := ing.store.StoreDocument(ctx, doc, chunks); err != nil {
		return rag.Document{}, fmt.Errorf("ingest: store %s: %w", title, err)
	}

	ing.logger.Info("document ingested",
		"document_id", doc.ID,
		"knowledge_base_id", kbID,
		"title", title,
		"chunks", len(chunks),
		"words", doc.WordCount,
		"elapsed", time.Since(start))
	return doc, nil
}

// chunk dispatches to ChunkContext when the chunker needs it (the semantic
// strategy embeds during chunking). Failures there are surfaced, never
// silently degraded.
func (ing *Ingestor) chunk(ctx context.Context, text string) ([]rag.Chunk, error) {
	if cc, ok := ing.chunker.(ContextChunker); ok {
		return cc.ChunkContext(ctx, text)
	}
	return ing.chunker.Chunk(text), nil
}

// embedChunks fills in chunk embeddings in batches. Chunks whose text was
// embedded earlier in this ingestor's lifetime reuse the cached vector.
func (ing *Ingestor) embedChunks(ctx context.Context, chunks []rag.Chunk) error {
	var pending []int
	var texts []string
	for i := range chunks {
		if vec, ok := ing.cache.get(chunks[i].Content); ok {
			chunks[i].Embedding = vec
			continue
		}
		pending = append(pending, i)
		texts = append(texts, chunks[i].Content)
	}

	for off := 0; off < len(texts); off += ing.batchSize {
		end := off + ing.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := ing.embedding.Embed(ctx, texts[off:end])
		if err != nil {
			return fmt.Errorf("embed chunks: %w", err)
		}
		if len(vecs) != end-off {
			return fmt.Errorf("embed chunks: provider returned %d vectors for %d texts", len(vecs), end-off)
		}
		for j, vec := range vecs {
			idx := pending[off+j]
			chunks[idx].Embedding = vec
			ing.cache.put(chunks[idx].Content, vec)
		}
	}
	return nil
}

// normalizeText puts text into the canonical form the chunkers expect:
// NFC unicode normalization, LF line endings, trimmed edges.
func normalizeText(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// embedCache memoizes embeddings by exact text. Bounded by entry count
// rather than bytes; re-ingesting shared boilerplate is the common hit case.
type embedCache struct {
	mu      sync.Mutex
	entries map[string][]float32
}

const embedCacheLimit = 4096

func newEmbedCache() *embedCache {
	return &embedCache{entries: make(map[string][]float32)}
}

func (c *embedCache) get(text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.entries[text]
	return vec, ok
}

func (c *embedCache) put(text string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= embedCacheLimit {
		for k := range c.entries {
			delete(c.entries, k)
			break
		}
	}
	c.entries[text] = vec
}
