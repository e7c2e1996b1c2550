package rag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Retriever searches the corpus and returns ranked results for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, scope Scope, topK int) ([]RetrievalResult, error)
}

// RetrieverOption configures a VectorRetriever.
type RetrieverOption func(*retrieverConfig)

type retrieverConfig struct {
	minScore float32
	timeout  time.Duration
	logger   *slog.Logger
}

// WithMinScore sets the minimum similarity threshold. Results scoring below
// it are excluded entirely, not merely deprioritized. Default is 0.
func WithMinScore(score float32) RetrieverOption {
	return func(c *retrieverConfig) { c.minScore = score }
}

// WithSearchTimeout bounds a single Retrieve call (query embedding plus store
// search). The zero value disables the bound. On timeout, RetrieveWithFallback
// degrades to an empty result set instead of blocking the caller.
func WithSearchTimeout(d time.Duration) RetrieverOption {
	return func(c *retrieverConfig) { c.timeout = d }
}

// WithRetrieverLogger sets the structured logger for degradation events.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(c *retrieverConfig) { c.logger = l }
}

// VectorRetriever wraps a Store's similarity-search primitive with query
// embedding, scope filtering, score thresholding, and deterministic ranking.
type VectorRetriever struct {
	store     Store
	embedding EmbeddingProvider
	cfg       retrieverConfig
}

var _ Retriever = (*VectorRetriever)(nil)

// NewVectorRetriever creates a retriever over store using embedding for
// query vectors.
func NewVectorRetriever(store Store, embedding EmbeddingProvider, opts ...RetrieverOption) *VectorRetriever {
	cfg := retrieverConfig{}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = nopLogger
	}
	return &VectorRetriever{store: store, embedding: embedding, cfg: cfg}
}

// Retrieve searches within scope using the configured minimum score.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string, scope Scope, topK int) ([]RetrievalResult, error) {
	return r.Search(ctx, query, scope, topK, r.cfg.minScore)
}

// Search embeds the query and returns up to topK chunks within scope ranked
// by descending similarity, ties broken by chunk sequence index ascending so
// repeated queries are deterministic. Entries scoring below minScore are
// dropped; fewer than topK results — or none at all — is a valid outcome
// meaning insufficient relevant context, not an error.
func (r *VectorRetriever) Search(ctx context.Context, query string, scope Scope, topK int, minScore float32) ([]RetrievalResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if r.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.timeout)
		defer cancel()
	}

	embs, err := r.embedding.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, fmt.Errorf("embed query: no embedding returned")
	}

	scored, err := r.store.SearchChunks(ctx, embs[0], topK, scope)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]RetrievalResult, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < minScore {
			continue
		}
		results = append(results, RetrievalResult{
			Content:       sc.Content,
			Score:         sc.Score,
			ChunkID:       sc.ID,
			ChunkIndex:    sc.Index,
			DocumentID:    sc.DocumentID,
			DocumentTitle: sc.DocumentTitle,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkIndex < results[j].ChunkIndex
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// RetrieveWithFallback never fails: on embedding or store errors, timeout
// included, it logs the degradation and returns an empty result set so the
// caller falls back to ungrounded generation instead of surfacing a provider
// error to the end user. The degraded flag distinguishes "nothing relevant"
// from "search unavailable".
func (r *VectorRetriever) RetrieveWithFallback(ctx context.Context, query string, scope Scope, topK int) (results []RetrievalResult, degraded bool) {
	results, err := r.Retrieve(ctx, query, scope, topK)
	if err != nil {
		r.cfg.logger.Warn("retrieval degraded, falling back to ungrounded generation",
			"error", err,
			"scoped", !scope.IsEmpty())
		return nil, true
	}
	return results, false
}
