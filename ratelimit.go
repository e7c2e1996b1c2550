package rag

import (
	"context"
	"sync"
	"time"
)

// rateLimitEmbedding wraps an EmbeddingProvider with proactive rate limiting.
// Requests block until the rate budget allows them to proceed, which keeps
// bulk ingestion inside embedding-provider rate limits instead of bouncing
// off 429 responses.
type rateLimitEmbedding struct {
	inner EmbeddingProvider
	mu    sync.Mutex

	// RPM state: sliding window of request timestamps.
	rpm       int
	rpmWindow []time.Time
}

// RateLimitOption configures a rate-limited embedding provider.
type RateLimitOption func(*rateLimitEmbedding)

// RPM sets the maximum embedding requests per minute.
func RPM(n int) RateLimitOption {
	return func(r *rateLimitEmbedding) { r.rpm = n }
}

// WithEmbeddingRateLimit wraps p with proactive rate limiting. Compose with
// other wrappers:
//
//	emb = rag.WithEmbeddingRateLimit(provider, rag.RPM(60))
//	emb = rag.WithEmbeddingRateLimit(rag.WithEmbeddingRetry(provider), rag.RPM(60))
func WithEmbeddingRateLimit(p EmbeddingProvider, opts ...RateLimitOption) EmbeddingProvider {
	r := &rateLimitEmbedding{inner: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *rateLimitEmbedding) Name() string    { return r.inner.Name() }
func (r *rateLimitEmbedding) Dimensions() int { return r.inner.Dimensions() }

func (r *rateLimitEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForBudget(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// waitForBudget blocks until the sliding RPM window has room for one more
// request, or ctx is cancelled.
func (r *rateLimitEmbedding) waitForBudget(ctx context.Context) error {
	if r.rpm <= 0 {
		return nil
	}
	for {
		r.mu.Lock()
		now := time.Now()
		cutoff := now.Add(-time.Minute)
		kept := r.rpmWindow[:0]
		for _, t := range r.rpmWindow {
			if t.After(cutoff) {
				kept = append(kept, t)
			}
		}
		r.rpmWindow = kept

		if len(r.rpmWindow) < r.rpm {
			r.rpmWindow = append(r.rpmWindow, now)
			r.mu.Unlock()
			return nil
		}
		wait := r.rpmWindow[0].Sub(cutoff)
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

var _ EmbeddingProvider = (*rateLimitEmbedding)(nil)
