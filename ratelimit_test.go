package rag

import (
	"context"
	"testing"
	"time"
)

func TestRateLimitNoLimitPassesThrough(t *testing.T) {
	emb := &stubEmbedding{}
	p := WithEmbeddingRateLimit(emb)

	for i := 0; i < 10; i++ {
		if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
			t.Fatal(err)
		}
	}
	if emb.calls != 10 {
		t.Errorf("calls = %d", emb.calls)
	}
}

func TestRateLimitAllowsBurstWithinBudget(t *testing.T) {
	emb := &stubEmbedding{}
	p := WithEmbeddingRateLimit(emb, RPM(5))

	start := time.Now()
	for i := 0; i < 5; i++ {
		if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
			t.Fatal(err)
		}
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("burst within budget took %v", elapsed)
	}
}

func TestRateLimitBlocksOverBudgetUntilCancelled(t *testing.T) {
	p := WithEmbeddingRateLimit(&stubEmbedding{}, RPM(1))
	if _, err := p.Embed(context.Background(), []string{"x"}); err != nil {
		t.Fatal(err)
	}

	// The second request needs the minute window to roll; cancel instead.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Embed(ctx, []string{"y"})
	if err == nil {
		t.Fatal("expected cancellation while waiting for budget")
	}
}

func TestRateLimitPreservesMetadata(t *testing.T) {
	emb := &stubEmbedding{dims: 7}
	p := WithEmbeddingRateLimit(emb, RPM(10))
	if p.Name() != "stub-embed" || p.Dimensions() != 7 {
		t.Errorf("name=%q dims=%d", p.Name(), p.Dimensions())
	}
}
