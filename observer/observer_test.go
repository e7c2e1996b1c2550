package observer

import (
	"context"
	"errors"
	"testing"

	rag "github.com/asedra/arketic-rag"
)

type stubProvider struct {
	resp rag.ChatResponse
	err  error
}

func (s *stubProvider) Chat(context.Context, rag.ChatRequest) (rag.ChatResponse, error) {
	return s.resp, s.err
}

func (s *stubProvider) ChatStream(ctx context.Context, _ rag.ChatRequest, ch chan<- string) (rag.ChatResponse, error) {
	defer close(ch)
	if s.err != nil {
		return rag.ChatResponse{}, s.err
	}
	ch <- s.resp.Content
	return s.resp, nil
}

func (s *stubProvider) Name() string { return "stub" }

type stubEmbedding struct{ err error }

func (s *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (s *stubEmbedding) Dimensions() int { return 1 }
func (s *stubEmbedding) Name() string    { return "stub" }

type stubStore struct {
	rag.Store
	results []rag.ScoredChunk
}

func (s *stubStore) SearchChunks(context.Context, []float32, int, rag.Scope) ([]rag.ScoredChunk, error) {
	return s.results, nil
}

// No Init call, so all instruments are global no-ops; these tests assert the
// wrappers delegate faithfully.

func TestObservedProviderDelegates(t *testing.T) {
	inst, err := NewInstruments(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := rag.ChatResponse{Content: "answer", Usage: rag.Usage{InputTokens: 10, OutputTokens: 5}}
	p := WrapProvider(&stubProvider{resp: want}, "gpt-4o-mini", inst)

	got, err := p.Chat(context.Background(), rag.ChatRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("got %+v", got)
	}
	if p.Name() != "stub" {
		t.Errorf("name = %q", p.Name())
	}
}

func TestObservedProviderStreamDelegates(t *testing.T) {
	inst, err := NewInstruments(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := rag.ChatResponse{Content: "streamed"}
	p := WrapProvider(&stubProvider{resp: want}, "m", inst)

	ch := make(chan string, 4)
	got, err := p.ChatStream(context.Background(), rag.ChatRequest{}, ch)
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "streamed" {
		t.Errorf("content = %q", got.Content)
	}
	var tokens []string
	for tok := range ch {
		tokens = append(tokens, tok)
	}
	if len(tokens) != 1 || tokens[0] != "streamed" {
		t.Errorf("tokens = %v", tokens)
	}
}

func TestObservedProviderStreamClosesOnError(t *testing.T) {
	inst, err := NewInstruments(nil)
	if err != nil {
		t.Fatal(err)
	}
	p := WrapProvider(&stubProvider{err: errors.New("down")}, "m", inst)
	ch := make(chan string, 1)
	if _, err := p.ChatStream(context.Background(), rag.ChatRequest{}, ch); err == nil {
		t.Fatal("expected error")
	}
	if _, open := <-ch; open {
		t.Error("channel should be closed")
	}
}

func TestObservedEmbeddingDelegates(t *testing.T) {
	inst, err := NewInstruments(nil)
	if err != nil {
		t.Fatal(err)
	}
	e := WrapEmbedding(&stubEmbedding{}, "text-embedding-3-small", inst)

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors", len(vecs))
	}
	if e.Dimensions() != 1 || e.Name() != "stub" {
		t.Errorf("passthrough broken: %d, %q", e.Dimensions(), e.Name())
	}

	wantErr := errors.New("quota")
	e = WrapEmbedding(&stubEmbedding{err: wantErr}, "m", inst)
	if _, err := e.Embed(context.Background(), []string{"a"}); !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
}

func TestObservedStoreDelegates(t *testing.T) {
	inst, err := NewInstruments(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []rag.ScoredChunk{{Score: 0.9}}
	s := WrapStore(&stubStore{results: want}, inst)

	got, err := s.SearchChunks(context.Background(), []float32{1}, 5, rag.Scope{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Score != 0.9 {
		t.Errorf("got %v", got)
	}
}
