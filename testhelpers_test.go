package rag

import "context"

// nopStore satisfies Store with no-ops. Embed it in test-specific store
// structs to avoid implementing every method.
type nopStore struct{}

func (nopStore) StoreDocument(_ context.Context, _ Document, _ []Chunk) error { return nil }
func (nopStore) GetDocument(_ context.Context, _ string) (Document, error)    { return Document{}, nil }
func (nopStore) ListDocuments(_ context.Context, _ string, _ int) ([]Document, error) {
	return nil, nil
}
func (nopStore) DeleteDocument(_ context.Context, _ string) error { return nil }
func (nopStore) SearchChunks(_ context.Context, _ []float32, _ int, _ Scope) ([]ScoredChunk, error) {
	return nil, nil
}
func (nopStore) GetChunksByIDs(_ context.Context, _ []string) ([]Chunk, error) { return nil, nil }
func (nopStore) Close() error                                                  { return nil }

var _ Store = nopStore{}

// searchStore returns canned search results and records the last query.
type searchStore struct {
	nopStore
	results []ScoredChunk
	err     error

	lastTopK  int
	lastScope Scope
}

func (s *searchStore) SearchChunks(_ context.Context, _ []float32, topK int, scope Scope) ([]ScoredChunk, error) {
	s.lastTopK = topK
	s.lastScope = scope
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// stubEmbedding returns a fixed vector for every input text.
type stubEmbedding struct {
	dims  int
	err   error
	calls int
}

func (s *stubEmbedding) Name() string { return "stub-embed" }
func (s *stubEmbedding) Dimensions() int {
	if s.dims == 0 {
		return 3
	}
	return s.dims
}

func (s *stubEmbedding) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

var _ EmbeddingProvider = (*stubEmbedding)(nil)

// stubProvider is a test Provider that returns pre-configured results in
// order. Chat and ChatStream share the same result queue.
type stubProvider struct {
	calls    int
	results  []stubResult
	lastReq  ChatRequest
}

type stubResult struct {
	resp   ChatResponse
	tokens []string
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) next() stubResult {
	i := s.calls
	s.calls++
	if i < len(s.results) {
		return s.results[i]
	}
	return stubResult{}
}

func (s *stubProvider) Chat(_ context.Context, req ChatRequest) (ChatResponse, error) {
	s.lastReq = req
	r := s.next()
	return r.resp, r.err
}

func (s *stubProvider) ChatStream(_ context.Context, req ChatRequest, ch chan<- string) (ChatResponse, error) {
	defer close(ch)
	s.lastReq = req
	r := s.next()
	for _, tok := range r.tokens {
		ch <- tok
	}
	return r.resp, r.err
}

var _ Provider = (*stubProvider)(nil)
