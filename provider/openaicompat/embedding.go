package openaicompat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	rag "github.com/asedra/arketic-rag"
)

// EmbeddingProvider implements rag.EmbeddingProvider against the
// /embeddings endpoint.
type EmbeddingProvider struct {
	apiKey     string
	model      string
	baseURL    string
	client     *http.Client
	name       string
	dimensions int
}

var _ rag.EmbeddingProvider = (*EmbeddingProvider)(nil)

// NewEmbeddingProvider creates an embedding provider. dimensions must match
// what the model actually returns; stores size their vector columns from it.
func NewEmbeddingProvider(apiKey, model, baseURL string, dimensions int, opts ...EmbeddingOption) *EmbeddingProvider {
	p := &EmbeddingProvider{
		apiKey:     apiKey,
		model:      model,
		baseURL:    trimSlash(baseURL),
		client:     &http.Client{},
		name:       "openai",
		dimensions: dimensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *EmbeddingProvider) Name() string { return p.name }

// Dimensions returns the embedding vector size.
func (p *EmbeddingProvider) Dimensions() int { return p.dimensions }

// Embed returns one vector per input text, in order.
func (p *EmbeddingProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &rag.ErrEmbedding{Provider: p.name, Message: "no texts to embed"}
	}
	for i, t := range texts {
		if t == "" {
			return nil, &rag.ErrEmbedding{Provider: p.name, Message: fmt.Sprintf("text %d is empty", i)}
		}
	}

	body, err := json.Marshal(embeddingBody{Model: p.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("openaicompat: marshal embedding request: %w", err)
	}
	httpResp, err := post(ctx, p.client, p.baseURL+"/embeddings", p.apiKey, body)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var parsed embeddingResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("openaicompat: decode embedding response: %w", err)
	}
	if len(parsed.Data) != len(texts) {
		return nil, &rag.ErrEmbedding{
			Provider: p.name,
			Message:  fmt.Sprintf("got %d embeddings for %d texts", len(parsed.Data), len(texts)),
		}
	}

	// The API may return data out of order; index is authoritative.
	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, &rag.ErrEmbedding{
				Provider: p.name,
				Message:  fmt.Sprintf("embedding index %d out of range", d.Index),
			}
		}
		out[d.Index] = d.Embedding
	}
	for i, vec := range out {
		if len(vec) == 0 {
			return nil, &rag.ErrEmbedding{
				Provider: p.name,
				Message:  fmt.Sprintf("missing embedding for text %d", i),
			}
		}
	}
	return out, nil
}

type embeddingBody struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}
