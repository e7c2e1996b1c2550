// Package openaicompat implements chat and embedding providers for any
// OpenAI-compatible API: OpenAI itself, OpenRouter, Groq, Together,
// DeepSeek, Mistral, Ollama, vLLM, LM Studio, Azure OpenAI, and others
// exposing the same HTTP surface.
package openaicompat

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	rag "github.com/asedra/arketic-rag"
)

// Provider implements rag.Provider against the chat completions endpoint.
type Provider struct {
	apiKey      string
	model       string
	baseURL     string
	client      *http.Client
	name        string
	temperature *float64
	maxTokens   *int
}

var _ rag.Provider = (*Provider)(nil)

// NewProvider creates a chat provider. baseURL is the API base, e.g.
// "https://api.openai.com/v1" or "http://localhost:11434/v1"; the
// /chat/completions path is appended automatically.
func NewProvider(apiKey, model, baseURL string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{},
		name:    "openai",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name (default "openai", configurable).
func (p *Provider) Name() string { return p.name }

// Chat sends a request and returns the complete response.
func (p *Provider) Chat(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error) {
	body, err := p.buildBody(req, false)
	if err != nil {
		return rag.ChatResponse{}, err
	}
	httpResp, err := post(ctx, p.client, p.baseURL+"/chat/completions", p.apiKey, body)
	if err != nil {
		return rag.ChatResponse{}, err
	}
	defer httpResp.Body.Close()

	var parsed chatCompletion
	if err := json.NewDecoder(httpResp.Body).Decode(&parsed); err != nil {
		return rag.ChatResponse{}, fmt.Errorf("openaicompat: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return rag.ChatResponse{}, fmt.Errorf("openaicompat: response has no choices")
	}
	return rag.ChatResponse{
		Content: parsed.Choices[0].Message.Content,
		Usage: rag.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
		},
	}, nil
}

// ChatStream streams text deltas into ch and returns the final response.
// ch is closed before returning.
func (p *Provider) ChatStream(ctx context.Context, req rag.ChatRequest, ch chan<- string) (rag.ChatResponse, error) {
	defer close(ch)

	body, err := p.buildBody(req, true)
	if err != nil {
		return rag.ChatResponse{}, err
	}
	httpResp, err := post(ctx, p.client, p.baseURL+"/chat/completions", p.apiKey, body)
	if err != nil {
		return rag.ChatResponse{}, err
	}
	defer httpResp.Body.Close()

	var content strings.Builder
	var usage rag.Usage

	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}
		var event streamEvent
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Malformed keep-alive or vendor extension; skip it.
			continue
		}
		if event.Usage != nil {
			usage.InputTokens = event.Usage.PromptTokens
			usage.OutputTokens = event.Usage.CompletionTokens
		}
		if len(event.Choices) == 0 {
			continue
		}
		if delta := event.Choices[0].Delta.Content; delta != "" {
			content.WriteString(delta)
			select {
			case ch <- delta:
			case <-ctx.Done():
				return rag.ChatResponse{}, ctx.Err()
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return rag.ChatResponse{}, fmt.Errorf("openaicompat: read stream: %w", err)
	}
	return rag.ChatResponse{Content: content.String(), Usage: usage}, nil
}

func (p *Provider) buildBody(req rag.ChatRequest, stream bool) ([]byte, error) {
	body := chatBody{
		Model:       p.model,
		Messages:    req.Messages,
		Stream:      stream,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}
	if stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	out, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: marshal request: %w", err)
	}
	return out, nil
}

// post sends a JSON request and maps non-200 statuses to rag.ErrHTTP with
// Retry-After preserved so the retry layer can honor it.
func post(ctx context.Context, client *http.Client, url, apiKey string, body []byte) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openaicompat: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openaicompat: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &rag.ErrHTTP{
			Status:     resp.StatusCode,
			Body:       string(respBody),
			RetryAfter: rag.ParseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return resp, nil
}

// --- Wire types ---

type chatBody struct {
	Model         string            `json:"model"`
	Messages      []rag.ChatMessage `json:"messages"`
	Stream        bool              `json:"stream,omitempty"`
	StreamOptions *streamOptions    `json:"stream_options,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	MaxTokens     *int              `json:"max_tokens,omitempty"`
}

type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type chatCompletion struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage usageBody `json:"usage"`
}

type streamEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *usageBody `json:"usage"`
}

type usageBody struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}
