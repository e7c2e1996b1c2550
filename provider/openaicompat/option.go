package openaicompat

import (
	"net/http"
	"strings"
)

// Option configures a chat Provider.
type Option func(*Provider)

// WithName overrides the provider name reported in logs and errors.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithTemperature sets the sampling temperature for all requests.
func WithTemperature(t float64) Option {
	return func(p *Provider) { p.temperature = &t }
}

// WithMaxTokens caps generated tokens per request.
func WithMaxTokens(n int) Option {
	return func(p *Provider) { p.maxTokens = &n }
}

// EmbeddingOption configures an EmbeddingProvider.
type EmbeddingOption func(*EmbeddingProvider)

// WithEmbeddingName overrides the provider name reported in errors.
func WithEmbeddingName(name string) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.name = name }
}

// WithEmbeddingHTTPClient replaces the default HTTP client.
func WithEmbeddingHTTPClient(c *http.Client) EmbeddingOption {
	return func(p *EmbeddingProvider) { p.client = c }
}

func trimSlash(s string) string { return strings.TrimSuffix(s, "/") }
