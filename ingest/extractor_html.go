package ingest

import (
	"bytes"
	"fmt"
	"net/url"

	readability "github.com/go-shiori/go-readability"
)

// HTMLExtractor extracts the readable article text from an HTML page,
// discarding navigation, boilerplate, scripts, and styles.
type HTMLExtractor struct{}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor { return &HTMLExtractor{} }

// Extract parses the page and returns its main text content.
func (e *HTMLExtractor) Extract(content []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(content), &url.URL{})
	if err != nil {
		return "", fmt.Errorf("ingest: extract html: %w", err)
	}
	return article.TextContent, nil
}
