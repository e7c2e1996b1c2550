// Package pdf provides a PDF text extractor for the ingest pipeline.
//
// It uses ledongthuc/pdf (pure Go, no CGO). PDF support lives in its own
// subpackage so the dependency is only pulled in by users who need it.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/asedra/arketic-rag/ingest"
)

// Extractor implements ingest.Extractor and ingest.PageExtractor for PDF
// documents.
type Extractor struct{}

var (
	_ ingest.Extractor     = (*Extractor)(nil)
	_ ingest.PageExtractor = (*Extractor)(nil)
)

// NewExtractor creates a PDF extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract returns the plain text of all readable pages.
func (e *Extractor) Extract(content []byte) (string, error) {
	text, _, err := e.ExtractPages(content)
	return text, err
}

// ExtractPages returns the plain text of all readable pages and the number
// of pages that contributed text. Unreadable pages are skipped rather than
// failing the whole document.
func (e *Extractor) ExtractPages(content []byte) (string, int, error) {
	if len(content) == 0 {
		return "", 0, errors.New("pdf: empty content")
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf: open: %w", err)
	}

	var b strings.Builder
	pages := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(pageText)
		pages++
	}
	return strings.TrimSpace(b.String()), pages, nil
}
