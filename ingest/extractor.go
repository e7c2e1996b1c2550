package ingest

import "strings"

// Extractor converts raw file content to plain text ready for chunking.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ContentType identifies the MIME type of content for extraction.
type ContentType string

const (
	TypePlainText ContentType = "text/plain"
	TypeHTML      ContentType = "text/html"
	TypeMarkdown  ContentType = "text/markdown"
	TypeCSV       ContentType = "text/csv"
	TypeJSON      ContentType = "application/json"
	TypePDF       ContentType = "application/pdf"
)

// ContentTypeFromExtension maps a file extension (with or without the dot)
// to a content type. Unknown extensions fall back to plain text.
func ContentTypeFromExtension(ext string) ContentType {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "md", "markdown":
		return TypeMarkdown
	case "html", "htm":
		return TypeHTML
	case "csv":
		return TypeCSV
	case "json":
		return TypeJSON
	case "pdf":
		return TypePDF
	default:
		return TypePlainText
	}
}

// PlainTextExtractor returns content as-is.
type PlainTextExtractor struct{}

var _ Extractor = (*PlainTextExtractor)(nil)

func (PlainTextExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}

// MarkdownExtractor passes markdown through unchanged. Heading markers and
// list structure are deliberately preserved: the chunking side detects them
// and splits along section boundaries.
type MarkdownExtractor struct{}

var _ Extractor = (*MarkdownExtractor)(nil)

func (MarkdownExtractor) Extract(content []byte) (string, error) {
	return string(content), nil
}

// PageExtractor is an optional capability for extractors that know page
// boundaries. When an Extractor also implements it, the Ingestor records
// the page count on the stored document.
type PageExtractor interface {
	ExtractPages(content []byte) (text string, pages int, err error)
}
