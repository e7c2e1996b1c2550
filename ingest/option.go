package ingest

import "log/slog"

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithChunker sets the chunking strategy (default recursive).
func WithChunker(c Chunker) IngestorOption {
	return func(ing *Ingestor) { ing.chunker = c }
}

// WithExtractor registers or replaces the extractor for a content type.
func WithExtractor(ct ContentType, e Extractor) IngestorOption {
	return func(ing *Ingestor) { ing.extractors[ct] = e }
}

// WithConcurrency sets how many files IngestAll processes at once
// (default 3).
func WithConcurrency(n int) IngestorOption {
	return func(ing *Ingestor) { ing.concurrency = n }
}

// WithBatchSize sets how many chunk texts go into one embedding request
// (default 64).
func WithBatchSize(n int) IngestorOption {
	return func(ing *Ingestor) { ing.batchSize = n }
}

// WithIngestLogger sets the structured logger for pipeline progress.
func WithIngestLogger(l *slog.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}
