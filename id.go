package rag

import (
	"time"

	"github.com/google/uuid"
)

// NewID returns a UUIDv7 (RFC 9562) for documents and chunks. The embedded
// timestamp makes IDs sort in creation order, which keeps tie-breaking on ID
// stable across ingestion runs.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// NowUnix returns the current time as Unix seconds, the resolution stored
// in Document.CreatedAt.
func NowUnix() int64 {
	return time.Now().Unix()
}
