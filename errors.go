package rag

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// ErrEmptyText is returned when a caller submits empty or whitespace-only
// document text. This is an input error: callers must reject such documents
// before chunking, so the pipeline treats it as non-retryable.
var ErrEmptyText = errors.New("rag: empty text")

// ErrEmbedding reports an embedding provider failure. Transient failures
// (rate limits, temporary unavailability) are retryable; non-transient
// failures (invalid input such as empty text) must not be retried.
type ErrEmbedding struct {
	Provider  string
	Message   string
	Transient bool
}

func (e *ErrEmbedding) Error() string {
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ErrHTTP reports a non-2xx response from a provider HTTP API.
type ErrHTTP struct {
	Status     int
	Body       string
	RetryAfter time.Duration
}

func (e *ErrHTTP) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// IsTransient reports whether err is a retryable provider failure:
// an ErrHTTP with status 429 or 503, or an ErrEmbedding marked transient.
func IsTransient(err error) bool {
	var he *ErrHTTP
	if errors.As(err, &he) {
		return he.Status == 429 || he.Status == 503
	}
	var ee *ErrEmbedding
	if errors.As(err, &ee) {
		return ee.Transient
	}
	return false
}

// ParseRetryAfter parses an HTTP Retry-After header value given in seconds.
// Returns 0 for empty or unparseable values (HTTP-date form is ignored).
func ParseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
