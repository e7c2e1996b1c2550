package rag

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", &ErrHTTP{Status: 429}, true},
		{"http 503", &ErrHTTP{Status: 503}, true},
		{"http 400", &ErrHTTP{Status: 400}, false},
		{"http 500", &ErrHTTP{Status: 500}, false},
		{"embedding transient", &ErrEmbedding{Transient: true}, true},
		{"embedding permanent", &ErrEmbedding{}, false},
		{"wrapped 429", fmt.Errorf("call: %w", &ErrHTTP{Status: 429}), true},
		{"plain error", errors.New("nope"), false},
		{"empty text", ErrEmptyText, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestErrHTTPMessage(t *testing.T) {
	err := &ErrHTTP{Status: 503, Body: "overloaded"}
	if err.Error() != "http 503: overloaded" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestErrEmbeddingMessage(t *testing.T) {
	err := &ErrEmbedding{Provider: "openai", Message: "empty input"}
	if err.Error() != "openai: empty input" {
		t.Errorf("message = %q", err.Error())
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"0", 0},
		{"-3", 0},
		{"not a number", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
