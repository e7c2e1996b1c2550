package rag

import (
	"strings"
	"testing"
)

func TestAssembleEmptyResultsReturnsBaseUnchanged(t *testing.T) {
	a := NewAssembler()
	base := "You are a helpful assistant."

	out, citations := a.Assemble(base, nil)
	if out != base {
		t.Errorf("instructions changed: %q", out)
	}
	if citations != nil {
		t.Errorf("citations = %v, want nil", citations)
	}
}

func TestAssembleIncludesChunksVerbatim(t *testing.T) {
	a := NewAssembler()
	results := []RetrievalResult{
		{Content: "Go maps are not safe for concurrent use.", Score: 0.9, DocumentTitle: "Go FAQ"},
		{Content: "Use sync.Map or a mutex.", Score: 0.7, DocumentTitle: "Go FAQ"},
	}

	out, citations := a.Assemble("Answer briefly.", results)
	for _, r := range results {
		if !strings.Contains(out, r.Content) {
			t.Errorf("chunk text missing or altered: %q", r.Content)
		}
	}
	if !strings.Contains(out, "[Go FAQ]") {
		t.Error("source label missing")
	}
	if !strings.HasPrefix(out, "Answer briefly.") {
		t.Error("base instruction not preserved at the front")
	}
	if len(citations) != 2 {
		t.Fatalf("got %d citations, want 2", len(citations))
	}
	if citations[0].SourceLabel != "Go FAQ" || citations[0].Score != 0.9 {
		t.Errorf("citation = %+v", citations[0])
	}
}

func TestAssemblePositionalLabelWhenTitleMissing(t *testing.T) {
	a := NewAssembler()
	results := []RetrievalResult{{Content: "untitled content", Score: 0.5}}

	out, citations := a.Assemble("base", results)
	if !strings.Contains(out, "[Source 1]") {
		t.Errorf("positional label missing:\n%s", out)
	}
	if citations[0].SourceLabel != "Source 1" {
		t.Errorf("citation label = %q", citations[0].SourceLabel)
	}
}

func TestAssembleBudgetDropsChunksAndCitationsTogether(t *testing.T) {
	a := NewAssembler(WithMaxContextChars(60))
	results := []RetrievalResult{
		{Content: "short", Score: 0.9, DocumentTitle: "A"},
		{Content: strings.Repeat("x", 500), Score: 0.8, DocumentTitle: "B"},
	}

	out, citations := a.Assemble("base", results)
	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(citations))
	}
	if citations[0].SourceLabel != "A" {
		t.Errorf("kept citation = %q", citations[0].SourceLabel)
	}
	if strings.Contains(out, "xxxx") {
		t.Error("dropped chunk text leaked into context")
	}
}

func TestAssembleFirstChunkAlwaysIncluded(t *testing.T) {
	// A single oversized chunk still goes in; an empty context block would
	// be worse than an oversized one.
	a := NewAssembler(WithMaxContextChars(10))
	results := []RetrievalResult{{Content: strings.Repeat("y", 100), Score: 0.9, DocumentTitle: "Big"}}

	out, citations := a.Assemble("base", results)
	if len(citations) != 1 {
		t.Fatalf("got %d citations, want 1", len(citations))
	}
	if !strings.Contains(out, strings.Repeat("y", 100)) {
		t.Error("oversized first chunk missing")
	}
}

func TestAssembleEmptyBase(t *testing.T) {
	a := NewAssembler()
	out, _ := a.Assemble("", []RetrievalResult{{Content: "ctx", Score: 0.5, DocumentTitle: "T"}})
	if strings.HasPrefix(out, "\n") {
		t.Errorf("leading separator with empty base:\n%q", out)
	}
	if !strings.Contains(out, "ctx") {
		t.Error("chunk missing")
	}
}
