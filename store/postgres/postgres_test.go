package postgres

import (
	"strings"
	"testing"

	rag "github.com/asedra/arketic-rag"
)

func TestSerializeEmbedding(t *testing.T) {
	got := serializeEmbedding([]float32{0.1, -0.5, 2})
	if got != "[0.1,-0.5,2]" {
		t.Errorf("serializeEmbedding = %q", got)
	}
	if got := serializeEmbedding(nil); got != "[]" {
		t.Errorf("empty vector = %q", got)
	}
}

func TestDeserializeEmbedding(t *testing.T) {
	vec, err := deserializeEmbedding("[0.1,-0.5,2]")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[2] != 2 {
		t.Errorf("vec = %v", vec)
	}
	if _, err := deserializeEmbedding("[a,b]"); err == nil {
		t.Error("expected parse error")
	}
	vec, err = deserializeEmbedding("[]")
	if err != nil || vec != nil {
		t.Errorf("empty = %v, %v", vec, err)
	}
}

func TestScopeFilter(t *testing.T) {
	where, args := scopeFilter(rag.Scope{}, 3)
	if where != "" || len(args) != 0 {
		t.Errorf("empty scope produced %q with %d args", where, len(args))
	}

	where, args = scopeFilter(rag.Scope{KnowledgeBaseIDs: []string{"kb1", "kb2"}}, 3)
	if !strings.Contains(where, "knowledge_base_id = ANY($3)") || len(args) != 1 {
		t.Errorf("kb scope = %q, %v", where, args)
	}

	where, args = scopeFilter(rag.Scope{
		KnowledgeBaseIDs: []string{"kb1"},
		DocumentIDs:      []string{"d1"},
	}, 3)
	if !strings.Contains(where, "$3") || !strings.Contains(where, "document_id = ANY($4)") {
		t.Errorf("combined scope = %q", where)
	}
	if len(args) != 2 {
		t.Errorf("combined scope args = %v", args)
	}
}

func TestVectorType(t *testing.T) {
	s := New(nil)
	if s.vectorType() != "vector" {
		t.Errorf("default vector type = %q", s.vectorType())
	}
	s = New(nil, WithEmbeddingDimension(1536))
	if s.vectorType() != "vector(1536)" {
		t.Errorf("sized vector type = %q", s.vectorType())
	}
}

func TestHNSWWithClause(t *testing.T) {
	s := New(nil)
	if s.hnswWithClause() != "" {
		t.Errorf("default clause = %q", s.hnswWithClause())
	}
	s = New(nil, WithHNSWM(32), WithEFConstruction(128))
	if s.hnswWithClause() != " WITH (m = 32, ef_construction = 128)" {
		t.Errorf("clause = %q", s.hnswWithClause())
	}
}

func TestClampScore(t *testing.T) {
	if clampScore(-0.2) != 0 {
		t.Error("negative score not clamped")
	}
	if clampScore(1.2) != 1 {
		t.Error("overshoot not clamped")
	}
	if clampScore(0.5) != 0.5 {
		t.Error("valid score changed")
	}
}
