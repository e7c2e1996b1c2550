package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	rag "github.com/asedra/arketic-rag"
)

func TestEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var body embeddingBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if len(body.Input) != 2 {
			t.Errorf("input = %v", body.Input)
		}
		// Out-of-order data; the client must reorder by index.
		fmt.Fprint(w, `{"data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}]}`)
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("key", "text-embedding-3-small", srv.URL, 2)
	vecs, err := p.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if vecs[0][0] != 0.1 || vecs[1][0] != 0.3 {
		t.Errorf("vectors out of order: %v", vecs)
	}
	if p.Dimensions() != 2 {
		t.Errorf("dimensions = %d", p.Dimensions())
	}
}

func TestEmbedRejectsEmptyInput(t *testing.T) {
	p := NewEmbeddingProvider("", "m", "http://unused", 4)

	var embErr *rag.ErrEmbedding
	if _, err := p.Embed(context.Background(), nil); !errors.As(err, &embErr) {
		t.Errorf("nil input err = %v, want *rag.ErrEmbedding", err)
	}
	if _, err := p.Embed(context.Background(), []string{"ok", ""}); !errors.As(err, &embErr) {
		t.Errorf("empty text err = %v, want *rag.ErrEmbedding", err)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"index":0,"embedding":[0.1]}]}`)
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("", "m", srv.URL, 1)
	var embErr *rag.ErrEmbedding
	if _, err := p.Embed(context.Background(), []string{"a", "b"}); !errors.As(err, &embErr) {
		t.Errorf("err = %v, want *rag.ErrEmbedding", err)
	}
}

func TestEmbedServiceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewEmbeddingProvider("", "m", srv.URL, 1)
	_, err := p.Embed(context.Background(), []string{"a"})
	if !rag.IsTransient(err) {
		t.Errorf("503 should be transient, got %v", err)
	}
}
