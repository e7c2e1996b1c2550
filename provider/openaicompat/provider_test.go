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

func TestChat(t *testing.T) {
	var gotAuth string
	var gotBody chatBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatal(err)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"hi there"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`)
	}))
	defer srv.Close()

	p := NewProvider("sk-test", "gpt-4o-mini", srv.URL)
	resp, err := p.Chat(context.Background(), rag.ChatRequest{
		Messages: []rag.ChatMessage{rag.UserMessage("hello")},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "hi there" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("auth = %q", gotAuth)
	}
	if gotBody.Model != "gpt-4o-mini" || gotBody.Stream {
		t.Errorf("body = %+v", gotBody)
	}
}

func TestChatHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"rate limited"}`)
	}))
	defer srv.Close()

	p := NewProvider("", "m", srv.URL)
	_, err := p.Chat(context.Background(), rag.ChatRequest{Messages: []rag.ChatMessage{rag.UserMessage("x")}})
	var httpErr *rag.ErrHTTP
	if !errors.As(err, &httpErr) {
		t.Fatalf("err = %v, want *rag.ErrHTTP", err)
	}
	if httpErr.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d", httpErr.Status)
	}
	if httpErr.RetryAfter == 0 {
		t.Error("Retry-After not parsed")
	}
	if !rag.IsTransient(err) {
		t.Error("429 should be transient")
	}
}

func TestChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if !body.Stream || body.StreamOptions == nil || !body.StreamOptions.IncludeUsage {
			t.Errorf("stream request body = %+v", body)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n")
		fmt.Fprint(w, ": keep-alive comment\n\n")
		fmt.Fprint(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2}}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	p := NewProvider("", "m", srv.URL)
	ch := make(chan string, 8)
	resp, err := p.ChatStream(context.Background(), rag.ChatRequest{
		Messages: []rag.ChatMessage{rag.UserMessage("hi")},
	}, ch)
	if err != nil {
		t.Fatal(err)
	}

	var tokens []string
	for tok := range ch {
		tokens = append(tokens, tok)
	}
	if len(tokens) != 2 || tokens[0] != "Hel" || tokens[1] != "lo" {
		t.Errorf("tokens = %v", tokens)
	}
	if resp.Content != "Hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.InputTokens != 5 || resp.Usage.OutputTokens != 2 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestChatStreamClosesChannelOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewProvider("", "m", srv.URL)
	ch := make(chan string, 1)
	if _, err := p.ChatStream(context.Background(), rag.ChatRequest{}, ch); err == nil {
		t.Fatal("expected error")
	}
	if _, open := <-ch; open {
		t.Error("channel should be closed after failure")
	}
}

func TestProviderOptions(t *testing.T) {
	p := NewProvider("", "m", "http://x/", WithName("groq"), WithTemperature(0.2), WithMaxTokens(128))
	if p.Name() != "groq" {
		t.Errorf("name = %q", p.Name())
	}
	if p.baseURL != "http://x" {
		t.Errorf("baseURL = %q, trailing slash should be trimmed", p.baseURL)
	}
	body, err := p.buildBody(rag.ChatRequest{}, false)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["temperature"] != 0.2 {
		t.Errorf("temperature = %v", decoded["temperature"])
	}
	if decoded["max_tokens"] != float64(128) {
		t.Errorf("max_tokens = %v", decoded["max_tokens"])
	}
}
