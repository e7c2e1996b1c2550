package ingest

import (
	"strings"
	"testing"
)

func TestContentTypeFromExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want ContentType
	}{
		{"md", TypeMarkdown},
		{".markdown", TypeMarkdown},
		{"HTML", TypeHTML},
		{".htm", TypeHTML},
		{"csv", TypeCSV},
		{"json", TypeJSON},
		{"pdf", TypePDF},
		{"txt", TypePlainText},
		{"xyz", TypePlainText},
		{"", TypePlainText},
	}
	for _, tt := range tests {
		if got := ContentTypeFromExtension(tt.ext); got != tt.want {
			t.Errorf("ContentTypeFromExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestMarkdownExtractorPreservesStructure(t *testing.T) {
	input := "# Heading\n\nBody text with a [link](https://example.com)."
	got, err := MarkdownExtractor{}.Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if got != input {
		t.Errorf("markdown should pass through unchanged, got %q", got)
	}
}

func TestCSVExtractor(t *testing.T) {
	input := "name,role,city\nAda,Engineer,London\nLin,Analyst,\n"
	got, err := NewCSVExtractor().Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	paragraphs := strings.Split(got, "\n\n")
	if len(paragraphs) != 2 {
		t.Fatalf("got %d paragraphs, want 2: %q", len(paragraphs), got)
	}
	if paragraphs[0] != "name: Ada, role: Engineer, city: London" {
		t.Errorf("first paragraph = %q", paragraphs[0])
	}
	if paragraphs[1] != "name: Lin, role: Analyst" {
		t.Errorf("empty cells should be skipped, got %q", paragraphs[1])
	}
}

func TestCSVExtractorEdgeCases(t *testing.T) {
	e := NewCSVExtractor()

	if got, err := e.Extract([]byte("")); err != nil || got != "" {
		t.Errorf("empty input: got %q, %v", got, err)
	}
	if got, err := e.Extract([]byte("only,headers\n")); err != nil || got != "" {
		t.Errorf("header-only input: got %q, %v", got, err)
	}

	// UTF-8 BOM must not leak into the first header.
	withBOM := "\xef\xbb\xbfname\nAda\n"
	got, err := e.Extract([]byte(withBOM))
	if err != nil {
		t.Fatal(err)
	}
	if got != "name: Ada" {
		t.Errorf("BOM input: got %q", got)
	}

	// Ragged rows keep the cells that have headers.
	ragged := "a,b\n1,2,3\n"
	got, err = e.Extract([]byte(ragged))
	if err != nil {
		t.Fatal(err)
	}
	if got != "a: 1, b: 2" {
		t.Errorf("ragged row: got %q", got)
	}
}

func TestJSONExtractor(t *testing.T) {
	input := `{"title":"Report","meta":{"year":2024,"public":true},"tags":["go","rag"]}`
	got, err := NewJSONExtractor().Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"meta.public: true",
		"meta.year: 2024",
		"tags: go, rag",
		"title: Report",
	}, "\n")
	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestJSONExtractorArrayOfObjects(t *testing.T) {
	input := `{"items":[{"id":1},{"id":2}]}`
	got, err := NewJSONExtractor().Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	want := "items[0].id: 1\nitems[1].id: 2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

// Extraction must be byte-identical across runs even though Go maps
// iterate in random order.
func TestJSONExtractorDeterministic(t *testing.T) {
	input := `{"z":1,"a":2,"m":{"q":3,"b":4},"k":5}`
	e := NewJSONExtractor()
	first, err := e.Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := e.Extract([]byte(input))
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, got, first)
		}
	}
}

func TestJSONExtractorInvalidInput(t *testing.T) {
	if _, err := NewJSONExtractor().Extract([]byte("{not json")); err == nil {
		t.Error("expected parse error")
	}
	if got, err := NewJSONExtractor().Extract([]byte("  ")); err != nil || got != "" {
		t.Errorf("blank input: got %q, %v", got, err)
	}
}

func TestHTMLExtractor(t *testing.T) {
	input := `<html><head><title>T</title><style>p{color:red}</style></head>
<body><article><h1>Headline</h1><p>First paragraph of the article body with enough words to keep.</p>
<p>Second paragraph of the article body with plenty of text as well.</p></article>
<script>alert("nope")</script></body></html>`
	got, err := NewHTMLExtractor().Extract([]byte(input))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "First paragraph") || !strings.Contains(got, "Second paragraph") {
		t.Errorf("article text missing from %q", got)
	}
	if strings.Contains(got, "alert(") || strings.Contains(got, "color:red") {
		t.Errorf("script or style leaked into %q", got)
	}
}
