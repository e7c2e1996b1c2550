package ingest

import "testing"

func TestAnalyzeMarkdown(t *testing.T) {
	input := "# Title\n\nSome intro text.\n\n## Section\n\n- item one\n- item two\n\n```go\ncode here\n```\n"
	st := Analyze(input)
	if st.Type != DocTypeMarkdown {
		t.Errorf("type = %q, want markdown", st.Type)
	}
	if st.HeadingCount != 2 {
		t.Errorf("headings = %d, want 2", st.HeadingCount)
	}
	if st.ListCount != 1 {
		t.Errorf("lists = %d, want 1", st.ListCount)
	}
	if st.CodeBlocks != 1 {
		t.Errorf("code blocks = %d, want 1", st.CodeBlocks)
	}
}

func TestAnalyzeNumberedSections(t *testing.T) {
	input := "1. Introduction\n\nText here without any markdown.\n\n2. Methods\n\nMore text."
	st := Analyze(input)
	if st.Type != DocTypeStructured {
		t.Errorf("type = %q, want structured", st.Type)
	}
	if !st.Numbered {
		t.Error("numbered sections not detected")
	}
}

func TestAnalyzeProse(t *testing.T) {
	input := "This is plain prose. It has sentences. Nothing else stands out.\n\nAnother paragraph follows. It continues the argument.\n\nA third closes it. Done now."
	st := Analyze(input)
	if st.Type != DocTypeProse {
		t.Errorf("type = %q, want prose", st.Type)
	}
	if st.SectionCount != 3 {
		t.Errorf("sections = %d, want 3", st.SectionCount)
	}
}

func TestAnalyzePlain(t *testing.T) {
	st := Analyze("just some words no punctuation no structure")
	if st.Type != DocTypePlain {
		t.Errorf("type = %q, want plain", st.Type)
	}
}

func TestSuggestStrategy(t *testing.T) {
	tests := []struct {
		name string
		st   Structure
		want Strategy
	}{
		{"markdown", Structure{Type: DocTypeMarkdown}, StrategyRecursive},
		{"structured", Structure{Type: DocTypeStructured}, StrategyRecursive},
		{"long prose", Structure{Type: DocTypeProse, SectionCount: 5}, StrategySemantic},
		{"short prose", Structure{Type: DocTypeProse, SectionCount: 1}, StrategyRecursive},
		{"plain", Structure{Type: DocTypePlain}, StrategyRecursive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.st.SuggestStrategy(); got != tt.want {
				t.Errorf("SuggestStrategy() = %v, want %v", got, tt.want)
			}
		})
	}
}
