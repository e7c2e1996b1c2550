package ingest

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DocType classifies a document's dominant structure.
type DocType string

const (
	DocTypeMarkdown   DocType = "markdown"
	DocTypeStructured DocType = "structured"
	DocTypeProse      DocType = "prose"
	DocTypePlain      DocType = "plain"
)

// Structure summarizes the structural features of a document, produced by
// Analyze before chunking. Strategy selection and heading-aware splitting
// both read from it.
type Structure struct {
	Type         DocType
	HeadingCount int
	ListCount    int
	CodeBlocks   int
	SectionCount int
	Numbered     bool
}

// numberedSection matches "1. Title" / "2.3 Title" style section openers at
// line start.
var numberedSection = regexp.MustCompile(`(?m)^\d+(\.\d+)*[.)]\s+\S`)

// sentenceEnd is a cheap prose signal: sentence punctuation followed by a
// space and a capital.
var sentenceEnd = regexp.MustCompile(`[.!?] [A-Z]`)

// Analyze inspects text and reports its structure. Markdown detection walks
// the parsed AST rather than pattern matching so indented code and quoted
// hashes do not count as headings.
func Analyze(input string) Structure {
	st := Structure{
		SectionCount: strings.Count(input, "\n\n") + 1,
		Numbered:     numberedSection.MatchString(input),
	}

	source := []byte(input)
	root := goldmark.DefaultParser().Parse(text.NewReader(source))
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n.Kind() {
		case ast.KindHeading:
			st.HeadingCount++
		case ast.KindList:
			st.ListCount++
		case ast.KindFencedCodeBlock, ast.KindCodeBlock:
			st.CodeBlocks++
		}
		return ast.WalkContinue, nil
	})

	switch {
	case st.HeadingCount > 0 || st.CodeBlocks > 0:
		st.Type = DocTypeMarkdown
	case st.Numbered || st.ListCount > 0:
		st.Type = DocTypeStructured
	case sentenceEnd.MatchString(input):
		st.Type = DocTypeProse
	default:
		st.Type = DocTypePlain
	}
	return st
}

// SuggestStrategy picks a chunking strategy from the document structure:
// structured documents split best along their separators, long prose
// benefits from semantic boundaries, everything else defaults to recursive.
func (s Structure) SuggestStrategy() Strategy {
	switch s.Type {
	case DocTypeMarkdown, DocTypeStructured:
		return StrategyRecursive
	case DocTypeProse:
		if s.SectionCount >= 3 {
			return StrategySemantic
		}
		return StrategyRecursive
	default:
		return StrategyRecursive
	}
}
