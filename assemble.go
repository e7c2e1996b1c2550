package rag

import (
	"fmt"
	"strings"
)

// contextPreamble separates the base instruction from retrieved context.
const contextPreamble = "Use the following retrieved context to answer the user's question."

// contextEpilogue tells the generator how to weigh the supplied context.
const contextEpilogue = "Prioritize the context above when answering. " +
	"If the context does not contain enough information, you may answer from general knowledge."

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithMaxContextChars bounds the assembled context block. Chunks past the
// budget are dropped from the context and from the citation list alike.
// Default is 8000 characters.
func WithMaxContextChars(n int) AssemblerOption {
	return func(a *Assembler) { a.maxContextChars = n }
}

// Assembler merges ranked chunks into a single bounded context block with
// source attribution and rewrites the system instructions to prioritize it.
type Assembler struct {
	maxContextChars int
}

// NewAssembler creates an Assembler with the given options.
func NewAssembler(opts ...AssemblerOption) *Assembler {
	a := &Assembler{maxContextChars: 8000}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble builds the augmented instruction from a base instruction and
// ranked chunks. With no chunks it returns base unchanged and a nil citation
// list — the explicit fallback-to-ungrounded-generation path, with no
// augmentation marker added. Otherwise chunk texts are concatenated in
// ranked order, each prefixed with a source label (document title, or a
// positional "Source N" when the title is missing). One Citation per
// contributing chunk records the label and similarity score for end-user
// display.
func (a *Assembler) Assemble(base string, results []RetrievalResult) (string, []Citation) {
	if len(results) == 0 {
		return base, nil
	}

	var ctx strings.Builder
	var citations []Citation
	for i, r := range results {
		label := r.DocumentTitle
		if label == "" {
			label = fmt.Sprintf("Source %d", i+1)
		}
		block := fmt.Sprintf("[%s]\n%s\n\n", label, r.Content)
		if ctx.Len() > 0 && ctx.Len()+len(block) > a.maxContextChars {
			break
		}
		ctx.WriteString(block)
		citations = append(citations, Citation{SourceLabel: label, Score: r.Score})
	}

	if len(citations) == 0 {
		return base, nil
	}

	var out strings.Builder
	if base != "" {
		out.WriteString(base)
		out.WriteString("\n\n")
	}
	out.WriteString(contextPreamble)
	out.WriteString("\n\n")
	out.WriteString(ctx.String())
	out.WriteString(contextEpilogue)
	return out.String(), citations
}
