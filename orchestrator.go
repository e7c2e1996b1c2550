package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// degradedNotice is shown to the end user when the knowledge base could not
// be searched. A raw provider error never reaches the user.
const degradedNotice = "Temporarily unable to search the knowledge base; answering without it."

// Answer is the outcome of one generation call.
type Answer struct {
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	// Grounded reports whether retrieved context backed the answer.
	Grounded bool `json:"grounded"`
	// Notice carries a user-facing degradation message when retrieval was
	// unavailable; empty otherwise.
	Notice string `json:"notice,omitempty"`
	Usage  Usage  `json:"usage"`
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithTopK sets how many chunks are retrieved per query. Default is 5.
func WithTopK(n int) OrchestratorOption {
	return func(o *Orchestrator) { o.topK = n }
}

// WithAssembler injects a custom Assembler.
func WithAssembler(a *Assembler) OrchestratorOption {
	return func(o *Orchestrator) { o.assembler = a }
}

// WithOrchestratorLogger sets the structured logger.
func WithOrchestratorLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// Orchestrator wires retrieval, context assembly, and generation into one
// call: query → retrieve (with fallback) → assemble → generate. It is the
// thin top of the pipeline; all the weight lives in the components below it.
type Orchestrator struct {
	retriever *VectorRetriever
	provider  Provider
	assembler *Assembler
	topK      int
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(retriever *VectorRetriever, provider Provider, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		retriever: retriever,
		provider:  provider,
		topK:      5,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.assembler == nil {
		o.assembler = NewAssembler()
	}
	if o.logger == nil {
		o.logger = nopLogger
	}
	return o
}

// Answer retrieves context for query within scope, assembles the augmented
// instruction from baseInstruction, and generates a complete response.
// Retrieval failure or timeout degrades to ungrounded generation with a
// generic notice; only generation failure is returned as an error.
func (o *Orchestrator) Answer(ctx context.Context, baseInstruction, query string, scope Scope) (Answer, error) {
	instructions, citations, degraded := o.prepare(ctx, baseInstruction, query, scope)

	resp, err := o.provider.Chat(ctx, ChatRequest{Messages: []ChatMessage{
		SystemMessage(instructions),
		UserMessage(query),
	}})
	if err != nil {
		return Answer{}, fmt.Errorf("generate: %w", err)
	}

	return o.answer(resp, citations, degraded), nil
}

// AnswerStream is Answer with token streaming. Text deltas are sent to ch,
// which is closed before returning.
func (o *Orchestrator) AnswerStream(ctx context.Context, baseInstruction, query string, scope Scope, ch chan<- string) (Answer, error) {
	instructions, citations, degraded := o.prepare(ctx, baseInstruction, query, scope)

	resp, err := o.provider.ChatStream(ctx, ChatRequest{Messages: []ChatMessage{
		SystemMessage(instructions),
		UserMessage(query),
	}}, ch)
	if err != nil {
		return Answer{}, fmt.Errorf("generate: %w", err)
	}

	return o.answer(resp, citations, degraded), nil
}

// prepare runs retrieval with fallback and assembles the instruction string.
func (o *Orchestrator) prepare(ctx context.Context, base, query string, scope Scope) (string, []Citation, bool) {
	results, degraded := o.retriever.RetrieveWithFallback(ctx, query, scope, o.topK)
	if degraded {
		o.logger.Info("answering ungrounded", "reason", "retrieval unavailable")
	} else if len(results) == 0 {
		o.logger.Debug("answering ungrounded", "reason", "no relevant chunks")
	}
	instructions, citations := o.assembler.Assemble(base, results)
	return instructions, citations, degraded
}

func (o *Orchestrator) answer(resp ChatResponse, citations []Citation, degraded bool) Answer {
	a := Answer{
		Content:   resp.Content,
		Citations: citations,
		Grounded:  len(citations) > 0,
		Usage:     resp.Usage,
	}
	if degraded {
		a.Notice = degradedNotice
	}
	return a
}
