package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	rag "github.com/asedra/arketic-rag"
)

// ObservedProvider wraps a rag.Provider with OTEL instrumentation.
type ObservedProvider struct {
	inner rag.Provider
	inst  *Instruments
	model string
}

var _ rag.Provider = (*ObservedProvider)(nil)

// WrapProvider returns an instrumented provider that emits traces, metrics,
// and logs for every chat call.
func WrapProvider(inner rag.Provider, model string, inst *Instruments) *ObservedProvider {
	return &ObservedProvider{inner: inner, inst: inst, model: model}
}

func (o *ObservedProvider) Name() string { return o.inner.Name() }

func (o *ObservedProvider) Chat(ctx context.Context, req rag.ChatRequest) (rag.ChatResponse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	resp, err := o.inner.Chat(ctx, req)
	o.record(ctx, span, "chat", resp.Usage, time.Since(start), 0, err)
	return resp, err
}

func (o *ObservedProvider) ChatStream(ctx context.Context, req rag.ChatRequest, ch chan<- string) (rag.ChatResponse, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "llm.chat_stream", trace.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	))
	defer span.End()
	start := time.Now()

	// Count deltas in flight without buffering the whole stream.
	counted := make(chan string)
	chunks := 0
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer close(ch)
		for tok := range counted {
			chunks++
			ch <- tok
		}
	}()

	resp, err := o.inner.ChatStream(ctx, req, counted)
	<-done
	o.record(ctx, span, "chat_stream", resp.Usage, time.Since(start), chunks, err)
	return resp, err
}

func (o *ObservedProvider) record(ctx context.Context, span trace.Span, method string, usage rag.Usage, elapsed time.Duration, streamChunks int, err error) {
	durationMs := float64(elapsed.Milliseconds())
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	cost := o.inst.Cost.Calculate(o.model, usage.InputTokens, usage.OutputTokens)
	span.SetAttributes(
		AttrTokensInput.Int(usage.InputTokens),
		AttrTokensOutput.Int(usage.OutputTokens),
		AttrCostUSD.Float64(cost),
	)
	if streamChunks > 0 {
		span.SetAttributes(AttrStreamChunks.Int(streamChunks))
	}

	attrs := metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
	)
	o.inst.LLMRequests.Add(ctx, 1, metric.WithAttributes(
		AttrLLMModel.String(o.model),
		AttrLLMProvider.String(o.inner.Name()),
		attribute.String("status", status),
	))
	o.inst.TokenUsage.Add(ctx, int64(usage.InputTokens+usage.OutputTokens), attrs)
	o.inst.CostTotal.Add(ctx, cost, attrs)
	o.inst.LLMDuration.Record(ctx, durationMs, attrs)

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("llm call completed"))
	rec.AddAttributes(
		otellog.String("llm.model", o.model),
		otellog.String("llm.provider", o.inner.Name()),
		otellog.String("llm.method", method),
		otellog.Int("llm.tokens.input", usage.InputTokens),
		otellog.Int("llm.tokens.output", usage.OutputTokens),
		otellog.Float64("llm.duration_ms", durationMs),
		otellog.String("status", status),
	)
	o.inst.Logger.Emit(ctx, rec)
}
