package observer

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	rag "github.com/asedra/arketic-rag"
)

// ObservedStore wraps a rag.Store, instrumenting the vector search path.
// Everything else delegates untouched; search is the hot path worth tracing.
type ObservedStore struct {
	rag.Store
	inst *Instruments
}

var _ rag.Store = (*ObservedStore)(nil)

// WrapStore returns a store whose SearchChunks calls emit traces and metrics.
func WrapStore(inner rag.Store, inst *Instruments) *ObservedStore {
	return &ObservedStore{Store: inner, inst: inst}
}

func (o *ObservedStore) SearchChunks(ctx context.Context, embedding []float32, topK int, scope rag.Scope) ([]rag.ScoredChunk, error) {
	ctx, span := o.inst.Tracer.Start(ctx, "retrieval.search", trace.WithAttributes(
		AttrSearchTopK.Int(topK),
		AttrSearchScoped.Bool(!scope.IsEmpty()),
	))
	defer span.End()
	start := time.Now()

	results, err := o.Store.SearchChunks(ctx, embedding, topK, scope)

	durationMs := float64(time.Since(start).Milliseconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(AttrSearchReturned.Int(len(results)))

	attrs := metric.WithAttributes(AttrSearchScoped.Bool(!scope.IsEmpty()))
	o.inst.SearchRequests.Add(ctx, 1, attrs)
	o.inst.RetrievedChunks.Add(ctx, int64(len(results)), attrs)
	o.inst.SearchDuration.Record(ctx, durationMs, attrs)
	return results, err
}
