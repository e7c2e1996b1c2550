// Command arketic-rag ingests documents into a knowledge base and answers
// questions grounded in them.
//
// Usage:
//
//	arketic-rag ingest [-kb id] [-strategy name] file...
//	arketic-rag search [-kb id] [-k n] [-min-score s] "query"
//	arketic-rag ask    [-kb id] [-stream] "question"
//	arketic-rag list   [-kb id]
//	arketic-rag delete doc-id...
//
// Configuration is read from arketic.toml (override with ARKETIC_CONFIG) and
// ARKETIC_* environment variables.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	rag "github.com/asedra/arketic-rag"
	"github.com/asedra/arketic-rag/ingest"
	"github.com/asedra/arketic-rag/ingest/pdf"
	"github.com/asedra/arketic-rag/internal/config"
	"github.com/asedra/arketic-rag/observer"
	"github.com/asedra/arketic-rag/provider/openaicompat"
	"github.com/asedra/arketic-rag/store/postgres"
	"github.com/asedra/arketic-rag/store/sqlite"
)

const baseInstruction = "You are a helpful assistant. Answer the user's question accurately and concisely."

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "arketic-rag:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: arketic-rag <ingest|search|ask|list|delete> [flags] [args]")
}

func run(ctx context.Context, command string, args []string) error {
	cfg := config.Load(os.Getenv("ARKETIC_CONFIG"))
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close(ctx)

	switch command {
	case "ingest":
		return app.cmdIngest(ctx, args)
	case "search":
		return app.cmdSearch(ctx, args)
	case "ask":
		return app.cmdAsk(ctx, args)
	case "list":
		return app.cmdList(ctx, args)
	case "delete":
		return app.cmdDelete(ctx, args)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

// app holds the wired pipeline for one CLI invocation.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	store     rag.Store
	embedding rag.EmbeddingProvider
	provider  rag.Provider
	pool      *pgxpool.Pool
	shutdown  func(context.Context) error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var err error
		inst, a.shutdown, err = observer.Init(ctx, pricing)
		if err != nil {
			return nil, fmt.Errorf("init observer: %w", err)
		}
	}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	a.store = store

	embedding := rag.EmbeddingProvider(openaicompat.NewEmbeddingProvider(
		cfg.Embedding.APIKey, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.Dimensions))
	provider := rag.Provider(openaicompat.NewProvider(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL))

	if inst != nil {
		embedding = observer.WrapEmbedding(embedding, cfg.Embedding.Model, inst)
		provider = observer.WrapProvider(provider, cfg.LLM.Model, inst)
		a.store = observer.WrapStore(a.store, inst)
	}

	embedding = rag.WithEmbeddingRetry(embedding, rag.RetryLogger(logger))
	if cfg.Embedding.RPM > 0 {
		embedding = rag.WithEmbeddingRateLimit(embedding, rag.RPM(cfg.Embedding.RPM))
	}
	a.embedding = embedding
	a.provider = rag.WithRetry(provider, rag.RetryLogger(logger))
	return a, nil
}

func (a *app) openStore(ctx context.Context) (rag.Store, error) {
	switch a.cfg.Database.Driver {
	case "sqlite", "":
		s := sqlite.New(a.cfg.Database.Path, sqlite.WithLogger(a.logger))
		if err := s.Init(ctx); err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return s, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, a.cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.pool = pool
		s := postgres.New(pool, postgres.WithEmbeddingDimension(a.cfg.Embedding.Dimensions))
		if err := s.Init(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", a.cfg.Database.Driver)
	}
}

func (a *app) close(ctx context.Context) {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing store", "error", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.logger.Warn("flushing telemetry", "error", err)
		}
	}
}

func (a *app) newChunker(strategyFlag string) (ingest.Chunker, error) {
	name := strategyFlag
	if name == "" {
		name = a.cfg.Chunking.Strategy
	}
	strategy, err := ingest.ParseStrategy(name)
	if err != nil {
		return nil, err
	}
	return ingest.NewChunker(strategy, a.embedding.Embed,
		ingest.WithMaxSize(a.cfg.Chunking.MaxSize),
		ingest.WithMinSize(a.cfg.Chunking.MinSize),
		ingest.WithOverlap(a.cfg.Chunking.Overlap),
		ingest.WithSimilarityThreshold(float32(a.cfg.Chunking.SimilarityThreshold)),
		ingest.WithChunkerLogger(a.logger))
}

func (a *app) cmdIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	kb := fs.String("kb", "default", "knowledge base ID")
	strategy := fs.String("strategy", "", "chunking strategy: recursive, fixed-size, or semantic (default from config)")
	fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() == 0 {
		return fmt.Errorf("ingest: no files given")
	}

	chunker, err := a.newChunker(*strategy)
	if err != nil {
		return err
	}
	ing, err := ingest.NewIngestor(a.store, a.embedding,
		ingest.WithChunker(chunker),
		ingest.WithExtractor(ingest.TypePDF, pdf.NewExtractor()),
		ingest.WithConcurrency(a.cfg.Ingest.Concurrency),
		ingest.WithBatchSize(a.cfg.Ingest.BatchSize),
		ingest.WithIngestLogger(a.logger))
	if err != nil {
		return err
	}

	docs, err := ing.IngestAll(ctx, *kb, fs.Args()...)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	for _, doc := range docs {
		fmt.Printf("%s  %s (%d words)\n", doc.ID, doc.Title, doc.WordCount)
	}
	return nil
}

func (a *app) cmdSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	kb := fs.String("kb", "", "restrict to a knowledge base ID")
	topK := fs.Int("k", a.cfg.Retrieval.TopK, "number of results")
	minScore := fs.Float64("min-score", a.cfg.Retrieval.MinScore, "minimum similarity score")
	fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 1 {
		return fmt.Errorf("search: expected exactly one query string")
	}

	retriever := rag.NewVectorRetriever(a.store, a.embedding,
		rag.WithMinScore(float32(*minScore)),
		rag.WithRetrieverLogger(a.logger))

	results, err := retriever.Retrieve(ctx, fs.Arg(0), scopeFor(*kb), *topK)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(results) == 0 {
		fmt.Println("no relevant chunks")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%.3f  %s [chunk %d]\n%s\n\n", r.Score, r.DocumentTitle, r.ChunkIndex, r.Content)
	}
	return nil
}

func (a *app) cmdAsk(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	kb := fs.String("kb", "", "restrict to a knowledge base ID")
	stream := fs.Bool("stream", false, "stream tokens as they arrive")
	fs.Parse(args) //nolint:errcheck // ExitOnError
	if fs.NArg() != 1 {
		return fmt.Errorf("ask: expected exactly one question")
	}

	retriever := rag.NewVectorRetriever(a.store, a.embedding,
		rag.WithMinScore(float32(a.cfg.Retrieval.MinScore)),
		rag.WithRetrieverLogger(a.logger))
	orch := rag.NewOrchestrator(retriever, a.provider,
		rag.WithTopK(a.cfg.Retrieval.TopK),
		rag.WithOrchestratorLogger(a.logger))

	var ans rag.Answer
	var err error
	if *stream {
		ch := make(chan string, 64)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for tok := range ch {
				fmt.Print(tok)
			}
			fmt.Println()
		}()
		ans, err = orch.AnswerStream(ctx, baseInstruction, fs.Arg(0), scopeFor(*kb), ch)
		<-done
	} else {
		ans, err = orch.Answer(ctx, baseInstruction, fs.Arg(0), scopeFor(*kb))
		if err == nil {
			fmt.Println(ans.Content)
		}
	}
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	if ans.Notice != "" {
		fmt.Fprintln(os.Stderr, ans.Notice)
	}
	if len(ans.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range ans.Citations {
			fmt.Printf("  %s (%.2f)\n", c.SourceLabel, c.Score)
		}
	}
	return nil
}

func (a *app) cmdList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	kb := fs.String("kb", "", "restrict to a knowledge base ID")
	limit := fs.Int("limit", 50, "maximum documents to list")
	fs.Parse(args) //nolint:errcheck // ExitOnError

	docs, err := a.store.ListDocuments(ctx, *kb, *limit)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	for _, doc := range docs {
		fmt.Printf("%s  %-12s  %s (%d words)\n", doc.ID, doc.KnowledgeBaseID, doc.Title, doc.WordCount)
	}
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("delete: no document IDs given")
	}
	for _, id := range args {
		if err := a.store.DeleteDocument(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
		fmt.Println("deleted", id)
	}
	return nil
}

func scopeFor(kb string) rag.Scope {
	if kb == "" {
		return rag.Scope{}
	}
	return rag.Scope{KnowledgeBaseIDs: []string{kb}}
}
