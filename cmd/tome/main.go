// Package main provides the CLI entry point for the tome chat server.
//
// Tome is a retrieval-augmented chat backend: uploaded documents are
// chunked, embedded, and stored in a vector store, and chat turns stream
// model replies grounded in the most relevant chunks.
//
// # Basic Usage
//
// Start the server:
//
//	tome serve --config tome.yaml
//
// Index a file from the command line:
//
//	tome index --config tome.yaml --title "Release notes" notes.md
//
// # Environment Variables
//
// Values referenced as ${VAR} in the config file are expanded from the
// environment. A .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/haasonsaas/tome/internal/config"
	"github.com/haasonsaas/tome/internal/extract"
	"github.com/haasonsaas/tome/internal/llm"
	"github.com/haasonsaas/tome/internal/observability"
	"github.com/haasonsaas/tome/internal/rag/chunker"
	"github.com/haasonsaas/tome/internal/rag/embed"
	"github.com/haasonsaas/tome/internal/rag/index"
	"github.com/haasonsaas/tome/internal/rag/retrieval"
	"github.com/haasonsaas/tome/internal/rag/store"
	"github.com/haasonsaas/tome/internal/rag/store/pgvector"
	"github.com/haasonsaas/tome/internal/server"
	"github.com/haasonsaas/tome/internal/sessions"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// .env is optional; missing files are fine.
	_ = godotenv.Load()

	if err := buildRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:     "tome",
		Short:   "Retrieval-augmented chat server",
		Version: fmt.Sprintf("%s (%s)", version, commit),
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")

	rootCmd.AddCommand(buildServeCmd(&configPath))
	rootCmd.AddCommand(buildIndexCmd(&configPath))
	return rootCmd
}

func buildServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func buildIndexCmd(configPath *string) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "index [file...]",
		Short: "Index files into the vector store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runIndex(cmd.Context(), cfg, title, args)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "document title (defaults to the file name)")
	return cmd
}

// app holds the wired components shared by the serve and index commands.
type app struct {
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	generator *llm.Ollama
	indexer   *index.Indexer
	retriever *retrieval.Builder
	sessions  sessions.Store
	vectors   store.Store

	shutdownTracer func(context.Context) error
}

func (a *app) close(ctx context.Context) {
	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Error(ctx, "close sessions store", "error", err)
		}
	}
	if a.vectors != nil {
		if err := a.vectors.Close(); err != nil {
			a.logger.Error(ctx, "close vector store", "error", err)
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error(ctx, "shutdown tracer", "error", err)
		}
	}
}

func wire(ctx context.Context, cfg *config.Config, withSessions bool) (*app, error) {
	a := &app{
		logger:  observability.NewLogger(cfg.Log),
		metrics: observability.NewMetrics(),
	}
	a.tracer, a.shutdownTracer = observability.NewTracer(cfg.Tracing)

	generator, err := llm.NewOllama(llm.OllamaConfig{
		BaseURL:     cfg.LLM.BaseURL,
		VisionModel: cfg.LLM.VisionModel,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		return nil, err
	}
	a.generator = generator

	var provider embed.Provider
	switch cfg.Embeddings.Provider {
	case "openai":
		provider, err = embed.NewOpenAI(embed.OpenAIConfig{
			APIKey:  cfg.Embeddings.APIKey,
			BaseURL: cfg.Embeddings.BaseURL,
			Model:   cfg.Embeddings.Model,
		})
	default:
		provider, err = embed.NewOllama(embed.OllamaConfig{
			BaseURL:   cfg.Embeddings.BaseURL,
			Model:     cfg.Embeddings.Model,
			Dimension: cfg.Embeddings.Dimension,
		})
	}
	if err != nil {
		return nil, err
	}
	embedder := embed.NewClient(provider, cfg.Embeddings.MaxChars)

	switch cfg.VectorStore.Backend {
	case "pgvector":
		a.vectors, err = pgvector.New(ctx, cfg.VectorStore.PGVector)
		if err != nil {
			return nil, err
		}
	default:
		a.vectors = store.NewMemory()
	}

	var describer extract.ImageDescriber
	if generator.SupportsVision() {
		describer = generator
	}

	a.indexer = index.New(index.Config{
		Extractor:        extract.New(describer),
		Chunker:          chunker.New(cfg.Ingest.Chunker),
		Embedder:         embedder,
		Store:            a.vectors,
		MaxDocumentChars: cfg.Ingest.MaxDocumentChars,
		Logger:           a.logger,
		Metrics:          a.metrics,
	})
	a.retriever = retrieval.New(embedder, a.vectors, cfg.Retrieval.TopK, a.logger, a.metrics)

	if withSessions {
		a.sessions, err = sessions.NewSQLite(ctx, cfg.Sessions)
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := wire(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	handler := server.New(server.Config{
		SystemPrompt: cfg.Server.SystemPrompt,
		DefaultModel: cfg.LLM.DefaultModel,
		StaticDir:    cfg.Server.StaticDir,
		Generator:    a.generator,
		Sessions:     a.sessions,
		Indexer:      a.indexer,
		Retriever:    a.retriever,
		Logger:       a.logger,
		Metrics:      a.metrics,
		Tracer:       a.tracer,
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runIndex(ctx context.Context, cfg *config.Config, title string, paths []string) error {
	a, err := wire(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		docTitle := title
		if docTitle == "" {
			docTitle = filepath.Base(path)
		}
		result, err := a.indexer.Index(ctx, index.Request{
			Title: docTitle,
			File: &index.File{
				Name: filepath.Base(path),
				Data: data,
			},
		})
		if err != nil {
			return fmt.Errorf("index %s: %w", path, err)
		}
		fmt.Printf("indexed %s: doc %s, %d chunks (%s)\n",
			path, result.DocID, result.ChunkCount, result.SourceType)
	}
	return nil
}
