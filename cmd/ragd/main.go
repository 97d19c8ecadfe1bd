// Command ragd is the document QA server daemon. It wires the agent
// mesh (coordinator, ingestion, retrieval, answer generation) to the
// HTTP API and runs until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/agent"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/comms"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/config"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/document"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/embedding"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/internal/version"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/provider"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/server"
	"github.com/chakrateja70/Agentic-RAG-Chatbot/vectorstore"
)

var configPath = flag.String("config", "", "path to YAML config file (optional)")

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	logger.Info("starting ragd",
		"version", version.Version,
		"commit", version.Commit,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir %s: %v", cfg.DataDir, err)
	}

	store, err := vectorstore.NewStore(filepath.Join(cfg.DataDir, "vectors.db"))
	if err != nil {
		log.Fatalf("Failed to open vector store: %v", err)
	}
	defer func() { _ = store.Close() }()

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		log.Fatalf("Failed to configure embedder: %v", err)
	}
	llm, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("Failed to configure LLM provider: %v", err)
	}

	processor := document.NewProcessor(
		document.WithChunkSize(cfg.Ingestion.ChunkSize),
		document.WithOverlap(cfg.Ingestion.ChunkOverlap),
	)

	bus := comms.NewInMemoryBus()
	coordinator := agent.NewCoordinator(bus, logger)
	coordinator.TopK = cfg.Retrieval.TopK
	workers := []interface{ Start(); Stop() }{
		coordinator,
		agent.NewIngestion(bus, logger, processor, embedder, store),
		agent.NewRetrieval(bus, logger, embedder, store),
		agent.NewLLMQuery(bus, logger, llm),
	}
	for _, w := range workers {
		w.Start()
	}

	srv := server.New(*cfg, coordinator, version.Version, logger)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	fmt.Printf("ragd running on %s\n", cfg.Server.Addr)
	fmt.Printf("Version: %s (%s)\n", version.Version, version.Commit)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		logger.Error("server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Error("server stop error", "error", err)
	}
	for i := len(workers) - 1; i >= 0; i-- {
		workers[i].Stop()
	}
	fmt.Println("Shutdown complete")
}

// buildEmbedder selects the embedding backend from config.
func buildEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "", "google":
		return embedding.NewGoogleEmbedder(embedding.GoogleConfig{
			APIKey: cfg.Embedding.APIKey,
			Model:  cfg.Embedding.Model,
		})
	case "hash":
		return embedding.NewHashEmbedder(0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// buildProvider selects the LLM backend from config.
func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.LLM.Provider {
	case "", "groq":
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("groq provider requires an API key (llm.api_key or GROQ_API_KEY)")
		}
		return provider.NewGroqProvider(provider.GroqConfig{
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		}), nil
	case "mock":
		return provider.NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// logLevel parses a config log level, defaulting to info.
func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
