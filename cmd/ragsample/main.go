// Command ragsample ingests documents into an embedding store and answers
// questions about them with a local chat model.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage"
	"github.com/custodia-labs/ragsample/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/services"
	"github.com/custodia-labs/ragsample/internal/logger"
	"github.com/custodia-labs/ragsample/internal/splitter"
	"github.com/custodia-labs/ragsample/internal/telemetry"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 5 * time.Second

func main() {
	cli.SetVersion(version)
	cli.SetBuilder(buildServices)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildServices wires the adapters selected by cfg into the core services.
func buildServices(ctx context.Context, cfg *config.Config) (*cli.Services, error) {
	metrics := telemetry.New()

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, cfg.Ollama)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewEmbeddingStore(cfg)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("%s store: %w", cfg.Embeddings.Store, err)
	}
	logger.Debug("using %s store and %s embeddings", cfg.Embeddings.Store, cfg.Ollama.EmbeddingModel)

	llm := ai.CreateLLMService(cfg.Ollama)

	dir, err := file.DefaultDir()
	if err != nil {
		return nil, errors.Join(err, store.Close(), embedder.Close(), llm.Close())
	}
	prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"))
	if err != nil {
		return nil, errors.Join(err, store.Close(), embedder.Close(), llm.Close())
	}

	split := splitter.New(
		splitter.WithMaxSegmentSize(cfg.Embeddings.MaxSegmentSize),
		splitter.WithMaxOverlapSize(cfg.Embeddings.MaxOverlapSize),
	)

	ingest := services.NewIngestService(split, embedder, store, cfg.Embeddings.BatchSize, metrics)
	retrieval := services.NewRetrievalService(embedder, store, cfg.Chat.MaxResults, cfg.Chat.MinScore)
	chat := services.NewChatService(retrieval, llm, prompts, cfg.Chat.Memory)
	if cfg.PromptTemplate != "" {
		chat.SetTemplate(cfg.PromptTemplate)
	}

	return &cli.Services{
		Ingest:    ingest,
		Retrieval: retrieval,
		Chat:      chat,
		Prompts:   prompts,
		Metrics:   metrics,
		Close: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return errors.Join(store.Close(), embedder.Close(), llm.Close(), metrics.Shutdown(ctx))
		},
	}, nil
}
