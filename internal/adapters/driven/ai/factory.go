// Package ai provides factory functions for creating the model adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	ollamaembed "github.com/custodia-labs/ragsample/internal/adapters/driven/embedding/ollama"
	ollamallm "github.com/custodia-labs/ragsample/internal/adapters/driven/llm/ollama"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the Ollama embedding service.
func CreateEmbeddingService(cfg config.Ollama) driven.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL:    cfg.BaseURL,
		Model:      cfg.EmbeddingModel,
		Timeout:    cfg.Timeout,
		Dimensions: cfg.Dimensions,
		MaxRetries: cfg.MaxRetries,
	})
}

// CreateLLMService creates the Ollama chat service.
func CreateLLMService(cfg config.Ollama) driven.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL:    cfg.BaseURL,
		Model:      cfg.ChatModel,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	})
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, cfg config.Ollama) (driven.EmbeddingService, error) {
	svc := CreateEmbeddingService(cfg)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable at %s (%w). Is `ollama serve` running?",
			domain.ErrEmbeddingUnavailable, cfg.EmbeddingModel, cfg.BaseURL, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates an LLM service and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, cfg config.Ollama) (driven.LLMService, error) {
	svc := CreateLLMService(cfg)

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: %s unreachable at %s (%w). Is `ollama serve` running?",
			domain.ErrLLMUnavailable, cfg.ChatModel, cfg.BaseURL, err)
	}
	return svc, nil
}
