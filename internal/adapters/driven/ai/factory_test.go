package ai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/domain"
)

func TestCreateServices_UseConfiguredModels(t *testing.T) {
	cfg := config.Default().Ollama
	cfg.EmbeddingModel = "nomic-embed-text"
	cfg.ChatModel = "llama3.2"
	cfg.Dimensions = 768

	embed := CreateEmbeddingService(cfg)
	llm := CreateLLMService(cfg)

	assert.Equal(t, "nomic-embed-text", embed.ModelName())
	assert.Equal(t, 768, embed.Dimensions())
	assert.Equal(t, "llama3.2", llm.ModelName())
}

func TestCreateAndValidate_Reachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	cfg := config.Default().Ollama
	cfg.BaseURL = server.URL

	embed, err := CreateAndValidateEmbeddingService(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, embed)

	llm, err := CreateAndValidateLLMService(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, llm)
}

func TestCreateAndValidate_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	cfg := config.Default().Ollama
	cfg.BaseURL = url

	_, err := CreateAndValidateEmbeddingService(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
	assert.ErrorIs(t, err, domain.ErrTransport)

	_, err = CreateAndValidateLLMService(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}
