// Package storage selects and constructs the configured embedding store.
package storage

import (
	"fmt"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/opensearch"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/vespa"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// NewEmbeddingStore creates the store named by cfg.Embeddings.Store.
func NewEmbeddingStore(cfg *config.Config) (driven.EmbeddingStore, error) {
	kind := cfg.Embeddings.Store
	logger.Debug("opening %s embedding store", kind)

	switch kind {
	case domain.StoreMemory:
		return memory.NewStore(), nil

	case domain.StoreSQLite:
		store, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return store, nil

	case domain.StoreOpenSearch:
		store, err := opensearch.New(cfg.OpenSearch.Config)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return store, nil

	case domain.StoreVespa:
		store, err := vespa.New(cfg.Vespa)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: embedding store %q", domain.ErrUnsupportedType, kind)
	}
}
