package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/opensearch"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragsample/internal/adapters/driven/storage/vespa"
	"github.com/custodia-labs/ragsample/internal/config"
	"github.com/custodia-labs/ragsample/internal/core/domain"
)

func TestNewEmbeddingStore(t *testing.T) {
	tests := []struct {
		kind domain.StoreKind
		want any
	}{
		{domain.StoreMemory, &memory.Store{}},
		{domain.StoreSQLite, &sqlite.Store{}},
		{domain.StoreOpenSearch, &opensearch.Store{}},
		{domain.StoreVespa, &vespa.Store{}},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			cfg := config.Default()
			cfg.Embeddings.Store = tt.kind
			cfg.SQLitePath = filepath.Join(t.TempDir(), "e.db")

			store, err := NewEmbeddingStore(cfg)

			require.NoError(t, err)
			defer store.Close()
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestNewEmbeddingStore_Unknown(t *testing.T) {
	cfg := config.Default()
	cfg.Embeddings.Store = "redis"

	_, err := NewEmbeddingStore(cfg)

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
