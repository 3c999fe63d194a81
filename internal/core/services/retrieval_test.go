package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

func TestRetrieve_UsesDefaults(t *testing.T) {
	store := &mockStore{matches: []domain.SearchMatch{{Score: 0.9, ID: "1"}}}
	svc := NewRetrievalService(&mockEmbedder{}, store, 5, 0.6)

	matches, err := svc.Retrieve(context.Background(), "  dune  ", driving.SearchOptions{})

	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Equal(t, 5, store.lastReq.MaxResults)
	assert.InDelta(t, 0.6, store.lastReq.MinScore, 1e-9)
	assert.Equal(t, []float32{4, 1}, store.lastReq.Embedding)
}

func TestRetrieve_OptionsOverrideDefaults(t *testing.T) {
	store := &mockStore{}
	svc := NewRetrievalService(&mockEmbedder{}, store, 5, 0.6)

	_, err := svc.Retrieve(context.Background(), "q", driving.SearchOptions{MaxResults: 2, MinScore: ptr(0.1)})

	require.NoError(t, err)
	assert.Equal(t, 2, store.lastReq.MaxResults)
	assert.InDelta(t, 0.1, store.lastReq.MinScore, 1e-9)
}

func TestRetrieve_ZeroMinScoreKeepsEverything(t *testing.T) {
	store := &mockStore{}
	svc := NewRetrievalService(&mockEmbedder{}, store, 5, 0.6)

	_, err := svc.Retrieve(context.Background(), "q", driving.SearchOptions{MinScore: ptr(0)})

	require.NoError(t, err)
	assert.Zero(t, store.lastReq.MinScore)
}

func TestRetrieve_MinScoreOutOfRange(t *testing.T) {
	for _, v := range []float64{-0.1, 1.5} {
		store := &mockStore{}
		svc := NewRetrievalService(&mockEmbedder{}, store, 5, 0.6)

		_, err := svc.Retrieve(context.Background(), "q", driving.SearchOptions{MinScore: ptr(v)})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Nil(t, store.lastReq.Embedding)
	}
}

func TestRetrieve_Errors(t *testing.T) {
	tests := []struct {
		name    string
		svc     *RetrievalService
		query   string
		wantErr error
	}{
		{"empty query", NewRetrievalService(&mockEmbedder{}, &mockStore{}, 1, 0), " ", domain.ErrInvalidInput},
		{"no embedder", NewRetrievalService(nil, &mockStore{}, 1, 0), "q", domain.ErrEmbeddingUnavailable},
		{"no store", NewRetrievalService(&mockEmbedder{}, nil, 1, 0), "q", domain.ErrStoreUnavailable},
		{"embed fails", NewRetrievalService(&mockEmbedder{err: domain.ErrTransport}, &mockStore{}, 1, 0), "q", domain.ErrTransport},
		{"search fails", NewRetrievalService(&mockEmbedder{}, &mockStore{search: domain.ErrBackend}, 1, 0), "q", domain.ErrBackend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Retrieve(context.Background(), tt.query, driving.SearchOptions{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func ptr(v float64) *float64 { return &v }
