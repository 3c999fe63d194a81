package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// --- Mock implementations ---

// sliceSource implements driving.IngestSource over fixed results.
type sliceSource struct {
	docs []*domain.Document
	errs []error
	pos  int
}

func (s *sliceSource) Next(_ context.Context) (*domain.Document, error) {
	if s.pos >= len(s.docs) {
		return nil, io.EOF
	}
	i := s.pos
	s.pos++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.docs[i], nil
}

func (s *sliceSource) Pending() int {
	return len(s.docs) - s.pos
}

// lineSplitter implements driven.DocumentSplitter with one segment per line.
type lineSplitter struct{}

func (lineSplitter) Split(doc *domain.Document) []domain.TextSegment {
	var out []domain.TextSegment
	for _, line := range strings.Split(doc.Text, "\n") {
		if line != "" {
			out = append(out, domain.NewTextSegment(line, doc.Metadata))
		}
	}
	return out
}

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	mu      sync.Mutex
	batches [][]string
	failOn  string
	err     error
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, texts)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.failOn != "" && t == m.failOn {
			return nil, errors.New("embedding failed")
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 2 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockStore implements driven.EmbeddingStore for testing.
type mockStore struct {
	mu       sync.Mutex
	segments []domain.TextSegment
	addErr   error
	matches  []domain.SearchMatch
	lastReq  domain.SearchRequest
	search   error
}

func (m *mockStore) Add(ctx context.Context, e []float32, seg domain.TextSegment) (string, error) {
	ids, err := m.AddAll(ctx, [][]float32{e}, []domain.TextSegment{seg})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

func (m *mockStore) AddAll(_ context.Context, _ [][]float32, segs []domain.TextSegment) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return nil, m.addErr
	}
	ids := make([]string, len(segs))
	for i, seg := range segs {
		m.segments = append(m.segments, seg)
		ids[i] = seg.Text
	}
	return ids, nil
}

func (m *mockStore) AddWithID(_ context.Context, _ string, _ []float32) error {
	return domain.ErrUnsupported
}

func (m *mockStore) Search(_ context.Context, req domain.SearchRequest) ([]domain.SearchMatch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
	return m.matches, m.search
}

func (m *mockStore) Close() error { return nil }

// mockLLM implements driven.LLMService and records the messages it receives.
type mockLLM struct {
	reply    string
	err      error
	received [][]domain.ChatMessage
}

func (m *mockLLM) Generate(_ context.Context, _ string, _ driven.GenerateOptions) (string, error) {
	return m.reply, m.err
}

func (m *mockLLM) Chat(_ context.Context, msgs []domain.ChatMessage, _ driven.ChatOptions) (string, error) {
	m.received = append(m.received, append([]domain.ChatMessage(nil), msgs...))
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockPrompts implements driven.PromptStore over a map.
type mockPrompts map[string]string

func (m mockPrompts) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

// mockRetriever implements driving.RetrievalService with canned matches.
type mockRetriever struct {
	matches []domain.SearchMatch
	err     error
	queries []string
}

func (m *mockRetriever) Retrieve(_ context.Context, query string, _ driving.SearchOptions) ([]domain.SearchMatch, error) {
	m.queries = append(m.queries, query)
	return m.matches, m.err
}
