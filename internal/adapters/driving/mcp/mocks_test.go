package mcp

import (
	"context"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	matches []domain.SearchMatch
	err     error
	opts    driving.SearchOptions
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context,
	_ string,
	opts driving.SearchOptions,
) ([]domain.SearchMatch, error) {
	m.opts = opts
	return m.matches, m.err
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	answer *domain.Answer
	err    error
}

func (m *mockChatService) Ask(_ context.Context, _ string) (*domain.Answer, error) {
	return m.answer, m.err
}

func (m *mockChatService) NewSession() driving.ChatSession {
	return nil
}

// mockPrompts is a mock PromptSource.
type mockPrompts map[string]string

func (m mockPrompts) Load(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return text, nil
}

func ptr(v float64) *float64 { return &v }
