package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
)

func match(text, title, url string) domain.SearchMatch {
	md := domain.NewMetadata(domain.MetadataTitle, title)
	if url != "" {
		md.Set(domain.MetadataURL, url)
	}
	return domain.SearchMatch{Score: 0.8, Segment: domain.TextSegment{Text: text, Metadata: md}}
}

func testPrompts() mockPrompts {
	return mockPrompts{
		driven.PromptAnswer:     "Use {{nofArticles}} articles.\nQ: {{userMessage}}\n{{contents}}",
		driven.PromptChatSystem: "be brief",
	}
}

func TestRenderPrompt(t *testing.T) {
	matches := []domain.SearchMatch{
		match("Spice flows.", "Dune", ""),
		match("Rates rise.", "Markets", "https://news.example/rates"),
	}

	got := RenderPrompt("{{nofArticles}}|{{userMessage}}|{{contents}}", "what?", matches)

	assert.Equal(t, "2|what?|Title: Dune\nSpice flows.\n\nTitle: Markets\nURL: https://news.example/rates\nRates rise.", got)
}

func TestAsk(t *testing.T) {
	retriever := &mockRetriever{matches: []domain.SearchMatch{match("Spice flows.", "Dune", "")}}
	llm := &mockLLM{reply: "  The spice.  "}
	svc := NewChatService(retriever, llm, testPrompts(), 10)

	answer, err := svc.Ask(context.Background(), " What flows? ")

	require.NoError(t, err)
	assert.Equal(t, "The spice.", answer.Text)
	assert.Equal(t, "What flows?", answer.Question)
	assert.Len(t, answer.Sources, 1)
	assert.Equal(t, []string{"What flows?"}, retriever.queries)

	require.Len(t, llm.received, 1)
	msgs := llm.received[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleSystem, Content: "be brief"}, msgs[0])
	assert.Equal(t, domain.RoleUser, msgs[1].Role)
	assert.Equal(t, "Use 1 articles.\nQ: What flows?\nTitle: Dune\nSpice flows.", msgs[1].Content)
}

func TestAsk_TemplateOverride(t *testing.T) {
	llm := &mockLLM{reply: "ok"}
	svc := NewChatService(&mockRetriever{}, llm, testPrompts(), 0)
	svc.SetTemplate("Q={{userMessage}}")

	_, err := svc.Ask(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "Q=hi", llm.received[0][1].Content)
}

func TestAsk_Errors(t *testing.T) {
	tests := []struct {
		name    string
		svc     *ChatService
		wantErr error
	}{
		{"no llm", NewChatService(&mockRetriever{}, nil, testPrompts(), 0), domain.ErrLLMUnavailable},
		{"retrieval fails", NewChatService(&mockRetriever{err: domain.ErrStoreUnavailable}, &mockLLM{}, testPrompts(), 0), domain.ErrStoreUnavailable},
		{"llm fails", NewChatService(&mockRetriever{}, &mockLLM{err: domain.ErrLLMUnavailable}, testPrompts(), 0), domain.ErrLLMUnavailable},
		{"no prompt", NewChatService(&mockRetriever{}, &mockLLM{}, mockPrompts{}, 0), domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Ask(context.Background(), "question")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := NewChatService(&mockRetriever{}, &mockLLM{}, testPrompts(), 0).Ask(context.Background(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSession_RemembersWindow(t *testing.T) {
	llm := &mockLLM{reply: "answer"}
	svc := NewChatService(&mockRetriever{}, llm, testPrompts(), 2)
	session := svc.NewSession()

	_, err := session.Ask(context.Background(), "first")
	require.NoError(t, err)
	_, err = session.Ask(context.Background(), "second")
	require.NoError(t, err)

	// The second call sees the first exchange between system and prompt.
	second := llm.received[1]
	require.Len(t, second, 4)
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleUser, Content: "first"}, second[1])
	assert.Equal(t, domain.ChatMessage{Role: domain.RoleAssistant, Content: "answer"}, second[2])

	assert.Equal(t, []domain.ChatMessage{
		{Role: domain.RoleUser, Content: "second"},
		{Role: domain.RoleAssistant, Content: "answer"},
	}, session.History())

	session.Reset()
	assert.Empty(t, session.History())
}

func TestSession_ZeroMemory(t *testing.T) {
	llm := &mockLLM{reply: "answer"}
	session := NewChatService(&mockRetriever{}, llm, testPrompts(), 0).NewSession()

	_, err := session.Ask(context.Background(), "first")
	require.NoError(t, err)

	assert.Empty(t, session.History())
}

func TestSession_FailedAskIsNotRemembered(t *testing.T) {
	session := NewChatService(&mockRetriever{}, &mockLLM{err: domain.ErrLLMUnavailable}, testPrompts(), 4).NewSession()

	_, err := session.Ask(context.Background(), "first")

	require.Error(t, err)
	assert.Empty(t, session.History())
}
