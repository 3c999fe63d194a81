package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/custodia-labs/ragsample/internal/core/domain"
	"github.com/custodia-labs/ragsample/internal/core/ports/driven"
	"github.com/custodia-labs/ragsample/internal/core/ports/driving"
	"github.com/custodia-labs/ragsample/internal/logger"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// Template variables of the answer prompt.
const (
	varUserMessage = "{{userMessage}}"
	varContents    = "{{contents}}"
	varNofArticles = "{{nofArticles}}"
)

// ChatService answers questions with the chat model, using retrieved
// segments as context.
type ChatService struct {
	retriever driving.RetrievalService
	llm       driven.LLMService
	prompts   driven.PromptStore
	template  string
	memory    int
}

// NewChatService creates a chat service. memory is the number of messages a
// session remembers.
func NewChatService(
	retriever driving.RetrievalService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	memory int,
) *ChatService {
	return &ChatService{
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		memory:    max(memory, 0),
	}
}

// SetTemplate replaces the answer prompt from the prompt store.
func (s *ChatService) SetTemplate(template string) {
	s.template = template
}

// Ask answers a question without conversation history.
func (s *ChatService) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	return s.answer(ctx, nil, question)
}

// NewSession starts a conversation.
func (s *ChatService) NewSession() driving.ChatSession {
	return &chatSession{service: s}
}

func (s *ChatService) answer(
	ctx context.Context, history []domain.ChatMessage, question string,
) (*domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	matches, err := s.retriever.Retrieve(ctx, question, driving.SearchOptions{})
	if err != nil {
		return nil, err
	}

	prompt, err := s.renderPrompt(question, matches)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	if system := s.load(driven.PromptChatSystem); system != "" {
		messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	}
	messages = append(messages, history...)
	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: prompt})

	logger.Debug("Asking %s with %d messages and %d segments", s.llm.ModelName(), len(messages), len(matches))
	reply, err := s.llm.Chat(ctx, messages, driven.ChatOptions{})
	if err != nil {
		return nil, err
	}

	return &domain.Answer{Question: question, Text: strings.TrimSpace(reply), Sources: matches}, nil
}

func (s *ChatService) renderPrompt(question string, matches []domain.SearchMatch) (string, error) {
	template := s.template
	if template == "" {
		if s.prompts == nil {
			return "", fmt.Errorf("%w: no answer prompt configured", domain.ErrInvalidInput)
		}
		var err error
		if template, err = s.prompts.Load(driven.PromptAnswer); err != nil {
			return "", fmt.Errorf("load answer prompt: %w", err)
		}
	}
	return RenderPrompt(template, question, matches), nil
}

func (s *ChatService) load(name string) string {
	if s.prompts == nil {
		return ""
	}
	text, err := s.prompts.Load(name)
	if err != nil {
		logger.Warn("prompt %s: %v", name, err)
		return ""
	}
	return text
}

// RenderPrompt fills the answer template. Each match contributes its title
// and url, when known, followed by its text.
func RenderPrompt(template, question string, matches []domain.SearchMatch) string {
	return strings.NewReplacer(
		varUserMessage, question,
		varContents, Contents(matches),
		varNofArticles, strconv.Itoa(len(matches)),
	).Replace(template)
}

// Contents formats matches for injection into a prompt.
func Contents(matches []domain.SearchMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		var b strings.Builder
		if title := m.Segment.Metadata.Value(domain.MetadataTitle); title != "" {
			fmt.Fprintf(&b, "Title: %s\n", title)
		}
		if url := m.Segment.Metadata.Value(domain.MetadataURL); url != "" {
			fmt.Fprintf(&b, "URL: %s\n", url)
		}
		b.WriteString(m.Segment.Text)
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n\n")
}

// chatSession keeps the last memory messages of a conversation.
type chatSession struct {
	service *ChatService

	mu      sync.Mutex
	history []domain.ChatMessage
}

func (c *chatSession) Ask(ctx context.Context, question string) (*domain.Answer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	answer, err := c.service.answer(ctx, c.history, question)
	if err != nil {
		return nil, err
	}

	c.history = append(c.history,
		domain.ChatMessage{Role: domain.RoleUser, Content: answer.Question},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: answer.Text},
	)
	if n := c.service.memory; len(c.history) > n {
		c.history = append([]domain.ChatMessage(nil), c.history[len(c.history)-n:]...)
	}
	return answer, nil
}

func (c *chatSession) History() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.history...)
}

func (c *chatSession) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = nil
}
