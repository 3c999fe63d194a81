package driving

import (
	"context"

	"github.com/custodia-labs/ragsample/internal/core/domain"
)

// ChatService answers questions using retrieved segments as context.
type ChatService interface {
	// Ask answers a single question without conversation history.
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// NewSession starts a conversation that remembers recent messages.
	NewSession() ChatSession
}

// ChatSession is a conversation with a bounded message memory.
type ChatSession interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)

	// History returns the remembered messages, oldest first.
	History() []domain.ChatMessage

	// Reset forgets all messages.
	Reset()
}
