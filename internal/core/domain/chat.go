package domain

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in a conversation with the chat model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Answer is the chat model's reply to a question together with the
// segments that were injected into the prompt.
type Answer struct {
	Question string        `json:"question"`
	Text     string        `json:"answer"`
	Sources  []SearchMatch `json:"sources,omitempty"`
}
