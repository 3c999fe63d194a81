package driven

// Prompt names known to the PromptStore.
const (
	// PromptAnswer is the retrieval-augmented answer template. It is rendered
	// with the {{userMessage}}, {{contents}} and {{nofArticles}} variables.
	PromptAnswer = "answer"

	// PromptChatSystem is the system message prepended to chat sessions.
	PromptChatSystem = "chat_system"
)

// PromptStore loads user-editable prompt templates.
type PromptStore interface {
	// Load returns the prompt template with the given name.
	Load(name string) (string, error)
}
