package llm

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptMessages wraps a rendered prompt for chat-style APIs, prefixed by
// the system prompt when one is set.
func PromptMessages(prompt string, options *GenerateOptions) []Message {
	var messages []Message
	if options != nil && options.SystemPrompt != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: options.SystemPrompt})
	}
	return append(messages, Message{Role: RoleUser, Content: prompt})
}

// EstimateTokens approximates the token count of text (1 token ≈ 4 characters).
func EstimateTokens(text string) int {
	return len(text) / 4
}
