// Package llm defines the chat-model abstraction used by the LLM recipes.
package llm

import "context"

// Message represents a chat message for LLM communication.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Provider is implemented by every chat-model backend. Any OpenAI-compatible
// endpoint (litellm, Ollama, Azure, vLLM, ...) is served by the openai package.
//
// A call makes exactly one request: retries and fallbacks are the job of the
// engine node that wraps the call.
type Provider interface {
	// CallLLM sends messages to the model and returns the complete response.
	CallLLM(ctx context.Context, messages []Message) (Message, error)

	// Name identifies the provider and model, e.g. for health output.
	Name() string
}

// Role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
