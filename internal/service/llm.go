package service

import "context"

// ChatMessage is one entry of a completion request.
type ChatMessage struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// CompletionRequest describes a single language-model call.
type CompletionRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float32
	MaxTokens   int
	// JSONMode constrains the model to emit a single JSON object.
	JSONMode bool
}

// LLMClient issues chat completions. Implementations are expected to
// enforce a per-call timeout.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
