package interfaces

import "context"

// Message is one chat-completion message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-agnostic chat completion request
type CompletionRequest struct {
	Messages []Message
	JSONMode bool // Request strict JSON output with validation and retry
}

// CompletionResponse carries the model output and its origin
type CompletionResponse struct {
	Content  string
	Provider string // Name of the provider that produced the response
	Model    string
}

// ModelClient is the fallback-chain client for remote language models
type ModelClient interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	LastProviderUsed() string
}
