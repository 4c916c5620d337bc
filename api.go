// Package testforge turns free-form software requirement text into a
// structured, machine-checkable test suite by delegating natural-language
// understanding to an LLM provider.
//
// The pipeline runs its stages in strict sequence: requirement
// normalization, deterministic prompt construction, the provider call,
// parsing and validation of the untrusted model output (with a single
// bounded repair pass), and rendering into a final artifact. Each run is
// fully independent; the only process-wide state is the provider
// credential and the gateway's rate-limit budget.
//
// All stages emit observability hooks for monitoring and debugging.
//
// Basic usage:
//
//	provider := openai.New(openai.Config{APIKey: key, Model: "gpt-4o-mini"})
//	pipeline := testforge.NewPipeline(provider, testforge.DefaultConfig())
//	result, err := pipeline.Generate(ctx, requirementsText, testforge.DefaultGenerationOptions())
package testforge

import "context"

// Provider defines the interface for LLM providers.
// Providers accept conversation messages and return responses with usage
// stats. Provider-specific behavior (model name, request shape, error
// classification) lives entirely behind this boundary; implementations
// report failures as *ProviderError so the gateway can decide retry
// behavior without inspecting provider internals.
type Provider interface {
	// Call sends messages to the LLM and returns the response with usage
	// stats. Messages are in chronological order (oldest first).
	Call(ctx context.Context, messages []Message, temperature float32) (*ProviderResponse, error)

	// Name returns the provider identifier (e.g., "openai", "gemini")
	Name() string
}

// TokenUsage contains token counts from a provider response.
type TokenUsage struct {
	Prompt     int // Tokens used by the prompt/messages
	Completion int // Tokens used by the completion/response
	Total      int // Total tokens used
}

// ProviderResponse contains the response from an LLM provider.
type ProviderResponse struct {
	Content      string     // The text response content
	Usage        TokenUsage // Token usage statistics
	FinishReason string     // Provider-reported finish reason, if any
}

// Message represents a single message in a conversation.
// Messages are exchanged between the user and the assistant (LLM).
type Message struct {
	Role    string // RoleUser, RoleAssistant, or RoleSystem
	Content string // The message content
}

// Role constants for message types.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
