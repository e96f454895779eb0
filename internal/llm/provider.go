package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider defines the interface for LLM backends.
// Implementations turn one rendered prompt pair into the provider's raw answer.
type Provider interface {
	// Complete issues a single best-effort call. It never retries.
	Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error)

	// Name returns the provider name (e.g., "openai", "anthropic", "gemini")
	Name() string
}

// CompletionRequest contains a rendered prompt pair
type CompletionRequest struct {
	Instruction string
	UserMessage string
}

// CombinedPrompt joins the pair for providers that take a single user message
func (r *CompletionRequest) CombinedPrompt() string {
	return r.Instruction + "\n\n" + r.UserMessage
}

// CompletionResponse contains the raw output of a provider.
// When Structured is true the provider already decoded the text into Items.
type CompletionResponse struct {
	Text       string
	Items      []any
	Structured bool
	Model      string
	Usage      TokenUsage
}

// TokenUsage is the provider-reported token count for one call
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// AsMap returns the usage in the shape the logger and tracer expect
func (u TokenUsage) AsMap() map[string]int64 {
	return map[string]int64{
		"input_tokens":  u.InputTokens,
		"output_tokens": u.OutputTokens,
		"total_tokens":  u.TotalTokens,
	}
}

// ErrNoContent is the cause when a provider answered without usable text
var ErrNoContent = errors.New("provider returned no content")

// BackendError wraps every failure of a provider call
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend error: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func newBackendError(provider string, err error) *BackendError {
	return &BackendError{Provider: provider, Err: err}
}
