package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/getsentry/sentry-go"
)

const (
	providerNameAnthropic = "anthropic"
	anthropicTextBlock    = "text"
)

// AnthropicOptions configures the Claude backend
type AnthropicOptions struct {
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
	Timeout   time.Duration
}

// AnthropicProvider implements the Provider interface using the Messages API
type AnthropicProvider struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(opts AnthropicOptions) *AnthropicProvider {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	client := anthropic.NewClient(clientOpts...)
	return &AnthropicProvider{
		client:    &client,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
	}
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return providerNameAnthropic
}

// Complete sends instruction and user message as one user turn at temperature 0
func (p *AnthropicProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	span := sentry.StartSpan(ctx, "anthropic.messages")
	span.SetTag("provider", providerNameAnthropic)
	span.SetTag("model", p.model)
	defer span.Finish()

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(request.CombinedPrompt())),
		},
	}

	apiStartTime := time.Now()
	resp, err := p.client.Messages.New(span.Context(), params)
	apiDuration := time.Since(apiStartTime)

	if err != nil {
		log.Printf("❌ ANTHROPIC REQUEST FAILED after %v: %v", apiDuration, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameAnthropic, fmt.Errorf("messages call failed: %w", err))
	}

	log.Printf("⏱️  ANTHROPIC API CALL COMPLETED in %v", apiDuration)

	// Only the first block is read, and it has to be text
	if resp == nil || len(resp.Content) == 0 {
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameAnthropic, fmt.Errorf("%w: no content blocks", ErrNoContent))
	}
	block := resp.Content[0]
	if block.Type != anthropicTextBlock {
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameAnthropic,
			fmt.Errorf("%w: first block is %q, not text", ErrNoContent, block.Type))
	}
	text := block.AsText().Text
	if text == "" {
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameAnthropic, fmt.Errorf("%w: empty text block", ErrNoContent))
	}
	log.Printf("📥 ANTHROPIC CONTENT: %s", truncate(text, maxOutputTrunc))

	span.Status = sentry.SpanStatusOK
	return &CompletionResponse{
		Text:  text,
		Model: p.model,
		Usage: TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
