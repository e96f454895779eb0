package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const (
	providerNameOpenAI = "openai"

	// Fixed low randomness for the primary chat model
	openAITemperature = 0.6

	maxOutputTrunc = 200
)

// OpenAIOptions configures the primary chat model backend
type OpenAIOptions struct {
	APIKey  string
	Model   string
	BaseURL string // optional, plain OpenAI only

	// Azure OpenAI deployment; when AzureEndpoint is set Model is the deployment name
	AzureEndpoint   string
	AzureAPIVersion string

	Timeout time.Duration
}

// OpenAIProvider implements the Provider interface using the Chat Completions API
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(opts OpenAIOptions) *OpenAIProvider {
	clientOpts := []option.RequestOption{option.WithMaxRetries(0)}
	if opts.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Timeout))
	}

	if opts.AzureEndpoint != "" {
		clientOpts = append(clientOpts,
			azure.WithEndpoint(opts.AzureEndpoint, opts.AzureAPIVersion),
			azure.WithAPIKey(opts.APIKey),
		)
	} else {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
		if opts.BaseURL != "" {
			clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
		}
	}

	client := openai.NewClient(clientOpts...)
	return &OpenAIProvider{
		client: &client,
		model:  opts.Model,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Complete sends the instruction as the system message and the user message as the user turn
func (p *OpenAIProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	span := sentry.StartSpan(ctx, "openai.chat_completion")
	span.SetTag("provider", providerNameOpenAI)
	span.SetTag("model", p.model)
	defer span.Finish()

	apiStartTime := time.Now()
	resp, err := p.client.Chat.Completions.New(span.Context(), p.buildParams(request))
	apiDuration := time.Since(apiStartTime)

	if err != nil {
		log.Printf("❌ OPENAI REQUEST FAILED after %v: %v", apiDuration, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameOpenAI, fmt.Errorf("chat completion failed: %w", err))
	}

	log.Printf("⏱️  OPENAI API CALL COMPLETED in %v", apiDuration)

	if resp == nil || len(resp.Choices) == 0 {
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameOpenAI, fmt.Errorf("%w: no choices in response", ErrNoContent))
	}

	content := resp.Choices[0].Message.Content
	if content == "" {
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameOpenAI, fmt.Errorf("%w: empty message content", ErrNoContent))
	}
	log.Printf("📥 OPENAI CONTENT: %s", truncate(content, maxOutputTrunc))

	result := &CompletionResponse{
		Text:  content,
		Model: p.model,
		Usage: TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}
	if items, ok := decodeStructured(content); ok {
		result.Items = items
		result.Structured = true
	} else {
		log.Printf("⚠️  OPENAI content is not JSON, falling back to bracket parsing")
	}

	span.Status = sentry.SpanStatusOK
	return result, nil
}

// buildParams converts the prompt pair to chat completion parameters
func (p *OpenAIProvider) buildParams(request *CompletionRequest) openai.ChatCompletionNewParams {
	return openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(request.Instruction),
			openai.UserMessage(request.UserMessage),
		},
		Temperature: openai.Float(openAITemperature),
	}
}

// decodeStructured parses content as a single JSON value.
// An array is returned element by element; any other JSON value becomes a one-element
// sequence holding the raw content. ok is false when content is not valid JSON.
func decodeStructured(content string) ([]any, bool) {
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, false
	}
	// Anything after the first value, even a stray bracket, means it was not JSON
	var trailing any
	if err := decoder.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, false
	}

	if items, ok := value.([]any); ok {
		return items, true
	}
	return []any{content}, true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
