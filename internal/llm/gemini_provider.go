package llm

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
)

// GeminiOptions configures the Gemini backend
type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// GeminiProvider implements the Provider interface using Google's Gemini API
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(ctx context.Context, opts GeminiOptions) (*GeminiProvider, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  opts.Model,
	}, nil
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Complete issues a single-shot generation with the combined prompt
func (p *GeminiProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	span := sentry.StartSpan(ctx, "gemini.generate_content")
	span.SetTag("provider", providerNameGemini)
	span.SetTag("model", p.model)
	defer span.Finish()

	log.Printf("🚨 GEMINI: About to call Gemini API with model='%s'", p.model)

	apiStartTime := time.Now()
	result, err := p.client.Models.GenerateContent(span.Context(), p.model, genai.Text(request.CombinedPrompt()), nil)
	apiDuration := time.Since(apiStartTime)

	if err != nil {
		log.Printf("❌ GEMINI REQUEST FAILED after %v: %v", apiDuration, err)
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameGemini, fmt.Errorf("gemini request failed: %w", err))
	}

	log.Printf("⏱️  GEMINI API CALL COMPLETED in %v", apiDuration)

	text, err := extractGeminiText(result)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return nil, newBackendError(providerNameGemini, err)
	}
	log.Printf("📥 GEMINI CONTENT: %s", truncate(text, maxOutputTrunc))

	response := &CompletionResponse{
		Text:  text,
		Model: p.model,
	}
	if result.UsageMetadata != nil {
		response.Usage = TokenUsage{
			InputTokens:  int64(result.UsageMetadata.PromptTokenCount),
			OutputTokens: int64(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int64(result.UsageMetadata.TotalTokenCount),
		}
	}

	span.Status = sentry.SpanStatusOK
	return response, nil
}

// extractGeminiText joins the text parts of the first candidate
func extractGeminiText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates in Gemini response", ErrNoContent)
	}

	candidate := result.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no parts in Gemini response", ErrNoContent)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("%w: gemini response did not include any output text", ErrNoContent)
	}
	return b.String(), nil
}
