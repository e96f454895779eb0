package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/Conceptual-Machines/aideas-relay/internal/config"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProvider is a test implementation of the Provider interface
type MockProvider struct {
	name         string
	completeFunc func(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error)
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, request *CompletionRequest) (*CompletionResponse, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, request)
	}
	return &CompletionResponse{}, nil
}

func TestProviderInterface(t *testing.T) {
	var _ Provider = (*MockProvider)(nil)
	var _ Provider = (*OpenAIProvider)(nil)
	var _ Provider = (*AnthropicProvider)(nil)
	var _ Provider = (*GeminiProvider)(nil)
	var _ Provider = (*unavailableProvider)(nil)
}

func TestCompletionRequest_CombinedPrompt(t *testing.T) {
	req := &CompletionRequest{Instruction: "Generate a rhythm", UserMessage: "genre: funk"}
	assert.Equal(t, "Generate a rhythm\n\ngenre: funk", req.CombinedPrompt())
}

func TestTokenUsage_AsMap(t *testing.T) {
	usage := TokenUsage{InputTokens: 3, OutputTokens: 4, TotalTokens: 7}
	assert.Equal(t, map[string]int64{"input_tokens": 3, "output_tokens": 4, "total_tokens": 7}, usage.AsMap())
}

func TestBackendError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(newBackendError("gemini", cause))

	assert.Equal(t, "gemini backend error: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "gemini", backendErr.Provider)
}

func TestRegistry(t *testing.T) {
	mock := &MockProvider{name: "mock"}
	providers := map[models.Backend]Provider{models.BackendClaude: mock}
	registry := NewRegistry(providers)

	// Later changes to the source map do not leak into the registry
	providers[models.BackendGemini] = mock

	got, err := registry.Provider(models.BackendClaude)
	require.NoError(t, err)
	assert.Same(t, mock, got)

	_, err = registry.Provider(models.BackendGemini)
	assert.ErrorIs(t, err, models.ErrUnknownBackend)

	_, err = registry.Provider(models.Backend("X"))
	assert.ErrorIs(t, err, models.ErrUnknownBackend)
}

func TestProviderFactory_BuildRegistry(t *testing.T) {
	cfg := &config.Config{
		OpenAIModel:        "gpt-4-32k",
		AnthropicModel:     "claude-3-opus-20240229",
		AnthropicMaxTokens: 1000,
		GeminiAPIKey:       "test-key",
		GeminiModel:        "gemini-pro",
	}

	registry := NewProviderFactory(cfg).BuildRegistry(context.Background())

	want := map[models.Backend]string{
		models.BackendPrimaryChat: "openai",
		models.BackendClaude:      "anthropic",
		models.BackendGemini:      "gemini",
	}
	for backend, name := range want {
		provider, err := registry.Provider(backend)
		require.NoError(t, err, "backend %q", backend)
		assert.Equal(t, name, provider.Name())
	}
}

func TestUnavailableProvider(t *testing.T) {
	cause := errors.New("api key is required")
	provider := &unavailableProvider{name: "gemini", err: cause}

	resp, err := provider.Complete(context.Background(), &CompletionRequest{})
	assert.Nil(t, resp)
	assert.ErrorIs(t, err, cause)

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, "gemini", backendErr.Provider)
}
