package llm

import (
	"context"
	"fmt"
	"log"

	"github.com/Conceptual-Machines/aideas-relay/internal/config"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
)

// Registry maps each backend identity to its provider.
// It is built once at startup and only read afterwards.
type Registry struct {
	providers map[models.Backend]Provider
}

// NewRegistry creates a registry from a fixed set of providers
func NewRegistry(providers map[models.Backend]Provider) *Registry {
	copied := make(map[models.Backend]Provider, len(providers))
	for backend, provider := range providers {
		copied[backend] = provider
	}
	return &Registry{providers: copied}
}

// Provider returns the provider for backend, or ErrUnknownBackend
func (r *Registry) Provider(backend models.Backend) (Provider, error) {
	provider, ok := r.providers[backend]
	if !ok || provider == nil {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownBackend, backend)
	}
	return provider, nil
}

// ProviderFactory creates the process-wide provider handles from configuration
type ProviderFactory struct {
	cfg *config.Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(cfg *config.Config) *ProviderFactory {
	return &ProviderFactory{cfg: cfg}
}

// BuildRegistry constructs one provider per backend.
// A client that cannot be built is replaced by a provider that fails each call,
// so a missing credential never stops the server from starting.
func (f *ProviderFactory) BuildRegistry(ctx context.Context) *Registry {
	cfg := f.cfg

	openAIOpts := OpenAIOptions{
		APIKey:  cfg.PrimaryChatAPIKey(),
		Model:   cfg.PrimaryChatModel(),
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.ProviderTimeout,
	}
	if cfg.UsesAzureOpenAI() {
		openAIOpts.AzureEndpoint = cfg.AzureOpenAIEndpoint()
		openAIOpts.AzureAPIVersion = cfg.AzureOpenAIAPIVersion
	}

	providers := map[models.Backend]Provider{
		models.BackendPrimaryChat: NewOpenAIProvider(openAIOpts),
		models.BackendClaude: NewAnthropicProvider(AnthropicOptions{
			APIKey:    cfg.AnthropicAPIKey,
			Model:     cfg.AnthropicModel,
			BaseURL:   cfg.AnthropicBaseURL,
			MaxTokens: cfg.AnthropicMaxTokens,
			Timeout:   cfg.ProviderTimeout,
		}),
	}

	gemini, err := NewGeminiProvider(ctx, GeminiOptions{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.ProviderTimeout,
	})
	if err != nil {
		log.Printf("⚠️  Gemini backend unavailable: %v", err)
		providers[models.BackendGemini] = &unavailableProvider{name: providerNameGemini, err: err}
	} else {
		providers[models.BackendGemini] = gemini
	}

	for _, backend := range models.AllBackends {
		log.Printf("🔌 Backend %q → %s", backend, providers[backend].Name())
	}

	return NewRegistry(providers)
}

// unavailableProvider stands in for a backend whose client failed to initialize
type unavailableProvider struct {
	name string
	err  error
}

func (p *unavailableProvider) Name() string {
	return p.name
}

func (p *unavailableProvider) Complete(_ context.Context, _ *CompletionRequest) (*CompletionResponse, error) {
	return nil, newBackendError(p.name, fmt.Errorf("client not initialized: %w", p.err))
}
