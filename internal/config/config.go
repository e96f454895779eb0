package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultProviderTimeout    = 30 * time.Second
	defaultAnthropicMaxTokens = 1000
)

// Config holds the application configuration
// Provider credentials are read once at startup; a missing key only fails that backend's calls
type Config struct {
	// Environment
	Environment string
	Port        string

	// PrimaryChatModel ("4"): Azure OpenAI when AzureOpenAIResource is set, plain OpenAI otherwise
	AzureOpenAIAPIKey       string
	AzureOpenAIResource     string
	AzureOpenAIDeploymentID string
	AzureOpenAIAPIVersion   string
	OpenAIAPIKey            string
	OpenAIBaseURL           string
	OpenAIModel             string

	// AnthropicClaude ("C")
	AnthropicAPIKey    string
	AnthropicBaseURL   string
	AnthropicModel     string
	AnthropicMaxTokens int64

	// GoogleGemini ("G")
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	// Bounded wait for every provider call
	ProviderTimeout time.Duration

	// Transport
	CORSAllowedOrigins []string

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse
}

func Load() *Config {
	return &Config{
		Environment:             getEnv("ENVIRONMENT", "development"),
		Port:                    getEnv("PORT", "3000"),
		AzureOpenAIAPIKey:       getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIResource:     getEnv("AZURE_OPENAI_RESOURCE", ""),
		AzureOpenAIDeploymentID: getEnv("AZURE_OPENAI_DEPLOYMENT_ID", ""),
		AzureOpenAIAPIVersion:   getEnv("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:           getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:             getEnv("OPENAI_MODEL", "gpt-4-32k"),
		AnthropicAPIKey:         getEnv("ANTHROPIC_API", getEnv("ANTHROPIC_API_KEY", "")),
		AnthropicBaseURL:        getEnv("ANTHROPIC_BASE_URL", ""),
		AnthropicModel:          getEnv("ANTHROPIC_MODEL", "claude-3-opus-20240229"),
		AnthropicMaxTokens:      getEnvInt("ANTHROPIC_MAX_TOKENS", defaultAnthropicMaxTokens),
		GeminiAPIKey:            getEnv("GOOGLE_GENERATIVE_AI_KEY", getEnv("GEMINI_API_KEY", "")),
		GeminiBaseURL:           getEnv("GEMINI_BASE_URL", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-pro"),
		ProviderTimeout:         getEnvDuration("PROVIDER_TIMEOUT", defaultProviderTimeout),
		CORSAllowedOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		SentryDSN:               getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:       getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:       getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:            getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:         getEnv("LANGFUSE_ENABLED", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return defaultValue
	}
	return items
}

// UsesAzureOpenAI returns true when the primary chat model goes through an Azure deployment
func (c *Config) UsesAzureOpenAI() bool {
	return c.AzureOpenAIResource != ""
}

// AzureOpenAIEndpoint returns the resource endpoint for Azure OpenAI
func (c *Config) AzureOpenAIEndpoint() string {
	return "https://" + c.AzureOpenAIResource + ".openai.azure.com"
}

// PrimaryChatModel returns the model (or Azure deployment) name for the "4" backend
func (c *Config) PrimaryChatModel() string {
	if c.UsesAzureOpenAI() && c.AzureOpenAIDeploymentID != "" {
		return c.AzureOpenAIDeploymentID
	}
	return c.OpenAIModel
}

// PrimaryChatAPIKey returns the key for the "4" backend
func (c *Config) PrimaryChatAPIKey() string {
	if c.UsesAzureOpenAI() {
		return c.AzureOpenAIAPIKey
	}
	return c.OpenAIAPIKey
}

// IsProduction returns true in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
