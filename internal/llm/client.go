package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ishaan812/changelog/internal/constants"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client defines the interface for LLM operations.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	ChatComplete(ctx context.Context, messages []Message) (string, error)
}

// StructuredClient is implemented by clients whose provider can constrain the
// reply to a JSON schema. CompleteJSON returns the raw JSON text.
type StructuredClient interface {
	Client
	CompleteJSON(ctx context.Context, prompt string, schema *Schema) (string, error)
}

// Provider is an alias to constants.Provider.
type Provider = constants.Provider

const (
	ProviderGroq      = constants.ProviderGroq
	ProviderOpenAI    = constants.ProviderOpenAI
	ProviderOllama    = constants.ProviderOllama
	ProviderAnthropic = constants.ProviderAnthropic
	ProviderGemini    = constants.ProviderGemini
)

// Config holds configuration for creating an LLM client.
type Config struct {
	Provider Provider
	Model    string
	BaseURL  string
	APIKey   string

	// HTTPClient is used by the HTTP based providers. Nil means a default client.
	HTTPClient *http.Client
}

// Option is a functional option for configuring LLM clients.
type Option func(*Config)

// WithModel sets the model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithBaseURL sets the base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Config) { c.HTTPClient = hc }
}

// NewConfig returns the provider defaults with opts applied.
func NewConfig(provider Provider, opts ...Option) Config {
	cfg := Config{Provider: provider}
	if modelConfig, ok := constants.DefaultModels[provider]; ok {
		cfg.Model = modelConfig.LLMModel
		cfg.BaseURL = modelConfig.BaseURL
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// NewClient creates an LLM client from config. Empty model and base URL fall
// back to the provider defaults.
func NewClient(cfg Config) (Client, error) {
	if cfg.Model == "" {
		cfg.Model = constants.GetDefaultModel(cfg.Provider)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = constants.GetDefaultBaseURL(cfg.Provider)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	switch cfg.Provider {
	case ProviderGroq:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Groq API key is required")
		}
		return NewGroqClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.HTTPClient), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.HTTPClient), nil
	case ProviderOllama:
		return NewOllamaClient(cfg.BaseURL, cfg.Model, cfg.HTTPClient), nil
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is required")
		}
		return NewAnthropicClient(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.HTTPClient), nil
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiClient(cfg.BaseURL, cfg.APIKey, cfg.Model), nil
	case "":
		return nil, fmt.Errorf("no LLM provider configured")
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// AvailableProviders returns supported LLM providers.
func AvailableProviders() []Provider {
	providers := make([]Provider, 0, len(constants.AllProviders))
	for _, p := range constants.AllProviders {
		providers = append(providers, p.Name)
	}
	return providers
}
