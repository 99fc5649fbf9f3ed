package constants

import "strings"

// Provider represents an LLM provider type
type Provider string

// LLM Providers
const (
	ProviderGroq      Provider = "groq"
	ProviderOpenAI    Provider = "openai"
	ProviderOllama    Provider = "ollama"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
)

// DefaultProvider is used when nothing is configured.
const DefaultProvider = ProviderGroq

// ProviderInfo contains display information about a provider
type ProviderInfo struct {
	Name        Provider
	Description string
	// EnvKey is the environment variable consulted when no API key is configured.
	EnvKey string
	// Structured is true when the provider can constrain replies to a JSON schema.
	Structured bool
}

// AllProviders lists the supported providers in display order.
var AllProviders = []ProviderInfo{
	{
		Name:        ProviderGroq,
		Description: "Groq (OpenAI-compatible, fast Llama inference)",
		EnvKey:      "GROQ_API_KEY",
		Structured:  true,
	},
	{
		Name:        ProviderOpenAI,
		Description: "OpenAI (GPT-4o family)",
		EnvKey:      "OPENAI_API_KEY",
		Structured:  true,
	},
	{
		Name:        ProviderOllama,
		Description: "Ollama (local, free)",
		Structured:  true,
	},
	{
		Name:        ProviderAnthropic,
		Description: "Anthropic (Claude)",
		EnvKey:      "ANTHROPIC_API_KEY",
		Structured:  true,
	},
	{
		Name:        ProviderGemini,
		Description: "Google Gemini (Flash, Pro)",
		EnvKey:      "GEMINI_API_KEY",
		Structured:  true,
	},
}

// GetProviderInfo returns information about a provider
func GetProviderInfo(provider Provider) *ProviderInfo {
	for _, p := range AllProviders {
		if strings.EqualFold(string(p.Name), string(provider)) {
			return &p
		}
	}
	return nil
}

// ParseProvider normalizes a provider name. The second result is false for
// unknown providers.
func ParseProvider(name string) (Provider, bool) {
	info := GetProviderInfo(Provider(strings.TrimSpace(name)))
	if info == nil {
		return "", false
	}
	return info.Name, true
}

// ProviderDescription returns a human-readable description of a provider
func ProviderDescription(provider Provider) string {
	if info := GetProviderInfo(provider); info != nil {
		return info.Description
	}
	return string(provider)
}

// ProviderNeedsAPIKey reports whether the provider is remote and authenticated.
func ProviderNeedsAPIKey(provider Provider) bool {
	return provider != ProviderOllama
}
