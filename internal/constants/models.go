package constants

// ModelConfig holds model configuration for a provider
type ModelConfig struct {
	LLMModel string
	BaseURL  string
}

// DefaultModels contains default model configurations for each provider
var DefaultModels = map[Provider]ModelConfig{
	ProviderGroq: {
		LLMModel: "llama-3.3-70b-versatile",
		BaseURL:  "https://api.groq.com/openai/v1",
	},
	ProviderOpenAI: {
		LLMModel: "gpt-4o-mini",
		BaseURL:  "https://api.openai.com/v1",
	},
	ProviderOllama: {
		LLMModel: "llama3.1",
		BaseURL:  "http://localhost:11434",
	},
	ProviderAnthropic: {
		LLMModel: "claude-sonnet-4-5-20250929",
		BaseURL:  "https://api.anthropic.com/v1",
	},
	ProviderGemini: {
		LLMModel: "gemini-2.5-flash",
	},
}

// ModelOption represents a selectable model with metadata for CLI display
type ModelOption struct {
	Model       string
	Description string
}

// GetLLMModels returns known model options for a provider
func GetLLMModels(provider Provider) []ModelOption {
	return llmModels[provider]
}

var llmModels = map[Provider][]ModelOption{
	ProviderGroq: {
		{Model: "llama-3.3-70b-versatile", Description: "Llama 3.3 70B (default)"},
		{Model: "llama-3.1-8b-instant", Description: "Llama 3.1 8B (fast, cheap)"},
	},
	ProviderOpenAI: {
		{Model: "gpt-4o-mini", Description: "GPT-4o Mini (default, cheap)"},
		{Model: "gpt-4o", Description: "GPT-4o"},
	},
	ProviderOllama: {
		{Model: "llama3.1", Description: "Meta Llama 3.1 (default)"},
		{Model: "qwen3", Description: "Qwen3"},
		{Model: "gemma3", Description: "Gemma 3"},
	},
	ProviderAnthropic: {
		{Model: "claude-sonnet-4-5-20250929", Description: "Claude Sonnet 4.5 (default)"},
		{Model: "claude-haiku-4-5-20250929", Description: "Claude Haiku 4.5 (fast, cheap)"},
	},
	ProviderGemini: {
		{Model: "gemini-2.5-flash", Description: "Gemini 2.5 Flash (default)"},
		{Model: "gemini-2.5-pro", Description: "Gemini 2.5 Pro"},
	},
}

// GetDefaultModel returns the default LLM model for a provider
func GetDefaultModel(provider Provider) string {
	return DefaultModels[provider].LLMModel
}

// GetDefaultBaseURL returns the default base URL for a provider
func GetDefaultBaseURL(provider Provider) string {
	return DefaultModels[provider].BaseURL
}
