package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiClient implements the Client interface using Google's official Gemini Go SDK.
type GeminiClient struct {
	mu      sync.Mutex
	client  *genai.Client
	baseURL string
	apiKey  string
	model   string
}

// NewGeminiClient creates a client. The SDK is initialized lazily on first
// use. An empty baseURL keeps the SDK's default endpoint.
func NewGeminiClient(baseURL, apiKey, model string) *GeminiClient {
	return &GeminiClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

func (c *GeminiClient) ensureClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}

	cfg := &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  c.apiKey,
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	c.client = client
	return client, nil
}

func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.ChatComplete(ctx, []Message{{Role: "user", Content: prompt}})
}

func (c *GeminiClient) ChatComplete(ctx context.Context, messages []Message) (string, error) {
	var contents []*genai.Content
	config := &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)}

	for _, m := range messages {
		var role genai.Role = genai.RoleUser
		switch m.Role {
		case "system":
			// Gemini uses systemInstruction for system prompts
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		case "assistant":
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	if len(contents) == 0 {
		return "", fmt.Errorf("no user/assistant messages provided")
	}
	return c.generate(ctx, contents, config)
}

// CompleteJSON requests application/json output constrained by schema.
func (c *GeminiClient) CompleteJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.genai(),
	}
	return c.generate(ctx, genai.Text(prompt), config)
}

func (c *GeminiClient) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	client, err := c.ensureClient(ctx)
	if err != nil {
		return "", err
	}

	result, err := client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return strings.TrimSpace(result.Text()), nil
}
